package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq" // PostgreSQL driver; pq.Array used for = ANY($1) parameters

	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/geo"
	"github.com/onnwee/valuesalign/internal/ranking"
	"github.com/onnwee/valuesalign/internal/tracing"
)

// Postgres reads declarations and lists from PostgreSQL.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres creates a new Postgres store.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// UserCauses implements alignment.DeclarationSource. Unknown users have none.
func (p *Postgres) UserCauses(ctx context.Context, userID string) (causes []catalog.Cause, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "user_causes", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.category, c.description, uc.stance
		FROM user_causes uc
		JOIN causes c ON c.id = uc.cause_id
		WHERE uc.user_id = $1
		ORDER BY uc.position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user causes: %w", err)
	}
	defer rows.Close()

	causes = []catalog.Cause{}
	for rows.Next() {
		var c catalog.Cause
		if err := rows.Scan(&c.ID, &c.Name, &c.Category, &c.Description, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan user cause: %w", err)
		}
		causes = append(causes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user causes: %w", err)
	}
	return causes, nil
}

// Brand implements alignment.DeclarationSource.
func (p *Postgres) Brand(ctx context.Context, id string) (b *catalog.Brand, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "brands", tracing.DBOperationQuery)
	defer func() {
		if errors.Is(err, catalog.ErrNotFound) {
			endSpan(nil)
			return
		}
		endSpan(err)
	}()

	b = &catalog.Brand{}
	err = p.db.QueryRowContext(ctx, `
		SELECT id, name, category, website, logo_url
		FROM brands
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.Category, &b.Website, &b.LogoURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query brand: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT value_id, position, is_support
		FROM brand_alignments
		WHERE brand_id = $1
		ORDER BY position, value_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query brand alignments: %w", err)
	}
	defer rows.Close()

	b.Alignments = []catalog.ValueAlignment{}
	for rows.Next() {
		var a catalog.ValueAlignment
		if err := rows.Scan(&a.ValueID, &a.Position, &a.IsSupport); err != nil {
			return nil, fmt.Errorf("failed to scan brand alignment: %w", err)
		}
		b.Alignments = append(b.Alignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate brand alignments: %w", err)
	}
	return b, nil
}

// Business implements alignment.DeclarationSource.
func (p *Postgres) Business(ctx context.Context, id string) (*catalog.Business, error) {
	businesses, err := p.queryBusinesses(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(businesses) == 0 {
		return nil, catalog.ErrNotFound
	}
	return &businesses[0], nil
}

// Businesses implements discovery.Source.
func (p *Postgres) Businesses(ctx context.Context) ([]catalog.Business, error) {
	return p.queryBusinesses(ctx, "")
}

// BusinessSites implements ranking.LocationSource.
func (p *Postgres) BusinessSites(ctx context.Context, ids []string) (sites map[string]geo.Site, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "businesses", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	sites = make(map[string]geo.Site, len(ids))
	if len(ids) == 0 {
		return sites, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, latitude, longitude
		FROM businesses
		WHERE id = ANY($1) AND latitude IS NOT NULL AND longitude IS NOT NULL
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query business coordinates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       string
			lat, lng float64
		)
		if err := rows.Scan(&id, &lat, &lng); err != nil {
			return nil, fmt.Errorf("failed to scan business coordinates: %w", err)
		}
		sites[id] = geo.Site{Legacy: &geo.Point{Lat: lat, Lng: lng}}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate business coordinates: %w", err)
	}

	locations, err := p.locations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, locs := range locations {
		site := sites[id]
		site.Locations = locs
		sites[id] = site
	}
	return sites, nil
}

// AllLists implements ranking.ListSource.
func (p *Postgres) AllLists(ctx context.Context) (lists []ranking.List, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "lists", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, title
		FROM lists
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	lists = []ranking.List{}
	for rows.Next() {
		var l ranking.List
		if err := rows.Scan(&l.ID, &l.UserID, &l.Title); err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		index[l.ID] = len(lists)
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lists: %w", err)
	}

	entryRows, err := p.db.QueryContext(ctx, `
		SELECT list_id, entry_type, brand_id, business_id, name, category, website, logo_url
		FROM list_entries
		ORDER BY list_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query list entries: %w", err)
	}
	defer entryRows.Close()

	for entryRows.Next() {
		var (
			listID string
			e      ranking.Entry
		)
		if err := entryRows.Scan(&listID, &e.Type, &e.BrandID, &e.BusinessID, &e.Name, &e.Category, &e.Website, &e.LogoURL); err != nil {
			return nil, fmt.Errorf("failed to scan list entry: %w", err)
		}
		idx, ok := index[listID]
		if !ok {
			continue
		}
		lists[idx].Entries = append(lists[idx].Entries, e)
	}
	if err := entryRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate list entries: %w", err)
	}
	return lists, nil
}

// queryBusinesses loads businesses matching where, with their causes,
// alignment records and sites attached.
func (p *Postgres) queryBusinesses(ctx context.Context, where string, args ...any) (businesses []catalog.Business, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "businesses", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, category, website, logo_url, latitude, longitude
		FROM businesses
		`+where+`
		ORDER BY created_at, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query businesses: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	var ids []string
	businesses = []catalog.Business{}
	for rows.Next() {
		var (
			b        catalog.Business
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Category, &b.Website, &b.LogoURL, &lat, &lng); err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		if lat.Valid && lng.Valid {
			b.Site.Legacy = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
		}
		b.Causes = []catalog.Cause{}
		index[b.ID] = len(businesses)
		ids = append(ids, b.ID)
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate businesses: %w", err)
	}
	if len(ids) == 0 {
		return businesses, nil
	}

	causeRows, err := p.db.QueryContext(ctx, `
		SELECT bc.business_id, c.id, c.name, c.category, c.description, bc.stance
		FROM business_causes bc
		JOIN causes c ON c.id = bc.cause_id
		WHERE bc.business_id = ANY($1)
		ORDER BY bc.business_id, bc.position
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query business causes: %w", err)
	}
	defer causeRows.Close()

	for causeRows.Next() {
		var (
			businessID string
			c          catalog.Cause
		)
		if err := causeRows.Scan(&businessID, &c.ID, &c.Name, &c.Category, &c.Description, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan business cause: %w", err)
		}
		if idx, ok := index[businessID]; ok {
			businesses[idx].Causes = append(businesses[idx].Causes, c)
		}
	}
	if err := causeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate business causes: %w", err)
	}

	alignRows, err := p.db.QueryContext(ctx, `
		SELECT business_id, value_id, position, is_support
		FROM business_alignments
		WHERE business_id = ANY($1)
		ORDER BY business_id, position, value_id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query business alignments: %w", err)
	}
	defer alignRows.Close()

	for alignRows.Next() {
		var (
			businessID string
			a          catalog.ValueAlignment
		)
		if err := alignRows.Scan(&businessID, &a.ValueID, &a.Position, &a.IsSupport); err != nil {
			return nil, fmt.Errorf("failed to scan business alignment: %w", err)
		}
		if idx, ok := index[businessID]; ok {
			businesses[idx].Alignments = append(businesses[idx].Alignments, a)
		}
	}
	if err := alignRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate business alignments: %w", err)
	}

	locations, err := p.locations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, locs := range locations {
		businesses[index[id]].Site.Locations = locs
	}
	return businesses, nil
}

func (p *Postgres) locations(ctx context.Context, ids []string) (map[string][]geo.Location, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT business_id, label, latitude, longitude
		FROM business_locations
		WHERE business_id = ANY($1)
		ORDER BY business_id, id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query business locations: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]geo.Location)
	for rows.Next() {
		var (
			businessID string
			loc        geo.Location
		)
		if err := rows.Scan(&businessID, &loc.Label, &loc.Point.Lat, &loc.Point.Lng); err != nil {
			return nil, fmt.Errorf("failed to scan business location: %w", err)
		}
		out[businessID] = append(out[businessID], loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate business locations: %w", err)
	}
	return out, nil
}
