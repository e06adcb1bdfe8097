package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/geo"
	"github.com/onnwee/valuesalign/internal/tracing"
)

// ImportStats counts the rows written by Import.
type ImportStats struct {
	Causes     int
	Users      int
	Brands     int
	Businesses int
	Lists      int
}

// Import upserts a fixture in a single transaction. Declarations, alignment
// records, locations and list entries of every imported entity are replaced.
// Causes referenced by a declaration but missing from the catalog are created
// with the declared name and category.
func (p *Postgres) Import(ctx context.Context, f *Fixture) (stats ImportStats, err error) {
	if err := f.Validate(); err != nil {
		return stats, err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "", tracing.DBOperationExec)
	defer func() { endSpan(err) }()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				p.logger.Error("failed to rollback import", "error", rbErr)
			}
		}
	}()

	for _, c := range f.Causes {
		if err = upsertCause(ctx, tx, c, true); err != nil {
			return stats, err
		}
		stats.Causes++
	}

	for _, u := range f.Users {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO users (id, email) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
		`, u.ID, u.Email); err != nil {
			return stats, fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
		}
		if err = replaceCauses(ctx, tx, "user_causes", "user_id", u.ID, u.Causes); err != nil {
			return stats, err
		}
		stats.Users++
	}

	for _, b := range f.Brands {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO brands (id, name, category, website, logo_url)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				category = EXCLUDED.category,
				website = EXCLUDED.website,
				logo_url = EXCLUDED.logo_url
		`, b.ID, b.Name, b.Category, b.Website, b.LogoURL); err != nil {
			return stats, fmt.Errorf("failed to upsert brand %s: %w", b.ID, err)
		}
		alignments := b.Alignments
		if len(alignments) == 0 {
			alignments = catalog.AlignmentsFromCauses(b.Causes)
		}
		if err = replaceAlignments(ctx, tx, "brand_alignments", "brand_id", b.ID, alignments); err != nil {
			return stats, err
		}
		stats.Brands++
	}

	for _, b := range f.Businesses {
		var lat, lng sql.NullFloat64
		if b.Site.Legacy != nil {
			lat = sql.NullFloat64{Float64: b.Site.Legacy.Lat, Valid: true}
			lng = sql.NullFloat64{Float64: b.Site.Legacy.Lng, Valid: true}
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO businesses (id, name, category, website, logo_url, latitude, longitude)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				category = EXCLUDED.category,
				website = EXCLUDED.website,
				logo_url = EXCLUDED.logo_url,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude
		`, b.ID, b.Name, b.Category, b.Website, b.LogoURL, lat, lng); err != nil {
			return stats, fmt.Errorf("failed to upsert business %s: %w", b.ID, err)
		}
		if err = replaceCauses(ctx, tx, "business_causes", "business_id", b.ID, b.Causes); err != nil {
			return stats, err
		}
		if err = replaceAlignments(ctx, tx, "business_alignments", "business_id", b.ID, b.Alignments); err != nil {
			return stats, err
		}
		if err = replaceLocations(ctx, tx, b.ID, b.Site.Locations); err != nil {
			return stats, err
		}
		stats.Businesses++
	}

	for _, l := range f.Lists {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO lists (id, user_id, title) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id, title = EXCLUDED.title
		`, l.ID, l.UserID, l.Title); err != nil {
			return stats, fmt.Errorf("failed to upsert list %s: %w", l.ID, err)
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM list_entries WHERE list_id = $1`, l.ID); err != nil {
			return stats, fmt.Errorf("failed to clear entries of list %s: %w", l.ID, err)
		}
		for i, e := range l.Entries {
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO list_entries (list_id, position, entry_type, brand_id, business_id, name, category, website, logo_url)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, l.ID, i+1, e.Type, e.BrandID, e.BusinessID, e.Name, e.Category, e.Website, e.LogoURL); err != nil {
				return stats, fmt.Errorf("failed to insert entry %d of list %s: %w", i+1, l.ID, err)
			}
		}
		stats.Lists++
	}

	if err = tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit import: %w", err)
	}

	p.logger.Info("fixture imported",
		"causes", stats.Causes,
		"users", stats.Users,
		"brands", stats.Brands,
		"businesses", stats.Businesses,
		"lists", stats.Lists,
	)
	return stats, nil
}

// upsertCause writes a catalog entry. With overwrite false an existing entry
// is left untouched.
func upsertCause(ctx context.Context, tx *sql.Tx, c catalog.Cause, overwrite bool) error {
	category := catalog.CategoryOther
	if c.Category != "" {
		category = catalog.NormalizeCategory(c.Category)
	}
	query := `
		INSERT INTO causes (id, name, category, description) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	if overwrite {
		query = `
			INSERT INTO causes (id, name, category, description) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				category = EXCLUDED.category,
				description = EXCLUDED.description
		`
	}
	if _, err := tx.ExecContext(ctx, query, c.ID, c.Name, string(category), c.Description); err != nil {
		return fmt.Errorf("failed to upsert cause %s: %w", c.ID, err)
	}
	return nil
}

// replaceCauses rewrites the declarations of one declarant. table and column
// are fixed identifiers, never user input.
func replaceCauses(ctx context.Context, tx *sql.Tx, table, column, ownerID string, causes []catalog.Cause) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+column+` = $1`, ownerID); err != nil {
		return fmt.Errorf("failed to clear %s for %s: %w", table, ownerID, err)
	}
	for i, c := range causes {
		if err := upsertCause(ctx, tx, c, false); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (`+column+`, cause_id, stance, position) VALUES ($1, $2, $3, $4)`,
			ownerID, c.ID, string(c.Type), i+1,
		); err != nil {
			return fmt.Errorf("failed to insert %s row for %s: %w", table, ownerID, err)
		}
	}
	return nil
}

func replaceAlignments(ctx context.Context, tx *sql.Tx, table, column, ownerID string, records []catalog.ValueAlignment) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+column+` = $1`, ownerID); err != nil {
		return fmt.Errorf("failed to clear %s for %s: %w", table, ownerID, err)
	}
	for _, a := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (`+column+`, value_id, position, is_support) VALUES ($1, $2, $3, $4)`,
			ownerID, a.ValueID, a.Position, a.IsSupport,
		); err != nil {
			return fmt.Errorf("failed to insert %s row for %s: %w", table, ownerID, err)
		}
	}
	return nil
}

func replaceLocations(ctx context.Context, tx *sql.Tx, businessID string, locations []geo.Location) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM business_locations WHERE business_id = $1`, businessID); err != nil {
		return fmt.Errorf("failed to clear locations for %s: %w", businessID, err)
	}
	for _, loc := range locations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO business_locations (business_id, label, latitude, longitude)
			VALUES ($1, $2, $3, $4)
		`, businessID, loc.Label, loc.Point.Lat, loc.Point.Lng); err != nil {
			return fmt.Errorf("failed to insert location for %s: %w", businessID, err)
		}
	}
	return nil
}
