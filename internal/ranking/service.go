package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/geo"
	"github.com/onnwee/valuesalign/internal/tracing"
)

// ListSource reads every user list.
type ListSource interface {
	AllLists(ctx context.Context) ([]List, error)
}

// LocationSource resolves business locations. IDs without a known location are
// simply absent from the returned map.
type LocationSource interface {
	BusinessSites(ctx context.Context, ids []string) (map[string]geo.Site, error)
}

// ServiceConfig configures the ranking service.
type ServiceConfig struct {
	// Logger for service activity.
	Logger *slog.Logger
	// Metrics for computation tracking (optional).
	Metrics *Metrics
	// Cache for computed rankings (optional). Nil recomputes on every call.
	Cache Cache
	// CacheTTL is how long a cached ranking is served.
	CacheTTL time.Duration
}

// Service computes rankings over the full set of user lists.
type Service struct {
	lists     ListSource
	locations LocationSource
	config    ServiceConfig
}

// NewService creates a new ranking service.
func NewService(lists ListSource, locations LocationSource, config ServiceConfig) *Service {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Service{lists: lists, locations: locations, config: config}
}

// TopBrands returns the top brands across all lists.
func (s *Service) TopBrands(ctx context.Context, limit int) ([]RankedItem, error) {
	return s.Rank(ctx, TypeBrand, limit, nil)
}

// TopBusinesses returns the top businesses, optionally restricted to a radius.
func (s *Service) TopBusinesses(ctx context.Context, limit int, filter *GeoFilter) ([]RankedItem, error) {
	return s.Rank(ctx, TypeBusiness, limit, filter)
}

// Rank returns the ranking for t. The error is non-nil only for malformed
// arguments. Upstream read failures are logged and yield an empty result.
func (s *Service) Rank(ctx context.Context, t EntityType, limit int, filter *GeoFilter) ([]RankedItem, error) {
	if err := validateRequest(t, limit, filter); err != nil {
		return nil, err
	}

	if filter == nil {
		if items, ok := s.cached(ctx, CacheKey(t, limit)); ok {
			return items, nil
		}
	}

	items, err := s.compute(ctx, t, limit, filter)
	if err != nil {
		s.config.Logger.ErrorContext(ctx, "ranking computation failed",
			"entity_type", t,
			"limit", limit,
			"error", err)
		return []RankedItem{}, nil
	}

	if filter == nil {
		s.store(ctx, CacheKey(t, limit), items)
	}
	return items, nil
}

// Refresh recomputes a ranking and replaces its cache entry. For a
// geo-filtered ranking the full ranking it is cut from is refreshed instead.
// Unlike Rank it reports upstream failures.
func (s *Service) Refresh(ctx context.Context, t EntityType, limit int, filter *GeoFilter) ([]RankedItem, error) {
	if err := validateRequest(t, limit, filter); err != nil {
		return nil, err
	}
	if filter != nil {
		if _, err := s.Refresh(ctx, t, 0, nil); err != nil {
			return nil, err
		}
		return s.compute(ctx, t, limit, filter)
	}
	items, err := s.compute(ctx, t, limit, nil)
	if err != nil {
		return nil, err
	}
	s.store(ctx, CacheKey(t, limit), items)
	return items, nil
}

// Invalidate drops every cached ranking. It is a no-op without a cache.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.config.Cache == nil {
		return nil
	}
	if err := s.config.Cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear ranking cache: %w", err)
	}
	s.config.Logger.InfoContext(ctx, "ranking cache invalidated")
	return nil
}

func (s *Service) compute(ctx context.Context, t EntityType, limit int, filter *GeoFilter) (items []RankedItem, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "ranking.compute")
	defer func() { endSpan(err) }()
	tracing.SetAttributes(ctx,
		attribute.String("ranking.entity_type", string(t)),
		attribute.Int("ranking.limit", limit),
		attribute.Bool("ranking.geo_filter", filter != nil),
	)

	start := time.Now()
	defer func() {
		if s.config.Metrics == nil {
			return
		}
		status := "success"
		if err != nil {
			status = "failure"
		}
		s.config.Metrics.ObserveCompute(t, status, time.Since(start).Seconds(), len(items))
	}()

	if filter == nil {
		var lists []List
		lists, err = s.lists.AllLists(ctx)
		if err != nil {
			return nil, fmt.Errorf("read lists: %w", err)
		}
		items = Rank(lists, t, limit, nil, nil)
	} else {
		tracing.SetAttributes(ctx,
			attribute.String("ranking.center_cell", geo.Cell(filter.Center)),
			attribute.Float64("ranking.max_miles", filter.MaxMiles),
		)
		items, err = s.nearby(ctx, t, limit, *filter)
		if err != nil {
			return nil, err
		}
	}

	tracing.SetAttributes(ctx, attribute.Int("ranking.items", len(items)))
	s.config.Logger.DebugContext(ctx, "ranking computed",
		"entity_type", t,
		"geo_filter", filter != nil,
		"items", len(items),
		"duration_ms", time.Since(start).Milliseconds())
	return items, nil
}

// nearby cuts a geo-filtered ranking from the full ranking of t, reading it
// from the cache when one holds it. Distances are always measured from
// f.Center, so the result is never cached itself.
func (s *Service) nearby(ctx context.Context, t EntityType, limit int, f GeoFilter) ([]RankedItem, error) {
	key := CacheKey(t, 0)
	all, ok := s.cached(ctx, key)
	if !ok {
		lists, err := s.lists.AllLists(ctx)
		if err != nil {
			return nil, fmt.Errorf("read lists: %w", err)
		}
		all = Rank(lists, t, 0, nil, nil)
		s.store(ctx, key, all)
	}

	ids := make([]string, len(all))
	for i, item := range all {
		ids[i] = item.ID
	}
	sites, err := s.locations.BusinessSites(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("read locations: %w", err)
	}

	items := applyGeoFilter(append([]RankedItem(nil), all...), f, sites)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Service) cached(ctx context.Context, key string) ([]RankedItem, bool) {
	if s.config.Cache == nil {
		return nil, false
	}
	items, ok, err := s.config.Cache.Get(ctx, key)
	switch {
	case err != nil:
		s.incCache(CacheError)
		s.config.Logger.WarnContext(ctx, "ranking cache read failed", "key", key, "error", err)
		return nil, false
	case !ok:
		s.incCache(CacheMiss)
		return nil, false
	}
	s.incCache(CacheHit)
	return items, true
}

func (s *Service) store(ctx context.Context, key string, items []RankedItem) {
	if s.config.Cache == nil {
		return
	}
	if err := s.config.Cache.Set(ctx, key, items, s.config.CacheTTL); err != nil {
		s.config.Logger.WarnContext(ctx, "ranking cache write failed", "key", key, "error", err)
	}
}

func (s *Service) incCache(result string) {
	if s.config.Metrics != nil {
		s.config.Metrics.IncCache(result)
	}
}

func validateRequest(t EntityType, limit int, filter *GeoFilter) error {
	if !t.Valid() {
		return catalog.NewInvalidInput("entity_type", "must be brand or business, got %q", t)
	}
	if limit < 0 {
		return catalog.NewInvalidInput("limit", "must not be negative, got %d", limit)
	}
	if filter == nil {
		return nil
	}
	if t != TypeBusiness {
		return catalog.NewInvalidInput("filter", "geo filter applies to businesses only")
	}
	if !filter.Center.Valid() {
		return catalog.NewInvalidInput("center", "coordinate out of range")
	}
	if math.IsNaN(filter.MaxMiles) || filter.MaxMiles <= 0 {
		return catalog.NewInvalidInput("max_miles", "must be a positive number")
	}
	return nil
}
