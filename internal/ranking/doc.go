// Package ranking aggregates user list endorsements into brand and business
// rankings.
//
// Basic Usage:
//
//	// Pure computation over already-fetched lists
//	items := ranking.Rank(lists, ranking.TypeBrand, 10, nil, nil)
//
//	// Service over the persistence layer, optionally cached
//	svc := ranking.NewService(store, store, ranking.ServiceConfig{
//		Logger:   logger,
//		Metrics:  rankingMetrics,
//		Cache:    ranking.NewRedisCache(redisClient),
//		CacheTTL: 5 * time.Minute,
//	})
//	top, err := svc.TopBusinesses(ctx, 20, &ranking.GeoFilter{
//		Center:   geo.Point{Lat: 40.71, Lng: -74.0},
//		MaxMiles: 25,
//	})
//
// Position Weights:
//
// Every brand or business entry contributes PositionWeight of its 1-based
// position in its list. The weight decays from 100 at the top of a list to a
// floor of 1, so being first on one list outweighs being twentieth on three.
//
// Failure Semantics:
//
// Service.Rank never returns partial results. A failed read of lists or
// locations is logged and yields an empty ranking; only malformed arguments
// are reported as errors. Nothing is retried.
//
// Caching:
//
// Without a Cache every call rescans all lists. With one, unfiltered results
// are keyed by entity type and limit. Geo-filtered requests read the cached
// full ranking for the type, then resolve locations and apply the radius
// from their own center on every call. WarmJob keeps the most requested
// rankings hot.
package ranking
