package api

import (
	"net/http"

	"github.com/onnwee/valuesalign/internal/auth"
	"github.com/onnwee/valuesalign/internal/middleware"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Alignment *AlignmentHandlers
	Ranking   *RankingHandlers
	Discovery *DiscoveryHandlers
	Health    *HealthHandlers

	// Tokens validates bearer tokens for authenticated routes.
	Tokens middleware.TokenValidator
	// Admins guards the admin routes. The zero policy admits nobody.
	Admins auth.AdminPolicy
	// Metrics records auth failures (optional).
	Metrics *middleware.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// RateLimit wraps the public scoring and discovery routes when set.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter mounts every API route on a fresh ServeMux. Request-scoped
// middleware (request IDs, logging, tracing, HTTP metrics, CORS) is applied
// by the caller around the returned handler.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	limited := func(h http.Handler) http.Handler {
		if cfg.RateLimit == nil {
			return h
		}
		return cfg.RateLimit(h)
	}
	authed := middleware.RequireAuth(cfg.Tokens, cfg.Metrics)
	admin := func(h http.Handler) http.Handler {
		return authed(middleware.RequireAdmin(cfg.Admins, cfg.Metrics)(h))
	}

	mux.HandleFunc("/health", cfg.Health.Health)
	mux.HandleFunc("/ready", cfg.Health.Ready)
	if cfg.MetricsHandler != nil {
		mux.Handle("/metrics", cfg.MetricsHandler)
	}

	mux.Handle("/alignment/score", limited(http.HandlerFunc(cfg.Alignment.Score)))
	mux.Handle("/alignment/", authed(limited(http.HandlerFunc(cfg.Alignment.EntityScore))))

	mux.HandleFunc("/rankings/brands", cfg.Ranking.TopBrands)
	mux.HandleFunc("/rankings/businesses", cfg.Ranking.TopBusinesses)
	mux.Handle("/admin/rankings/invalidate", admin(http.HandlerFunc(cfg.Ranking.Invalidate)))

	mux.Handle("/discovery/local", authed(limited(http.HandlerFunc(cfg.Discovery.Local))))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]string{"service": "valuesalign-api"})
	})

	return mux
}
