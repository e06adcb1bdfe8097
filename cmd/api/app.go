package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/valuesalign/internal/alignment"
	"github.com/onnwee/valuesalign/internal/api"
	"github.com/onnwee/valuesalign/internal/auth"
	"github.com/onnwee/valuesalign/internal/config"
	"github.com/onnwee/valuesalign/internal/discovery"
	"github.com/onnwee/valuesalign/internal/health"
	"github.com/onnwee/valuesalign/internal/jobs"
	"github.com/onnwee/valuesalign/internal/middleware"
	"github.com/onnwee/valuesalign/internal/ranking"
	"github.com/onnwee/valuesalign/internal/store"
	"github.com/onnwee/valuesalign/internal/tracing"
)

const (
	serviceName = "valuesalign-api"

	shutdownTimeout        = 10 * time.Second
	startupPingTimeout     = 5 * time.Second
	rateLimitCleanupPeriod = time.Minute
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// backend is the declaration store every service reads from.
type backend interface {
	alignment.DeclarationSource
	ranking.ListSource
	ranking.LocationSource
	discovery.Source
}

// app holds the wired server and the background work that lives alongside it.
type app struct {
	logger  *slog.Logger
	handler http.Handler

	warm       *ranking.WarmJob
	limiter    *middleware.InMemoryRateLimitStore
	jobMetrics *jobs.Metrics

	closers []func(context.Context) error
}

// newApp wires stores, services, middleware and routes from cfg. On error,
// anything already opened is closed before returning.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	provider, err := tracing.NewProvider(tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Enabled:        cfg.TracingEnabled,
		Environment:    cfg.Env,
		ExporterType:   cfg.TracingExporter,
		OTLPEndpoint:   cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
		InsecureMode:   cfg.TracingInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracing provider: %w", err)
	}
	a.closers = append(a.closers, provider.Shutdown)

	var checkers []api.HealthChecker

	src, err := a.openStore(ctx, cfg, &checkers)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		a.closers = append(a.closers, func(context.Context) error { return redisClient.Close() })
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}

	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	alignMetrics := alignment.NewMetrics()
	rankMetrics := ranking.NewMetrics()
	a.jobMetrics = jobs.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register,
		alignMetrics.Register,
		rankMetrics.Register,
		a.jobMetrics.Register,
	} {
		if err := register(registry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	weighted := alignment.WeightedOptions{FloorMagnitude: cfg.FloorMagnitude}

	var cache ranking.Cache
	if cfg.RankingCacheTTL > 0 {
		if redisClient != nil {
			cache = ranking.NewRedisCache(redisClient)
		} else {
			cache = ranking.NewMemoryCache()
		}
	}

	alignments := alignment.NewService(src, alignment.ServiceConfig{
		DefaultAlgorithm: cfg.Algorithm(),
		Weighted:         weighted,
		Logger:           logger,
		Metrics:          alignMetrics,
	})
	rankings := ranking.NewService(src, src, ranking.ServiceConfig{
		Logger:   logger,
		Metrics:  rankMetrics,
		Cache:    cache,
		CacheTTL: cfg.RankingCacheTTL,
	})
	finder := discovery.NewService(src, discovery.Config{
		DefaultAlgorithm: cfg.Algorithm(),
		Weighted:         weighted,
		Logger:           logger,
	})

	if cache != nil && cfg.RankingWarmInterval > 0 {
		a.warm = ranking.NewWarmJob(ranking.WarmJobConfig{
			Interval:   cfg.RankingWarmInterval,
			Logger:     logger,
			JobMetrics: a.jobMetrics,
		}, rankings)
	}

	var rateLimit func(http.Handler) http.Handler
	if cfg.RateLimitPerMinute > 0 {
		var limitStore middleware.RateLimitStore
		if redisClient != nil {
			limitStore = middleware.NewRedisRateLimitStore(redisClient)
		} else {
			a.limiter = middleware.NewInMemoryRateLimitStore()
			limitStore = a.limiter
		}
		rateLimit = middleware.RateLimiter(limitStore, middleware.PerMinute(cfg.RateLimitPerMinute), middleware.UserKeyFunc(), httpMetrics)
	}

	var tokens *auth.JWTService
	if cfg.JWTPreviousSecret != "" {
		tokens = auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)
	} else {
		tokens = auth.NewJWTService(cfg.JWTSecret)
	}

	router := api.NewRouter(api.RouterConfig{
		Alignment: api.NewAlignmentHandlers(alignments),
		Ranking:   api.NewRankingHandlers(rankings),
		Discovery: api.NewDiscoveryHandlers(finder),
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			Checkers:  checkers,
			StoreMode: cfg.StoreMode(),
		}),
		Tokens:         tokens,
		Admins:         auth.NewAdminPolicy(cfg.AdminEmails),
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		RateLimit:      rateLimit,
	})

	// Apply middleware: RequestID -> Logging -> Tracing -> HTTPMetrics -> CORS
	var handler http.Handler = router
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins))(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.Logging(logger)(handler)
	a.handler = middleware.RequestID(handler)

	return a, nil
}

// openStore connects to Postgres when a database URL is configured and
// otherwise builds an in-memory store, seeded from the fixture when one is set.
func (a *app) openStore(ctx context.Context, cfg *config.Config, checkers *[]api.HealthChecker) (backend, error) {
	if cfg.DatabaseURL == "" {
		if cfg.FixturePath == "" {
			a.logger.Warn("no DATABASE_URL or FIXTURE_PATH set; serving an empty in-memory store")
			return store.NewMemory(), nil
		}
		mem, err := store.NewMemoryFromFixture(cfg.FixturePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load fixture: %w", err)
		}
		a.logger.Info("loaded in-memory store", "fixture", cfg.FixturePath)
		return mem, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	*checkers = append(*checkers, health.NewDBChecker(db))
	return store.NewPostgres(db, a.logger), nil
}

// serve runs the HTTP server on ln together with the background jobs until
// ctx is cancelled, then drains in-flight requests and releases resources.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.warm != nil {
		if err := a.warm.Start(gctx); err != nil {
			return fmt.Errorf("failed to start ranking warm job: %w", err)
		}
	}

	if a.limiter != nil {
		g.Go(func() error {
			a.cleanupRateLimits(gctx)
			return nil
		})
	}

	g.Go(func() error {
		a.logger.Info("starting server", "addr", ln.Addr().String(), "version", version)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	// The warm job reads through the store and cache, so it stops before they close.
	if a.warm != nil {
		a.warm.Stop()
	}
	a.close(context.Background())
	a.logger.Info("server stopped")
	return err
}

// cleanupRateLimits evicts expired in-memory windows until ctx ends.
func (a *app) cleanupRateLimits(ctx context.Context) {
	ticker := time.NewTicker(rateLimitCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			a.limiter.Cleanup()
			a.jobMetrics.ObserveRun(jobs.JobTypeRateLimitCleanup, time.Since(start), "")
		}
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}
