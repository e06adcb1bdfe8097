package ranking

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRankingComputeTotal    = "ranking_compute_total"
	MetricRankingComputeDuration = "ranking_compute_duration_seconds"
	MetricRankingCacheRequests   = "ranking_cache_requests_total"
	MetricRankingLastItemCount   = "ranking_last_item_count"
)

// Cache request outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics contains Prometheus metrics for ranking computation.
// All operations are thread-safe.
type Metrics struct {
	computeTotal    *prometheus.CounterVec
	computeDuration *prometheus.HistogramVec
	cacheRequests   *prometheus.CounterVec
	lastItemCount   *prometheus.GaugeVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		computeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingComputeTotal,
				Help: "Total number of ranking computations by entity type and status",
			},
			[]string{"entity_type", "status"},
		),
		computeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRankingComputeDuration,
				Help:    "Histogram of ranking computation duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"entity_type"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankingCacheRequests,
				Help: "Total number of ranking cache lookups by result",
			},
			[]string{"result"},
		),
		lastItemCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricRankingLastItemCount,
				Help: "Number of items returned by the most recent computation",
			},
			[]string{"entity_type"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveCompute records one computation.
// status: "success" or "failure"
func (m *Metrics) ObserveCompute(t EntityType, status string, seconds float64, items int) {
	m.computeTotal.WithLabelValues(string(t), status).Inc()
	m.computeDuration.WithLabelValues(string(t)).Observe(seconds)
	if status == "success" {
		m.lastItemCount.WithLabelValues(string(t)).Set(float64(items))
	}
}

// IncCache increments the cache request counter.
// result: CacheHit, CacheMiss or CacheError
func (m *Metrics) IncCache(result string) {
	m.cacheRequests.WithLabelValues(result).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.computeTotal,
		m.computeDuration,
		m.cacheRequests,
		m.lastItemCount,
	}
}
