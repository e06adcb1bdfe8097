package alignment

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricAlignmentScoresTotal = "alignment_scores_total"
	MetricAlignmentScoreValue  = "alignment_score_value"
	MetricAlignmentErrorsTotal = "alignment_errors_total"
)

// Metrics contains Prometheus metrics for alignment scoring.
// All operations are thread-safe.
type Metrics struct {
	scoresTotal *prometheus.CounterVec
	scoreValue  *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		scoresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAlignmentScoresTotal,
				Help: "Total number of alignment scores computed by algorithm",
			},
			[]string{"algorithm"},
		),
		scoreValue: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricAlignmentScoreValue,
				Help:    "Distribution of computed alignment scores by algorithm",
				Buckets: prometheus.LinearBuckets(10, 10, 10), // 10..100
			},
			[]string{"algorithm"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAlignmentErrorsTotal,
				Help: "Total number of failed alignment scoring requests by reason",
			},
			[]string{"reason"},
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

// ObserveScore records one computed score.
func (m *Metrics) ObserveScore(a Algorithm, score int) {
	m.scoresTotal.WithLabelValues(string(a)).Inc()
	m.scoreValue.WithLabelValues(string(a)).Observe(float64(score))
}

// IncErrors increments the error counter.
// reason: "invalid_input", "not_found" or "upstream"
func (m *Metrics) IncErrors(reason string) {
	m.errorsTotal.WithLabelValues(reason).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.scoresTotal,
		m.scoreValue,
		m.errorsTotal,
	}
}
