package middleware

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	m.IncRateLimitRequests("/alignment/score")
	m.IncRateLimitBlocked("/alignment/score")
	m.IncRateLimitRedisErrors()
	m.IncAuthFailures("missing_token")
	m.ObserveHTTPRequest("GET", "/rankings/brands", "200", 0.01, 0, 120)

	for _, name := range []string{
		MetricRateLimitRequests,
		MetricRateLimitBlocked,
		MetricRateLimitRedisErrors,
		MetricAuthFailures,
		MetricHTTPRequestDuration,
		MetricHTTPRequestsTotal,
		MetricHTTPRequestSizeBytes,
		MetricHTTPResponseSizeBytes,
	} {
		if findFamily(t, reg, name) == nil {
			t.Errorf("metric %s not found in registry", name)
		}
	}

	if err := m.Register(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.IncRateLimitRequests("/alignment/score")
	m.IncRateLimitRequests("/alignment/score")
	m.IncRateLimitBlocked("/alignment/score")
	m.IncRateLimitRedisErrors()

	if v := getCounterVecValue(t, m.rateLimitRequests, "/alignment/score"); v != 2 {
		t.Errorf("rate limit requests = %v, want 2", v)
	}
	if v := getCounterVecValue(t, m.rateLimitBlocked, "/alignment/score"); v != 1 {
		t.Errorf("rate limit blocked = %v, want 1", v)
	}
	if v := getCounterValue(t, m.rateLimitRedisErrors); v != 1 {
		t.Errorf("redis errors = %v, want 1", v)
	}
}

func TestMetrics_Collectors(t *testing.T) {
	if got := len(NewMetrics().Collectors()); got != 8 {
		t.Errorf("expected 8 collectors, got %d", got)
	}
}
