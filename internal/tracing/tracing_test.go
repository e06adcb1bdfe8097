package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewProvider_Disabled(t *testing.T) {
	// Disabled providers skip validation entirely.
	provider, err := NewProvider(Config{Enabled: false, SamplingRate: 7})
	if err != nil {
		t.Fatalf("expected no error for disabled tracing, got %v", err)
	}
	if provider.IsEnabled() {
		t.Error("expected tracing to be disabled")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on a disabled provider = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"valid http", Config{ServiceName: "valuesalign-api", ExporterType: ExporterOTLPHTTP, SamplingRate: 0.1}, nil},
		{"valid grpc", Config{ServiceName: "valuesalign-api", ExporterType: ExporterOTLPGRPC, SamplingRate: 1}, nil},
		{"empty exporter defaults to http", Config{ServiceName: "valuesalign-api"}, nil},
		{"missing service name", Config{SamplingRate: 0.1}, ErrMissingServiceName},
		{"negative sampling rate", Config{ServiceName: "valuesalign-api", SamplingRate: -0.1}, ErrInvalidSamplingRate},
		{"sampling rate above one", Config{ServiceName: "valuesalign-api", SamplingRate: 1.5}, ErrInvalidSamplingRate},
		{"unknown exporter", Config{ServiceName: "valuesalign-api", ExporterType: "zipkin"}, ErrUnsupportedExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}

			// NewProvider applies the same checks once enabled.
			if tt.wantErr != nil {
				tt.cfg.Enabled = true
				if _, err := NewProvider(tt.cfg); !errors.Is(err, tt.wantErr) {
					t.Errorf("NewProvider() = %v, want %v", err, tt.wantErr)
				}
			}
		})
	}
}

func TestValidExporter(t *testing.T) {
	for name, want := range map[string]bool{
		ExporterOTLPGRPC: true,
		ExporterOTLPHTTP: true,
		"":               false,
		"jaeger":         false,
	} {
		if got := ValidExporter(name); got != want {
			t.Errorf("ValidExporter(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.NeverSample().Description()},
		{0.25, sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25)).Description()},
	}
	for _, tt := range tests {
		if got := newSampler(tt.rate).Description(); got != tt.want {
			t.Errorf("newSampler(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

// Exporters connect lazily, so an unreachable collector does not fail setup.
func TestNewProvider_Enabled(t *testing.T) {
	for _, exporter := range []string{ExporterOTLPHTTP, ExporterOTLPGRPC} {
		t.Run(exporter, func(t *testing.T) {
			provider, err := NewProvider(Config{
				ServiceName:  "valuesalign-api",
				Enabled:      true,
				Environment:  "test",
				ExporterType: exporter,
				OTLPEndpoint: "localhost:4318",
				SamplingRate: 0.5,
				InsecureMode: true,
			})
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			if !provider.IsEnabled() {
				t.Error("expected tracing to be enabled")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			// Nothing was recorded, so flushing does not need the collector.
			if err := provider.Shutdown(ctx); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestProvider_ShutdownNil(t *testing.T) {
	var p *Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on nil provider = %v", err)
	}
}
