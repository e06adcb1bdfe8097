package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/onnwee/valuesalign/internal/alignment"
)

var envKeys = []string{
	"VALUESALIGN_PORT", "PORT", "VALUESALIGN_ENV", "ENV", "GO_ENV",
	"DATABASE_URL", "FIXTURE_PATH", "REDIS_URL",
	"JWT_SECRET", "JWT_PREVIOUS_SECRET", "ADMIN_EMAILS",
	"DEFAULT_ALGORITHM", "FLOOR_MAGNITUDE",
	"RANKING_CACHE_TTL", "RANKING_WARM_INTERVAL",
	"CORS_ALLOWED_ORIGINS", "RATE_LIMIT_PER_MINUTE",
	"TRACING_ENABLED", "TRACING_EXPORTER", "TRACING_ENDPOINT", "TRACING_SAMPLE_RATE", "TRACING_INSECURE",
}

// clearEnv blanks every variable Load reads. Empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func containsErr(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "supersecret32characterlongvalue!")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("Load() returned errors: %v", errs)
	}

	want := &Config{
		Port:              DefaultPort,
		Env:               DefaultEnv,
		JWTSecret:         "supersecret32characterlongvalue!",
		DefaultAlgorithm:  DefaultAlgorithm,
		FloorMagnitude:    true,
		TracingExporter:   DefaultTracingExporter,
		TracingSampleRate: DefaultTracingSampleRate,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.StoreMode() != "memory" {
		t.Errorf("StoreMode() = %q, want memory", cfg.StoreMode())
	}
	if cfg.Algorithm() != alignment.AlgorithmSymmetric {
		t.Errorf("Algorithm() = %q, want symmetric", cfg.Algorithm())
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	clearEnv(t)

	_, errs := Load("")
	if len(errs) != 1 || !containsErr(errs, ErrMissingJWTSecret) {
		t.Errorf("Load() errors = %v, want only %v", errs, ErrMissingJWTSecret)
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)

	cfg, errs := Load("testdata/config.yaml")
	if len(errs) != 0 {
		t.Fatalf("Load() returned errors: %v", errs)
	}

	want := &Config{
		Port:                9090,
		Env:                 "staging",
		FixturePath:         "./fixtures/dev.yaml",
		RedisURL:            "redis://:hunter22@localhost:6379/0",
		JWTSecret:           "file-secret-0123456789abcdef",
		AdminEmails:         []string{"ops@example.com", "admin@example.com"},
		DefaultAlgorithm:    "position_weighted",
		FloorMagnitude:      false,
		RankingCacheTTL:     10 * time.Minute,
		RankingWarmInterval: 5 * time.Minute,
		CORSAllowedOrigins:  []string{"https://app.example.com"},
		RateLimitPerMinute:  120,
		TracingEnabled:      true,
		TracingExporter:     "otlp-grpc",
		TracingEndpoint:     "localhost:4317",
		TracingSampleRate:   0.5,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	setEnv(t, map[string]string{
		"PORT":                  "7070",
		"DATABASE_URL":          "postgres://app:pw@db:5432/values",
		"ADMIN_EMAILS":          " root@example.com , ,ops@example.com",
		"DEFAULT_ALGORITHM":     "symmetric",
		"FLOOR_MAGNITUDE":       "on",
		"RANKING_CACHE_TTL":     "30s",
		"RANKING_WARM_INTERVAL": "0s",
		"TRACING_ENABLED":       "false",
		"TRACING_SAMPLE_RATE":   "1",
	})

	cfg, errs := Load("testdata/config.yaml")
	if len(errs) != 0 {
		t.Fatalf("Load() returned errors: %v", errs)
	}

	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Port)
	}
	if cfg.StoreMode() != "postgres" {
		t.Errorf("StoreMode() = %q, want postgres", cfg.StoreMode())
	}
	if diff := cmp.Diff([]string{"root@example.com", "ops@example.com"}, cfg.AdminEmails); diff != "" {
		t.Errorf("AdminEmails mismatch (-want +got):\n%s", diff)
	}
	if cfg.Algorithm() != alignment.AlgorithmSymmetric {
		t.Errorf("Algorithm() = %q, want symmetric", cfg.Algorithm())
	}
	if !cfg.FloorMagnitude {
		t.Error("FloorMagnitude should be overridden to true")
	}
	if cfg.RankingCacheTTL != 30*time.Second || cfg.RankingWarmInterval != 0 {
		t.Errorf("durations = %v/%v, want 30s/0s", cfg.RankingCacheTTL, cfg.RankingWarmInterval)
	}
	if cfg.TracingEnabled || cfg.TracingSampleRate != 1 {
		t.Errorf("tracing = %v/%v, want false/1", cfg.TracingEnabled, cfg.TracingSampleRate)
	}
	// Untouched file values survive.
	if cfg.RateLimitPerMinute != 120 || cfg.Env != "staging" {
		t.Errorf("file values lost: rate=%d env=%q", cfg.RateLimitPerMinute, cfg.Env)
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{"port not a number", map[string]string{"PORT": "eighty"}, ErrInvalidPort},
		{"bad boolean", map[string]string{"FLOOR_MAGNITUDE": "maybe"}, ErrInvalidBool},
		{"bad duration", map[string]string{"RANKING_CACHE_TTL": "ten minutes"}, ErrInvalidDuration},
		{"bad sample rate", map[string]string{"TRACING_SAMPLE_RATE": "half"}, ErrInvalidFloat},
		{"bad rate limit", map[string]string{"RATE_LIMIT_PER_MINUTE": "lots"}, ErrInvalidInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JWT_SECRET", "supersecret32characterlongvalue!")
			setEnv(t, tt.env)

			_, errs := Load("")
			if len(errs) != 1 || !containsErr(errs, tt.wantErr) {
				t.Errorf("Load() errors = %v, want only %v", errs, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	cfg, errs := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if cfg != nil {
		t.Error("expected nil config when the file cannot be read")
	}
	if len(errs) != 1 {
		t.Errorf("expected a single load error, got %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:             DefaultPort,
			JWTSecret:        "secret",
			DefaultAlgorithm: DefaultAlgorithm,
			TracingExporter:  DefaultTracingExporter,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"port zero", func(c *Config) { c.Port = 0 }, ErrInvalidPort},
		{"port too large", func(c *Config) { c.Port = 70000 }, ErrInvalidPort},
		{"unknown algorithm", func(c *Config) { c.DefaultAlgorithm = "cosine" }, ErrInvalidAlgorithm},
		{"negative ttl", func(c *Config) { c.RankingCacheTTL = -time.Second }, ErrNegativeDuration},
		{"warm without cache", func(c *Config) { c.RankingWarmInterval = time.Minute }, ErrWarmWithoutCache},
		{"warm with cache", func(c *Config) {
			c.RankingWarmInterval = time.Minute
			c.RankingCacheTTL = 5 * time.Minute
		}, nil},
		{"negative rate limit", func(c *Config) { c.RateLimitPerMinute = -1 }, ErrInvalidRateLimit},
		{"tracing sample rate", func(c *Config) {
			c.TracingEnabled, c.TracingEndpoint, c.TracingSampleRate = true, "localhost:4318", 1.5
		}, ErrInvalidSampleRate},
		{"tracing exporter", func(c *Config) {
			c.TracingEnabled, c.TracingEndpoint, c.TracingExporter = true, "localhost:4318", "zipkin"
		}, ErrInvalidTraceExporter},
		{"tracing endpoint", func(c *Config) { c.TracingEnabled = true }, ErrMissingTracingAddress},
		{"tracing settings ignored when disabled", func(c *Config) { c.TracingExporter = "zipkin" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			errs := cfg.Validate()

			if tt.wantErr == nil {
				if len(errs) != 0 {
					t.Errorf("Validate() = %v, want no errors", errs)
				}
				return
			}
			if len(errs) != 1 || !containsErr(errs, tt.wantErr) {
				t.Errorf("Validate() = %v, want only %v", errs, tt.wantErr)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "<not set>"},
		{"short", "****"},
		{"supersecret32characterlongvalue!", "supe****"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "<not set>"},
		{"postgres://app:secret@db:5432/values?sslmode=disable", "postgres://app:****@db:5432/values?sslmode=disable"},
		{"postgresql://app@db/values", "postgresql://app@db/values"},
		{"redis://:hunter22@localhost:6379/0", "redis://:****@localhost:6379/0"},
		{"redis://localhost:6379", "redis://localhost:6379"},
		{"not-a-url-but-long", "not-****"},
	}
	for _, tt := range tests {
		if got := maskDatabaseURL(tt.in); got != tt.want {
			t.Errorf("maskDatabaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfig_LogSummary(t *testing.T) {
	cfg := &Config{
		Port:              8080,
		Env:               "production",
		DatabaseURL:       "postgres://app:secret@db/values",
		RedisURL:          "redis://:hunter22@cache:6379",
		JWTSecret:         "supersecret32characterlongvalue!",
		JWTPreviousSecret: "previoussecretvalue",
		AdminEmails:       []string{"a@example.com", "b@example.com"},
	}

	summary := cfg.LogSummary()
	checks := map[string]string{
		"port":                "8080",
		"store":               "postgres",
		"database_url":        "postgres://app:****@db/values",
		"redis_url":           "redis://:****@cache:6379",
		"jwt_secret":          "supe****",
		"jwt_previous_secret": "prev****",
		"admin_emails":        "2",
	}
	for key, want := range checks {
		if summary[key] != want {
			t.Errorf("LogSummary()[%q] = %q, want %q", key, summary[key], want)
		}
	}
	for key, val := range summary {
		for _, secret := range []string{"secret32", "hunter22", "b@example.com"} {
			if strings.Contains(val, secret) {
				t.Errorf("LogSummary()[%q] leaks %q: %q", key, secret, val)
			}
		}
	}
}
