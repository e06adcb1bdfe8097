package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// testLogEntry represents a parsed JSON log entry for testing.
type testLogEntry struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Size      int    `json:"size"`
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	ErrorCode string `json:"error_code"`
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func parseLogEntry(t *testing.T, buf *bytes.Buffer) testLogEntry {
	t.Helper()
	var entry testLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v, log: %s", err, buf.String())
	}
	return entry
}

func TestLogging_BasicFields(t *testing.T) {
	buf := &bytes.Buffer{}

	handler := Logging(newTestLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"b1"}]`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/rankings/brands?limit=5", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := parseLogEntry(t, buf)
	if entry.Method != "GET" {
		t.Errorf("expected method GET, got %s", entry.Method)
	}
	if entry.Path != "/rankings/brands" {
		t.Errorf("expected path /rankings/brands, got %s", entry.Path)
	}
	if entry.Status != 200 {
		t.Errorf("expected default status 200, got %d", entry.Status)
	}
	if entry.Size != 13 {
		t.Errorf("expected size 13, got %d", entry.Size)
	}
	if entry.Level != "INFO" {
		t.Errorf("expected level INFO, got %s", entry.Level)
	}
	if entry.Msg != "request completed" {
		t.Errorf("unexpected message %q", entry.Msg)
	}
}

func TestLogging_Levels(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      string
		wantLevel string
		wantCode  string
	}{
		{"success", http.StatusOK, "", "INFO", ""},
		{"success ignores code", http.StatusOK, "validation_error", "INFO", ""},
		{"client error", http.StatusBadRequest, "validation_error", "WARN", "validation_error"},
		{"not found", http.StatusNotFound, "not_found", "WARN", "not_found"},
		{"server error", http.StatusInternalServerError, "internal_error", "ERROR", "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			handler := Logging(newTestLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.code != "" {
					SetErrorCode(r.Context(), tt.code)
				}
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/alignment/score", nil))

			entry := parseLogEntry(t, buf)
			if entry.Level != tt.wantLevel {
				t.Errorf("expected level %s, got %s", tt.wantLevel, entry.Level)
			}
			if entry.ErrorCode != tt.wantCode {
				t.Errorf("expected error_code %q, got %q", tt.wantCode, entry.ErrorCode)
			}
		})
	}
}

func TestLogging_WithRequestIDAndUser(t *testing.T) {
	buf := &bytes.Buffer{}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	validator := fakeValidator{"good": {userID: "user-42"}}
	handler := RequestID(Logging(newTestLogger(buf))(RequireAuth(validator, nil)(inner)))

	req := httptest.NewRequest(http.MethodGet, "/discovery/local", nil)
	req.Header.Set(RequestIDHeader, "req-abc")
	req.Header.Set("Authorization", "Bearer good")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := parseLogEntry(t, buf)
	if entry.RequestID != "req-abc" {
		t.Errorf("expected request_id req-abc, got %q", entry.RequestID)
	}
	if entry.UserID != "user-42" {
		t.Errorf("expected user_id user-42, got %q", entry.UserID)
	}
}

func TestLogging_NoUserForAnonymous(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := Logging(newTestLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rankings/brands", nil))

	if strings.Contains(buf.String(), "user_id") {
		t.Errorf("anonymous request logged a user_id: %s", buf.String())
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		if NewLogger(env) == nil {
			t.Errorf("NewLogger(%q) returned nil", env)
		}
	}
}

func TestSetErrorCode_WithoutLogging(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetErrorCode(req.Context()); got != "" {
		t.Errorf("expected empty error code, got %q", got)
	}

	ctx := SetErrorCode(req.Context(), "not_found")
	if got := GetErrorCode(ctx); got != "not_found" {
		t.Errorf("expected not_found, got %q", got)
	}
	// A second call updates the same slot.
	SetErrorCode(ctx, "internal_error")
	if got := GetErrorCode(ctx); got != "internal_error" {
		t.Errorf("expected internal_error, got %q", got)
	}
}

func TestSetUserID_GetUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserID(req.Context()); got != "" {
		t.Errorf("expected empty user ID, got %q", got)
	}
	ctx := SetUserID(req.Context(), "u1")
	if got := GetUserID(ctx); got != "u1" {
		t.Errorf("expected u1, got %q", got)
	}
}

func TestResponseWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := newResponseWriter(rr)

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)
	_, _ = rw.Write([]byte("ab"))
	_, _ = rw.Write([]byte("cde"))

	if rw.statusCode != http.StatusCreated {
		t.Errorf("expected first status 201 to stick, got %d", rw.statusCode)
	}
	if rr.Code != http.StatusCreated {
		t.Errorf("expected recorder status 201, got %d", rr.Code)
	}
	if rw.size != 5 {
		t.Errorf("expected size 5, got %d", rw.size)
	}
}
