package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantKeep bool
	}{
		{"no header generates uuid", "", false},
		{"well-formed header reused", "client-req-123", true},
		{"header with spaces replaced", "bad id", false},
		{"header with control characters replaced", "id\x00x", false},
		{"oversized header replaced", strings.Repeat("a", maxRequestIDLength+1), false},
		{"maximum length reused", strings.Repeat("a", maxRequestIDLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/rankings/brands", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			headerID := rr.Header().Get(RequestIDHeader)
			if headerID != ctxID {
				t.Errorf("response header %q != context ID %q", headerID, ctxID)
			}
			if tt.wantKeep {
				if ctxID != tt.incoming {
					t.Errorf("expected incoming ID to be kept, got %q", ctxID)
				}
				return
			}
			if _, err := uuid.Parse(ctxID); err != nil {
				t.Errorf("expected generated UUID, got %q", ctxID)
			}
		})
	}
}

func TestGetRequestID_EmptyContextReturnsEmptyString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty string, got %q", id)
	}
}
