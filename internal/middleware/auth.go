package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/onnwee/valuesalign/internal/auth"
)

// claimsKey is the context key for validated token claims.
type claimsKey struct{}

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// GetClaims returns the validated claims, or nil on unauthenticated requests.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

// RequireAuth rejects requests without a valid bearer token with 401. On
// success the claims and the user ID are stored in the request context.
// metrics may be nil.
func RequireAuth(validator TokenValidator, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				rejectAuth(w, r, metrics, http.StatusUnauthorized, "missing_token", "auth_required", "Bearer token required")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				reason := "invalid_token"
				if errors.Is(err, auth.ErrExpiredToken) {
					reason = "expired_token"
				}
				rejectAuth(w, r, metrics, http.StatusUnauthorized, reason, "auth_failed", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = SetUserID(ctx, claims.UserID())
			reportUser(ctx, claims.UserID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated callers outside the admin whitelist with
// 403. It must run inside RequireAuth.
func RequireAdmin(policy auth.AdminPolicy, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !policy.Allows(GetClaims(r.Context())) {
				rejectAuth(w, r, metrics, http.StatusForbidden, "forbidden", "forbidden", "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func rejectAuth(w http.ResponseWriter, r *http.Request, metrics *Metrics, status int, reason, code, message string) {
	if metrics != nil {
		metrics.IncAuthFailures(reason)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="valuesalign"`)
	}
	writeError(w, r, status, code, message)
}

// writeError writes the API error envelope. It mirrors api.WriteError, which
// cannot be imported here without a cycle.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	SetErrorCode(r.Context(), code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
