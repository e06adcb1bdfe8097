package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// staticRoutes are paths recorded verbatim.
var staticRoutes = map[string]bool{
	"/":                          true,
	"/alignment/score":           true,
	"/rankings/brands":           true,
	"/rankings/businesses":       true,
	"/discovery/local":           true,
	"/admin/rankings/invalidate": true,
	"/health":                    true,
	"/ready":                     true,
	"/metrics":                   true,
}

// normalizePath maps request paths onto route patterns so entity IDs do not
// explode label cardinality: /alignment/brand/b1 becomes /alignment/{kind}/{id}.
// Unknown paths collapse to "other".
func normalizePath(path string) string {
	if staticRoutes[path] {
		return path
	}

	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(parts) == 4 && parts[1] == "alignment" && parts[2] != "" && parts[3] != "" {
		return "/alignment/{kind}/{id}"
	}
	if staticRoutes[strings.TrimSuffix(path, "/")] {
		return strings.TrimSuffix(path, "/")
	}
	return "other"
}

func isProbePath(path string) bool {
	return path == "/health" || path == "/ready" || path == "/metrics"
}

// HTTPMetrics is a middleware that records HTTP request metrics: duration,
// request and response sizes, and request counts. Probe endpoints are excluded.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbePath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newResponseWriter(w)

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}

			next.ServeHTTP(rw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(rw.statusCode),
				time.Since(start).Seconds(),
				requestSize,
				rw.size,
			)
		})
	}
}
