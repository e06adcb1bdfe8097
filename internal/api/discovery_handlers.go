package api

import (
	"context"
	"net/http"

	"github.com/onnwee/valuesalign/internal/alignment"
	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/discovery"
	"github.com/onnwee/valuesalign/internal/middleware"
)

// LocalFinder answers local discovery queries.
type LocalFinder interface {
	Local(ctx context.Context, q discovery.Query) ([]discovery.Match, error)
}

// DiscoveryHandlers holds dependencies for discovery HTTP handlers.
type DiscoveryHandlers struct {
	finder LocalFinder
}

// NewDiscoveryHandlers creates a new DiscoveryHandlers instance.
func NewDiscoveryHandlers(finder LocalFinder) *DiscoveryHandlers {
	return &DiscoveryHandlers{finder: finder}
}

// Local handles GET /discovery/local?lat=&lng=&max_miles=&algorithm=&limit=.
func (h *DiscoveryHandlers) Local(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthRequired, "Authentication required")
		return
	}

	q := r.URL.Query()
	center, ok, err := parsePoint(q)
	if err != nil {
		writeServiceError(w, r, err, "discovery")
		return
	}
	if !ok {
		writeServiceError(w, r, catalog.NewInvalidInput("lat", "lat and lng are required"), "discovery")
		return
	}
	maxMiles, _, err := parseFloat(q, "max_miles")
	if err != nil {
		writeServiceError(w, r, err, "discovery")
		return
	}
	limit, err := parseLimit(q)
	if err != nil {
		writeServiceError(w, r, err, "discovery")
		return
	}

	matches, err := h.finder.Local(r.Context(), discovery.Query{
		UserID:    userID,
		Center:    center,
		MaxMiles:  maxMiles,
		Algorithm: alignment.Algorithm(q.Get("algorithm")),
		Limit:     limit,
	})
	if err != nil {
		writeServiceError(w, r, err, "discovery")
		return
	}
	writeJSON(w, r, http.StatusOK, matches)
}
