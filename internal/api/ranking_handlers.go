package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/discovery"
	"github.com/onnwee/valuesalign/internal/ranking"
)

// Ranker serves computed rankings.
type Ranker interface {
	TopBrands(ctx context.Context, limit int) ([]ranking.RankedItem, error)
	TopBusinesses(ctx context.Context, limit int, filter *ranking.GeoFilter) ([]ranking.RankedItem, error)
	Invalidate(ctx context.Context) error
}

// RankingHandlers holds dependencies for ranking HTTP handlers.
type RankingHandlers struct {
	ranker Ranker
}

// NewRankingHandlers creates a new RankingHandlers instance.
func NewRankingHandlers(ranker Ranker) *RankingHandlers {
	return &RankingHandlers{ranker: ranker}
}

// TopBrands handles GET /rankings/brands?limit=.
func (h *RankingHandlers) TopBrands(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err, "ranking")
		return
	}

	items, err := h.ranker.TopBrands(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err, "ranking")
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

// TopBusinesses handles GET /rankings/businesses?limit=&lat=&lng=&max_miles=.
// The geo filter applies only when a reference point is given.
func (h *RankingHandlers) TopBusinesses(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	limit, err := parseLimit(q)
	if err != nil {
		writeServiceError(w, r, err, "ranking")
		return
	}
	center, hasCenter, err := parsePoint(q)
	if err != nil {
		writeServiceError(w, r, err, "ranking")
		return
	}
	maxMiles, hasMax, err := parseFloat(q, "max_miles")
	if err != nil {
		writeServiceError(w, r, err, "ranking")
		return
	}

	var filter *ranking.GeoFilter
	switch {
	case hasCenter:
		if !hasMax {
			maxMiles = discovery.DefaultMaxMiles
		}
		filter = &ranking.GeoFilter{Center: center, MaxMiles: maxMiles}
	case hasMax:
		writeServiceError(w, r, catalog.NewInvalidInput("max_miles", "requires lat and lng"), "ranking")
		return
	}

	items, err := h.ranker.TopBusinesses(r.Context(), limit, filter)
	if err != nil {
		writeServiceError(w, r, err, "ranking")
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

// InvalidateResponse reports a cache invalidation.
type InvalidateResponse struct {
	Invalidated bool `json:"invalidated"`
}

// Invalidate handles POST /admin/rankings/invalidate. Callers must pass the
// admin policy before reaching it.
func (h *RankingHandlers) Invalidate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := h.ranker.Invalidate(r.Context()); err != nil {
		writeServiceError(w, r, err, "ranking cache")
		return
	}
	slog.InfoContext(r.Context(), "ranking cache invalidated by admin")
	writeJSON(w, r, http.StatusOK, InvalidateResponse{Invalidated: true})
}
