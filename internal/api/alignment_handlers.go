package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/onnwee/valuesalign/internal/alignment"
	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/middleware"
)

// maxScoreBodyBytes bounds POST /alignment/score bodies.
const maxScoreBodyBytes = 1 << 20

// Scorer evaluates alignment requests.
type Scorer interface {
	Evaluate(ctx context.Context, a alignment.Algorithm, in alignment.Input) (alignment.Result, error)
	ScoreEntity(ctx context.Context, userID string, kind catalog.EntityKind, entityID string, a alignment.Algorithm) (alignment.Result, error)
}

// ScoreRequest is the body of POST /alignment/score.
type ScoreRequest struct {
	Algorithm        string                   `json:"algorithm" validate:"omitempty,oneof=symmetric position_weighted"`
	UserCauses       []catalog.Cause          `json:"user_causes" validate:"dive"`
	EntityCauses     []catalog.Cause          `json:"entity_causes" validate:"dive"`
	EntityAlignments []catalog.ValueAlignment `json:"entity_alignments" validate:"dive"`
}

// AlignmentHandlers holds dependencies for alignment HTTP handlers.
type AlignmentHandlers struct {
	scorer    Scorer
	validator *validator.Validate
}

// NewAlignmentHandlers creates a new AlignmentHandlers instance.
func NewAlignmentHandlers(scorer Scorer) *AlignmentHandlers {
	return &AlignmentHandlers{
		scorer:    scorer,
		validator: validator.New(),
	}
}

// Score handles POST /alignment/score - scores explicit declarations.
func (h *AlignmentHandlers) Score(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ScoreRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxScoreBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeServiceError(w, r, validationError(err), "alignment")
		return
	}

	res, err := h.scorer.Evaluate(r.Context(), alignment.Algorithm(req.Algorithm), alignment.Input{
		UserCauses:       req.UserCauses,
		EntityCauses:     req.EntityCauses,
		EntityAlignments: req.EntityAlignments,
	})
	if err != nil {
		writeServiceError(w, r, err, "alignment")
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// EntityScore handles GET /alignment/{kind}/{id} - scores a stored brand or
// business against the authenticated caller.
func (h *AlignmentHandlers) EntityScore(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/alignment/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Entity kind and ID are required")
		return
	}
	kind := catalog.EntityKind(parts[0])
	if !kind.Valid() {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Unknown entity kind")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthRequired, "Authentication required")
		return
	}

	res, err := h.scorer.ScoreEntity(r.Context(), userID, kind, parts[1], alignment.Algorithm(r.URL.Query().Get("algorithm")))
	if err != nil {
		writeServiceError(w, r, err, string(kind))
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
