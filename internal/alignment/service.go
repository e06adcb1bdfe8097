package alignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/tracing"
)

// DeclarationSource reads value declarations from the persistence layer.
type DeclarationSource interface {
	// UserCauses returns the causes a user has declared. Unknown users have none.
	UserCauses(ctx context.Context, userID string) ([]catalog.Cause, error)
	// Brand returns a brand or catalog.ErrNotFound.
	Brand(ctx context.Context, id string) (*catalog.Brand, error)
	// Business returns a business or catalog.ErrNotFound.
	Business(ctx context.Context, id string) (*catalog.Business, error)
}

// ServiceConfig configures the alignment service.
type ServiceConfig struct {
	// DefaultAlgorithm is used when a request names none.
	DefaultAlgorithm Algorithm
	// Weighted options for the position-weighted strategy.
	Weighted WeightedOptions
	// Logger for service activity.
	Logger *slog.Logger
	// Metrics for score tracking (optional).
	Metrics *Metrics
}

// Result is a scored entity.
type Result struct {
	EntityKind  catalog.EntityKind `json:"entity_kind,omitempty"`
	EntityID    string             `json:"entity_id,omitempty"`
	Algorithm   Algorithm          `json:"algorithm"`
	Score       int                `json:"score"`
	Label       string             `json:"label"`
	Tally       Tally              `json:"tally"`
	Comparisons []Comparison       `json:"comparisons"`
}

// Service scores entities against users.
type Service struct {
	source DeclarationSource
	config ServiceConfig
}

// NewService creates a new alignment service.
func NewService(source DeclarationSource, config ServiceConfig) *Service {
	if config.DefaultAlgorithm == "" {
		config.DefaultAlgorithm = AlgorithmSymmetric
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Service{source: source, config: config}
}

// DefaultAlgorithm returns the algorithm used when callers name none.
func (s *Service) DefaultAlgorithm() Algorithm {
	return s.config.DefaultAlgorithm
}

// Evaluate validates in and scores it with the named algorithm.
func (s *Service) Evaluate(ctx context.Context, a Algorithm, in Input) (Result, error) {
	if a == "" {
		a = s.config.DefaultAlgorithm
	}
	strategy, err := NewStrategy(a, s.config.Weighted)
	if err != nil {
		s.incErrors("invalid_input")
		return Result{}, err
	}

	if err := catalog.ValidateCauses(in.UserCauses); err != nil {
		s.incErrors("invalid_input")
		return Result{}, fmt.Errorf("user causes: %w", err)
	}
	if err := catalog.ValidateCauses(in.EntityCauses); err != nil {
		s.incErrors("invalid_input")
		return Result{}, fmt.Errorf("entity causes: %w", err)
	}
	if err := catalog.ValidateAlignments(in.EntityAlignments); err != nil {
		s.incErrors("invalid_input")
		return Result{}, fmt.Errorf("entity alignments: %w", err)
	}

	score, err := strategy.Score(in)
	if err != nil {
		s.incErrors("invalid_input")
		return Result{}, err
	}

	cmps := Compare(catalog.StanceMap(in.UserCauses), catalog.StanceMap(in.entityCauses()))
	if s.config.Metrics != nil {
		s.config.Metrics.ObserveScore(a, score)
	}
	s.config.Logger.DebugContext(ctx, "alignment scored",
		"algorithm", a,
		"score", score,
		"user_causes", len(in.UserCauses),
		"entity_causes", len(in.EntityCauses),
		"entity_alignments", len(in.EntityAlignments))

	return Result{
		Algorithm:   a,
		Score:       score,
		Label:       Label(a, score),
		Tally:       Count(cmps),
		Comparisons: cmps,
	}, nil
}

// ScoreEntity scores a brand or business against a user's declared causes.
func (s *Service) ScoreEntity(ctx context.Context, userID string, kind catalog.EntityKind, entityID string, a Algorithm) (res Result, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "alignment.score_entity")
	defer func() { endSpan(err) }()
	tracing.SetAttributes(ctx,
		attribute.String("alignment.entity_kind", string(kind)),
		attribute.String("alignment.entity_id", entityID),
	)

	userCauses, err := s.source.UserCauses(ctx, userID)
	if err != nil {
		s.incErrors("upstream")
		s.config.Logger.ErrorContext(ctx, "failed to read user causes",
			"user_id", userID,
			"error", err)
		return Result{}, fmt.Errorf("read user causes: %w", err)
	}

	in := Input{UserCauses: userCauses}
	switch kind {
	case catalog.KindBrand:
		brand, err := s.source.Brand(ctx, entityID)
		if err != nil {
			return Result{}, s.entityErr(ctx, kind, entityID, err)
		}
		in.EntityCauses = brand.Causes
		in.EntityAlignments = brand.Alignments
	case catalog.KindBusiness:
		business, err := s.source.Business(ctx, entityID)
		if err != nil {
			return Result{}, s.entityErr(ctx, kind, entityID, err)
		}
		in.EntityCauses = business.Causes
		in.EntityAlignments = business.Alignments
	default:
		s.incErrors("invalid_input")
		return Result{}, catalog.NewInvalidInput("entity_kind", "must be brand or business, got %q", kind)
	}

	res, err = s.Evaluate(ctx, a, in)
	if err != nil {
		return Result{}, err
	}
	tracing.SetAttributes(ctx,
		attribute.String("alignment.algorithm", string(res.Algorithm)),
		attribute.Int("alignment.score", res.Score),
	)
	res.EntityKind = kind
	res.EntityID = entityID
	return res, nil
}

func (s *Service) entityErr(ctx context.Context, kind catalog.EntityKind, id string, err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		s.incErrors("not_found")
		return err
	}
	s.incErrors("upstream")
	s.config.Logger.ErrorContext(ctx, "failed to read entity declarations",
		"entity_kind", kind,
		"entity_id", id,
		"error", err)
	return fmt.Errorf("read %s %s: %w", kind, id, err)
}

func (s *Service) incErrors(reason string) {
	if s.config.Metrics != nil {
		s.config.Metrics.IncErrors(reason)
	}
}
