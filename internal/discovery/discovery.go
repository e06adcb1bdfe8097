// Package discovery finds local businesses and scores them against the
// caller's declared causes.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/valuesalign/internal/alignment"
	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/geo"
	"github.com/onnwee/valuesalign/internal/tracing"
)

// Source reads the declarations discovery needs.
type Source interface {
	// UserCauses returns the causes a user has declared.
	UserCauses(ctx context.Context, userID string) ([]catalog.Cause, error)
	// Businesses returns every business with its causes and site.
	Businesses(ctx context.Context) ([]catalog.Business, error)
}

// DefaultMaxMiles is the radius used when a query names none.
const DefaultMaxMiles = 25.0

// Query describes a local discovery request.
type Query struct {
	UserID    string
	Center    geo.Point
	MaxMiles  float64
	Algorithm alignment.Algorithm
	// Limit caps the number of matches. Zero returns all.
	Limit int
}

// Match is a nearby business with its alignment to the caller.
type Match struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Category      string              `json:"category,omitempty"`
	Website       string              `json:"website,omitempty"`
	LogoURL       string              `json:"logo_url,omitempty"`
	Algorithm     alignment.Algorithm `json:"algorithm"`
	Score         int                 `json:"score"`
	Label         string              `json:"label"`
	Distance      float64             `json:"distance"`
	LocationLabel string              `json:"location_label,omitempty"`
}

// Config configures the discovery service.
type Config struct {
	// DefaultAlgorithm is used when a query names none.
	DefaultAlgorithm alignment.Algorithm
	// Weighted options for the position-weighted strategy.
	Weighted alignment.WeightedOptions
	// Logger for service activity.
	Logger *slog.Logger
}

// Service answers local discovery queries.
type Service struct {
	source Source
	config Config
}

// NewService creates a new discovery service.
func NewService(source Source, config Config) *Service {
	if config.DefaultAlgorithm == "" {
		config.DefaultAlgorithm = alignment.AlgorithmSymmetric
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Service{source: source, config: config}
}

// Local returns businesses with a location within q.MaxMiles of q.Center,
// scored against the caller and sorted by score descending, then distance
// ascending. Malformed queries return an InvalidInputError. A failed read is
// logged and yields an empty result.
func (s *Service) Local(ctx context.Context, q Query) ([]Match, error) {
	if q.MaxMiles == 0 {
		q.MaxMiles = DefaultMaxMiles
	}
	if q.Algorithm == "" {
		q.Algorithm = s.config.DefaultAlgorithm
	}
	if err := validate(q); err != nil {
		return nil, err
	}
	strategy, err := alignment.NewStrategy(q.Algorithm, s.config.Weighted)
	if err != nil {
		return nil, err
	}

	ctx, endSpan := tracing.StartSpan(ctx, "discovery.local")
	var spanErr error
	defer func() { endSpan(spanErr) }()

	start := time.Now()
	userCauses, businesses, err := s.read(ctx, q.UserID)
	if err != nil {
		spanErr = err
		s.config.Logger.ErrorContext(ctx, "local discovery read failed",
			"user_id", q.UserID,
			"error", err)
		return []Match{}, nil
	}

	matches := make([]Match, 0)
	for _, b := range businesses {
		prox := geo.IsWithinRadius(b.Site, q.Center, q.MaxMiles)
		if !prox.WithinRange {
			continue
		}

		score, err := strategy.Score(alignment.Input{
			UserCauses:       userCauses,
			EntityCauses:     b.Causes,
			EntityAlignments: b.Alignments,
		})
		if err != nil {
			s.config.Logger.WarnContext(ctx, "skipping business with malformed declarations",
				"business_id", b.ID,
				"error", err)
			continue
		}

		matches = append(matches, Match{
			ID:            b.ID,
			Name:          b.Name,
			Category:      b.Category,
			Website:       b.Website,
			LogoURL:       b.LogoURL,
			Algorithm:     q.Algorithm,
			Score:         score,
			Label:         alignment.Label(q.Algorithm, score),
			Distance:      *prox.Distance,
			LocationLabel: prox.Label,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Distance < matches[j].Distance
	})
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	tracing.SetAttributes(ctx,
		attribute.String("discovery.algorithm", string(q.Algorithm)),
		attribute.Int("discovery.candidates", len(businesses)),
		attribute.Int("discovery.matches", len(matches)),
	)
	s.config.Logger.DebugContext(ctx, "local discovery completed",
		"user_id", q.UserID,
		"candidates", len(businesses),
		"matches", len(matches),
		"duration_ms", time.Since(start).Milliseconds())
	return matches, nil
}

// read fetches the caller's causes and the business catalog concurrently.
func (s *Service) read(ctx context.Context, userID string) ([]catalog.Cause, []catalog.Business, error) {
	var (
		userCauses []catalog.Cause
		businesses []catalog.Business
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		userCauses, err = s.source.UserCauses(gctx, userID)
		if err != nil {
			return fmt.Errorf("read user causes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		businesses, err = s.source.Businesses(gctx)
		if err != nil {
			return fmt.Errorf("read businesses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return userCauses, businesses, nil
}

func validate(q Query) error {
	if q.UserID == "" {
		return catalog.NewInvalidInput("user_id", "must not be empty")
	}
	if !q.Center.Valid() {
		return catalog.NewInvalidInput("center", "coordinate out of range")
	}
	if math.IsNaN(q.MaxMiles) || q.MaxMiles < 0 {
		return catalog.NewInvalidInput("max_miles", "must be a positive number")
	}
	if q.Limit < 0 {
		return catalog.NewInvalidInput("limit", "must not be negative, got %d", q.Limit)
	}
	return nil
}
