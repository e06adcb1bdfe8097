package alignment

import (
	"errors"
	"fmt"

	"github.com/onnwee/valuesalign/internal/catalog"
)

// Algorithm names a scoring strategy.
type Algorithm string

// Supported algorithms.
const (
	AlgorithmSymmetric        Algorithm = "symmetric"
	AlgorithmPositionWeighted Algorithm = "position_weighted"
)

// ErrUnknownAlgorithm is returned for an unrecognized algorithm name.
var ErrUnknownAlgorithm = errors.New("unknown alignment algorithm")

// ParseAlgorithm validates an algorithm name. An empty name returns fallback.
func ParseAlgorithm(name string, fallback Algorithm) (Algorithm, error) {
	switch Algorithm(name) {
	case "":
		return fallback, nil
	case AlgorithmSymmetric, AlgorithmPositionWeighted:
		return Algorithm(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Input is everything a strategy may consume. Symmetric reads only the cause
// lists; PositionWeighted reads EntityAlignments and falls back to records
// derived from EntityCauses in declaration order.
type Input struct {
	UserCauses       []catalog.Cause          `json:"user_causes"`
	EntityCauses     []catalog.Cause          `json:"entity_causes,omitempty"`
	EntityAlignments []catalog.ValueAlignment `json:"entity_alignments,omitempty"`
}

// entityCauses returns the entity's stances, projecting alignment records when
// no plain causes were given.
func (in Input) entityCauses() []catalog.Cause {
	if len(in.EntityCauses) == 0 && len(in.EntityAlignments) > 0 {
		return catalog.CausesFromAlignments(in.EntityAlignments)
	}
	return in.EntityCauses
}

// Strategy computes an alignment score in [0, 100].
type Strategy interface {
	Algorithm() Algorithm
	Score(in Input) (int, error)
}

// Symmetric is the point-delta strategy. It never fails.
type Symmetric struct{}

// Algorithm implements Strategy.
func (Symmetric) Algorithm() Algorithm { return AlgorithmSymmetric }

// Score implements Strategy.
func (Symmetric) Score(in Input) (int, error) {
	return SymmetricScore(in.UserCauses, in.entityCauses()), nil
}

// PositionWeighted is the position-normalized strategy.
type PositionWeighted struct {
	Options WeightedOptions
}

// Algorithm implements Strategy.
func (PositionWeighted) Algorithm() Algorithm { return AlgorithmPositionWeighted }

// Score implements Strategy.
func (p PositionWeighted) Score(in Input) (int, error) {
	records := in.EntityAlignments
	if len(records) == 0 {
		records = catalog.AlignmentsFromCauses(in.EntityCauses)
	}
	support, avoid := catalog.SplitStances(in.UserCauses)
	return PositionWeightedScore(support, avoid, records, p.Options)
}

// NewStrategy returns the strategy for a.
func NewStrategy(a Algorithm, opts WeightedOptions) (Strategy, error) {
	switch a {
	case AlgorithmSymmetric:
		return Symmetric{}, nil
	case AlgorithmPositionWeighted:
		return PositionWeighted{Options: opts}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, a)
}

// Display labels.
const (
	LabelAligned = "aligned"
	LabelNeutral = "neutral"
	LabelOpposed = "opposed"
)

// Label maps a score to a display badge. The symmetric midpoint is neutral;
// the position-weighted midpoint already leans aligned.
func Label(a Algorithm, score int) string {
	if a == AlgorithmPositionWeighted {
		if score >= 50 {
			return LabelAligned
		}
		return LabelOpposed
	}
	switch {
	case score > SymmetricBaseline:
		return LabelAligned
	case score < SymmetricBaseline:
		return LabelOpposed
	}
	return LabelNeutral
}
