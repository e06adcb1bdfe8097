package alignment

import (
	"math"

	"github.com/onnwee/valuesalign/internal/catalog"
)

// UnmatchedPosition is the effective position of a user cause the entity never
// declared: one past the expected 1-10 scale.
const UnmatchedPosition = 11

// WeightedOptions tunes PositionWeightedScore.
type WeightedOptions struct {
	// FloorMagnitude clamps 100-5*position at zero. Without it, records ranked
	// beyond 20 get a negative magnitude and silently invert their stance.
	FloorMagnitude bool
}

// magnitude is the strength of a record at the given position.
func magnitude(position int, floor bool) int {
	m := 100 - position*5
	if floor && m < 0 {
		return 0
	}
	return m
}

// PositionWeightedScore scores entity alignment records against the user's
// supported and avoided causes.
//
// Each record contributes its signed magnitude to either the support or avoid
// total depending on whether it agrees with the user's stance (an entity opposing
// a cause the user avoids counts as support). The average position of the user's
// causes, with undeclared ones counted at UnmatchedPosition, then places the
// result on [0, 50] when the avoid total dominates or on [50, 100] otherwise.
//
// Zero user causes force the average to UnmatchedPosition, so both branches
// land on 50.
// Records with a non-positive position, an empty value ID, or a repeated value ID
// are rejected with an InvalidInputError.
func PositionWeightedScore(support, avoid catalog.Set, records []catalog.ValueAlignment, opts WeightedOptions) (int, error) {
	if err := catalog.ValidateAlignments(records); err != nil {
		return 0, err
	}

	var supportTotal, avoidTotal int
	matched := make(catalog.Set, len(records))
	positionSum := 0

	for _, r := range records {
		signed := magnitude(r.Position, opts.FloorMagnitude)
		if !r.IsSupport {
			signed = -signed
		}

		switch {
		case support.Has(r.ValueID):
			if signed > 0 {
				supportTotal += signed
			} else {
				avoidTotal += -signed
			}
		case avoid.Has(r.ValueID):
			if signed < 0 {
				supportTotal += -signed
			} else {
				avoidTotal += signed
			}
		default:
			continue
		}

		matched[r.ValueID] = struct{}{}
		positionSum += r.Position
	}

	userCount := unionSize(support, avoid)
	avgPosition := float64(UnmatchedPosition)
	if userCount > 0 {
		unmatched := userCount - len(matched)
		avgPosition = float64(positionSum+unmatched*UnmatchedPosition) / float64(userCount)
	}

	spread := (avgPosition - 1) / 10
	var result float64
	if avoidTotal > supportTotal && avoidTotal > 0 {
		result = math.Round(spread * 50)
	} else {
		result = math.Round((1-spread)*50 + 50)
	}

	return clamp(int(result)), nil
}

func unionSize(a, b catalog.Set) int {
	n := len(a)
	for id := range b {
		if !a.Has(id) {
			n++
		}
	}
	return n
}
