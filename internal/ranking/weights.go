package ranking

import "math"

// Position decay table bands.
const (
	// TopBandEnd is the last position of the linear 100..55 band.
	TopBandEnd = 10
	// MidBandEnd is the last position of the 48..30 band.
	MidBandEnd = 20
	// LowBandEnd is the last position of the 30..10 band.
	LowBandEnd = 50
	// MinWeight is the floor for positions past LowBandEnd.
	MinWeight = 1.0
)

// PositionWeight returns the weight an entry at the given 1-based list position
// contributes to an entity's ranking score.
//
//   - positions 1-10:  100 - (p-1)*5     (100, 95, ..., 55)
//   - positions 11-20: 50 - (p-10)*2     (48, ..., 30)
//   - positions 21-50: 30 - (p-20)*2/3   (29.33, ..., 10)
//   - positions > 50:  max(1, 10 - (p-50)/10)
//
// The 21-50 band runs linearly from 30 down to 10 so the table stays
// non-increasing in p and meets the tail at 10. Positions below 1 weigh nothing.
func PositionWeight(position int) float64 {
	p := float64(position)
	switch {
	case position < 1:
		return 0
	case position <= TopBandEnd:
		return 100 - (p-1)*5
	case position <= MidBandEnd:
		return 50 - (p-TopBandEnd)*2
	case position <= LowBandEnd:
		return 30 - (p-MidBandEnd)*2/3
	default:
		return math.Max(MinWeight, 10-(p-LowBandEnd)/10)
	}
}
