package alignment

import "github.com/onnwee/valuesalign/internal/catalog"

// Point deltas for the symmetric algorithm.
const (
	SymmetricBaseline = 50
	MatchBonus        = 5
	ConflictPenalty   = 5
	OneSidedPenalty   = 2
)

// Score bounds shared by both algorithms.
const (
	MinScore = 0
	MaxScore = 100
)

// SymmetricScore starts at 50, adds 5 per shared matching stance, subtracts 5 per
// conflicting stance and 2 per cause only one side declared, then clamps to [0, 100].
//
// A score of 50 means either no comparable signal or exactly balanced
// disagreement; the two cases are indistinguishable by design of the formula.
func SymmetricScore(userCauses, entityCauses []catalog.Cause) int {
	t := Count(Compare(catalog.StanceMap(userCauses), catalog.StanceMap(entityCauses)))
	score := SymmetricBaseline +
		t.Matches*MatchBonus -
		t.Conflicts*ConflictPenalty -
		t.OneSided*OneSidedPenalty
	return clamp(score)
}

func clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
