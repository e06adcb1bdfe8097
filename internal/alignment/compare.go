// Package alignment scores how well an entity's declared values agree with a
// user's. Two scoring strategies exist and are deliberately not reconciled:
// Symmetric (point-delta around 50) and PositionWeighted (normalized by rank
// position). Their scores are not comparable; callers name the one they want.
package alignment

import (
	"sort"

	"github.com/onnwee/valuesalign/internal/catalog"
)

// Classification describes how two declarants relate on one cause.
type Classification string

// Classifications produced by Compare.
const (
	Match     Classification = "match"
	Conflict  Classification = "conflict"
	OneSidedA Classification = "one_sided_a"
	OneSidedB Classification = "one_sided_b"
)

// Comparison is the classification of a single cause ID.
type Comparison struct {
	CauseID string         `json:"cause_id"`
	Class   Classification `json:"class"`
	A       catalog.Stance `json:"a,omitempty"`
	B       catalog.Stance `json:"b,omitempty"`
}

// Compare classifies every cause ID present in a or b. The result is sorted by
// cause ID. Missing keys mean "no stance"; empty inputs yield an empty result.
func Compare(a, b map[string]catalog.Stance) []Comparison {
	out := make([]Comparison, 0, len(a)+len(b))
	for id, sa := range a {
		sb, ok := b[id]
		switch {
		case !ok:
			out = append(out, Comparison{CauseID: id, Class: OneSidedA, A: sa})
		case sa == sb:
			out = append(out, Comparison{CauseID: id, Class: Match, A: sa, B: sb})
		default:
			out = append(out, Comparison{CauseID: id, Class: Conflict, A: sa, B: sb})
		}
	}
	for id, sb := range b {
		if _, ok := a[id]; ok {
			continue
		}
		out = append(out, Comparison{CauseID: id, Class: OneSidedB, B: sb})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CauseID < out[j].CauseID })
	return out
}

// Tally counts comparisons by classification.
type Tally struct {
	Matches   int `json:"matches"`
	Conflicts int `json:"conflicts"`
	OneSided  int `json:"one_sided"`
}

// Count tallies a comparison set.
func Count(cmps []Comparison) Tally {
	var t Tally
	for _, c := range cmps {
		switch c.Class {
		case Match:
			t.Matches++
		case Conflict:
			t.Conflicts++
		case OneSidedA, OneSidedB:
			t.OneSided++
		}
	}
	return t
}
