// Package catalog defines the value (cause) catalog and the stance declarations
// made by users, businesses and brands.
package catalog

import "github.com/onnwee/valuesalign/internal/geo"

// Stance is a declarant's position on a cause.
type Stance string

// Valid stances.
const (
	StanceSupport Stance = "support"
	StanceAvoid   Stance = "avoid"
)

// Valid reports whether s is one of the known stances.
func (s Stance) Valid() bool {
	return s == StanceSupport || s == StanceAvoid
}

// Opposite returns the other stance.
func (s Stance) Opposite() Stance {
	if s == StanceSupport {
		return StanceAvoid
	}
	return StanceSupport
}

// Category is the semantic bucket a cause belongs to.
type Category string

// Known categories. Any other value is treated as CategoryOther.
const (
	CategoryIdeology     Category = "ideology"
	CategorySocialIssue  Category = "social_issue"
	CategoryPerson       Category = "person"
	CategoryLifestyle    Category = "lifestyle"
	CategoryNation       Category = "nation"
	CategoryReligion     Category = "religion"
	CategoryOrganization Category = "organization"
	CategorySports       Category = "sports"
	CategoryOther        Category = "other"
)

var knownCategories = map[Category]bool{
	CategoryIdeology:     true,
	CategorySocialIssue:  true,
	CategoryPerson:       true,
	CategoryLifestyle:    true,
	CategoryNation:       true,
	CategoryReligion:     true,
	CategoryOrganization: true,
	CategorySports:       true,
	CategoryOther:        true,
}

// NormalizeCategory maps free-form categories onto CategoryOther.
func NormalizeCategory(c Category) Category {
	if knownCategories[c] {
		return c
	}
	return CategoryOther
}

// Cause is a value declaration: a catalog entry plus the declarant's stance.
type Cause struct {
	ID          string   `json:"id" yaml:"id" validate:"required"`
	Name        string   `json:"name" yaml:"name"`
	Category    Category `json:"category" yaml:"category"`
	Type        Stance   `json:"type" yaml:"type" validate:"required,oneof=support avoid"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

// ValueAlignment is a brand-side declaration with a rank position.
// Position 1 is the strongest.
type ValueAlignment struct {
	ValueID   string `json:"value_id" yaml:"value_id" validate:"required"`
	Position  int    `json:"position" yaml:"position" validate:"gte=1"`
	IsSupport bool   `json:"is_support" yaml:"is_support"`
}

// EntityKind distinguishes the two kinds of scored entities.
type EntityKind string

// Entity kinds.
const (
	KindBrand    EntityKind = "brand"
	KindBusiness EntityKind = "business"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	return k == KindBrand || k == KindBusiness
}

// Business is a local business with its value declarations and locations.
type Business struct {
	ID         string           `json:"id" yaml:"id"`
	Name       string           `json:"name" yaml:"name"`
	Category   string           `json:"category,omitempty" yaml:"category"`
	Website    string           `json:"website,omitempty" yaml:"website"`
	LogoURL    string           `json:"logo_url,omitempty" yaml:"logo_url"`
	Causes     []Cause          `json:"causes" yaml:"causes"`
	Alignments []ValueAlignment `json:"alignments,omitempty" yaml:"alignments"`
	Site       geo.Site         `json:"site" yaml:"site"`
}

// Brand is a national brand with ranked value alignments.
type Brand struct {
	ID         string           `json:"id" yaml:"id"`
	Name       string           `json:"name" yaml:"name"`
	Category   string           `json:"category,omitempty" yaml:"category"`
	Website    string           `json:"website,omitempty" yaml:"website"`
	LogoURL    string           `json:"logo_url,omitempty" yaml:"logo_url"`
	Causes     []Cause          `json:"causes,omitempty" yaml:"causes"`
	Alignments []ValueAlignment `json:"alignments" yaml:"alignments"`
}

// StanceMap indexes causes by ID. When an ID repeats, the first declaration wins;
// use ValidateCauses to reject such input at the boundary.
func StanceMap(causes []Cause) map[string]Stance {
	m := make(map[string]Stance, len(causes))
	for _, c := range causes {
		if _, seen := m[c.ID]; seen {
			continue
		}
		m[c.ID] = c.Type
	}
	return m
}

// Set is a set of cause IDs.
type Set map[string]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// NewSet builds a Set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// SplitStances returns the IDs the declarant supports and avoids.
func SplitStances(causes []Cause) (support, avoid Set) {
	support, avoid = make(Set), make(Set)
	for id, stance := range StanceMap(causes) {
		switch stance {
		case StanceSupport:
			support[id] = struct{}{}
		case StanceAvoid:
			avoid[id] = struct{}{}
		}
	}
	return support, avoid
}

// CausesFromAlignments projects alignment records onto plain stances, dropping
// the position.
func CausesFromAlignments(records []ValueAlignment) []Cause {
	out := make([]Cause, 0, len(records))
	for _, r := range records {
		stance := StanceAvoid
		if r.IsSupport {
			stance = StanceSupport
		}
		out = append(out, Cause{ID: r.ValueID, Type: stance})
	}
	return out
}

// AlignmentsFromCauses derives ranked alignment records from an ordered cause list.
// Declaration order is the rank: the first cause gets position 1.
func AlignmentsFromCauses(causes []Cause) []ValueAlignment {
	out := make([]ValueAlignment, 0, len(causes))
	seen := make(map[string]bool, len(causes))
	for _, c := range causes {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, ValueAlignment{
			ValueID:   c.ID,
			Position:  len(out) + 1,
			IsSupport: c.Type == StanceSupport,
		})
	}
	return out
}
