package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by read collaborators for unknown entities.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput is matched by every InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports malformed numeric or structural input.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidInput) succeed.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInvalidInput builds an InvalidInputError.
func NewInvalidInput(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateCauses checks that each cause has an ID, a known stance, and that no ID
// appears twice in one declarant's list.
func ValidateCauses(causes []Cause) error {
	seen := make(map[string]bool, len(causes))
	for i, c := range causes {
		if c.ID == "" {
			return NewInvalidInput(fmt.Sprintf("causes[%d].id", i), "must not be empty")
		}
		if !c.Type.Valid() {
			return NewInvalidInput(fmt.Sprintf("causes[%d].type", i), "must be support or avoid, got %q", c.Type)
		}
		if seen[c.ID] {
			return NewInvalidInput(fmt.Sprintf("causes[%d].id", i), "duplicate stance for cause %q", c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

// ValidateAlignments checks that every record has a value ID, a positive position,
// and that no value ID repeats.
func ValidateAlignments(records []ValueAlignment) error {
	seen := make(map[string]bool, len(records))
	for i, a := range records {
		if a.ValueID == "" {
			return NewInvalidInput(fmt.Sprintf("alignments[%d].value_id", i), "must not be empty")
		}
		if a.Position <= 0 {
			return NewInvalidInput(fmt.Sprintf("alignments[%d].position", i), "must be a positive integer, got %d", a.Position)
		}
		if seen[a.ValueID] {
			return NewInvalidInput(fmt.Sprintf("alignments[%d].value_id", i), "duplicate record for value %q", a.ValueID)
		}
		seen[a.ValueID] = true
	}
	return nil
}
