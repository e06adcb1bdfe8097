package store

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/ranking"
)

// FixtureUser is a user and their declared causes.
type FixtureUser struct {
	ID     string          `yaml:"id"`
	Email  string          `yaml:"email"`
	Causes []catalog.Cause `yaml:"causes"`
}

// Fixture is a complete dataset: the cause catalog, declarations and lists.
type Fixture struct {
	Causes     []catalog.Cause    `yaml:"causes"`
	Users      []FixtureUser      `yaml:"users"`
	Brands     []catalog.Brand    `yaml:"brands"`
	Businesses []catalog.Business `yaml:"businesses"`
	Lists      []ranking.List     `yaml:"lists"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load fixture %s: %w", path, err)
	}

	var f Fixture
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to decode fixture %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture %s: %w", path, err)
	}
	return &f, nil
}

// Validate checks every declaration in the fixture.
func (f *Fixture) Validate() error {
	for _, u := range f.Users {
		if err := catalog.ValidateCauses(u.Causes); err != nil {
			return fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	for _, b := range f.Brands {
		if err := catalog.ValidateCauses(b.Causes); err != nil {
			return fmt.Errorf("brand %s: %w", b.ID, err)
		}
		if err := catalog.ValidateAlignments(b.Alignments); err != nil {
			return fmt.Errorf("brand %s: %w", b.ID, err)
		}
	}
	for _, b := range f.Businesses {
		if err := catalog.ValidateCauses(b.Causes); err != nil {
			return fmt.Errorf("business %s: %w", b.ID, err)
		}
		if err := catalog.ValidateAlignments(b.Alignments); err != nil {
			return fmt.Errorf("business %s: %w", b.ID, err)
		}
	}
	return nil
}

// Seed loads the fixture into m.
func (f *Fixture) Seed(m *Memory) error {
	for _, c := range f.Causes {
		m.PutCause(c)
	}
	for _, u := range f.Users {
		if err := m.SetUserCauses(u.ID, u.Causes); err != nil {
			return fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	for _, b := range f.Brands {
		if err := m.PutBrand(b); err != nil {
			return fmt.Errorf("brand %s: %w", b.ID, err)
		}
	}
	for _, b := range f.Businesses {
		if err := m.PutBusiness(b); err != nil {
			return fmt.Errorf("business %s: %w", b.ID, err)
		}
	}
	for _, l := range f.Lists {
		m.AddList(l)
	}
	return nil
}

// NewMemoryFromFixture creates a Memory store seeded from a fixture file.
// An empty path returns an empty store.
func NewMemoryFromFixture(path string) (*Memory, error) {
	m := NewMemory()
	if path == "" {
		return m, nil
	}
	f, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	if err := f.Seed(m); err != nil {
		return nil, err
	}
	return m, nil
}
