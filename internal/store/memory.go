// Package store provides the persistence collaborators read by the alignment,
// ranking and discovery services.
package store

import (
	"context"
	"sync"

	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/geo"
	"github.com/onnwee/valuesalign/internal/ranking"
)

// Memory is an in-process store for development and tests.
// All operations are thread-safe and return copies.
type Memory struct {
	mu            sync.RWMutex
	causes        map[string]catalog.Cause
	users         map[string][]catalog.Cause
	brands        map[string]catalog.Brand
	businesses    map[string]catalog.Business
	businessOrder []string
	lists         []ranking.List
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		causes:     make(map[string]catalog.Cause),
		users:      make(map[string][]catalog.Cause),
		brands:     make(map[string]catalog.Brand),
		businesses: make(map[string]catalog.Business),
	}
}

// PutCause adds or replaces a catalog entry. Its stance is ignored.
func (m *Memory) PutCause(c catalog.Cause) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Type = ""
	m.causes[c.ID] = c
}

// SetUserCauses replaces a user's declarations. Names and categories missing
// from the declarations are filled from the catalog.
func (m *Memory) SetUserCauses(userID string, causes []catalog.Cause) error {
	if err := catalog.ValidateCauses(causes); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = m.resolve(causes)
	return nil
}

// PutBrand adds or replaces a brand.
func (m *Memory) PutBrand(b catalog.Brand) error {
	if err := catalog.ValidateAlignments(b.Alignments); err != nil {
		return err
	}
	if err := catalog.ValidateCauses(b.Causes); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b.Causes = m.resolve(b.Causes)
	b.Alignments = append([]catalog.ValueAlignment(nil), b.Alignments...)
	m.brands[b.ID] = b
	return nil
}

// PutBusiness adds or replaces a business.
func (m *Memory) PutBusiness(b catalog.Business) error {
	if err := catalog.ValidateCauses(b.Causes); err != nil {
		return err
	}
	if err := catalog.ValidateAlignments(b.Alignments); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.businesses[b.ID]; !exists {
		m.businessOrder = append(m.businessOrder, b.ID)
	}
	b.Causes = m.resolve(b.Causes)
	b.Alignments = append([]catalog.ValueAlignment(nil), b.Alignments...)
	b.Site = copySite(b.Site)
	m.businesses[b.ID] = b
	return nil
}

// AddList appends a user list.
func (m *Memory) AddList(l ranking.List) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.Entries = append([]ranking.Entry(nil), l.Entries...)
	m.lists = append(m.lists, l)
}

// UserCauses implements alignment.DeclarationSource. Unknown users have none.
func (m *Memory) UserCauses(_ context.Context, userID string) ([]catalog.Cause, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]catalog.Cause{}, m.users[userID]...), nil
}

// Brand implements alignment.DeclarationSource.
func (m *Memory) Brand(_ context.Context, id string) (*catalog.Brand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.brands[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	b.Causes = append([]catalog.Cause(nil), b.Causes...)
	b.Alignments = append([]catalog.ValueAlignment(nil), b.Alignments...)
	return &b, nil
}

// Business implements alignment.DeclarationSource.
func (m *Memory) Business(_ context.Context, id string) (*catalog.Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.businesses[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	b = copyBusiness(b)
	return &b, nil
}

// Businesses implements discovery.Source, in insertion order.
func (m *Memory) Businesses(_ context.Context) ([]catalog.Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Business, 0, len(m.businessOrder))
	for _, id := range m.businessOrder {
		out = append(out, copyBusiness(m.businesses[id]))
	}
	return out, nil
}

// AllLists implements ranking.ListSource.
func (m *Memory) AllLists(_ context.Context) ([]ranking.List, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ranking.List, len(m.lists))
	for i, l := range m.lists {
		l.Entries = append([]ranking.Entry(nil), l.Entries...)
		out[i] = l
	}
	return out, nil
}

// BusinessSites implements ranking.LocationSource.
func (m *Memory) BusinessSites(_ context.Context, ids []string) (map[string]geo.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]geo.Site, len(ids))
	for _, id := range ids {
		b, ok := m.businesses[id]
		if !ok || !b.Site.HasLocation() {
			continue
		}
		out[id] = copySite(b.Site)
	}
	return out, nil
}

// resolve fills catalog fields into declarations. Callers hold m.mu.
func (m *Memory) resolve(causes []catalog.Cause) []catalog.Cause {
	out := make([]catalog.Cause, len(causes))
	for i, c := range causes {
		if entry, ok := m.causes[c.ID]; ok {
			if c.Name == "" {
				c.Name = entry.Name
			}
			if c.Category == "" {
				c.Category = entry.Category
			}
			if c.Description == "" {
				c.Description = entry.Description
			}
		}
		if c.Category != "" {
			c.Category = catalog.NormalizeCategory(c.Category)
		}
		out[i] = c
	}
	return out
}

func copyBusiness(b catalog.Business) catalog.Business {
	b.Causes = append([]catalog.Cause(nil), b.Causes...)
	b.Alignments = append([]catalog.ValueAlignment(nil), b.Alignments...)
	b.Site = copySite(b.Site)
	return b
}

func copySite(s geo.Site) geo.Site {
	out := geo.Site{Locations: append([]geo.Location(nil), s.Locations...)}
	if s.Legacy != nil {
		p := *s.Legacy
		out.Legacy = &p
	}
	return out
}
