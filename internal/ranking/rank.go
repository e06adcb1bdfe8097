package ranking

import (
	"sort"

	"github.com/onnwee/valuesalign/internal/geo"
)

// EntityType is the kind of entity a ranking is computed for.
type EntityType string

// Rankable entity types.
const (
	TypeBrand    EntityType = "brand"
	TypeBusiness EntityType = "business"
)

// Valid reports whether t is a rankable entity type.
func (t EntityType) Valid() bool {
	return t == TypeBrand || t == TypeBusiness
}

// EntryType is the kind of item on a user list.
type EntryType string

// List entry types. Only brand and business entries affect rankings.
const (
	EntryBrand    EntryType = "brand"
	EntryBusiness EntryType = "business"
	EntryValue    EntryType = "value"
	EntryLink     EntryType = "link"
	EntryText     EntryType = "text"
)

// Entry is one item of a user list with its denormalized display fields.
type Entry struct {
	Type       EntryType `json:"type" yaml:"type"`
	BrandID    string    `json:"brand_id,omitempty" yaml:"brand_id"`
	BusinessID string    `json:"business_id,omitempty" yaml:"business_id"`
	Name       string    `json:"name,omitempty" yaml:"name"`
	Category   string    `json:"category,omitempty" yaml:"category"`
	Website    string    `json:"website,omitempty" yaml:"website"`
	LogoURL    string    `json:"logo_url,omitempty" yaml:"logo_url"`
}

// entityID returns the ID this entry endorses for t, or "" when it endorses
// nothing of that type.
func (e Entry) entityID(t EntityType) string {
	switch {
	case t == TypeBrand && e.Type == EntryBrand:
		return e.BrandID
	case t == TypeBusiness && e.Type == EntryBusiness:
		return e.BusinessID
	}
	return ""
}

// List is an ordered user list. Entries[0] is position 1.
type List struct {
	ID      string  `json:"id" yaml:"id"`
	UserID  string  `json:"user_id" yaml:"user_id"`
	Title   string  `json:"title,omitempty" yaml:"title"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// RankedItem is an aggregated ranking row.
type RankedItem struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Category         string   `json:"category,omitempty"`
	Website          string   `json:"website,omitempty"`
	LogoURL          string   `json:"logo_url,omitempty"`
	Score            float64  `json:"score"`
	EndorsementCount int      `json:"endorsement_count"`
	Distance         *float64 `json:"distance,omitempty"`
	LocationLabel    string   `json:"location_label,omitempty"`
}

// GeoFilter restricts a ranking to entities within MaxMiles of Center.
type GeoFilter struct {
	Center   geo.Point `json:"center"`
	MaxMiles float64   `json:"max_miles"`
}

// Rank aggregates endorsements of entities of type t across all lists.
//
// Each entry contributes PositionWeight of its 1-based position in its list.
// An entity is counted at most once per list, at its first position. When
// filter is non-nil, entities without a location in sites are dropped, as are
// those farther than filter.MaxMiles from the center. Results are sorted by
// score descending with ties kept in first-seen order, then truncated to
// limit. A limit <= 0 returns every entity.
func Rank(lists []List, t EntityType, limit int, filter *GeoFilter, sites map[string]geo.Site) []RankedItem {
	index := make(map[string]int)
	items := make([]RankedItem, 0)

	for _, list := range lists {
		counted := make(map[string]bool)
		for i, entry := range list.Entries {
			id := entry.entityID(t)
			if id == "" || counted[id] {
				continue
			}
			counted[id] = true

			idx, ok := index[id]
			if !ok {
				idx = len(items)
				index[id] = idx
				items = append(items, RankedItem{ID: id})
			}
			item := &items[idx]
			item.Score += PositionWeight(i + 1)
			item.EndorsementCount++
			fillDisplay(item, entry)
		}
	}

	if filter != nil {
		items = applyGeoFilter(items, *filter, sites)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// fillDisplay copies display fields from the first entry that carries them.
func fillDisplay(item *RankedItem, e Entry) {
	if item.Name == "" {
		item.Name = e.Name
	}
	if item.Category == "" {
		item.Category = e.Category
	}
	if item.Website == "" {
		item.Website = e.Website
	}
	if item.LogoURL == "" {
		item.LogoURL = e.LogoURL
	}
}

func applyGeoFilter(items []RankedItem, f GeoFilter, sites map[string]geo.Site) []RankedItem {
	kept := items[:0]
	for _, item := range items {
		site, ok := sites[item.ID]
		if !ok || !site.HasLocation() {
			continue
		}
		prox := geo.IsWithinRadius(site, f.Center, f.MaxMiles)
		if !prox.WithinRange {
			continue
		}
		item.Distance = prox.Distance
		item.LocationLabel = prox.Label
		kept = append(kept, item)
	}
	return kept
}
