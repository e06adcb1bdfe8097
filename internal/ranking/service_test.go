package ranking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/geo"
)

type fakeLists struct {
	mu    sync.Mutex
	lists []List
	err   error
	calls int
}

func (f *fakeLists) AllLists(context.Context) ([]List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.lists, nil
}

func (f *fakeLists) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLocations struct {
	sites map[string]geo.Site
	err   error
	asked []string
}

func (f *fakeLocations) BusinessSites(_ context.Context, ids []string) (map[string]geo.Site, error) {
	f.asked = ids
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]geo.Site)
	for _, id := range ids {
		if s, ok := f.sites[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]RankedItem, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) Set(context.Context, string, []RankedItem, time.Duration) error {
	return errors.New("cache down")
}

func (failingCache) Clear(context.Context) error { return errors.New("cache down") }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleLists() []List {
	return []List{
		{ID: "l1", Entries: []Entry{
			brandEntry("acme", "Acme"),
			businessEntry("bakery", "Bakery"),
			businessEntry("garage", "Garage"),
		}},
		{ID: "l2", Entries: []Entry{
			businessEntry("garage", "Garage"),
			brandEntry("globex", "Globex"),
		}},
	}
}

func TestService_TopBrands(t *testing.T) {
	svc := NewService(&fakeLists{lists: sampleLists()}, &fakeLocations{}, ServiceConfig{Logger: discardLogger()})

	got, err := svc.TopBrands(context.Background(), 10)
	if err != nil {
		t.Fatalf("TopBrands() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "acme" || got[1].ID != "globex" {
		t.Errorf("TopBrands() = %+v", got)
	}
}

func TestService_TopBusinesses_GeoFilter(t *testing.T) {
	here := geo.Point{Lat: 45.5152, Lng: -122.6784}
	there := geo.Point{Lat: 47.6062, Lng: -122.3321}
	locs := &fakeLocations{sites: map[string]geo.Site{
		"bakery": {Legacy: &here},
		"garage": {Legacy: &there},
	}}
	svc := NewService(&fakeLists{lists: sampleLists()}, locs, ServiceConfig{Logger: discardLogger()})

	got, err := svc.TopBusinesses(context.Background(), 10, &GeoFilter{Center: here, MaxMiles: 20})
	if err != nil {
		t.Fatalf("TopBusinesses() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "bakery" {
		t.Errorf("TopBusinesses() = %+v, want only bakery", got)
	}
	asked := append([]string(nil), locs.asked...)
	sort.Strings(asked)
	if diff := cmp.Diff([]string{"bakery", "garage"}, asked); diff != "" {
		t.Errorf("locations asked (-want +got):\n%s", diff)
	}
}

func TestService_UpstreamFailureYieldsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		lists  *fakeLists
		locs   *fakeLocations
		filter *GeoFilter
	}{
		{
			name:  "list read fails",
			lists: &fakeLists{err: errors.New("connection reset")},
			locs:  &fakeLocations{},
		},
		{
			name:   "location read fails",
			lists:  &fakeLists{lists: sampleLists()},
			locs:   &fakeLocations{err: errors.New("timeout")},
			filter: &GeoFilter{Center: geo.Point{Lat: 1, Lng: 1}, MaxMiles: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := NewMetrics()
			svc := NewService(tt.lists, tt.locs, ServiceConfig{Logger: discardLogger(), Metrics: metrics})

			got, err := svc.Rank(context.Background(), TypeBusiness, 10, tt.filter)
			if err != nil {
				t.Fatalf("Rank() error = %v, want nil", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("Rank() = %#v, want empty non-nil slice", got)
			}
			if v := getCounterValue(metrics.computeTotal.WithLabelValues(string(TypeBusiness), "failure")); v != 1 {
				t.Errorf("failure count = %v, want 1", v)
			}
		})
	}
}

func TestService_Rank_InvalidInput(t *testing.T) {
	svc := NewService(&fakeLists{}, &fakeLocations{}, ServiceConfig{Logger: discardLogger()})
	ctx := context.Background()
	valid := geo.Point{Lat: 10, Lng: 10}

	tests := []struct {
		name   string
		t      EntityType
		limit  int
		filter *GeoFilter
	}{
		{"unknown type", "value", 10, nil},
		{"negative limit", TypeBrand, -1, nil},
		{"brand geo filter", TypeBrand, 10, &GeoFilter{Center: valid, MaxMiles: 5}},
		{"bad center", TypeBusiness, 10, &GeoFilter{Center: geo.Point{Lat: 91}, MaxMiles: 5}},
		{"zero radius", TypeBusiness, 10, &GeoFilter{Center: valid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Rank(ctx, tt.t, tt.limit, tt.filter)
			if !errors.Is(err, catalog.ErrInvalidInput) {
				t.Errorf("Rank() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestService_Cache(t *testing.T) {
	lists := &fakeLists{lists: sampleLists()}
	metrics := NewMetrics()
	svc := NewService(lists, &fakeLocations{}, ServiceConfig{
		Logger:   discardLogger(),
		Metrics:  metrics,
		Cache:    NewMemoryCache(),
		CacheTTL: time.Minute,
	})
	ctx := context.Background()

	first, _ := svc.TopBrands(ctx, 10)
	second, _ := svc.TopBrands(ctx, 10)
	if lists.callCount() != 1 {
		t.Errorf("AllLists called %d times, want 1", lists.callCount())
	}
	if len(first) != len(second) {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}

	// Different limit is a different key
	if _, err := svc.TopBrands(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if lists.callCount() != 2 {
		t.Errorf("AllLists called %d times, want 2", lists.callCount())
	}

	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, err := svc.TopBrands(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if lists.callCount() != 3 {
		t.Errorf("AllLists called %d times after invalidate, want 3", lists.callCount())
	}

	if v := getCounterValue(metrics.cacheRequests.WithLabelValues(CacheHit)); v != 1 {
		t.Errorf("cache hits = %v, want 1", v)
	}
	if v := getCounterValue(metrics.cacheRequests.WithLabelValues(CacheMiss)); v != 3 {
		t.Errorf("cache misses = %v, want 3", v)
	}
}

// TestService_Cache_GeoFilterUsesOwnCenter tests that nearby callers sharing
// the cached full ranking are each filtered and measured from their own center.
func TestService_Cache_GeoFilterUsesOwnCenter(t *testing.T) {
	shop := geo.Point{Lat: 45.5152 - 5.47/69, Lng: -122.6784}
	lists := &fakeLists{lists: []List{{ID: "l1", Entries: []Entry{businessEntry("shop", "Shop")}}}}
	locs := &fakeLocations{sites: map[string]geo.Site{"shop": {Legacy: &shop}}}
	svc := NewService(lists, locs, ServiceConfig{
		Logger:   discardLogger(),
		Cache:    NewMemoryCache(),
		CacheTTL: time.Minute,
	})
	ctx := context.Background()

	tests := []struct {
		name   string
		center geo.Point
		want   int
	}{
		{"inside radius", geo.Point{Lat: 45.5152, Lng: -122.6784}, 1},
		{"same cell beyond radius", geo.Point{Lat: 45.5160, Lng: -122.6790}, 0},
		{"closer center", geo.Point{Lat: 45.5140, Lng: -122.6784}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.TopBusinesses(ctx, 10, &GeoFilter{Center: tt.center, MaxMiles: 5.5})
			if err != nil {
				t.Fatalf("TopBusinesses() error = %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("TopBusinesses() returned %d items, want %d: %+v", len(got), tt.want, got)
			}
			if tt.want == 0 {
				return
			}
			want := geo.Distance(tt.center, shop)
			if got[0].Distance == nil || math.Abs(*got[0].Distance-want) > 1e-9 {
				t.Errorf("distance = %v, want %v from this center", got[0].Distance, want)
			}
		})
	}

	if lists.callCount() != 1 {
		t.Errorf("AllLists called %d times, want 1 (full ranking served from cache)", lists.callCount())
	}
}

func TestService_Refresh_GeoFilter(t *testing.T) {
	here := geo.Point{Lat: 45.5152, Lng: -122.6784}
	cache := NewMemoryCache()
	lists := &fakeLists{lists: sampleLists()}
	locs := &fakeLocations{sites: map[string]geo.Site{"bakery": {Legacy: &here}}}
	svc := NewService(lists, locs, ServiceConfig{Logger: discardLogger(), Cache: cache})
	ctx := context.Background()

	got, err := svc.Refresh(ctx, TypeBusiness, 10, &GeoFilter{Center: here, MaxMiles: 1})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "bakery" {
		t.Errorf("Refresh() = %+v, want only bakery", got)
	}
	all, ok, _ := cache.Get(ctx, CacheKey(TypeBusiness, 0))
	if !ok || len(all) != 2 {
		t.Errorf("full ranking cached = %+v (ok=%v), want both businesses", all, ok)
	}
	for _, item := range all {
		if item.Distance != nil {
			t.Errorf("cached full ranking carries a distance for %s", item.ID)
		}
	}
	if lists.callCount() != 1 {
		t.Errorf("AllLists called %d times, want 1", lists.callCount())
	}
}

func TestService_FailedComputationNotCached(t *testing.T) {
	lists := &fakeLists{err: errors.New("down")}
	cache := NewMemoryCache()
	svc := NewService(lists, &fakeLocations{}, ServiceConfig{Logger: discardLogger(), Cache: cache})

	if _, err := svc.TopBrands(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := cache.Get(context.Background(), CacheKey(TypeBrand, 10)); ok {
		t.Error("empty result from a failed read should not be cached")
	}
}

func TestService_CacheFailureFallsThrough(t *testing.T) {
	svc := NewService(&fakeLists{lists: sampleLists()}, &fakeLocations{}, ServiceConfig{
		Logger: discardLogger(),
		Cache:  failingCache{},
	})

	got, err := svc.TopBrands(context.Background(), 10)
	if err != nil {
		t.Fatalf("TopBrands() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("TopBrands() returned %d items, want 2", len(got))
	}
	if err := svc.Invalidate(context.Background()); err == nil {
		t.Error("Invalidate() should surface cache errors")
	}
}

func TestService_InvalidateWithoutCache(t *testing.T) {
	svc := NewService(&fakeLists{}, &fakeLocations{}, ServiceConfig{Logger: discardLogger()})
	if err := svc.Invalidate(context.Background()); err != nil {
		t.Errorf("Invalidate() error = %v, want nil", err)
	}
}

func TestService_Refresh(t *testing.T) {
	upstream := errors.New("down")
	svc := NewService(&fakeLists{err: upstream}, &fakeLocations{}, ServiceConfig{Logger: discardLogger()})

	if _, err := svc.Refresh(context.Background(), TypeBrand, 10, nil); !errors.Is(err, upstream) {
		t.Errorf("Refresh() error = %v, want wrapped upstream error", err)
	}
}
