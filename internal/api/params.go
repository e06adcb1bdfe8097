package api

import (
	"errors"
	"math"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/onnwee/valuesalign/internal/catalog"
	"github.com/onnwee/valuesalign/internal/geo"
)

const (
	// DefaultLimit is the page size when a request names none.
	DefaultLimit = 10
	// MaxLimit caps the page size of ranking and discovery responses.
	MaxLimit = 100
)

// parseLimit reads ?limit=, defaulting to DefaultLimit.
func parseLimit(q url.Values) (int, error) {
	raw := q.Get("limit")
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, catalog.NewInvalidInput("limit", "must be an integer, got %q", raw)
	}
	if n < 1 || n > MaxLimit {
		return 0, catalog.NewInvalidInput("limit", "must be between 1 and %d, got %d", MaxLimit, n)
	}
	return n, nil
}

// parseFloat reads a finite float query parameter. ok is false when absent.
func parseFloat(q url.Values, name string) (v float64, ok bool, err error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, catalog.NewInvalidInput(name, "must be a number, got %q", raw)
	}
	return v, true, nil
}

// parsePoint reads ?lat=&lng=. Both or neither must be present.
func parsePoint(q url.Values) (p geo.Point, ok bool, err error) {
	lat, hasLat, err := parseFloat(q, "lat")
	if err != nil {
		return geo.Point{}, false, err
	}
	lng, hasLng, err := parseFloat(q, "lng")
	if err != nil {
		return geo.Point{}, false, err
	}
	if hasLat != hasLng {
		return geo.Point{}, false, catalog.NewInvalidInput("lat", "lat and lng must be given together")
	}
	if !hasLat {
		return geo.Point{}, false, nil
	}
	p = geo.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return geo.Point{}, false, catalog.NewInvalidInput("lat", "coordinate out of range")
	}
	return p, true, nil
}

// validationError converts validator errors into an InvalidInputError naming
// the first offending field.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		first := ve[0]
		return catalog.NewInvalidInput(first.Namespace(), "failed %q validation", first.Tag())
	}
	return catalog.NewInvalidInput("body", "%v", err)
}
