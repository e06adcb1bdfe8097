// Package geo provides great-circle distance, radius filtering for single- and
// multi-location entities, and geohash bucketing of reference points.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used by every distance computation.
const EarthRadiusMiles = 3958.8

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether the coordinate lies within the WGS84 ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// Location is one named site of a multi-location entity.
type Location struct {
	Label string `json:"label" yaml:"label"`
	Point Point  `json:"point" yaml:"point"`
}

// Site is everything known about where an entity is.
// Locations takes precedence; Legacy is the older single lat/lng pair.
type Site struct {
	Locations []Location `json:"locations,omitempty" yaml:"locations"`
	Legacy    *Point     `json:"legacy,omitempty" yaml:"legacy"`
}

// HasLocation reports whether the site resolves to at least one point.
func (s Site) HasLocation() bool {
	return len(s.Locations) > 0 || s.Legacy != nil
}

// HaversineMiles returns the great-circle distance in miles between two coordinates.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// Distance returns the great-circle distance in miles between a and b.
func Distance(a, b Point) float64 {
	return HaversineMiles(a.Lat, a.Lng, b.Lat, b.Lng)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Proximity is the result of a radius check.
// Distance is nil when the site had no location at all.
type Proximity struct {
	WithinRange bool     `json:"within_range"`
	Distance    *float64 `json:"distance,omitempty"`
	Label       string   `json:"label,omitempty"`
}

// Nearest returns the distance to the closest point of the site and that
// location's label. ok is false when the site has no location.
func Nearest(site Site, ref Point) (distance float64, label string, ok bool) {
	if len(site.Locations) > 0 {
		best := math.Inf(1)
		for _, loc := range site.Locations {
			if d := Distance(loc.Point, ref); d < best {
				best = d
				label = loc.Label
			}
		}
		return best, label, true
	}
	if site.Legacy != nil {
		return Distance(*site.Legacy, ref), "", true
	}
	return 0, "", false
}

// IsWithinRadius checks whether any location of site is within maxMiles of ref.
// The reported distance and label are those of the closest location.
func IsWithinRadius(site Site, ref Point, maxMiles float64) Proximity {
	d, label, ok := Nearest(site, ref)
	if !ok {
		return Proximity{}
	}
	return Proximity{
		WithinRange: d <= maxMiles,
		Distance:    &d,
		Label:       label,
	}
}
