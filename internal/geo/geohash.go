package geo

// CellPrecision is the geohash length used to bucket reference points.
// Five characters is a cell of roughly 4.9 km x 4.9 km, which is well below
// any radius a caller filters by.
const CellPrecision = 5

const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Encode returns the geohash of (lat, lng) with precision characters.
// A precision below 1 falls back to CellPrecision.
func Encode(lat, lng float64, precision int) string {
	if precision < 1 {
		precision = CellPrecision
	}

	// Index 0 is longitude, 1 is latitude; bits alternate starting with longitude.
	val := [2]float64{lng, lat}
	lo := [2]float64{-180, -90}
	hi := [2]float64{180, 90}
	axis := 0

	out := make([]byte, precision)
	for i := range out {
		var idx byte
		for range 5 {
			mid := (lo[axis] + hi[axis]) / 2
			idx <<= 1
			if val[axis] > mid {
				idx |= 1
				lo[axis] = mid
			} else {
				hi[axis] = mid
			}
			axis ^= 1
		}
		out[i] = base32[idx]
	}
	return string(out)
}

// Cell returns the CellPrecision geohash containing p.
func Cell(p Point) string {
	return Encode(p.Lat, p.Lng, CellPrecision)
}
