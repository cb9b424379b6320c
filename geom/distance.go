package geom

import (
	"math"

	"github.com/paulmach/orb"
)

const EarthRadiusMeters = 6371000.0

// canonicalScale fixes coordinates to 7 decimal places (roughly 1cm).
const canonicalScale = 1e7

// GreatCircleDistance calculates the distance between two points in meters using the Haversine formula
func GreatCircleDistance(lon1, lat1, lon2, lat2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	lat1Rad := toRad(lat1)
	lat2Rad := toRad(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Distance is GreatCircleDistance for orb points.
func Distance(a, b orb.Point) float64 {
	return GreatCircleDistance(a.Lon(), a.Lat(), b.Lon(), b.Lat())
}

// Canonical rounds a coordinate to a fixed precision so that equal inputs
// always produce equal map keys.
func Canonical(p orb.Point) orb.Point {
	return orb.Point{
		math.Round(p[0]*canonicalScale) / canonicalScale,
		math.Round(p[1]*canonicalScale) / canonicalScale,
	}
}

// Valid reports whether p is a finite lon/lat pair inside the WGS84 range.
func Valid(p orb.Point) bool {
	lon, lat := p[0], p[1]
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// Less orders points by longitude, then latitude.
func Less(a, b orb.Point) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}
