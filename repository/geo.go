package repository

import "math"

// earthRadiusMeters matches the radius MongoDB uses for spherical queries.
const earthRadiusMeters = 6378100.0

// DistanceMeters returns the great-circle distance between two
// longitude/latitude points.
func DistanceMeters(lng1, lat1, lng2, lat2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}
