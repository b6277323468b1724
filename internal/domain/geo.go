package domain

import "math"

const (
	// MetersPerMile converts search radii for the discovery providers
	MetersPerMile = 1609.34

	earthRadiusMiles = 3958.8
)

// MilesToMeters converts a radius in miles to meters
func MilesToMeters(miles float64) float64 {
	return miles * MetersPerMile
}

// DistanceMiles returns the great-circle distance between two points
func (c Coordinate) DistanceMiles(other Coordinate) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - c.Lat) * math.Pi / 180
	dLng := (other.Lng - c.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
