// Package geo provides the small amount of spherical geometry a GPS
// consumer typically wants next: distance and initial bearing from the
// current fix to a waypoint.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// Mean Earth radius, meters.
const earthRadiusM = 6371000.0

// DistanceMeters returns the great-circle distance between two points given
// in signed decimal degrees.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * earthRadiusM
}

// InitialBearingDeg returns the initial great-circle bearing from the first
// point to the second, normalized to [0, 360).
func InitialBearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}
