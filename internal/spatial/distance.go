package spatial

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/jengzang/location-tracker/internal/models"
)

// EarthRadiusMeters is the Earth's mean radius
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two samples
func DistanceMeters(a, b models.LocationSample) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Destination moves from (lat, lng) along bearing (degrees, 0 = north) for distance meters
func Destination(lat, lng, bearing, distance float64) (float64, float64) {
	start := s2.LatLngFromDegrees(lat, lng)
	theta := bearing * math.Pi / 180
	delta := distance / EarthRadiusMeters

	phi1 := start.Lat.Radians()
	lambda1 := start.Lng.Radians()

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) +
		math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))

	end := s2.LatLng{Lat: s1.Angle(phi2), Lng: s1.Angle(lambda2)}.Normalized()
	return end.Lat.Degrees(), end.Lng.Degrees()
}
