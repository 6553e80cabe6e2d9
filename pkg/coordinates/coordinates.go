package coordinates

import "math"

// Constants for the flattened local projection.
// One degree of latitude is treated as a fixed distance everywhere; one degree
// of longitude uses the value at roughly 38° latitude, so the metric is only
// meaningful at mid-latitudes and over short ranges.
const (
	// MilesPerDegreeLatitude is the statute-mile length of one degree of latitude
	MilesPerDegreeLatitude = 69.0

	// MilesPerDegreeLongitude is the statute-mile length of one degree of longitude
	MilesPerDegreeLongitude = 54.6
)

// Position represents a point on Earth's surface in decimal degrees.
// Values are not validated; NaN or out-of-range coordinates propagate into
// distance results unchanged.
type Position struct {
	// Latitude in decimal degrees (-90 to +90)
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64
}

// NewPosition creates a Position from latitude and longitude in degrees.
func NewPosition(lat, lon float64) Position {
	return Position{Latitude: lat, Longitude: lon}
}

// LatitudeToMiles converts a latitude delta in degrees to miles.
func LatitudeToMiles(deg float64) float64 {
	return deg * MilesPerDegreeLatitude
}

// LongitudeToMiles converts a longitude delta in degrees to miles.
func LongitudeToMiles(deg float64) float64 {
	return deg * MilesPerDegreeLongitude
}

// DistanceMiles returns the distance to other in miles using an
// equirectangular approximation: each axis delta is scaled independently and
// the result is the Euclidean norm of the two. No curvature correction is
// applied, which is acceptable for controller visibility ranges.
func (p Position) DistanceMiles(other Position) float64 {
	latMiles := LatitudeToMiles(math.Abs(other.Latitude - p.Latitude))
	lonMiles := LongitudeToMiles(math.Abs(other.Longitude - p.Longitude))
	return math.Sqrt(latMiles*latMiles + lonMiles*lonMiles)
}

// Within reports whether other lies strictly inside rangeMiles of p.
func (p Position) Within(other Position, rangeMiles float64) bool {
	return p.DistanceMiles(other) < rangeMiles
}
