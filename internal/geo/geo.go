package geo

import (
	"errors"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000

// ErrLocationUnavailable reports that no device position could be obtained.
// It is deliberately distinct from a failed radius check so callers can tell
// "enable location" apart from "walk closer".
var ErrLocationUnavailable = errors.New("location unavailable")

type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Distance returns the great-circle distance in meters between two positions.
func Distance(a, b Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinRadius reports whether pos lies within radiusMeters of target.
// The boundary is inclusive.
func WithinRadius(pos, target Position, radiusMeters float64) bool {
	return Distance(pos, target) <= radiusMeters
}
