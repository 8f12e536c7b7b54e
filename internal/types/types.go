// README: Shared identifiers and geographic value objects.
package types

import "github.com/google/uuid"

type ID string

// NewID returns a random identifier for orders and sessions.
func NewID() ID {
	return ID(uuid.NewString())
}

// GeoPoint is a named latitude/longitude coordinate. It is a value type and
// is never mutated after construction.
type GeoPoint struct {
	Name string  `json:"name" firestore:"name"`
	Lat  float64 `json:"lat" firestore:"lat"`
	Lng  float64 `json:"lng" firestore:"lng"`
}

func NewGeoPoint(name string, lat, lng float64) GeoPoint {
	return GeoPoint{Name: name, Lat: lat, Lng: lng}
}

// Valid reports whether the coordinate lies within WGS84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
