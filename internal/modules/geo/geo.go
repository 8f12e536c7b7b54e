// Package geo contains pure geographic computation helpers. Straight-line
// distance stands in for road distance everywhere prices are computed.
package geo

import (
	"math"
	"sort"

	"village/internal/types"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between a and b in kilometres,
// rounded half-up to one decimal place. Distance(a, a) is 0 and the result
// is symmetric in its arguments.
func Distance(a, b types.GeoPoint) float64 {
	return roundHalfUp(haversineKm(a.Lat, a.Lng, b.Lat, b.Lng), 1)
}

// haversineKm returns the unrounded great-circle distance in kilometres
// between two points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func roundHalfUp(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Floor(v*p+0.5) / p
}

// SortByDistance orders items by ascending distance, keeping the original
// order for equal distances.
func SortByDistance[T any](items []T, dist func(T) float64) {
	sort.SliceStable(items, func(i, j int) bool {
		return dist(items[i]) < dist(items[j])
	})
}
