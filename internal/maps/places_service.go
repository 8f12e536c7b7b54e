package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"village/internal/types"
)

// searchRadiusMeters biases results to places within a short ride of the
// customer.
const searchRadiusMeters = 15000

// Place is a location directory entry a customer can pick as pickup, drop
// or service address.
type Place struct {
	Point   types.GeoPoint `json:"point"`
	Address string         `json:"address"`
	PlaceID string         `json:"placeId"`
}

type textSearcher interface {
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
}

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client textSearcher
	region string
}

// NewPlacesService creates a new PlacesService with the given API Key.
func NewPlacesService(apiKey string) (*PlacesService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client, region: "in"}, nil
}

// Search runs a text search, optionally biased towards near, and returns at
// most limit places with usable coordinates.
func (s *PlacesService) Search(ctx context.Context, query string, near *types.GeoPoint, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	r := &maps.TextSearchRequest{
		Query:  query,
		Region: s.region,
	}
	if near != nil {
		r.Location = &maps.LatLng{Lat: near.Lat, Lng: near.Lng}
		r.Radius = searchRadiusMeters
	}

	resp, err := s.client.TextSearch(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}
	return toPlaces(resp.Results, limit), nil
}

func toPlaces(results []maps.PlacesSearchResult, limit int) []Place {
	var out []Place
	seen := make(map[string]bool)
	for _, r := range results {
		if r.PlaceID != "" && seen[r.PlaceID] {
			continue
		}
		p := types.NewGeoPoint(r.Name, r.Geometry.Location.Lat, r.Geometry.Location.Lng)
		if !p.Valid() || (p.Lat == 0 && p.Lng == 0) {
			continue
		}
		seen[r.PlaceID] = true
		out = append(out, Place{Point: p, Address: r.FormattedAddress, PlaceID: r.PlaceID})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
