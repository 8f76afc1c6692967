package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"gavra/internal/types"
)

// GeocodeService resolves street addresses to coordinates via the Google
// Geocoding API.
type GeocodeService struct {
	client *maps.Client
}

// NewGeocodeService creates a GeocodeService with the given API key.
func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// Resolve geocodes one address, biased to Serbia where both towns lie.
func (s *GeocodeService) Resolve(ctx context.Context, address string) (types.Point, error) {
	if address == "" {
		return types.Point{}, fmt.Errorf("empty address")
	}
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  "RS",
	})
	if err != nil {
		return types.Point{}, fmt.Errorf("geocode api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("no result for %q", address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
