package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"gavra/internal/types"
)

// RouteService handles interactions with the Google Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Optimize asks the routing engine for the best visiting order of stops
// starting from origin. It returns the stop indices in visiting order plus
// the driving duration of each leg (origin->first, first->second, ...) taken
// from the engine's segment timings. One invocation is a single network
// round trip; the caller bounds it with the context deadline.
func (s *RouteService) Optimize(ctx context.Context, origin types.Point, stops []types.Point) ([]int, []time.Duration, error) {
	if len(stops) == 0 {
		return nil, nil, fmt.Errorf("no stops to optimize")
	}

	waypoints := make([]string, 0, len(stops)+1)
	waypoints = append(waypoints, "optimize:true")
	for _, p := range stops {
		waypoints = append(waypoints, fmt.Sprintf("%f,%f", p.Lat, p.Lng))
	}
	last := stops[len(stops)-1]

	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Lat, origin.Lng),
		Destination: fmt.Sprintf("%f,%f", last.Lat, last.Lng),
		Waypoints:   waypoints,
		Mode:        maps.TravelModeDriving,
		Region:      "RS",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, nil, fmt.Errorf("directions api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, nil, fmt.Errorf("no route found")
	}

	route := routes[0]
	legs := make([]time.Duration, 0, len(route.Legs))
	for _, leg := range route.Legs {
		legs = append(legs, leg.Duration)
	}
	return route.WaypointOrder, legs, nil
}
