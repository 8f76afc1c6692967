// README: Trip lifecycle states and broadcast result types.
package trip

import (
	"errors"
	"time"

	"gavra/internal/modules/route"
	"gavra/internal/modules/schedule"
	"gavra/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid trip state transition")
	ErrNoTrip       = errors.New("no trip for driver")
	ErrNoPassengers = errors.New("no passengers due for this trip")
)

type State string

const (
	StateNotStarted      State = "not_started"
	StateRouteOptimizing State = "route_optimizing"
	StateRouteReady      State = "route_ready"
	StateTracking        State = "tracking"
	StateStopped         State = "stopped"
)

// AllowedTransitions represents the trip state flow as code. RouteReady moves
// to Tracking automatically; Stopped is terminal until a new cycle begins.
var AllowedTransitions = map[State][]State{
	StateNotStarted:      {StateRouteOptimizing},
	StateRouteOptimizing: {StateRouteReady, StateNotStarted},
	StateRouteReady:      {StateTracking},
	StateTracking:        {StateStopped},
	StateStopped:         {StateRouteOptimizing},
}

func CanTransition(from, to State) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Trip is one driver's current cycle: the leg being driven, the computed
// plan, and the live state.
type Trip struct {
	DriverID  types.ID
	TripDate  time.Time
	Location  schedule.Location
	State     State
	Plan      *route.Plan
	StartedAt time.Time
	LastPos   *types.Point
}

// BatchResult reports a notification fan-out: per-passenger failures are
// collected, never fatal to the batch.
type BatchResult struct {
	Sent   int
	Failed []types.ID
}

// StartResult is what the driver's device gets back from a start request.
type StartResult struct {
	State     State
	Plan      *route.Plan
	Broadcast BatchResult
}
