// README: Route plan types: visits, skipped stops, optimizer errors.
package route

import (
	"errors"
	"time"

	"gavra/internal/types"
)

var (
	// ErrSuperseded means a newer optimize request replaced this one while it
	// was in flight; the stale result is discarded.
	ErrSuperseded = errors.New("optimization superseded by newer request")
	ErrNoStops    = errors.New("no stops to optimize")
)

// Stop is one passenger pickup to visit.
type Stop struct {
	PassengerID types.ID
	Address     string
}

// SkippedStop reports a passenger excluded from optimization, with the
// geocoding failure that caused it.
type SkippedStop struct {
	PassengerID types.ID
	Address     string
	Reason      string
}

// Visit is one ordered stop of the computed route. ETA is the cumulative
// driving time from the driver's position, taken from the routing engine's
// segment timings.
type Visit struct {
	PassengerID types.ID
	Point       types.Point
	ETA         time.Duration
}

// Plan is the optimizer output: a total order over the resolvable passengers
// plus the skipped remainder. Fallback marks a plan that kept the incoming
// order because the engine timed out or failed.
type Plan struct {
	Order    []Visit
	Skipped  []SkippedStop
	Fallback bool
}

// ETAFor returns the ETA for one passenger and whether it is part of the
// order.
func (p *Plan) ETAFor(id types.ID) (time.Duration, bool) {
	for _, v := range p.Order {
		if v.PassengerID == id {
			return v.ETA, true
		}
	}
	return 0, false
}
