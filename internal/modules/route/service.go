// README: Route optimizer: parallel geocoding fan-out, bounded engine call, fallback order.
package route

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gavra/internal/config"
	"gavra/internal/types"
)

// Geocoder resolves a street address to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (types.Point, error)
}

// Engine is the external routing engine: one call, one network round trip.
type Engine interface {
	Optimize(ctx context.Context, origin types.Point, stops []types.Point) (order []int, legs []time.Duration, err error)
}

type Service struct {
	geo    Geocoder
	engine Engine
	log    *zap.Logger
	cfg    config.RouteConfig

	mu       sync.Mutex
	gen      uint64
	inflight context.CancelFunc
}

func NewService(geo Geocoder, engine Engine, log *zap.Logger, cfg config.RouteConfig) *Service {
	return &Service{geo: geo, engine: engine, log: log, cfg: cfg}
}

// Optimize resolves all stop addresses concurrently, then asks the engine for
// a visiting order. Unresolvable stops are skipped, never fatal. The engine
// call is bounded by the configured timeout; on timeout or engine failure the
// incoming order is kept and the plan is marked Fallback. A newer Optimize
// call supersedes an in-flight one: latest request wins, the stale caller
// gets ErrSuperseded. Equal inputs produce equal plans; exact ties keep the
// incoming list order.
func (s *Service) Optimize(ctx context.Context, origin types.Point, stops []Stop) (*Plan, error) {
	if len(stops) == 0 {
		return nil, ErrNoStops
	}
	ctx, gen := s.supersede(ctx)

	points := make([]types.Point, len(stops))
	errs := make([]error, len(stops))
	var wg sync.WaitGroup
	for i := range stops {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gctx, cancel := context.WithTimeout(ctx, s.cfg.GeocodeTimeout)
			defer cancel()
			points[i], errs[i] = s.geo.Resolve(gctx, stops[i].Address)
		}(i)
	}
	wg.Wait()
	if err := s.checkSuperseded(ctx, gen); err != nil {
		return nil, err
	}

	var resolved []Stop
	var resolvedPts []types.Point
	var skipped []SkippedStop
	for i, st := range stops {
		if errs[i] != nil {
			skipped = append(skipped, SkippedStop{PassengerID: st.PassengerID, Address: st.Address, Reason: errs[i].Error()})
			continue
		}
		resolved = append(resolved, st)
		resolvedPts = append(resolvedPts, points[i])
	}
	if len(skipped) > 0 {
		s.log.Warn("stops skipped from optimization", zap.Int("skipped", len(skipped)), zap.Int("total", len(stops)))
	}
	if len(resolved) == 0 {
		return &Plan{Skipped: skipped}, nil
	}

	octx, cancel := context.WithTimeout(ctx, s.cfg.OptimizeTimeout)
	defer cancel()
	order, legs, err := s.engine.Optimize(octx, origin, resolvedPts)
	if serr := s.checkSuperseded(ctx, gen); serr != nil {
		return nil, serr
	}
	if err != nil {
		// Engine timeout or failure: keep the unoptimized order rather than
		// block the trip start.
		s.log.Warn("routing engine failed, keeping incoming order", zap.Error(err))
		plan := &Plan{Skipped: skipped, Fallback: true}
		for i, st := range resolved {
			plan.Order = append(plan.Order, Visit{PassengerID: st.PassengerID, Point: resolvedPts[i]})
		}
		return plan, nil
	}

	plan := &Plan{Skipped: skipped}
	eta := time.Duration(0)
	for i, idx := range order {
		if idx < 0 || idx >= len(resolved) {
			continue
		}
		if i < len(legs) {
			eta += legs[i]
		}
		plan.Order = append(plan.Order, Visit{
			PassengerID: resolved[idx].PassengerID,
			Point:       resolvedPts[idx],
			ETA:         eta,
		})
	}
	return plan, nil
}

// supersede cancels any in-flight optimization and registers this one as the
// latest.
func (s *Service) supersede(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		s.inflight()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.inflight = cancel
	s.gen++
	return ctx, s.gen
}

func (s *Service) checkSuperseded(ctx context.Context, gen uint64) error {
	if ctx.Err() == nil {
		return nil
	}
	s.mu.Lock()
	newer := s.gen != gen
	s.mu.Unlock()
	if newer {
		return ErrSuperseded
	}
	return ctx.Err()
}
