// README: Trip service: start/stop lifecycle, notification fan-out, live tracking loop.
package trip

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gavra/internal/config"
	"gavra/internal/modules/route"
	"gavra/internal/modules/schedule"
	"gavra/internal/types"
)

// ScheduleSource lists the passengers due for a leg on a trip date.
type ScheduleSource interface {
	ActiveForTrip(ctx context.Context, tripDate time.Time, loc schedule.Location) ([]*schedule.Passenger, error)
}

// Optimizer computes a pickup plan over the passengers' addresses.
type Optimizer interface {
	Optimize(ctx context.Context, origin types.Point, stops []route.Stop) (*route.Plan, error)
}

// Notifier delivers one push message to one passenger's device.
type Notifier interface {
	Send(ctx context.Context, passengerID types.ID, title, body string) error
}

// Publisher pushes a driver position to the live channel (Firebase RTDB).
type Publisher interface {
	Publish(ctx context.Context, driverID types.ID, pos types.Point, at time.Time) error
}

// SnapshotSink appends a durable position snapshot (vozac_lokacije).
type SnapshotSink interface {
	Append(ctx context.Context, driverID types.ID, pos types.Point, at time.Time) error
}

type Service struct {
	schedules ScheduleSource
	optimizer Optimizer
	notifier  Notifier
	publisher Publisher
	snapshots SnapshotSink
	log       *zap.Logger
	cfg       config.TripConfig

	mu    sync.Mutex
	trips map[types.ID]*Trip
}

func NewService(schedules ScheduleSource, optimizer Optimizer, notifier Notifier, publisher Publisher, snapshots SnapshotSink, log *zap.Logger, cfg config.TripConfig) *Service {
	return &Service{
		schedules: schedules,
		optimizer: optimizer,
		notifier:  notifier,
		publisher: publisher,
		snapshots: snapshots,
		log:       log,
		cfg:       cfg,
		trips:     make(map[types.ID]*Trip),
	}
}

type StartCommand struct {
	DriverID types.ID
	TripDate time.Time
	Location schedule.Location
	Origin   types.Point
}

// Start runs one trip cycle for the driver: collect the passengers still due
// for the leg, optimize the pickup route, move into live tracking, and tell
// every passenger the trip has started. Notification failures are collected
// per passenger and never fail the start.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (*StartResult, error) {
	if !cmd.Location.Valid() {
		return nil, schedule.ErrBadLocation
	}
	trip, err := s.begin(cmd)
	if err != nil {
		return nil, err
	}

	passengers, err := s.schedules.ActiveForTrip(ctx, cmd.TripDate, cmd.Location)
	if err != nil {
		s.abort(cmd.DriverID)
		return nil, err
	}
	if len(passengers) == 0 {
		s.abort(cmd.DriverID)
		return nil, ErrNoPassengers
	}

	stops := make([]route.Stop, 0, len(passengers))
	for _, p := range passengers {
		stops = append(stops, route.Stop{PassengerID: p.ID, Address: p.Address(cmd.Location)})
	}
	plan, err := s.optimizer.Optimize(ctx, cmd.Origin, stops)
	if err != nil {
		s.abort(cmd.DriverID)
		return nil, err
	}

	// RouteReady is transient: tracking begins as soon as a plan exists.
	if err := s.transition(trip, StateRouteReady); err != nil {
		return nil, err
	}
	trip.Plan = plan
	if err := s.transition(trip, StateTracking); err != nil {
		return nil, err
	}

	broadcast := s.broadcast(ctx, plan)
	s.log.Info("trip started",
		zap.String("driver_id", string(cmd.DriverID)),
		zap.String("location", string(cmd.Location)),
		zap.Int("stops", len(plan.Order)),
		zap.Int("skipped", len(plan.Skipped)),
		zap.Bool("fallback", plan.Fallback),
		zap.Int("notified", broadcast.Sent),
		zap.Int("notify_failed", len(broadcast.Failed)))

	return &StartResult{State: trip.State, Plan: plan, Broadcast: broadcast}, nil
}

// Stop ends the driver's tracking session.
func (s *Service) Stop(ctx context.Context, driverID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[driverID]
	if !ok {
		return ErrNoTrip
	}
	if !CanTransition(trip.State, StateStopped) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, trip.State, StateStopped)
	}
	trip.State = StateStopped
	s.log.Info("trip stopped", zap.String("driver_id", string(driverID)))
	return nil
}

// Current returns the driver's trip, if any.
func (s *Service) Current(driverID types.ID) (*Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[driverID]
	if !ok {
		return nil, ErrNoTrip
	}
	copied := *trip
	return &copied, nil
}

// UpdatePosition records the driver's latest GPS fix. The tracking loop picks
// it up on the next tick.
func (s *Service) UpdatePosition(driverID types.ID, pos types.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[driverID]
	if !ok {
		return ErrNoTrip
	}
	trip.LastPos = &pos
	return nil
}

// RunTracking periodically publishes the last known position of every driver
// in the Tracking state to the live channel and the snapshot trail. It blocks
// until ctx is cancelled.
func (s *Service) RunTracking(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PublishTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishAll(ctx)
		}
	}
}

func (s *Service) publishAll(ctx context.Context) {
	type fix struct {
		driverID types.ID
		pos      types.Point
	}
	s.mu.Lock()
	var fixes []fix
	for id, trip := range s.trips {
		if trip.State == StateTracking && trip.LastPos != nil {
			fixes = append(fixes, fix{driverID: id, pos: *trip.LastPos})
		}
	}
	s.mu.Unlock()

	now := time.Now()
	for _, f := range fixes {
		if err := s.publisher.Publish(ctx, f.driverID, f.pos, now); err != nil {
			s.log.Warn("live position publish failed", zap.String("driver_id", string(f.driverID)), zap.Error(err))
		}
		if err := s.snapshots.Append(ctx, f.driverID, f.pos, now); err != nil {
			s.log.Warn("position snapshot failed", zap.String("driver_id", string(f.driverID)), zap.Error(err))
		}
	}
}

// broadcast notifies every planned passenger concurrently, capturing failures
// per passenger.
func (s *Service) broadcast(ctx context.Context, plan *route.Plan) BatchResult {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result BatchResult
	)
	for _, v := range plan.Order {
		wg.Add(1)
		go func(v route.Visit) {
			defer wg.Done()
			body := "Vozač je krenuo."
			if v.ETA > 0 {
				body = fmt.Sprintf("Vozač je krenuo, stiže za oko %d min.", int(v.ETA.Round(time.Minute)/time.Minute))
			}
			err := s.notifier.Send(ctx, v.PassengerID, "Prevoz je krenuo", body)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, v.PassengerID)
				s.log.Warn("trip notification failed", zap.String("passenger_id", string(v.PassengerID)), zap.Error(err))
				return
			}
			result.Sent++
		}(v)
	}
	wg.Wait()
	return result
}

// begin creates or recycles the driver's trip and moves it into
// RouteOptimizing.
func (s *Service) begin(cmd StartCommand) (*Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[cmd.DriverID]
	if !ok {
		trip = &Trip{DriverID: cmd.DriverID, State: StateNotStarted}
		s.trips[cmd.DriverID] = trip
	}
	if !CanTransition(trip.State, StateRouteOptimizing) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidState, trip.State, StateRouteOptimizing)
	}
	trip.State = StateRouteOptimizing
	trip.TripDate = cmd.TripDate
	trip.Location = cmd.Location
	trip.Plan = nil
	trip.StartedAt = time.Now()
	return trip, nil
}

func (s *Service) transition(trip *Trip, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(trip.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, trip.State, to)
	}
	trip.State = to
	return nil
}

// abort returns a failed start to NotStarted so the driver can retry.
func (s *Service) abort(driverID types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trip, ok := s.trips[driverID]; ok && trip.State == StateRouteOptimizing {
		trip.State = StateNotStarted
	}
}
