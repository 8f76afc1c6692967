// README: Trip service tests: lifecycle, broadcast fan-out, tracking publishes.
package trip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"gavra/internal/config"
	"gavra/internal/modules/route"
	"gavra/internal/modules/schedule"
	"gavra/internal/types"
)

type fakeSchedules struct {
	passengers []*schedule.Passenger
	err        error
}

func (f *fakeSchedules) ActiveForTrip(ctx context.Context, tripDate time.Time, loc schedule.Location) ([]*schedule.Passenger, error) {
	return f.passengers, f.err
}

type fakeOptimizer struct {
	err   error
	calls int
}

func (f *fakeOptimizer) Optimize(ctx context.Context, origin types.Point, stops []route.Stop) (*route.Plan, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	plan := &route.Plan{}
	for i, st := range stops {
		plan.Order = append(plan.Order, route.Visit{
			PassengerID: st.PassengerID,
			ETA:         time.Duration(i+1) * 5 * time.Minute,
		})
	}
	return plan, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	fail map[types.ID]bool
	sent []types.ID
}

func (f *fakeNotifier) Send(ctx context.Context, passengerID types.ID, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[passengerID] {
		return errors.New("device unreachable")
	}
	f.sent = append(f.sent, passengerID)
	return nil
}

type fakePublisher struct {
	mu    sync.Mutex
	count int
	last  types.Point
}

func (f *fakePublisher) Publish(ctx context.Context, driverID types.ID, pos types.Point, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	f.last = pos
	return nil
}

func (f *fakePublisher) published() (int, types.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, f.last
}

type fakeSnapshots struct {
	mu    sync.Mutex
	count int
}

func (f *fakeSnapshots) Append(ctx context.Context, driverID types.ID, pos types.Point, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return nil
}

func testPassengers(n int) []*schedule.Passenger {
	var out []*schedule.Passenger
	for i := 0; i < n; i++ {
		out = append(out, &schedule.Passenger{
			ID:        types.ID(fmt.Sprintf("p%d", i+1)),
			Name:      fmt.Sprintf("Putnik %d", i+1),
			AddressBC: fmt.Sprintf("Ulica %d, Bela Crkva", i+1),
			AddressVS: fmt.Sprintf("Ulica %d, Vršac", i+1),
			Active:    true,
		})
	}
	return out
}

func newTestService(sched *fakeSchedules, opt *fakeOptimizer, not *fakeNotifier) (*Service, *fakePublisher, *fakeSnapshots) {
	pub := &fakePublisher{}
	snap := &fakeSnapshots{}
	svc := NewService(sched, opt, not, pub, snap, zap.NewNop(), config.TripConfig{PublishTick: 10 * time.Millisecond})
	return svc, pub, snap
}

func startCmd() StartCommand {
	return StartCommand{
		DriverID: "bojan",
		TripDate: time.Date(2026, 1, 29, 6, 0, 0, 0, time.Local),
		Location: schedule.LocationBC,
		Origin:   types.Point{Lat: 44.897, Lng: 21.417},
	}
}

func TestStartHappyPath(t *testing.T) {
	sched := &fakeSchedules{passengers: testPassengers(3)}
	not := &fakeNotifier{}
	svc, _, _ := newTestService(sched, &fakeOptimizer{}, not)

	res, err := svc.Start(context.Background(), startCmd())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.State != StateTracking {
		t.Fatalf("state = %s, want %s", res.State, StateTracking)
	}
	if len(res.Plan.Order) != 3 {
		t.Fatalf("plan has %d stops, want 3", len(res.Plan.Order))
	}
	if res.Broadcast.Sent != 3 || len(res.Broadcast.Failed) != 0 {
		t.Fatalf("broadcast = %+v, want 3 sent", res.Broadcast)
	}
	trip, err := svc.Current("bojan")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if trip.State != StateTracking {
		t.Fatalf("trip state = %s, want %s", trip.State, StateTracking)
	}
}

func TestStartCollectsNotificationFailures(t *testing.T) {
	sched := &fakeSchedules{passengers: testPassengers(4)}
	not := &fakeNotifier{fail: map[types.ID]bool{"p2": true, "p4": true}}
	svc, _, _ := newTestService(sched, &fakeOptimizer{}, not)

	res, err := svc.Start(context.Background(), startCmd())
	if err != nil {
		t.Fatalf("start must not fail on notification errors: %v", err)
	}
	if res.Broadcast.Sent != 2 {
		t.Errorf("sent = %d, want 2", res.Broadcast.Sent)
	}
	if len(res.Broadcast.Failed) != 2 {
		t.Errorf("failed = %v, want p2 and p4", res.Broadcast.Failed)
	}
	failed := map[types.ID]bool{}
	for _, id := range res.Broadcast.Failed {
		failed[id] = true
	}
	if !failed["p2"] || !failed["p4"] {
		t.Errorf("failed = %v, want p2 and p4", res.Broadcast.Failed)
	}
}

func TestStartNoPassengers(t *testing.T) {
	svc, _, _ := newTestService(&fakeSchedules{}, &fakeOptimizer{}, &fakeNotifier{})
	if _, err := svc.Start(context.Background(), startCmd()); !errors.Is(err, ErrNoPassengers) {
		t.Fatalf("err = %v, want ErrNoPassengers", err)
	}
	// A failed start leaves the driver free to retry.
	svc2, _, _ := newTestService(&fakeSchedules{passengers: testPassengers(1)}, &fakeOptimizer{}, &fakeNotifier{})
	if _, err := svc2.Start(context.Background(), startCmd()); err != nil {
		t.Fatalf("retry after empty trip: %v", err)
	}
}

func TestStartFailureReturnsToNotStarted(t *testing.T) {
	sched := &fakeSchedules{passengers: testPassengers(2)}
	opt := &fakeOptimizer{err: errors.New("maps down")}
	svc, _, _ := newTestService(sched, opt, &fakeNotifier{})

	if _, err := svc.Start(context.Background(), startCmd()); err == nil {
		t.Fatal("expected optimizer error")
	}
	trip, err := svc.Current("bojan")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if trip.State != StateNotStarted {
		t.Fatalf("state after failed start = %s, want %s", trip.State, StateNotStarted)
	}

	opt.err = nil
	if _, err := svc.Start(context.Background(), startCmd()); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestStartWhileTrackingRejected(t *testing.T) {
	sched := &fakeSchedules{passengers: testPassengers(1)}
	svc, _, _ := newTestService(sched, &fakeOptimizer{}, &fakeNotifier{})

	if _, err := svc.Start(context.Background(), startCmd()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Start(context.Background(), startCmd()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second start: err = %v, want ErrInvalidState", err)
	}
}

func TestStopAndRestartCycle(t *testing.T) {
	sched := &fakeSchedules{passengers: testPassengers(1)}
	svc, _, _ := newTestService(sched, &fakeOptimizer{}, &fakeNotifier{})

	if err := svc.Stop(context.Background(), "bojan"); !errors.Is(err, ErrNoTrip) {
		t.Fatalf("stop without trip: err = %v, want ErrNoTrip", err)
	}
	if _, err := svc.Start(context.Background(), startCmd()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Stop(context.Background(), "bojan"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	trip, _ := svc.Current("bojan")
	if trip.State != StateStopped {
		t.Fatalf("state = %s, want %s", trip.State, StateStopped)
	}
	// Afternoon run after the morning one.
	if _, err := svc.Start(context.Background(), startCmd()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
}

func TestTrackingPublishesPositions(t *testing.T) {
	sched := &fakeSchedules{passengers: testPassengers(1)}
	svc, pub, snap := newTestService(sched, &fakeOptimizer{}, &fakeNotifier{})

	if _, err := svc.Start(context.Background(), startCmd()); err != nil {
		t.Fatalf("start: %v", err)
	}
	pos := types.Point{Lat: 44.9, Lng: 21.4}
	if err := svc.UpdatePosition("bojan", pos); err != nil {
		t.Fatalf("update position: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunTracking(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	count, last := pub.published()
	if count == 0 {
		t.Fatal("no live positions published")
	}
	if last != pos {
		t.Fatalf("published %+v, want %+v", last, pos)
	}
	snap.mu.Lock()
	snapped := snap.count
	snap.mu.Unlock()
	if snapped == 0 {
		t.Fatal("no snapshots appended")
	}
}

func TestNoPublishAfterStop(t *testing.T) {
	sched := &fakeSchedules{passengers: testPassengers(1)}
	svc, pub, _ := newTestService(sched, &fakeOptimizer{}, &fakeNotifier{})

	if _, err := svc.Start(context.Background(), startCmd()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.UpdatePosition("bojan", types.Point{Lat: 1, Lng: 1}); err != nil {
		t.Fatalf("update position: %v", err)
	}
	if err := svc.Stop(context.Background(), "bojan"); err != nil {
		t.Fatalf("stop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunTracking(ctx)
		close(done)
	}()
	time.Sleep(40 * time.Millisecond)
	cancel()
	<-done

	if count, _ := pub.published(); count != 0 {
		t.Fatalf("published %d positions after stop", count)
	}
}
