// README: Schedule service: passenger registration, lookup, and leg cancellation.
package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gavra/internal/types"
)

type Service struct {
	store *Store
	log   *zap.Logger
}

func NewService(store *Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

type RegisterCommand struct {
	Name      string
	AddressBC string
	AddressVS string
	Schedule  WeekdaySchedule
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (types.ID, error) {
	if cmd.Name == "" {
		return "", ErrBadRequest
	}
	if cmd.Schedule == nil {
		cmd.Schedule = WeekdaySchedule{}
	}
	for w := range cmd.Schedule {
		if !w.Valid() {
			return "", ErrBadWeekday
		}
	}
	p := &Passenger{
		ID:        types.ID(uuid.NewString()),
		Name:      cmd.Name,
		AddressBC: cmd.AddressBC,
		AddressVS: cmd.AddressVS,
		Active:    true,
		Schedule:  cmd.Schedule,
		CreatedAt: time.Now(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return "", err
	}
	s.log.Info("passenger registered", zap.String("passenger_id", string(p.ID)))
	return p.ID, nil
}

// Get returns the passenger with all stored slot timestamps verbatim,
// including payments recorded on earlier calendar days.
func (s *Service) Get(ctx context.Context, id types.ID) (*Passenger, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id types.ID) error {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.log.Info("passenger deactivated", zap.String("passenger_id", string(id)))
	return nil
}

// CancelLeg marks one location slot of the trip date's weekday as cancelled.
func (s *Service) CancelLeg(ctx context.Context, id types.ID, tripDate time.Time, loc Location) error {
	return s.store.ApplyUpdates(ctx, []FieldUpdate{{
		PassengerID: id,
		Weekday:     WeekdayOf(tripDate),
		Location:    loc,
		Field:       FieldCancelled,
		Value:       true,
	}})
}

// ActiveForTrip returns passengers due for the given leg on the trip date:
// scheduled that weekday, not cancelled, not yet picked up.
func (s *Service) ActiveForTrip(ctx context.Context, tripDate time.Time, loc Location) ([]*Passenger, error) {
	if !loc.Valid() {
		return nil, ErrBadLocation
	}
	all, err := s.store.ListForWeekday(ctx, WeekdayOf(tripDate))
	if err != nil {
		return nil, err
	}
	var due []*Passenger
	for _, p := range all {
		day := p.Schedule.Day(WeekdayOf(tripDate))
		if day == nil {
			continue
		}
		slot := day.Slot(loc)
		if slot.ScheduledTime == "" || slot.Cancelled || slot.PickedUp() {
			continue
		}
		due = append(due, p)
	}
	return due, nil
}

// Address returns the pickup address for the given leg.
func (p *Passenger) Address(loc Location) string {
	if loc == LocationBC {
		return p.AddressBC
	}
	return p.AddressVS
}
