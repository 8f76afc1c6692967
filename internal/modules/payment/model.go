// README: Payment/pickup commands, write states, and queue entry shapes.
package payment

import (
	"errors"
	"time"

	"gavra/internal/modules/schedule"
	"gavra/internal/types"
)

var (
	ErrBadCommand = errors.New("bad command")
	// ErrQueueUnavailable means a write failed remotely and could not be
	// queued locally either; the caller must not treat it as saved.
	ErrQueueUnavailable = errors.New("write queue unavailable")
)

// WriteState tracks one remote write through its lifecycle:
// Pending -> Retrying(n) -> Committed | Queued.
type WriteState string

const (
	StatePending   WriteState = "pending"
	StateRetrying  WriteState = "retrying"
	StateCommitted WriteState = "committed"
	StateQueued    WriteState = "queued"
	StateRejected  WriteState = "rejected"
)

// Result reports how a record call ended. Queued results are paired with the
// original write error so the caller can show "saved locally, will sync".
type Result struct {
	State    WriteState
	Attempts int
}

// PaymentCommand records a cash payment for exactly one location slot.
// TripDate is the date of the ride being paid for, which may be days in the
// past; the weekday key is derived from it, never from the wall clock.
type PaymentCommand struct {
	PassengerID types.ID          `json:"passenger_id"`
	TripDate    time.Time         `json:"trip_date"`
	Location    schedule.Location `json:"location"`
	Amount      int64             `json:"amount"`
	DriverID    types.ID          `json:"driver_id"`
	PaidAt      time.Time         `json:"paid_at"`
}

func (c PaymentCommand) validate() error {
	if c.PassengerID == "" || c.DriverID == "" || c.TripDate.IsZero() || c.PaidAt.IsZero() {
		return ErrBadCommand
	}
	if !c.Location.Valid() {
		return schedule.ErrBadLocation
	}
	if c.Amount < 0 {
		return ErrBadCommand
	}
	return nil
}

func (c PaymentCommand) updates() []schedule.FieldUpdate {
	w := schedule.WeekdayOf(c.TripDate)
	return []schedule.FieldUpdate{
		{PassengerID: c.PassengerID, Weekday: w, Location: c.Location, Field: schedule.FieldPaidAt, Value: c.PaidAt},
		{PassengerID: c.PassengerID, Weekday: w, Location: c.Location, Field: schedule.FieldPaidBy, Value: c.DriverID},
		{PassengerID: c.PassengerID, Weekday: w, Location: c.Location, Field: schedule.FieldPaidAmount, Value: c.Amount},
	}
}

// PickupCommand marks a passenger as picked up for one location slot,
// independent of any payment state.
type PickupCommand struct {
	PassengerID types.ID          `json:"passenger_id"`
	TripDate    time.Time         `json:"trip_date"`
	Location    schedule.Location `json:"location"`
	DriverID    types.ID          `json:"driver_id"`
	PickedUpAt  time.Time         `json:"picked_up_at"`
}

func (c PickupCommand) validate() error {
	if c.PassengerID == "" || c.DriverID == "" || c.TripDate.IsZero() || c.PickedUpAt.IsZero() {
		return ErrBadCommand
	}
	if !c.Location.Valid() {
		return schedule.ErrBadLocation
	}
	return nil
}

func (c PickupCommand) updates() []schedule.FieldUpdate {
	w := schedule.WeekdayOf(c.TripDate)
	return []schedule.FieldUpdate{
		{PassengerID: c.PassengerID, Weekday: w, Location: c.Location, Field: schedule.FieldPickedUpAt, Value: c.PickedUpAt},
		{PassengerID: c.PassengerID, Weekday: w, Location: c.Location, Field: schedule.FieldPickedUpBy, Value: c.DriverID},
	}
}

// Entry is one queued write pending resync. It carries the full command so a
// drain can rebuild the exact slot patch; entries are deleted only after a
// successful re-apply, never silently dropped.
type Entry struct {
	ID       string          `json:"id"`
	Payment  *PaymentCommand `json:"payment,omitempty"`
	Pickup   *PickupCommand  `json:"pickup,omitempty"`
	QueuedAt time.Time       `json:"queued_at"`

	raw []byte // wire bytes as read from the queue, used for exact removal
}

func (e Entry) updates() []schedule.FieldUpdate {
	if e.Payment != nil {
		return e.Payment.updates()
	}
	if e.Pickup != nil {
		return e.Pickup.updates()
	}
	return nil
}
