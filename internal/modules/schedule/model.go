// README: Passenger aggregate, weekday schedule map, and per-location day slots.
package schedule

import (
	"encoding/json"
	"errors"
	"time"

	"gavra/internal/types"
)

var (
	ErrNotFound    = errors.New("passenger not found")
	ErrBadRequest  = errors.New("bad request")
	ErrBadWeekday  = errors.New("invalid weekday key")
	ErrBadLocation = errors.New("invalid location")
	// ErrSiblingSlot flags a write batch that touches more than one location
	// slot. Such a write could clobber the sibling slot and is rejected.
	ErrSiblingSlot = errors.New("update batch crosses location slots")
)

// Location is one of the two fixed endpoints of every round trip:
// Bela Crkva ("bc") and Vršac ("vs").
type Location string

const (
	LocationBC Location = "bc"
	LocationVS Location = "vs"
)

func (l Location) Valid() bool {
	return l == LocationBC || l == LocationVS
}

// Sibling returns the paired location of the same day record.
func (l Location) Sibling() Location {
	if l == LocationBC {
		return LocationVS
	}
	return LocationBC
}

// Weekday is one of the seven fixed short keys addressing a day record.
type Weekday string

const (
	Pon Weekday = "pon"
	Uto Weekday = "uto"
	Sre Weekday = "sre"
	Cet Weekday = "cet"
	Pet Weekday = "pet"
	Sub Weekday = "sub"
	Ned Weekday = "ned"
)

// AllWeekdays lists the keys in calendar order, Monday first.
var AllWeekdays = [7]Weekday{Pon, Uto, Sre, Cet, Pet, Sub, Ned}

func (w Weekday) Valid() bool {
	for _, d := range AllWeekdays {
		if d == w {
			return true
		}
	}
	return false
}

// WeekdayOf derives the schedule key from the trip date being acted upon.
// Callers must pass the trip date, never "now": a payment recorded days after
// the ride still belongs to the ride's weekday.
func WeekdayOf(tripDate time.Time) Weekday {
	// time.Weekday counts from Sunday.
	idx := (int(tripDate.Weekday()) + 6) % 7
	return AllWeekdays[idx]
}

// LocationSlot is the smallest mutable unit: pickup, payment, and
// cancellation state for one location on one weekday.
type LocationSlot struct {
	ScheduledTime string // "07:00"; empty when there is no departure
	PickedUpAt    *time.Time
	PickedUpBy    *types.ID
	PaidAt        *time.Time
	PaidBy        *types.ID
	PaidAmount    *types.Money
	Cancelled     bool
}

func (s *LocationSlot) Paid() bool {
	return s.PaidAt != nil
}

func (s *LocationSlot) PickedUp() bool {
	return s.PickedUpAt != nil
}

// PaymentTime returns the stored payment timestamp verbatim. Historical
// timestamps are valid: the stored value is authoritative and is never
// compared against the current date.
func (s *LocationSlot) PaymentTime() *time.Time {
	return s.PaidAt
}

// DayRecord holds one weekday's two legs. The slots are independent units:
// a write to one never depends on, nor touches, the other.
type DayRecord struct {
	BC LocationSlot
	VS LocationSlot
}

// Slot addresses one of the two location slots.
func (d *DayRecord) Slot(loc Location) *LocationSlot {
	if loc == LocationBC {
		return &d.BC
	}
	return &d.VS
}

// WeekdaySchedule maps weekday keys to day records. Days without departures
// may be absent.
type WeekdaySchedule map[Weekday]*DayRecord

// Day returns the record for the given key, or nil when the passenger has no
// departures that day.
func (ws WeekdaySchedule) Day(w Weekday) *DayRecord {
	return ws[w]
}

// Passenger is a registered rider with fixed addresses in both towns. The
// record is soft-deleted (obrisan) while financial history exists; it is
// never hard-deleted.
type Passenger struct {
	ID        types.ID
	Name      string
	AddressBC string
	AddressVS string
	Active    bool
	Deleted   bool
	Schedule  WeekdaySchedule
	CreatedAt time.Time
	UpdatedAt time.Time
}

// dayWire is the persisted flat shape of one day record, e.g.
// {"bc":"07:00","vs":"15:30","bc_placeno":"...","bc_placeno_iznos":600}.
type dayWire struct {
	BC           *string    `json:"bc,omitempty"`
	VS           *string    `json:"vs,omitempty"`
	BCPaidAt     *time.Time `json:"bc_placeno,omitempty"`
	BCPaidBy     *string    `json:"bc_placeno_vozac,omitempty"`
	BCPaidAmount *int64     `json:"bc_placeno_iznos,omitempty"`
	BCPickedUpAt *time.Time `json:"bc_pokupljeno,omitempty"`
	BCPickedUpBy *string    `json:"bc_pokupljeno_vozac,omitempty"`
	BCCancelled  *bool      `json:"bc_otkazano,omitempty"`
	VSPaidAt     *time.Time `json:"vs_placeno,omitempty"`
	VSPaidBy     *string    `json:"vs_placeno_vozac,omitempty"`
	VSPaidAmount *int64     `json:"vs_placeno_iznos,omitempty"`
	VSPickedUpAt *time.Time `json:"vs_pokupljeno,omitempty"`
	VSPickedUpBy *string    `json:"vs_pokupljeno_vozac,omitempty"`
	VSCancelled  *bool      `json:"vs_otkazano,omitempty"`
}

func (d DayRecord) MarshalJSON() ([]byte, error) {
	var w dayWire
	packSlot(&d.BC, &w.BC, &w.BCPaidAt, &w.BCPaidBy, &w.BCPaidAmount, &w.BCPickedUpAt, &w.BCPickedUpBy, &w.BCCancelled)
	packSlot(&d.VS, &w.VS, &w.VSPaidAt, &w.VSPaidBy, &w.VSPaidAmount, &w.VSPickedUpAt, &w.VSPickedUpBy, &w.VSCancelled)
	return json.Marshal(w)
}

func (d *DayRecord) UnmarshalJSON(data []byte) error {
	var w dayWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	unpackSlot(&d.BC, w.BC, w.BCPaidAt, w.BCPaidBy, w.BCPaidAmount, w.BCPickedUpAt, w.BCPickedUpBy, w.BCCancelled)
	unpackSlot(&d.VS, w.VS, w.VSPaidAt, w.VSPaidBy, w.VSPaidAmount, w.VSPickedUpAt, w.VSPickedUpBy, w.VSCancelled)
	return nil
}

func packSlot(s *LocationSlot, timeStr **string, paidAt **time.Time, paidBy **string, amount **int64, pickedAt **time.Time, pickedBy **string, cancelled **bool) {
	if s.ScheduledTime != "" {
		v := s.ScheduledTime
		*timeStr = &v
	}
	*paidAt = s.PaidAt
	if s.PaidBy != nil {
		v := string(*s.PaidBy)
		*paidBy = &v
	}
	if s.PaidAmount != nil {
		v := s.PaidAmount.Amount
		*amount = &v
	}
	*pickedAt = s.PickedUpAt
	if s.PickedUpBy != nil {
		v := string(*s.PickedUpBy)
		*pickedBy = &v
	}
	if s.Cancelled {
		v := true
		*cancelled = &v
	}
}

func unpackSlot(s *LocationSlot, timeStr *string, paidAt *time.Time, paidBy *string, amount *int64, pickedAt *time.Time, pickedBy *string, cancelled *bool) {
	if timeStr != nil {
		s.ScheduledTime = *timeStr
	}
	s.PaidAt = paidAt
	if paidBy != nil {
		id := types.ID(*paidBy)
		s.PaidBy = &id
	}
	if amount != nil {
		m := types.RSD(*amount)
		s.PaidAmount = &m
	}
	s.PickedUpAt = pickedAt
	if pickedBy != nil {
		id := types.ID(*pickedBy)
		s.PickedUpBy = &id
	}
	if cancelled != nil {
		s.Cancelled = *cancelled
	}
}
