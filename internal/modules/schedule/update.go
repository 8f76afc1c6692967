// README: Typed single-slot field updates; the merge-not-replace write unit.
package schedule

import (
	"time"

	"gavra/internal/types"
)

// Field names the mutable suffix of a location slot column. The persisted
// key is "{location}_{field}", e.g. "bc_placeno_iznos".
type Field string

const (
	FieldPaidAt     Field = "placeno"
	FieldPaidBy     Field = "placeno_vozac"
	FieldPaidAmount Field = "placeno_iznos"
	FieldPickedUpAt Field = "pokupljeno"
	FieldPickedUpBy Field = "pokupljeno_vozac"
	FieldCancelled  Field = "otkazano"
)

func (f Field) Valid() bool {
	switch f {
	case FieldPaidAt, FieldPaidBy, FieldPaidAmount, FieldPickedUpAt, FieldPickedUpBy, FieldCancelled:
		return true
	}
	return false
}

// FieldUpdate is one field write addressed to exactly one location slot.
// Updates are the only way day records are mutated; a whole-record overwrite
// from a stale copy is how a sibling slot's payment used to disappear.
type FieldUpdate struct {
	PassengerID types.ID
	Weekday     Weekday
	Location    Location
	Field       Field
	Value       any
}

// Key returns the flat wire key inside the day record.
func (u FieldUpdate) Key() string {
	return string(u.Location) + "_" + string(u.Field)
}

// ValidateBatch checks that a batch is non-empty, well-formed, and addresses
// a single (passenger, weekday, location) slot. Mixing locations in one batch
// returns ErrSiblingSlot.
func ValidateBatch(updates []FieldUpdate) error {
	if len(updates) == 0 {
		return ErrBadRequest
	}
	first := updates[0]
	for _, u := range updates {
		if u.PassengerID == "" {
			return ErrBadRequest
		}
		if !u.Weekday.Valid() {
			return ErrBadWeekday
		}
		if !u.Location.Valid() {
			return ErrBadLocation
		}
		if !u.Field.Valid() {
			return ErrBadRequest
		}
		if u.PassengerID != first.PassengerID || u.Weekday != first.Weekday {
			return ErrBadRequest
		}
		if u.Location != first.Location {
			return ErrSiblingSlot
		}
	}
	return nil
}

// Apply merges one update into an in-memory day record. Only the addressed
// slot's field changes; the sibling slot is untouched.
func (d *DayRecord) Apply(u FieldUpdate) error {
	if !u.Location.Valid() || !u.Field.Valid() {
		return ErrBadRequest
	}
	slot := d.Slot(u.Location)
	switch u.Field {
	case FieldPaidAt:
		t, ok := u.Value.(time.Time)
		if !ok {
			return ErrBadRequest
		}
		slot.PaidAt = &t
	case FieldPaidBy:
		id, ok := asID(u.Value)
		if !ok {
			return ErrBadRequest
		}
		slot.PaidBy = &id
	case FieldPaidAmount:
		n, ok := asInt64(u.Value)
		if !ok || n < 0 {
			return ErrBadRequest
		}
		m := types.RSD(n)
		slot.PaidAmount = &m
	case FieldPickedUpAt:
		t, ok := u.Value.(time.Time)
		if !ok {
			return ErrBadRequest
		}
		slot.PickedUpAt = &t
	case FieldPickedUpBy:
		id, ok := asID(u.Value)
		if !ok {
			return ErrBadRequest
		}
		slot.PickedUpBy = &id
	case FieldCancelled:
		b, ok := u.Value.(bool)
		if !ok {
			return ErrBadRequest
		}
		slot.Cancelled = b
	}
	return nil
}

func asID(v any) (types.ID, bool) {
	switch t := v.(type) {
	case types.ID:
		return t, true
	case string:
		return types.ID(t), true
	}
	return "", false
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	}
	return 0, false
}
