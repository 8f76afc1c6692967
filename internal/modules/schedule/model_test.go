// README: Schedule model tests: weekday keys, slot independence, wire format.
package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"gavra/internal/types"
)

func TestWeekdayOf(t *testing.T) {
	cases := []struct {
		date time.Time
		want Weekday
	}{
		{time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC), Pon},
		{time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC), Uto},
		{time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC), Sre},
		{time.Date(2026, 1, 29, 10, 0, 0, 0, time.UTC), Cet},
		{time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC), Pet},
		{time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC), Sub},
		{time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), Ned},
	}
	for _, tc := range cases {
		if got := WeekdayOf(tc.date); got != tc.want {
			t.Errorf("WeekdayOf(%s) = %s, want %s", tc.date.Format("2006-01-02"), got, tc.want)
		}
	}
}

// TestApplyLeavesSiblingUntouched covers the regression this engine exists to
// prevent: both legs of the same day paid moments apart must both survive.
func TestApplyLeavesSiblingUntouched(t *testing.T) {
	day := &DayRecord{
		BC: LocationSlot{ScheduledTime: "07:00"},
		VS: LocationSlot{ScheduledTime: "15:30"},
	}
	t1 := time.Date(2026, 1, 29, 8, 14, 27, 0, time.UTC)
	t2 := t1.Add(45 * time.Second)

	bcWrites := []FieldUpdate{
		{PassengerID: "saska", Weekday: Cet, Location: LocationBC, Field: FieldPaidAt, Value: t1},
		{PassengerID: "saska", Weekday: Cet, Location: LocationBC, Field: FieldPaidBy, Value: types.ID("bojan")},
		{PassengerID: "saska", Weekday: Cet, Location: LocationBC, Field: FieldPaidAmount, Value: int64(600)},
	}
	vsWrites := []FieldUpdate{
		{PassengerID: "saska", Weekday: Cet, Location: LocationVS, Field: FieldPaidAt, Value: t2},
		{PassengerID: "saska", Weekday: Cet, Location: LocationVS, Field: FieldPaidBy, Value: types.ID("bojan")},
		{PassengerID: "saska", Weekday: Cet, Location: LocationVS, Field: FieldPaidAmount, Value: int64(600)},
	}
	for _, u := range bcWrites {
		if err := day.Apply(u); err != nil {
			t.Fatalf("apply bc: %v", err)
		}
	}
	for _, u := range vsWrites {
		if err := day.Apply(u); err != nil {
			t.Fatalf("apply vs: %v", err)
		}
	}

	if !day.BC.Paid() || day.BC.PaidAmount.Amount != 600 || !day.BC.PaidAt.Equal(t1) {
		t.Fatalf("bc slot lost its payment: %+v", day.BC)
	}
	if !day.VS.Paid() || day.VS.PaidAmount.Amount != 600 || !day.VS.PaidAt.Equal(t2) {
		t.Fatalf("vs slot lost its payment: %+v", day.VS)
	}
	if day.BC.ScheduledTime != "07:00" || day.VS.ScheduledTime != "15:30" {
		t.Fatalf("scheduled times changed: bc=%q vs=%q", day.BC.ScheduledTime, day.VS.ScheduledTime)
	}
}

// TestPaymentTimeIsVerbatim guards against the historical defect where a
// "same calendar day" filter returned nil for older payments.
func TestPaymentTimeIsVerbatim(t *testing.T) {
	past := time.Now().AddDate(0, 0, -3)
	future := time.Now().AddDate(0, 0, 2)
	for _, ts := range []time.Time{past, time.Now(), future} {
		slot := LocationSlot{PaidAt: &ts}
		got := slot.PaymentTime()
		if got == nil || !got.Equal(ts) {
			t.Errorf("PaymentTime() = %v, want %v", got, ts)
		}
	}
}

func TestValidateBatchRejectsSiblingMix(t *testing.T) {
	batch := []FieldUpdate{
		{PassengerID: "p1", Weekday: Cet, Location: LocationBC, Field: FieldPaidAt, Value: time.Now()},
		{PassengerID: "p1", Weekday: Cet, Location: LocationVS, Field: FieldPaidAt, Value: time.Now()},
	}
	if err := ValidateBatch(batch); err != ErrSiblingSlot {
		t.Fatalf("expected ErrSiblingSlot, got %v", err)
	}
}

func TestValidateBatch(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name    string
		batch   []FieldUpdate
		wantErr error
	}{
		{"empty", nil, ErrBadRequest},
		{"bad weekday", []FieldUpdate{{PassengerID: "p", Weekday: "thu", Location: LocationBC, Field: FieldPaidAt, Value: now}}, ErrBadWeekday},
		{"bad location", []FieldUpdate{{PassengerID: "p", Weekday: Cet, Location: "zz", Field: FieldPaidAt, Value: now}}, ErrBadLocation},
		{"bad field", []FieldUpdate{{PassengerID: "p", Weekday: Cet, Location: LocationBC, Field: "boja", Value: now}}, ErrBadRequest},
		{"ok", []FieldUpdate{{PassengerID: "p", Weekday: Cet, Location: LocationBC, Field: FieldPaidAt, Value: now}}, nil},
	}
	for _, tc := range cases {
		if err := ValidateBatch(tc.batch); err != tc.wantErr {
			t.Errorf("%s: ValidateBatch = %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestDayRecordWireFormat(t *testing.T) {
	t1 := time.Date(2026, 1, 29, 8, 14, 27, 0, time.UTC)
	bojan := types.ID("Bojan")
	amount := types.RSD(600)
	day := DayRecord{
		BC: LocationSlot{ScheduledTime: "07:00", PaidAt: &t1, PaidBy: &bojan, PaidAmount: &amount},
		VS: LocationSlot{ScheduledTime: "15:30"},
	}

	raw, err := json.Marshal(day)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("unmarshal to map: %v", err)
	}
	for _, key := range []string{"bc", "vs", "bc_placeno", "bc_placeno_vozac", "bc_placeno_iznos"} {
		if _, ok := flat[key]; !ok {
			t.Errorf("wire map missing key %q: %s", key, raw)
		}
	}
	if _, ok := flat["vs_placeno"]; ok {
		t.Errorf("unpaid vs slot must not serialize vs_placeno: %s", raw)
	}

	var back DayRecord
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.BC.PaidAt == nil || !back.BC.PaidAt.Equal(t1) {
		t.Fatalf("bc_placeno did not round-trip: %+v", back.BC)
	}
	if back.BC.PaidAmount == nil || back.BC.PaidAmount.Amount != 600 || back.BC.PaidAmount.Currency != "RSD" {
		t.Fatalf("bc_placeno_iznos did not round-trip: %+v", back.BC.PaidAmount)
	}
	if back.VS.ScheduledTime != "15:30" || back.VS.Paid() {
		t.Fatalf("vs slot corrupted on round-trip: %+v", back.VS)
	}
}
