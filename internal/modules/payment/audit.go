// README: Append-only audit trail of collections and pickups (voznje_log).
package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"gavra/internal/modules/schedule"
	"gavra/internal/types"
)

// AuditEntry is one reconciliation record: who collected or picked up whom,
// where, and when the event actually happened.
type AuditEntry struct {
	ID          string
	Kind        string // "placanje" | "pokupljenje"
	PassengerID types.ID
	DriverID    types.ID
	Location    schedule.Location
	Amount      *int64
	EventAt     time.Time
}

func auditPayment(cmd PaymentCommand) AuditEntry {
	amount := cmd.Amount
	return AuditEntry{
		ID:          uuid.NewString(),
		Kind:        "placanje",
		PassengerID: cmd.PassengerID,
		DriverID:    cmd.DriverID,
		Location:    cmd.Location,
		Amount:      &amount,
		EventAt:     cmd.PaidAt,
	}
}

func auditPickup(cmd PickupCommand) AuditEntry {
	return AuditEntry{
		ID:          uuid.NewString(),
		Kind:        "pokupljenje",
		PassengerID: cmd.PassengerID,
		DriverID:    cmd.DriverID,
		Location:    cmd.Location,
		EventAt:     cmd.PickedUpAt,
	}
}

// AuditLog persists entries to the voznje_log table.
type AuditLog struct {
	db *pgxpool.Pool
}

func NewAuditLog(db *pgxpool.Pool) *AuditLog {
	return &AuditLog{db: db}
}

func (a *AuditLog) Append(ctx context.Context, e AuditEntry) error {
	_, err := a.db.Exec(ctx, `
		INSERT INTO voznje_log (id, tip, putnik_id, vozac, lokacija, iznos, dogadjaj_vreme, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		e.ID, e.Kind, string(e.PassengerID), string(e.DriverID), string(e.Location), e.Amount, e.EventAt,
	)
	return err
}
