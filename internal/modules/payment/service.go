// README: Payment/pickup recorder: bounded retries, local resync queue, audit trail.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gavra/internal/config"
	"gavra/internal/modules/schedule"
	"gavra/internal/types"
)

// ScheduleWriter applies a validated single-slot field-update batch.
type ScheduleWriter interface {
	ApplyUpdates(ctx context.Context, updates []schedule.FieldUpdate) error
}

// Queue is the durable device-local store of writes pending resync.
type Queue interface {
	Enqueue(ctx context.Context, e Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
	Remove(ctx context.Context, e Entry) error
}

// AuditSink records who collected what, independent of the schedule write
// outcome, for later reconciliation.
type AuditSink interface {
	Append(ctx context.Context, e AuditEntry) error
}

type Service struct {
	store    ScheduleWriter
	queue    Queue
	audit    AuditSink
	log      *zap.Logger
	attempts int
	backoff  time.Duration
}

func NewService(store ScheduleWriter, queue Queue, audit AuditSink, log *zap.Logger, cfg config.PaymentConfig) *Service {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Service{
		store:    store,
		queue:    queue,
		audit:    audit,
		log:      log,
		attempts: attempts,
		backoff:  cfg.RetryBackoff,
	}
}

// RecordPayment writes paidAt/paidBy/paidAmount on exactly one location slot.
// Identical replays converge to the same slot state; concurrent writes to the
// sibling slot are unaffected by construction of the update batch.
func (s *Service) RecordPayment(ctx context.Context, cmd PaymentCommand) (Result, error) {
	if err := cmd.validate(); err != nil {
		return Result{State: StateRejected}, err
	}
	entry := Entry{ID: uuid.NewString(), Payment: &cmd, QueuedAt: time.Now()}
	s.appendAudit(auditPayment(cmd))
	res, err := s.applyWithRetry(ctx, entry)
	s.logOutcome("payment", cmd.PassengerID, res, err)
	return res, err
}

// RecordPickup writes pickedUpAt/pickedUpBy only; payment fields stay as they
// are.
func (s *Service) RecordPickup(ctx context.Context, cmd PickupCommand) (Result, error) {
	if err := cmd.validate(); err != nil {
		return Result{State: StateRejected}, err
	}
	entry := Entry{ID: uuid.NewString(), Pickup: &cmd, QueuedAt: time.Now()}
	s.appendAudit(auditPickup(cmd))
	res, err := s.applyWithRetry(ctx, entry)
	s.logOutcome("pickup", cmd.PassengerID, res, err)
	return res, err
}

// applyWithRetry drives one write through the Pending -> Retrying(n) ->
// Committed | Queued lifecycle. Once started the write runs to completion:
// an ambiguous half-cancelled slot is worse than a duplicate, so the caller's
// cancellation is deliberately not honoured mid-flight.
func (s *Service) applyWithRetry(ctx context.Context, e Entry) (Result, error) {
	ctx = context.WithoutCancel(ctx)
	updates := e.updates()

	state := StatePending
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err := s.store.ApplyUpdates(ctx, updates)
		if err == nil {
			return Result{State: StateCommitted, Attempts: attempt}, nil
		}
		if isPermanent(err) {
			return Result{State: StateRejected, Attempts: attempt}, err
		}
		lastErr = err
		state = StateRetrying
		s.log.Warn("slot write failed, will retry",
			zap.String("entry_id", e.ID),
			zap.Int("attempt", attempt),
			zap.String("state", string(state)),
			zap.Error(err))
		if attempt < s.attempts {
			time.Sleep(s.backoff * time.Duration(attempt))
		}
	}

	if err := s.queue.Enqueue(ctx, e); err != nil {
		s.log.Error("enqueue after retry exhaustion failed",
			zap.String("entry_id", e.ID), zap.Error(err))
		return Result{State: StateRejected, Attempts: s.attempts}, errors.Join(ErrQueueUnavailable, lastErr)
	}
	// Queued is non-fatal for the driver, but the original error still
	// propagates so nothing fails silently.
	return Result{State: StateQueued, Attempts: s.attempts}, lastErr
}

// isPermanent separates validation/invariant rejections from transient
// backend failures; only the latter are retried and queued.
func isPermanent(err error) bool {
	return errors.Is(err, schedule.ErrSiblingSlot) ||
		errors.Is(err, schedule.ErrBadRequest) ||
		errors.Is(err, schedule.ErrBadWeekday) ||
		errors.Is(err, schedule.ErrBadLocation) ||
		errors.Is(err, schedule.ErrNotFound)
}

// RunResyncLoop is the single background drain task for this device's queue.
// Entries are re-applied in order and removed only on success.
func (s *Service) RunResyncLoop(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.DrainOnce(ctx)
		}
	}
}

// DrainOnce re-applies every currently queued write once.
func (s *Service) DrainOnce(ctx context.Context) {
	entries, err := s.queue.List(ctx, 100)
	if err != nil {
		s.log.Warn("resync: list queue failed", zap.Error(err))
		return
	}
	for _, e := range entries {
		updates := e.updates()
		if len(updates) == 0 {
			// Malformed entry; keep it for manual inspection rather than drop.
			s.log.Error("resync: entry has no command", zap.String("entry_id", e.ID))
			continue
		}
		err := s.store.ApplyUpdates(ctx, updates)
		if err != nil && !isPermanent(err) {
			s.log.Warn("resync: re-apply failed, keeping entry",
				zap.String("entry_id", e.ID), zap.Error(err))
			continue
		}
		if err != nil {
			s.log.Error("resync: entry permanently rejected",
				zap.String("entry_id", e.ID), zap.Error(err))
		}
		if rmErr := s.queue.Remove(ctx, e); rmErr != nil {
			s.log.Warn("resync: remove failed", zap.String("entry_id", e.ID), zap.Error(rmErr))
		} else if err == nil {
			s.log.Info("resync: entry committed", zap.String("entry_id", e.ID))
		}
	}
}

// appendAudit writes the audit record off the hot path; failures are logged,
// never propagated into the payment flow.
func (s *Service) appendAudit(e AuditEntry) {
	if s.audit == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.Append(ctx, e); err != nil {
			s.log.Warn("audit append failed",
				zap.String("passenger_id", string(e.PassengerID)),
				zap.String("kind", e.Kind),
				zap.Error(err))
		}
	}()
}

func (s *Service) logOutcome(kind string, passengerID types.ID, res Result, err error) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("passenger_id", string(passengerID)),
		zap.String("state", string(res.State)),
		zap.Int("attempts", res.Attempts),
	}
	switch res.State {
	case StateCommitted:
		s.log.Info("slot write committed", fields...)
	case StateQueued:
		s.log.Warn("slot write queued for resync", append(fields, zap.Error(err))...)
	default:
		s.log.Error("slot write rejected", append(fields, zap.Error(err))...)
	}
}
