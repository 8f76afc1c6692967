// README: Passenger store backed by PostgreSQL; slot writes are JSONB field patches.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gavra/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, p *Passenger) error {
	raw, err := json.Marshal(p.Schedule)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO registrovani_putnici (
			id, ime, adresa_bc, adresa_vs, aktivan, obrisan, polasci_po_danu, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $7)`,
		string(p.ID), p.Name, p.AddressBC, p.AddressVS, p.Active, raw, p.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Passenger, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, ime, adresa_bc, adresa_vs, aktivan, obrisan, polasci_po_danu, created_at, updated_at
		FROM registrovani_putnici
		WHERE id = $1`, string(id),
	)
	return scanPassenger(row)
}

// ApplyUpdates persists a validated single-slot batch as one UPDATE built
// from nested jsonb_set calls. Only the addressed "{weekday}.{location}_*"
// paths are written, so a concurrent write to the sibling slot can never be
// clobbered; the record is never replaced wholesale.
func (s *Store) ApplyUpdates(ctx context.Context, updates []FieldUpdate) error {
	if err := ValidateBatch(updates); err != nil {
		return err
	}
	first := updates[0]

	// Create the day object when absent; jsonb_set only creates the leaf key.
	expr := fmt.Sprintf(
		"jsonb_set(COALESCE(polasci_po_danu, '{}'::jsonb), '{%s}', COALESCE(polasci_po_danu->'%s', '{}'::jsonb), true)",
		first.Weekday, first.Weekday,
	)
	var args []any
	n := 1
	for _, u := range updates {
		raw, err := json.Marshal(u.Value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", u.Key(), err)
		}
		expr = fmt.Sprintf("jsonb_set(%s, '{%s,%s}', $%d::jsonb, true)", expr, u.Weekday, u.Key(), n)
		args = append(args, string(raw))
		n++
	}

	query := fmt.Sprintf(`
		UPDATE registrovani_putnici
		SET polasci_po_danu = %s,
		    updated_at = NOW()
		WHERE id = $%d AND obrisan = FALSE`, expr, n)
	args = append(args, string(first.PassengerID))

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SoftDelete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE registrovani_putnici
		SET obrisan = TRUE, aktivan = FALSE, updated_at = NOW()
		WHERE id = $1 AND obrisan = FALSE`, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForWeekday returns active, non-deleted passengers that have a day
// record under the given key.
func (s *Store) ListForWeekday(ctx context.Context, w Weekday) ([]*Passenger, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, ime, adresa_bc, adresa_vs, aktivan, obrisan, polasci_po_danu, created_at, updated_at
		FROM registrovani_putnici
		WHERE aktivan = TRUE
		  AND obrisan = FALSE
		  AND polasci_po_danu -> $1 IS NOT NULL
		ORDER BY ime`, string(w),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Passenger
	for rows.Next() {
		p, err := scanPassenger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassenger(row rowScanner) (*Passenger, error) {
	var p Passenger
	var raw []byte
	var updatedAt time.Time
	err := row.Scan(&p.ID, &p.Name, &p.AddressBC, &p.AddressVS, &p.Active, &p.Deleted, &raw, &p.CreatedAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = updatedAt
	p.Schedule = WeekdaySchedule{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Schedule); err != nil {
			return nil, fmt.Errorf("unmarshal schedule for %s: %w", p.ID, err)
		}
	}
	return &p, nil
}
