// README: Postgres stores: push token lookup and driver position snapshots.
package trip

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gavra/internal/types"
)

// TokenStore resolves device tokens from the push_tokens table.
type TokenStore struct {
	pool *pgxpool.Pool
}

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

func (s *TokenStore) Token(ctx context.Context, passengerID types.ID) (string, error) {
	const q = `SELECT token FROM push_tokens WHERE putnik_id = $1 ORDER BY updated_at DESC LIMIT 1`
	var token string
	err := s.pool.QueryRow(ctx, q, string(passengerID)).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// SaveToken upserts the device token reported by a passenger's app.
func (s *TokenStore) SaveToken(ctx context.Context, passengerID types.ID, token string) error {
	const q = `
		INSERT INTO push_tokens (putnik_id, token, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (putnik_id) DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at`
	_, err := s.pool.Exec(ctx, q, string(passengerID), token, time.Now())
	return err
}

// SnapshotStore appends the durable GPS trail to vozac_lokacije.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

func (s *SnapshotStore) Append(ctx context.Context, driverID types.ID, pos types.Point, at time.Time) error {
	const q = `INSERT INTO vozac_lokacije (vozac_id, lat, lng, zabelezeno) VALUES ($1, $2, $3, $4)`
	_, err := s.pool.Exec(ctx, q, string(driverID), pos.Lat, pos.Lng, at)
	return err
}
