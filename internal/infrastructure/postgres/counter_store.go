package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CounterStore tracks login-link signature usage in the link_usage table.
// Rows carry their own expiry; anything past it counts as absent even
// before the janitor deletes it.
type CounterStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewCounterStore(pool *pgxpool.Pool, ttl time.Duration) *CounterStore {
	return &CounterStore{pool: pool, ttl: ttl}
}

// Increment is a single upsert so concurrent consumptions of the same
// signature serialize on the row: an expired row is reborn at 1 with a
// fresh horizon, a live row just counts up and keeps its original expiry.
func (s *CounterStore) Increment(ctx context.Context, key string) (int, error) {
	expiresAt := time.Now().Add(s.ttl)

	query := `
		INSERT INTO link_usage (signature, uses, expires_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (signature) DO UPDATE
		SET uses       = CASE WHEN link_usage.expires_at <= NOW() THEN 1
		                      ELSE link_usage.uses + 1 END,
		    expires_at = CASE WHEN link_usage.expires_at <= NOW() THEN EXCLUDED.expires_at
		                      ELSE link_usage.expires_at END
		RETURNING uses`

	var uses int
	if err := s.pool.QueryRow(ctx, query, key, expiresAt).Scan(&uses); err != nil {
		return 0, fmt.Errorf("increment link usage: %w", err)
	}
	return uses, nil
}

func (s *CounterStore) Get(ctx context.Context, key string) (int, error) {
	query := `
		SELECT uses FROM link_usage
		WHERE signature = $1 AND expires_at > NOW()`

	var uses int
	err := s.pool.QueryRow(ctx, query, key).Scan(&uses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get link usage: %w", err)
	}
	return uses, nil
}

// Purge deletes rows past their horizon and returns how many went away.
func (s *CounterStore) Purge(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM link_usage WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("purge link usage: %w", err)
	}
	return tag.RowsAffected(), nil
}
