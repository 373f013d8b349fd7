package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TryAdvisoryLock takes a session-level advisory lock on a dedicated connection. The
// returned release func unlocks and returns the connection; it is nil when not acquired.
func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, func(), error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, nil, err
	}
	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&locked); err != nil {
		conn.Release()
		return false, nil, err
	}
	if !locked {
		conn.Release()
		return false, nil, nil
	}
	return true, unlockFunc(conn, key), nil
}

func unlockFunc(conn *pgxpool.Conn, key int64) func() {
	return func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		conn.Release()
	}
}
