package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Postgres is a Locker backed by session-level advisory locks. The lock and
// unlock run on one pinned connection, as advisory locks belong to a session.
type Postgres struct {
	db *sql.DB
}

var _ Locker = (*Postgres)(nil)

// NewPostgres returns a locker over db.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// RunWithLock implements Locker.
func (p *Postgres) RunWithLock(ctx context.Context, name string, hold time.Duration, fn func(context.Context) error) (retErr error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("lock %q: pin connection: %w", name, err)
	}
	defer func() { _ = conn.Close() }()

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, name).Scan(&acquired); err != nil {
		return fmt.Errorf("lock %q: %w", name, err)
	}
	if !acquired {
		return unavailable(name)
	}
	defer func() {
		var released bool
		// The caller's context may be done by now; unlocking must still happen.
		err := conn.QueryRowContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtext($1))`, name).Scan(&released)
		if err != nil && retErr == nil {
			retErr = fmt.Errorf("unlock %q: %w", name, err)
		}
	}()

	lctx, cancel := bounded(ctx, hold)
	defer cancel()
	return fn(lctx)
}
