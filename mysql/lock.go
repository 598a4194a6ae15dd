package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"time"

	"github.com/velmie/joboutbox"
)

const (
	maxLockNameLen       = 64
	expiryReleaseTimeout = 5 * time.Second
)

// advisoryLease holds a GET_LOCK lock on a pinned connection. MySQL named locks belong
// to the session, so the connection stays out of the pool until Release.
type advisoryLease struct {
	conn  *sql.Conn
	name  string
	timer *time.Timer
	once  sync.Once
	err   error
}

// TryAcquire takes the named advisory lock without waiting. The lock is released after
// lease even if Release is never called, with a warning logged; a crashed process frees it
// with its session.
func (s *Store) TryAcquire(ctx context.Context, name string, lease time.Duration) (joboutbox.Lease, error) {
	conn, locked, err := tryAdvisoryLock(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, joboutbox.ErrLockUnavailable
	}

	held := &advisoryLease{conn: conn, name: name}
	if lease > 0 {
		held.timer = time.AfterFunc(lease, func() {
			ctx, cancel := context.WithTimeout(context.Background(), expiryReleaseTimeout)
			defer cancel()
			released, err := held.release(ctx, false)
			if !released {
				return
			}
			s.cfg.Logger.Warn("outbox mysql lock lease expired before release", "lock", name, "lease", lease)
			if err != nil {
				s.cfg.Logger.Warn("outbox mysql expired lock release failed", "lock", name, "err", err)
			}
		})
	}

	return held, nil
}

// Release gives the lock back and returns the connection to the pool.
func (l *advisoryLease) Release(ctx context.Context) error {
	_, err := l.release(ctx, true)

	return err
}

// release reports whether this call performed the release. The expiry callback passes
// stopTimer=false since its own timer has already fired.
func (l *advisoryLease) release(ctx context.Context, stopTimer bool) (bool, error) {
	released := false
	l.once.Do(func() {
		released = true
		if stopTimer && l.timer != nil {
			l.timer.Stop()
		}
		l.err = releaseAdvisoryLock(ctx, l.conn, l.name)
		if l.err != nil {
			// Drop the session instead of pooling it, MySQL frees its locks on disconnect.
			_ = l.conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		if closeErr := l.conn.Close(); closeErr != nil && l.err == nil {
			l.err = fmt.Errorf("outbox mysql: lock conn close failed: %w", closeErr)
		}
	})

	return released, l.err
}

func validateLockName(name string) error {
	if name == "" {
		return ErrLockNameRequired
	}
	if len(name) > maxLockNameLen {
		return fmt.Errorf("%w: %s", ErrLockNameTooLong, name)
	}

	return nil
}

// tryAdvisoryLock pins a connection and runs GET_LOCK(name, 0). On success the caller owns
// the returned connection, otherwise it is already closed.
func tryAdvisoryLock(ctx context.Context, db *sql.DB, name string) (*sql.Conn, bool, error) {
	if err := validateLockName(name); err != nil {
		return nil, false, err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("outbox mysql: lock conn failed: %w", err)
	}

	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 0)", name).Scan(&got); err != nil {
		_ = conn.Close()

		return nil, false, fmt.Errorf("outbox mysql: acquire lock %s failed: %w", name, err)
	}
	if !got.Valid || got.Int64 == 0 {
		_ = conn.Close()

		return nil, false, nil
	}

	return conn, true, nil
}

func releaseAdvisoryLock(ctx context.Context, conn *sql.Conn, name string) error {
	var released sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", name).Scan(&released); err != nil {
		return fmt.Errorf("outbox mysql: release lock %s failed: %w", name, err)
	}

	return nil
}
