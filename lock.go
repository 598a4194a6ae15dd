package joboutbox

import (
	"context"
	"time"
)

// Lease is a time-bounded claim on a named distributed lock.
type Lease interface {
	// Release gives the lock back. It is safe to call more than once.
	Release(ctx context.Context) error
}

// Locker acquires leases on named distributed locks.
type Locker interface {
	// TryAcquire attempts to take the lock without waiting for the current holder.
	// It returns ErrLockUnavailable when another instance holds the lock.
	TryAcquire(ctx context.Context, name string, lease time.Duration) (Lease, error)
}

// LockState is the outcome of a lock attempt.
type LockState int

const (
	// LockUnsupported means no Locker is configured and processing runs lock-free.
	LockUnsupported LockState = iota
	// LockAcquired means a lease is held for this processing cycle.
	LockAcquired
	// LockUnavailable means the lock is held elsewhere or the provider failed.
	LockUnavailable
)

// String returns a lowercase state name.
func (s LockState) String() string {
	switch s {
	case LockAcquired:
		return "acquired"
	case LockUnavailable:
		return "unavailable"
	default:
		return "unsupported"
	}
}
