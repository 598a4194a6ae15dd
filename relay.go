package joboutbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Relay runs the Processor under a leased distributed lock so that at most one instance
// dispatches at a time.
type Relay struct {
	processor *Processor
	store     Store
	locker    Locker
	cfg       RelayConfig
	wake      chan struct{}

	pendingMu sync.Mutex
	pendingAt time.Time
}

// NewRelay constructs a Relay with defaults and optional settings.
// The lock provider is WithLocker, else the store when it implements Locker, else none.
func NewRelay(store Store, scheduler Scheduler, opts ...RelayOption) (*Relay, error) {
	var cfg RelayConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	processor, err := newProcessor(store, scheduler, cfg)
	if err != nil {
		return nil, err
	}

	locker := cfg.Locker
	if locker == nil {
		if storeLocker, ok := store.(Locker); ok {
			locker = storeLocker
		}
	}

	return &Relay{
		processor: processor,
		store:     store,
		locker:    locker,
		cfg:       cfg,
		wake:      make(chan struct{}, 1),
	}, nil
}

// Processor returns the batch processor driven by the relay.
func (r *Relay) Processor() *Processor {
	return r.processor
}

// Notify wakes the relay from its poll wait, e.g. right after a transaction that wrote
// entries has committed. It never blocks.
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run loops until the context is canceled: acquire the lock, process one batch, release
// the lock, wait for the poll interval. Lock and store failures are logged and retried.
func (r *Relay) Run(ctx context.Context) error {
	r.cfg.Logger.Debug("outbox relay started", "locking", r.locker != nil, "lock", r.cfg.LockName)

	for {
		if err := ctx.Err(); err != nil {
			return ignoreCanceled(err)
		}

		processed, err := r.ProcessOnce(ctx)
		if err != nil {
			r.cfg.Logger.Error("outbox relay cycle failed", "err", err)
		}

		wait := r.cfg.PollInterval
		if !processed {
			wait = r.cfg.LockRetryInterval
			r.cfg.Logger.Debug("outbox relay waiting before next lock attempt", "wait", wait)
		}
		if err := r.sleep(ctx, wait, processed); err != nil {
			return ignoreCanceled(err)
		}
	}
}

// ProcessOnce runs a single cycle. It reports false when the lock was unavailable and no
// processing happened.
func (r *Relay) ProcessOnce(ctx context.Context) (bool, error) {
	state, lease := r.acquire(ctx)
	if state == LockUnavailable {
		r.cfg.Metrics.AddLockMisses(1)

		return false, nil
	}

	err := r.runLocked(ctx, lease)
	r.maybeRecordPending(ctx)

	return true, err
}

func (r *Relay) acquire(ctx context.Context) (LockState, Lease) {
	if r.locker == nil {
		return LockUnsupported, nil
	}

	lease, err := r.locker.TryAcquire(ctx, r.cfg.LockName, r.cfg.LockLease)
	if err != nil {
		if errors.Is(err, ErrLockUnavailable) {
			r.cfg.Logger.Debug("outbox lock held by another instance", "lock", r.cfg.LockName)
		} else {
			r.cfg.Logger.Warn("outbox lock acquisition failed", "lock", r.cfg.LockName, "err", err)
		}

		return LockUnavailable, nil
	}
	if lease == nil {
		r.cfg.Logger.Warn("outbox lock provider returned no lease", "lock", r.cfg.LockName)

		return LockUnavailable, nil
	}

	return LockAcquired, lease
}

// runLocked releases the lease exactly once, also when the processor panics.
func (r *Relay) runLocked(ctx context.Context, lease Lease) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrProcessorPanic, rec)
		}
		if lease == nil {
			return
		}
		if releaseErr := lease.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			r.cfg.Logger.Warn("outbox lock release failed", "lock", r.cfg.LockName, "err", releaseErr)
		}
	}()

	return r.processor.Process(ctx)
}

func (r *Relay) sleep(ctx context.Context, d time.Duration, wakeable bool) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	var wake <-chan struct{}
	if wakeable {
		wake = r.wake
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wake:
		return nil
	case <-timer.C:
		return nil
	}
}

func (r *Relay) maybeRecordPending(ctx context.Context) {
	counter, ok := r.store.(PendingCounter)
	if !ok {
		return
	}
	if r.cfg.PendingInterval <= 0 {
		return
	}
	if ctx.Err() != nil {
		return
	}

	now := r.cfg.Clock.Now()
	r.pendingMu.Lock()
	nextAllowed := r.pendingAt.Add(r.cfg.PendingInterval)
	if !r.pendingAt.IsZero() && now.Before(nextAllowed) {
		r.pendingMu.Unlock()

		return
	}
	r.pendingAt = now
	r.pendingMu.Unlock()

	count, err := counter.PendingCount(ctx)
	if err != nil {
		r.cfg.Logger.Warn("outbox pending count failed", "err", err)

		return
	}

	r.cfg.Metrics.SetPending(count)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
