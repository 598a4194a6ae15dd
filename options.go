package joboutbox

import (
	"context"
	"time"
)

const (
	defaultBatchSize         = 50
	defaultPollInterval      = time.Second
	defaultLockName          = "joboutbox:relay"
	defaultLockLease         = 10 * time.Second
	defaultLockRetryInterval = time.Minute
	defaultPersistTimeout    = 30 * time.Second
	defaultPendingCheck      = 0
)

// FailureHandler is called when dispatching a record returns an error.
type FailureHandler func(ctx context.Context, record Record, err error)

// RelayConfig defines how the Relay and Processor poll, lock and dispatch records.
type RelayConfig struct {
	BatchSize         int
	PollInterval      time.Duration
	LockName          string
	LockLease         time.Duration
	LockRetryInterval time.Duration
	CacheCapacity     int
	cacheCapacitySet  bool
	Deduplicator      *Deduplicator
	Locker            Locker
	Clock             Clock
	ErrorHandler      FailureHandler
	Logger            Logger
	Metrics           Metrics
	DispatchTimeout   time.Duration
	PersistTimeout    time.Duration
	PendingInterval   time.Duration
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LockName == "" {
		c.LockName = defaultLockName
	}
	if c.LockLease <= 0 {
		c.LockLease = defaultLockLease
	}
	if c.LockRetryInterval <= 0 {
		c.LockRetryInterval = defaultLockRetryInterval
	}
	if !c.cacheCapacitySet {
		c.CacheCapacity = defaultCacheCapacity
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = defaultPersistTimeout
	}
	if c.PendingInterval <= 0 {
		c.PendingInterval = defaultPendingCheck
	}

	return c
}

// RelayOption configures Relay and Processor behavior.
type RelayOption func(*RelayConfig)

// WithBatchSize sets the maximum number of records processed per batch.
func WithBatchSize(size int) RelayOption {
	return func(c *RelayConfig) {
		c.BatchSize = size
	}
}

// WithPollInterval sets the delay between processing cycles.
func WithPollInterval(interval time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.PollInterval = interval
	}
}

// WithLockName sets the name of the distributed lock shared by competing instances.
func WithLockName(name string) RelayOption {
	return func(c *RelayConfig) {
		c.LockName = name
	}
}

// WithLockLease sets the lease duration requested on each lock acquisition.
func WithLockLease(lease time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.LockLease = lease
	}
}

// WithLockRetryInterval sets the back-off after a failed lock acquisition.
func WithLockRetryInterval(interval time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.LockRetryInterval = interval
	}
}

// WithCacheCapacity sets the dedup cache capacity. Values below one fail construction.
func WithCacheCapacity(capacity int) RelayOption {
	return func(c *RelayConfig) {
		c.CacheCapacity = capacity
		c.cacheCapacitySet = true
	}
}

// WithDeduplicator shares an existing dedup cache instead of creating one.
func WithDeduplicator(dedup *Deduplicator) RelayOption {
	return func(c *RelayConfig) {
		c.Deduplicator = dedup
	}
}

// WithLocker sets the distributed lock provider.
// Without it the relay uses the store when it implements Locker, otherwise it runs lock-free.
func WithLocker(locker Locker) RelayOption {
	return func(c *RelayConfig) {
		c.Locker = locker
	}
}

// WithClock sets the relay clock.
func WithClock(clock Clock) RelayOption {
	return func(c *RelayConfig) {
		c.Clock = clock
	}
}

// WithErrorHandler registers a callback for dispatch failures.
func WithErrorHandler(handler FailureHandler) RelayOption {
	return func(c *RelayConfig) {
		c.ErrorHandler = handler
	}
}

// WithLogger sets the relay logger.
func WithLogger(logger Logger) RelayOption {
	return func(c *RelayConfig) {
		c.Logger = logger
	}
}

// WithMetrics sets the relay metrics recorder.
func WithMetrics(metrics Metrics) RelayOption {
	return func(c *RelayConfig) {
		c.Metrics = metrics
	}
}

// WithDispatchTimeout bounds each scheduler call. Zero means no bound.
func WithDispatchTimeout(timeout time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.DispatchTimeout = timeout
	}
}

// WithPersistTimeout bounds the final store write of a batch.
// The write is detached from cancellation so that work done before shutdown is kept.
func WithPersistTimeout(timeout time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.PersistTimeout = timeout
	}
}

// WithPendingInterval sets the minimum interval between pending count samples.
// Use a positive value to enable sampling or zero to keep it disabled.
// The default is disabled.
func WithPendingInterval(interval time.Duration) RelayOption {
	return func(c *RelayConfig) {
		c.PendingInterval = interval
	}
}
