package joboutbox

import "errors"

var (
	// ErrInvalidBatchSize indicates that the requested batch size is not positive.
	ErrInvalidBatchSize = errors.New("outbox batch size must be positive")
	// ErrInvalidCapacity indicates that a deduplication cache capacity is less than one.
	ErrInvalidCapacity = errors.New("outbox dedup capacity must be at least 1")
	// ErrNoRecords signals that no records are available for processing.
	ErrNoRecords = errors.New("outbox has no pending records")
	// ErrNilBatch indicates that a store returned a nil batch.
	ErrNilBatch = errors.New("outbox batch is nil")
	// ErrTypeRequired is returned when Entry.Type is empty.
	ErrTypeRequired = errors.New("outbox job type is required")
	// ErrMethodRequired is returned when Entry.Method is empty.
	ErrMethodRequired = errors.New("outbox job method is required")
	// ErrInvalidArgs is returned when Entry.Args is not a valid JSON array.
	ErrInvalidArgs = errors.New("outbox job arguments must be a JSON array")
	// ErrConflictingSchedule is returned when both ScheduleAt and Delay are set.
	ErrConflictingSchedule = errors.New("outbox entry cannot have both schedule time and delay")
	// ErrNegativeDelay is returned when Entry.Delay is negative.
	ErrNegativeDelay = errors.New("outbox entry delay must be non-negative")
	// ErrDelayPrecision is returned when Entry.Delay is not a whole number of milliseconds.
	ErrDelayPrecision = errors.New("outbox entry delay must be a whole number of milliseconds")
	// ErrLockUnavailable indicates that the distributed lock is held by another instance.
	ErrLockUnavailable = errors.New("outbox lock is held elsewhere")
	// ErrDispatchPanic indicates a scheduler call panicked.
	ErrDispatchPanic = errors.New("outbox dispatch panic")
	// ErrProcessorPanic indicates the batch processor panicked during a relay cycle.
	ErrProcessorPanic = errors.New("outbox processor panic")
)
