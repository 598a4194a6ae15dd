package joboutbox

import "context"

// FetchOptions controls how pending records are selected.
type FetchOptions struct {
	BatchSize int
}

// Store provides transactional batches of pending outbox records.
type Store interface {
	// Fetch opens a transaction and returns up to BatchSize records that are not processed
	// and have no recorded error, oldest first. It returns ErrNoRecords when nothing is pending.
	Fetch(ctx context.Context, opts FetchOptions) (Batch, error)
}

// Batch represents a set of records fetched within one open transaction.
type Batch interface {
	// Records returns the fetched records in creation order.
	Records() []Record
	// Save persists Processed, SchedulerJobID and LastError of the provided records.
	Save(ctx context.Context, records []Record) error
	// Commit finalizes the batch transaction.
	Commit() error
	// Rollback releases the transaction without applying any changes.
	Rollback() error
}

// PendingCounter provides a total count of pending records.
type PendingCounter interface {
	// PendingCount returns the current number of pending records.
	PendingCount(ctx context.Context) (int, error)
}
