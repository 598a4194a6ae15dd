package joboutbox

import "time"

// Metrics captures relay-level telemetry.
type Metrics interface {
	// ObserveBatchDuration records the time to process a batch.
	ObserveBatchDuration(duration time.Duration)
	// AddDispatched increments the count of records handed to the scheduler.
	AddDispatched(count int)
	// AddRecovered increments the count of records resolved from the dedup cache.
	AddRecovered(count int)
	// AddErrors increments the count of dispatch failures.
	AddErrors(count int)
	// AddLockMisses increments the count of cycles skipped because the lock was unavailable.
	AddLockMisses(count int)
	// SetPending updates the current pending record count.
	SetPending(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// ObserveBatchDuration implements Metrics.
func (NopMetrics) ObserveBatchDuration(time.Duration) {}

// AddDispatched implements Metrics.
func (NopMetrics) AddDispatched(int) {}

// AddRecovered implements Metrics.
func (NopMetrics) AddRecovered(int) {}

// AddErrors implements Metrics.
func (NopMetrics) AddErrors(int) {}

// AddLockMisses implements Metrics.
func (NopMetrics) AddLockMisses(int) {}

// SetPending implements Metrics.
func (NopMetrics) SetPending(int) {}
