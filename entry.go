package joboutbox

import (
	"bytes"
	"encoding/json"
	"time"
)

// DefaultQueue is the scheduler queue used when an entry does not name one.
const DefaultQueue = "default"

var emptyArgs = json.RawMessage(`[]`)

// Entry describes a new outbox entry to be persisted.
type Entry struct {
	// Type names the job type the scheduler resolves (e.g., "billing.InvoiceMailer").
	Type string
	// Method names the method to invoke on Type (e.g., "Send").
	Method string
	// Args is a JSON array of call arguments. Empty means no arguments.
	Args json.RawMessage
	// Queue is the target queue, empty uses DefaultQueue.
	Queue string
	// ScheduleAt optionally runs the job at an absolute time.
	ScheduleAt *time.Time
	// Delay optionally runs the job after a relative delay. Mutually exclusive with ScheduleAt.
	// Stores keep millisecond precision, so the delay must be a whole number of milliseconds.
	Delay *time.Duration
}

// Validate checks required fields, scheduling hints and argument JSON.
func (e Entry) Validate() error {
	return ValidateEntry(e, true)
}

// ValidateEntry validates an entry with optional JSON validation of the arguments.
func ValidateEntry(entry Entry, validateJSON bool) error {
	if entry.Type == "" {
		return ErrTypeRequired
	}
	if entry.Method == "" {
		return ErrMethodRequired
	}
	if entry.ScheduleAt != nil && entry.Delay != nil {
		return ErrConflictingSchedule
	}
	if entry.Delay != nil && *entry.Delay < 0 {
		return ErrNegativeDelay
	}
	if entry.Delay != nil && *entry.Delay%time.Millisecond != 0 {
		return ErrDelayPrecision
	}
	if validateJSON && len(entry.Args) > 0 && !isJSONArray(entry.Args) {
		return ErrInvalidArgs
	}

	return nil
}

// Normalized returns a copy with defaults applied to Queue and Args.
func (e Entry) Normalized() Entry {
	if e.Queue == "" {
		e.Queue = DefaultQueue
	}
	if len(e.Args) == 0 {
		e.Args = emptyArgs
	}

	return e
}

func isJSONArray(raw json.RawMessage) bool {
	if !json.Valid(raw) {
		return false
	}
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) > 0 && trimmed[0] == '['
}
