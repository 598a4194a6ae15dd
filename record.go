package joboutbox

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is a stored outbox entry fetched for processing.
type Record struct {
	ID             int64
	Type           string
	Method         string
	Args           json.RawMessage
	Queue          string
	ScheduleAt     *time.Time
	Delay          *time.Duration
	CreatedAt      time.Time
	Processed      bool
	SchedulerJobID string
	LastError      string
}

// Status derives the lifecycle state from Processed and LastError.
func (r Record) Status() Status {
	switch {
	case r.Processed:
		return StatusProcessed
	case r.LastError != "":
		return StatusFailed
	default:
		return StatusPending
	}
}

// WorkItem builds the schedulable unit of work from the payload descriptor.
func (r Record) WorkItem() WorkItem {
	queue := r.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	args := r.Args
	if len(args) == 0 {
		args = emptyArgs
	}

	return WorkItem{
		Type:   r.Type,
		Method: r.Method,
		Args:   args,
		Queue:  queue,
	}
}

// MarkDispatched records a successful dispatch.
func (r *Record) MarkDispatched(jobID string) {
	r.Processed = true
	r.SchedulerJobID = jobID
	r.LastError = ""
}

// MarkFailed records a dispatch failure. The text is never empty.
func (r *Record) MarkFailed(err error) {
	r.Processed = false
	r.SchedulerJobID = ""
	r.LastError = errorText(err)
}

// Dispatched pairs an outbox entry with the scheduler job created for it.
type Dispatched struct {
	EntryID int64
	JobID   string
}

func errorText(err error) string {
	if err == nil {
		return "unknown dispatch error"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}

	return fmt.Sprintf("%T", err)
}
