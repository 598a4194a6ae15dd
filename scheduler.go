package joboutbox

import (
	"context"
	"encoding/json"
	"time"
)

// WorkItem is the unit of work handed to a Scheduler.
type WorkItem struct {
	Type   string          `json:"type"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
	Queue  string          `json:"queue"`
}

// Scheduler dispatches work items to an external job scheduler.
// Each call either returns the scheduler job id or an error.
type Scheduler interface {
	// Enqueue submits the item for immediate execution on queue.
	Enqueue(ctx context.Context, queue string, item WorkItem) (string, error)
	// ScheduleAt submits the item for execution at an absolute time.
	ScheduleAt(ctx context.Context, at time.Time, item WorkItem) (string, error)
	// ScheduleAfter submits the item for execution after delay.
	ScheduleAfter(ctx context.Context, delay time.Duration, item WorkItem) (string, error)
}
