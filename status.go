package joboutbox

// Status represents the lifecycle state of an outbox record.
// It is derived from Processed and LastError, stores do not persist it.
type Status int16

const (
	// StatusPending indicates the record has not been dispatched yet.
	StatusPending Status = 0
	// StatusProcessed indicates the record was dispatched and carries a scheduler job id.
	StatusProcessed Status = 1
	// StatusFailed indicates the dispatch failed and the record is parked with LastError.
	StatusFailed Status = -1
)

// String returns a lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessed:
		return "processed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
