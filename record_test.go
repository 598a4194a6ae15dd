package joboutbox

import (
	"errors"
	"testing"
)

type emptyError struct{}

func (emptyError) Error() string { return "" }

func TestRecordStatus(t *testing.T) {
	record := Record{ID: 1}
	if record.Status() != StatusPending {
		t.Fatalf("expected pending, got %s", record.Status())
	}

	record.MarkFailed(errors.New("boom"))
	if record.Status() != StatusFailed || record.LastError != "boom" {
		t.Fatalf("expected failed with error, got %s %q", record.Status(), record.LastError)
	}

	record.MarkDispatched("job-1")
	if record.Status() != StatusProcessed || record.LastError != "" || record.SchedulerJobID != "job-1" {
		t.Fatalf("expected processed without error, got %+v", record)
	}

	record.MarkFailed(errors.New("again"))
	if record.Processed || record.SchedulerJobID != "" {
		t.Fatalf("expected failure to clear processed state, got %+v", record)
	}
}

func TestRecordMarkFailedNeverEmpty(t *testing.T) {
	var record Record
	record.MarkFailed(emptyError{})
	if record.LastError == "" {
		t.Fatalf("expected non-empty error text")
	}

	record.MarkFailed(nil)
	if record.LastError == "" {
		t.Fatalf("expected non-empty error text for nil error")
	}
}

func TestRecordWorkItemDefaults(t *testing.T) {
	item := Record{Type: "mailer", Method: "Send"}.WorkItem()
	if item.Queue != DefaultQueue {
		t.Fatalf("expected default queue, got %q", item.Queue)
	}
	if string(item.Args) != "[]" {
		t.Fatalf("expected empty args, got %s", item.Args)
	}
}
