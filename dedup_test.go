package joboutbox

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestNewDeduplicatorCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -100} {
		if _, err := NewDeduplicator(capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("capacity %d: expected ErrInvalidCapacity, got %v", capacity, err)
		}
	}
	for _, capacity := range []int{1, 2, 2048} {
		if _, err := NewDeduplicator(capacity); err != nil {
			t.Fatalf("capacity %d: unexpected error %v", capacity, err)
		}
	}
}

func TestDeduplicatorEvictsOldestInserted(t *testing.T) {
	dedup, err := NewDeduplicator(2)
	if err != nil {
		t.Fatalf("new deduplicator: %v", err)
	}

	job1 := Dispatched{EntryID: 1, JobID: "1"}
	job2 := Dispatched{EntryID: 2, JobID: "2"}
	job3 := Dispatched{EntryID: 3, JobID: "3"}

	dedup.MarkProcessed(job1)
	dedup.MarkProcessed(job2)

	if got, ok := dedup.TryGet(1); !ok || got != job1 {
		t.Fatalf("expected job1, got %v %v", got, ok)
	}
	if got, ok := dedup.TryGet(2); !ok || got != job2 {
		t.Fatalf("expected job2, got %v %v", got, ok)
	}

	dedup.MarkProcessed(job3)

	if got, ok := dedup.TryGet(3); !ok || got != job3 {
		t.Fatalf("expected job3, got %v %v", got, ok)
	}
	if _, ok := dedup.TryGet(1); ok {
		t.Fatalf("expected job1 to be evicted")
	}
	if _, ok := dedup.TryGet(2); !ok {
		t.Fatalf("expected job2 to be retained")
	}
}

func TestDeduplicatorLookupDoesNotRefresh(t *testing.T) {
	dedup, err := NewDeduplicator(2)
	if err != nil {
		t.Fatalf("new deduplicator: %v", err)
	}

	dedup.MarkProcessed(Dispatched{EntryID: 1, JobID: "a"})
	dedup.MarkProcessed(Dispatched{EntryID: 2, JobID: "b"})
	for i := 0; i < 5; i++ {
		if _, ok := dedup.TryGet(1); !ok {
			t.Fatalf("expected entry 1 present")
		}
	}
	dedup.MarkProcessed(Dispatched{EntryID: 3, JobID: "c"})

	if _, ok := dedup.TryGet(1); ok {
		t.Fatalf("expected entry 1 evicted despite lookups")
	}
}

func TestDeduplicatorReinsertKeepsFirstRecordAndSlot(t *testing.T) {
	dedup, err := NewDeduplicator(2)
	if err != nil {
		t.Fatalf("new deduplicator: %v", err)
	}

	dedup.MarkProcessed(Dispatched{EntryID: 1, JobID: "first"})
	dedup.MarkProcessed(Dispatched{EntryID: 1, JobID: "second"})
	dedup.MarkProcessed(Dispatched{EntryID: 1, JobID: "third"})

	if dedup.Len() != 1 {
		t.Fatalf("expected occupancy 1 after repeated insertion, got %d", dedup.Len())
	}
	if got, _ := dedup.TryGet(1); got.JobID != "first" {
		t.Fatalf("expected first job id to be kept, got %q", got.JobID)
	}

	dedup.MarkProcessed(Dispatched{EntryID: 2, JobID: "b"})
	dedup.MarkProcessed(Dispatched{EntryID: 3, JobID: "c"})

	if _, ok := dedup.TryGet(1); ok {
		t.Fatalf("expected entry 1 to keep its original slot and be evicted first")
	}
	if dedup.Len() != 2 {
		t.Fatalf("expected occupancy 2, got %d", dedup.Len())
	}
}

func TestDeduplicatorConcurrentUse(t *testing.T) {
	const capacity = 64
	dedup, err := NewDeduplicator(capacity)
	if err != nil {
		t.Fatalf("new deduplicator: %v", err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				id := int64(worker*1000 + i)
				dedup.MarkProcessed(Dispatched{EntryID: id, JobID: fmt.Sprint(id)})
				dedup.TryGet(id)
			}
		}(w)
	}
	wg.Wait()

	if dedup.Len() != capacity {
		t.Fatalf("expected occupancy %d, got %d", capacity, dedup.Len())
	}
}
