package joboutbox

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheCapacity = 2048

// Deduplicator remembers recent dispatches so that a batch whose store write never landed
// is recovered without scheduling the same entry twice.
//
// Eviction is strictly by insertion order: lookups never refresh a record. Re-inserting an
// entry that is already present is a no-op that keeps the first job id and its slot.
// The cache is process-local and safe for concurrent use.
type Deduplicator struct {
	cache *lru.Cache[int64, Dispatched]
}

// NewDeduplicator constructs a cache holding at most capacity records.
func NewDeduplicator(capacity int) (*Deduplicator, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	cache, err := lru.New[int64, Dispatched](capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCapacity, err)
	}

	return &Deduplicator{cache: cache}, nil
}

// TryGet returns the dispatch recorded for entryID, if any.
func (d *Deduplicator) TryGet(entryID int64) (Dispatched, bool) {
	// Peek, unlike Get, leaves the eviction order untouched.
	return d.cache.Peek(entryID)
}

// MarkProcessed records a dispatch, evicting the oldest record when the cache is full.
func (d *Deduplicator) MarkProcessed(dispatched Dispatched) {
	d.cache.ContainsOrAdd(dispatched.EntryID, dispatched)
}

// Len returns the number of records currently held.
func (d *Deduplicator) Len() int {
	return d.cache.Len()
}
