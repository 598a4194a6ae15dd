package joboutbox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Processor dispatches one batch of pending records per Process call.
type Processor struct {
	store     Store
	scheduler Scheduler
	dedup     *Deduplicator
	cfg       RelayConfig
}

type batchOutcome struct {
	mutated    []Record
	dispatched int
	recovered  int
	failed     int
}

// NewProcessor constructs a Processor with defaults and optional settings.
// It fails when the dedup cache capacity is invalid.
func NewProcessor(store Store, scheduler Scheduler, opts ...RelayOption) (*Processor, error) {
	var cfg RelayConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return newProcessor(store, scheduler, cfg.withDefaults())
}

func newProcessor(store Store, scheduler Scheduler, cfg RelayConfig) (*Processor, error) {
	if store == nil {
		panic("outbox: nil Store")
	}
	if scheduler == nil {
		panic("outbox: nil Scheduler")
	}

	dedup := cfg.Deduplicator
	if dedup == nil {
		var err error
		dedup, err = NewDeduplicator(cfg.CacheCapacity)
		if err != nil {
			return nil, err
		}
	}

	return &Processor{
		store:     store,
		scheduler: scheduler,
		dedup:     dedup,
		cfg:       cfg,
	}, nil
}

// Deduplicator returns the cache used to recover dispatches whose store write was lost.
func (p *Processor) Deduplicator() *Deduplicator {
	return p.dedup
}

// Process fetches one batch, dispatches each record in creation order and persists the
// outcome in a single write. Dispatch failures are recorded on the record, store failures
// are returned. Cancellation stops before the next record, already handled records are
// still persisted. A panic after Fetch rolls the batch back and returns ErrProcessorPanic.
func (p *Processor) Process(ctx context.Context) (err error) {
	batch, err := p.store.Fetch(ctx, FetchOptions{BatchSize: p.cfg.BatchSize})
	if err != nil {
		if errors.Is(err, ErrNoRecords) {
			return nil
		}

		return fmt.Errorf("outbox fetch failed: %w", err)
	}
	if batch == nil {
		return ErrNilBatch
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = rollbackWith(batch, fmt.Errorf("%w: %v", ErrProcessorPanic, rec))
		}
	}()

	records := batch.Records()
	if len(records) == 0 {
		return rollbackWith(batch, nil)
	}

	start := time.Now()
	defer func() {
		p.cfg.Metrics.ObserveBatchDuration(time.Since(start))
	}()

	p.cfg.Logger.Debug("outbox processing batch", "count", len(records))
	outcome := p.dispatchAll(ctx, records)
	if len(outcome.mutated) == 0 {
		p.cfg.Logger.Debug("outbox batch canceled before any record was handled")

		return rollbackWith(batch, nil)
	}

	if err := p.persist(ctx, batch, outcome.mutated); err != nil {
		return err
	}

	p.cfg.Metrics.AddDispatched(outcome.dispatched)
	p.cfg.Metrics.AddRecovered(outcome.recovered)
	p.cfg.Metrics.AddErrors(outcome.failed)
	p.cfg.Logger.Debug(
		"outbox batch persisted",
		"dispatched", outcome.dispatched,
		"recovered", outcome.recovered,
		"failed", outcome.failed,
		"skipped", len(records)-len(outcome.mutated),
	)

	return nil
}

func (p *Processor) dispatchAll(ctx context.Context, records []Record) batchOutcome {
	outcome := batchOutcome{mutated: make([]Record, 0, len(records))}
	for i := range records {
		if ctx.Err() != nil {
			p.cfg.Logger.Debug("outbox batch cancellation requested", "remaining", len(records)-i)

			break
		}

		record := records[i]
		if prior, ok := p.dedup.TryGet(record.ID); ok {
			p.cfg.Logger.Debug("outbox record already dispatched, recovering job id", "id", record.ID, "job_id", prior.JobID)
			record.MarkDispatched(prior.JobID)
			outcome.mutated = append(outcome.mutated, record)
			outcome.recovered++

			continue
		}

		jobID, err := p.dispatch(ctx, record)
		if err != nil {
			p.cfg.Logger.Error("outbox dispatch failed", "id", record.ID, "type", record.Type, "method", record.Method, "err", err)
			p.reportFailure(ctx, record, err)
			record.MarkFailed(err)
			outcome.mutated = append(outcome.mutated, record)
			outcome.failed++

			continue
		}

		record.MarkDispatched(jobID)
		p.dedup.MarkProcessed(Dispatched{EntryID: record.ID, JobID: jobID})
		outcome.mutated = append(outcome.mutated, record)
		outcome.dispatched++
	}

	return outcome
}

// reportFailure runs the ErrorHandler hook. A panicking hook is logged and does not stop
// the batch.
func (p *Processor) reportFailure(ctx context.Context, record Record, err error) {
	if p.cfg.ErrorHandler == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			p.cfg.Logger.Error("outbox error handler panicked", "id", record.ID, "panic", rec)
		}
	}()

	p.cfg.ErrorHandler(ctx, record, err)
}

// dispatch makes exactly one scheduler call. The call is detached from cancellation so an
// in-flight dispatch completes and its job id is recorded.
func (p *Processor) dispatch(ctx context.Context, record Record) (jobID string, err error) {
	callCtx := context.WithoutCancel(ctx)
	if p.cfg.DispatchTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, p.cfg.DispatchTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			jobID = ""
			err = fmt.Errorf("%w: %v", ErrDispatchPanic, rec)
		}
	}()

	item := record.WorkItem()
	switch {
	case record.ScheduleAt != nil:
		return p.scheduler.ScheduleAt(callCtx, *record.ScheduleAt, item)
	case record.Delay != nil:
		return p.scheduler.ScheduleAfter(callCtx, *record.Delay, item)
	default:
		return p.scheduler.Enqueue(callCtx, item.Queue, item)
	}
}

func (p *Processor) persist(ctx context.Context, batch Batch, records []Record) error {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.PersistTimeout)
	defer cancel()

	if err := batch.Save(saveCtx, records); err != nil {
		return rollbackWith(batch, fmt.Errorf("outbox save failed: %w", err))
	}
	if err := batch.Commit(); err != nil {
		return rollbackWith(batch, fmt.Errorf("outbox commit failed: %w", err))
	}

	return nil
}

func rollbackWith(batch Batch, err error) error {
	rollbackErr := batch.Rollback()
	if rollbackErr == nil {
		return err
	}

	return errors.Join(err, fmt.Errorf("outbox rollback failed: %w", rollbackErr))
}
