package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/velmie/joboutbox"
)

const maxErrorLen = 1024

// Executor allows enqueuing within an existing transaction.
type Executor interface {
	// ExecContext executes a statement with the provided context.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store implements a MySQL-backed outbox using polling + SKIP LOCKED.
type Store struct {
	db      *sql.DB
	cfg     Config
	queries queries
	table   string
}

var (
	_ joboutbox.Store          = (*Store)(nil)
	_ joboutbox.PendingCounter = (*Store)(nil)
	_ joboutbox.Locker         = (*Store)(nil)
)

// NewStore constructs a MySQL store with validated configuration.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	table, err := sanitizeTableName(cfg.Table)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		cfg:     cfg,
		queries: newQueries(table),
		table:   table,
	}, nil
}

// MustNewStore constructs a MySQL store or panics on error.
func MustNewStore(db *sql.DB, opts ...Option) *Store {
	store, err := NewStore(db, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// Enqueue inserts an outbox entry using the provided executor (transaction preferred)
// and returns the assigned id.
func (s *Store) Enqueue(ctx context.Context, exec Executor, entry joboutbox.Entry) (int64, error) {
	if exec == nil {
		return 0, ErrExecutorRequired
	}
	if err := joboutbox.ValidateEntry(entry, s.cfg.ValidateJSON); err != nil {
		return 0, err
	}
	entry = entry.Normalized()

	var scheduleAt, delayMS any
	if entry.ScheduleAt != nil {
		scheduleAt = entry.ScheduleAt.UTC()
	}
	if entry.Delay != nil {
		delayMS = entry.Delay.Milliseconds()
	}

	res, err := exec.ExecContext(
		ctx,
		s.queries.insert,
		entry.Type,
		entry.Method,
		string(entry.Args),
		entry.Queue,
		scheduleAt,
		delayMS,
	)
	if err != nil {
		return 0, fmt.Errorf("outbox mysql: insert failed: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("outbox mysql: insert id failed: %w", err)
	}

	return id, nil
}

// Fetch locks and returns a batch of pending records using READ COMMITTED + SKIP LOCKED.
func (s *Store) Fetch(ctx context.Context, opts joboutbox.FetchOptions) (joboutbox.Batch, error) {
	if opts.BatchSize <= 0 {
		return nil, joboutbox.ErrInvalidBatchSize
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("outbox mysql: begin tx failed: %w", err)
	}

	records, err := s.selectBatch(ctx, tx, opts)
	if err != nil {
		rollbackErr := tx.Rollback()

		return nil, errors.Join(err, rollbackErr)
	}
	if len(records) == 0 {
		_ = tx.Rollback()

		return nil, joboutbox.ErrNoRecords
	}

	return &batch{tx: tx, store: s, records: records}, nil
}

func (s *Store) selectBatch(ctx context.Context, tx *sql.Tx, opts joboutbox.FetchOptions) ([]joboutbox.Record, error) {
	rows, err := tx.QueryContext(ctx, s.queries.selectPending, opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("outbox mysql: select failed: %w", err)
	}
	defer rows.Close()

	records := make([]joboutbox.Record, 0, opts.BatchSize)
	for rows.Next() {
		var (
			record     joboutbox.Record
			args       []byte
			scheduleAt sql.NullTime
			delayMS    sql.NullInt64
		)

		if err := rows.Scan(
			&record.ID,
			&record.Type,
			&record.Method,
			&args,
			&record.Queue,
			&scheduleAt,
			&delayMS,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("outbox mysql: scan failed: %w", err)
		}

		record.Args = args
		if scheduleAt.Valid {
			at := scheduleAt.Time
			record.ScheduleAt = &at
		}
		if delayMS.Valid {
			delay := time.Duration(delayMS.Int64) * time.Millisecond
			record.Delay = &delay
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox mysql: rows failed: %w", err)
	}

	return records, nil
}

func (s *Store) save(ctx context.Context, tx *sql.Tx, records []joboutbox.Record) error {
	if len(records) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, s.queries.updateOutcome)
	if err != nil {
		return fmt.Errorf("outbox mysql: prepare update failed: %w", err)
	}
	defer stmt.Close()

	now := s.cfg.Clock.Now()
	for _, record := range records {
		var processedAt any
		if record.Processed {
			processedAt = now
		}
		if _, err := stmt.ExecContext(
			ctx,
			record.Processed,
			nullString(record.SchedulerJobID),
			nullString(truncateError(record.LastError)),
			processedAt,
			record.ID,
		); err != nil {
			return fmt.Errorf("outbox mysql: update record %d failed: %w", record.ID, err)
		}
	}

	return nil
}

// PendingCount returns the number of pending outbox rows.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.queries.countPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("outbox mysql: pending count failed: %w", err)
	}

	return count, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}

	return value
}

func truncateError(msg string) string {
	if utf8.RuneCountInString(msg) <= maxErrorLen {
		return msg
	}

	return string([]rune(msg)[:maxErrorLen])
}
