package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/velmie/joboutbox"
)

const (
	defaultCleanupLimit      = 10000
	defaultCleanupEvery      = time.Hour
	defaultCleanupLockPrefix = "joboutbox:cleanup:"
)

// CleanupOptions defines which dispatched or failed records to delete.
type CleanupOptions struct {
	// Before removes rows older than this timestamp (required).
	Before time.Time
	// Limit caps the number of rows deleted per call (0 uses the default).
	Limit int
	// IncludeFailed removes rows with a recorded dispatch error using updated_at for cutoff.
	IncludeFailed bool
}

// CleanupResult reports how many rows were removed.
type CleanupResult struct {
	Processed int64
	Failed    int64
}

// CleanupMaintainerConfig controls periodic cleanup of the outbox table.
type CleanupMaintainerConfig struct {
	// Table is the outbox table name. Use schema.table for non-default schema.
	Table string
	// Retention removes rows older than now-retention (required).
	Retention time.Duration
	// CheckEvery is the interval between cleanup runs.
	CheckEvery time.Duration
	// Limit caps the number of rows deleted per run (0 uses the default).
	Limit int
	// IncludeFailed removes failed rows in addition to processed rows.
	IncludeFailed bool
	// LockName is the advisory lock name. Defaults to joboutbox:cleanup:<table>.
	LockName string
	// Clock overrides time source (useful for tests).
	Clock joboutbox.Clock
	// Logger receives warnings about cleanup failures.
	Logger joboutbox.Logger
}

// CleanupMaintainer runs periodic cleanup of old outbox rows.
type CleanupMaintainer struct {
	store *Store
	cfg   CleanupMaintainerConfig
}

// Cleanup removes processed rows (and optionally failed rows) older than opts.Before.
// Pending rows are never touched.
func (s *Store) Cleanup(ctx context.Context, opts CleanupOptions) (CleanupResult, error) {
	if opts.Before.IsZero() {
		return CleanupResult{}, ErrCleanupBeforeRequired
	}
	limit := opts.Limit
	if limit == 0 {
		limit = defaultCleanupLimit
	}
	if limit < 0 {
		return CleanupResult{}, ErrCleanupLimitInvalid
	}

	processed, err := s.cleanupWhere(ctx, "processed = 1 AND processed_at IS NOT NULL AND processed_at <= ?", opts.Before, limit)
	if err != nil {
		return CleanupResult{}, err
	}
	remaining := limit - int(processed)

	var failed int64
	if opts.IncludeFailed && remaining > 0 {
		failed, err = s.cleanupWhere(ctx, "processed = 0 AND last_error IS NOT NULL AND updated_at <= ?", opts.Before, remaining)
		if err != nil {
			return CleanupResult{}, err
		}
	}

	return CleanupResult{Processed: processed, Failed: failed}, nil
}

// NewCleanupMaintainer creates a new cleanup maintainer with defaults applied.
func NewCleanupMaintainer(db *sql.DB, cfg CleanupMaintainerConfig) (*CleanupMaintainer, error) {
	if db == nil {
		return nil, ErrDBRequired
	}
	if cfg.Retention <= 0 {
		return nil, ErrCleanupRetentionInvalid
	}
	if cfg.Clock == nil {
		cfg.Clock = joboutbox.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = joboutbox.NopLogger{}
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = defaultCleanupEvery
	}
	if cfg.Limit == 0 {
		cfg.Limit = defaultCleanupLimit
	}
	if cfg.Limit < 0 {
		return nil, ErrCleanupLimitInvalid
	}

	store, err := NewStore(db, WithTable(cfg.Table), WithClock(cfg.Clock))
	if err != nil {
		return nil, err
	}
	cfg.Table = store.table
	if cfg.LockName == "" {
		cfg.LockName = defaultCleanupLockPrefix + cfg.Table
	}
	if err := validateLockName(cfg.LockName); err != nil {
		return nil, err
	}

	return &CleanupMaintainer{store: store, cfg: cfg}, nil
}

// Run periodically deletes old rows until the context is canceled.
func (m *CleanupMaintainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.CheckEvery)
	defer ticker.Stop()

	if _, err := m.Ensure(ctx); err != nil {
		m.cfg.Logger.Warn("outbox cleanup failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Ensure(ctx); err != nil {
				m.cfg.Logger.Warn("outbox cleanup failed", "err", err)
			}
		}
	}
}

// Ensure executes a single cleanup pass under the maintainer's advisory lock.
func (m *CleanupMaintainer) Ensure(ctx context.Context) (CleanupResult, error) {
	conn, locked, err := tryAdvisoryLock(ctx, m.store.db, m.cfg.LockName)
	if err != nil {
		return CleanupResult{}, err
	}
	if !locked {
		m.cfg.Logger.Debug("outbox cleanup lock held by another session")

		return CleanupResult{}, nil
	}
	defer func() {
		if err := releaseAdvisoryLock(ctx, conn, m.cfg.LockName); err != nil {
			m.cfg.Logger.Warn("outbox cleanup release lock failed", "err", err)
		}
		_ = conn.Close()
	}()

	before := m.cfg.Clock.Now().Add(-m.cfg.Retention)

	return m.store.Cleanup(ctx, CleanupOptions{
		Before:        before,
		Limit:         m.cfg.Limit,
		IncludeFailed: m.cfg.IncludeFailed,
	})
}

func (s *Store) cleanupWhere(ctx context.Context, condition string, before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}

	// #nosec G201 -- table name is sanitized and conditions are internal constants.
	query := fmt.Sprintf("DELETE FROM %s WHERE %s ORDER BY id LIMIT ?", s.table, condition)
	res, err := s.db.ExecContext(ctx, query, before, limit)
	if err != nil {
		return 0, fmt.Errorf("outbox mysql: cleanup delete failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("outbox mysql: cleanup rows failed: %w", err)
	}

	return affected, nil
}
