// Command joboutbox-cleanup removes dispatched (and optionally failed) rows from a MySQL
// outbox table.
//
// It wraps mysql.CleanupMaintainer for use in cron/CronJobs when the application itself
// should not run DELETE statements.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/velmie/joboutbox/mysql"
	"github.com/velmie/joboutbox/zaplog"
)

const exitUsage = 2

type options struct {
	dsn           string
	table         string
	retention     time.Duration
	checkEvery    time.Duration
	limit         int
	lockName      string
	includeFailed bool
	once          bool
	logMode       string
	logLevel      string
}

func main() {
	var opts options
	flag.StringVar(&opts.dsn, "dsn", "", "MySQL DSN, e.g. user:pass@tcp(host:3306)/db?parseTime=true")
	flag.StringVar(&opts.table, "table", "joboutbox", "Outbox table name")
	flag.DurationVar(&opts.retention, "retention", 0, "Delete rows older than this duration")
	flag.DurationVar(&opts.checkEvery, "check-every", time.Hour, "How often to run cleanup")
	flag.IntVar(&opts.limit, "limit", 0, "Max rows deleted per run (0 uses default)")
	flag.StringVar(&opts.lockName, "lock-name", "", "Advisory lock name (optional)")
	flag.BoolVar(&opts.includeFailed, "include-failed", false, "Delete rows whose dispatch failed as well")
	flag.BoolVar(&opts.once, "once", false, "Run once and exit")
	flag.StringVar(&opts.logMode, "log-mode", zaplog.ProductionMode, "Log format: production or development")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level")
	flag.Parse()

	if opts.dsn == "" {
		fmt.Fprintln(os.Stderr, "dsn is required")
		flag.Usage()
		os.Exit(exitUsage)
	}

	zl, err := zaplog.New(opts.logMode, opts.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(exitUsage)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, zl); err != nil {
		zl.Error("cleanup failed", zap.Error(err))
		stop()
		_ = zl.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, zl *zap.Logger) error {
	db, err := sql.Open("mysql", opts.dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	logger := zaplog.Wrap(zl)
	maintainer, err := mysql.NewCleanupMaintainer(db, mysql.CleanupMaintainerConfig{
		Table:         opts.table,
		Retention:     opts.retention,
		CheckEvery:    opts.checkEvery,
		Limit:         opts.limit,
		IncludeFailed: opts.includeFailed,
		LockName:      opts.lockName,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("init maintainer: %w", err)
	}

	if opts.once {
		result, err := maintainer.Ensure(ctx)
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		logger.Info("cleanup done", "processed", result.Processed, "failed", result.Failed)

		return nil
	}

	if err := maintainer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run maintainer: %w", err)
	}

	return nil
}
