// Command joboutbox-relay drains a MySQL job outbox into a Redis-backed job scheduler.
//
// Configuration is layered: built-in defaults, then the YAML file given by -config, then
// the .env file and JOBOUTBOX_* environment variables, then command line flags.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/velmie/joboutbox"
	"github.com/velmie/joboutbox/mysql"
	"github.com/velmie/joboutbox/prommetrics"
	"github.com/velmie/joboutbox/redis"
	"github.com/velmie/joboutbox/zaplog"
)

const (
	exitUsage       = 2
	shutdownTimeout = 5 * time.Second
)

// lockFreeStore hides the store's advisory locker so the relay runs without a lock.
type lockFreeStore struct {
	joboutbox.Store
	joboutbox.PendingCounter
}

func main() {
	var (
		configPath  string
		envFile     string
		dsn         string
		redisAddr   string
		metricsAddr string
		lockBackend string
		logLevel    string
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&envFile, "env-file", ".env", "Path to a dotenv file (ignored when missing)")
	flag.StringVar(&dsn, "dsn", "", "MySQL DSN, overrides config")
	flag.StringVar(&redisAddr, "redis", "", "Redis URL or host:port, overrides config")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "Metrics listen address, overrides config (\"off\" disables)")
	flag.StringVar(&lockBackend, "lock", "", "Lock backend: mysql, redis or none")
	flag.StringVar(&logLevel, "log-level", "", "Log level, overrides config")
	flag.Parse()

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load env file: %v\n", err)
		os.Exit(exitUsage)
	}

	cfg, err := loadConfig(configPath, os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
	override(&cfg.MySQL.DSN, dsn)
	override(&cfg.Redis.Addr, redisAddr)
	override(&cfg.Metrics.Addr, metricsAddr)
	override(&cfg.Relay.LockBackend, lockBackend)
	override(&cfg.Log.Level, logLevel)
	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(exitUsage)
	}

	zl, err := zaplog.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, zl)
	stop()
	if err != nil {
		zl.Error("relay stopped", zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
	_ = zl.Sync()
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func run(ctx context.Context, cfg config, zl *zap.Logger) error {
	logger := zaplog.Wrap(zl)

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	client, err := redis.Connect(ctx, cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer client.Close()

	store, err := mysql.NewStore(db, mysql.WithTable(cfg.MySQL.Table), mysql.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	scheduler, err := redis.NewScheduler(client, redis.WithPrefix(cfg.Redis.Prefix))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := prommetrics.New(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	opts := []joboutbox.RelayOption{
		joboutbox.WithBatchSize(cfg.Relay.BatchSize),
		joboutbox.WithPollInterval(cfg.Relay.PollInterval),
		joboutbox.WithLockName(cfg.Relay.LockName),
		joboutbox.WithLockLease(cfg.Relay.LockLease),
		joboutbox.WithLockRetryInterval(cfg.Relay.LockRetryInterval),
		joboutbox.WithCacheCapacity(cfg.Relay.CacheCapacity),
		joboutbox.WithDispatchTimeout(cfg.Relay.DispatchTimeout),
		joboutbox.WithPersistTimeout(cfg.Relay.PersistTimeout),
		joboutbox.WithPendingInterval(cfg.Relay.PendingInterval),
		joboutbox.WithLogger(logger),
		joboutbox.WithMetrics(metrics),
	}

	var relayStore joboutbox.Store = store
	switch cfg.Relay.LockBackend {
	case lockBackendRedis:
		locker, err := redis.NewLocker(client, redis.WithPrefix(cfg.Redis.Prefix))
		if err != nil {
			return fmt.Errorf("init locker: %w", err)
		}
		opts = append(opts, joboutbox.WithLocker(locker))
	case lockBackendNone:
		relayStore = lockFreeStore{Store: store, PendingCounter: store}
	}

	relay, err := joboutbox.NewRelay(relayStore, scheduler, opts...)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}

	if cfg.Metrics.Addr != "" && cfg.Metrics.Addr != "off" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go serveMetrics(ctx, srv, logger)
	}
	if cfg.Redis.PromoteInterval > 0 {
		go promoteLoop(ctx, scheduler, cfg.Redis.PromoteInterval, cfg.Redis.PromoteLimit, logger)
	}

	logger.Info("relay started",
		"table", cfg.MySQL.Table,
		"lock", cfg.Relay.LockBackend,
		"batch_size", cfg.Relay.BatchSize,
	)

	return relay.Run(ctx)
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func serveMetrics(ctx context.Context, srv *http.Server, logger joboutbox.Logger) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "addr", srv.Addr, "err", err)
	}
}

// promoteLoop moves due delayed jobs onto their queues for workers that only read lists.
func promoteLoop(ctx context.Context, scheduler *redis.Scheduler, every time.Duration, limit int, logger joboutbox.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			moved, err := scheduler.PromoteDue(ctx, limit)
			if err != nil {
				logger.Warn("promote due jobs failed", "err", err)

				continue
			}
			if moved > 0 {
				logger.Debug("promoted due jobs", "count", moved)
			}
		}
	}
}
