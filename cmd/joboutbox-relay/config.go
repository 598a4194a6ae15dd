package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "JOBOUTBOX_"

const (
	lockBackendMySQL = "mysql"
	lockBackendRedis = "redis"
	lockBackendNone  = "none"
)

type config struct {
	MySQL   mysqlConfig   `yaml:"mysql"`
	Redis   redisConfig   `yaml:"redis"`
	Relay   relayConfig   `yaml:"relay"`
	Metrics metricsConfig `yaml:"metrics"`
	Log     logConfig     `yaml:"log"`
}

type mysqlConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type redisConfig struct {
	Addr            string        `yaml:"addr"`
	Prefix          string        `yaml:"prefix"`
	PromoteInterval time.Duration `yaml:"promote_interval"`
	PromoteLimit    int           `yaml:"promote_limit"`
}

type relayConfig struct {
	BatchSize         int           `yaml:"batch_size"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	LockBackend       string        `yaml:"lock_backend"`
	LockName          string        `yaml:"lock_name"`
	LockLease         time.Duration `yaml:"lock_lease"`
	LockRetryInterval time.Duration `yaml:"lock_retry_interval"`
	CacheCapacity     int           `yaml:"cache_capacity"`
	DispatchTimeout   time.Duration `yaml:"dispatch_timeout"`
	PersistTimeout    time.Duration `yaml:"persist_timeout"`
	PendingInterval   time.Duration `yaml:"pending_interval"`
}

type metricsConfig struct {
	Addr string `yaml:"addr"`
}

type logConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

func defaultConfig() config {
	return config{
		MySQL: mysqlConfig{Table: "joboutbox"},
		Redis: redisConfig{Prefix: "{joboutbox}:", PromoteLimit: 100},
		Relay: relayConfig{
			BatchSize:         50,
			PollInterval:      time.Second,
			LockBackend:       lockBackendMySQL,
			LockName:          "joboutbox:relay",
			LockLease:         10 * time.Second,
			LockRetryInterval: time.Minute,
			CacheCapacity:     2048,
			PersistTimeout:    30 * time.Second,
		},
		Metrics: metricsConfig{Addr: ":9090"},
		Log:     logConfig{Mode: "production", Level: "info"},
	}
}

// loadConfig applies defaults, then the YAML file at path (if any), then JOBOUTBOX_* variables.
func loadConfig(path string, lookup func(string) (string, bool)) (config, error) {
	cfg := defaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	env := envReader{lookup: lookup}
	env.str("MYSQL_DSN", &cfg.MySQL.DSN)
	env.str("MYSQL_TABLE", &cfg.MySQL.Table)
	env.str("REDIS_ADDR", &cfg.Redis.Addr)
	env.str("REDIS_PREFIX", &cfg.Redis.Prefix)
	env.duration("REDIS_PROMOTE_INTERVAL", &cfg.Redis.PromoteInterval)
	env.integer("REDIS_PROMOTE_LIMIT", &cfg.Redis.PromoteLimit)
	env.integer("BATCH_SIZE", &cfg.Relay.BatchSize)
	env.duration("POLL_INTERVAL", &cfg.Relay.PollInterval)
	env.str("LOCK_BACKEND", &cfg.Relay.LockBackend)
	env.str("LOCK_NAME", &cfg.Relay.LockName)
	env.duration("LOCK_LEASE", &cfg.Relay.LockLease)
	env.duration("LOCK_RETRY_INTERVAL", &cfg.Relay.LockRetryInterval)
	env.integer("CACHE_CAPACITY", &cfg.Relay.CacheCapacity)
	env.duration("DISPATCH_TIMEOUT", &cfg.Relay.DispatchTimeout)
	env.duration("PERSIST_TIMEOUT", &cfg.Relay.PersistTimeout)
	env.duration("PENDING_INTERVAL", &cfg.Relay.PendingInterval)
	env.str("METRICS_ADDR", &cfg.Metrics.Addr)
	env.str("LOG_MODE", &cfg.Log.Mode)
	env.str("LOG_LEVEL", &cfg.Log.Level)
	if env.err != nil {
		return config{}, env.err
	}

	return cfg, nil
}

func (c config) validate() error {
	if c.MySQL.DSN == "" {
		return errors.New("mysql dsn is required")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis addr is required")
	}
	switch c.Relay.LockBackend {
	case lockBackendMySQL, lockBackendRedis, lockBackendNone:
	default:
		return fmt.Errorf("unknown lock backend %q", c.Relay.LockBackend)
	}

	return nil
}

// envReader collects the first parse error so callers check once.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) str(name string, dst *string) {
	if v, ok := r.lookup(envPrefix + name); ok && v != "" {
		*dst = v
	}
}

func (r *envReader) integer(name string, dst *int) {
	v, ok := r.lookup(envPrefix + name)
	if !ok || v == "" || r.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("%s%s: %w", envPrefix, name, err)

		return
	}
	*dst = n
}

func (r *envReader) duration(name string, dst *time.Duration) {
	v, ok := r.lookup(envPrefix + name)
	if !ok || v == "" || r.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.err = fmt.Errorf("%s%s: %w", envPrefix, name, err)

		return
	}
	*dst = d
}
