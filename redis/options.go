package redis

import (
	"strings"

	"github.com/google/uuid"

	"github.com/velmie/joboutbox"
)

// defaultPrefix carries a hash tag so every key of one deployment maps to a single
// Redis Cluster slot, which the promote script requires.
const defaultPrefix = "{joboutbox}:"

// Config defines key layout and collaborators shared by the Redis adapters.
type Config struct {
	Prefix string
	Clock  joboutbox.Clock
	NewID  func() (uuid.UUID, error)
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	if c.Clock == nil {
		c.Clock = joboutbox.SystemClock{}
	}
	if c.NewID == nil {
		c.NewID = uuid.NewV7
	}

	return c
}

// Option configures the Redis adapters.
type Option func(*Config)

// WithPrefix sets the key prefix (default "{joboutbox}:"). On Redis Cluster the prefix must
// contain a non-empty hash tag such as "{app}:".
func WithPrefix(prefix string) Option {
	return func(c *Config) {
		c.Prefix = prefix
	}
}

// WithClock sets the time source used to resolve relative delays.
func WithClock(clock joboutbox.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithIDGenerator overrides the job id and lock token generator (UUIDv7 by default).
func WithIDGenerator(fn func() (uuid.UUID, error)) Option {
	return func(c *Config) {
		c.NewID = fn
	}
}

func newConfig(opts []Option) Config {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg.withDefaults()
}

// hasHashTag reports whether prefix contains a non-empty {...} section.
func hasHashTag(prefix string) bool {
	open := strings.IndexByte(prefix, '{')
	if open < 0 {
		return false
	}
	closing := strings.IndexByte(prefix[open+1:], '}')

	return closing > 0
}
