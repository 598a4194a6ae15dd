package mysql

import "github.com/velmie/joboutbox"

const defaultTable = "joboutbox"

// Config defines MySQL store behavior.
type Config struct {
	Table           string
	Clock           joboutbox.Clock
	Logger          joboutbox.Logger
	ValidateJSON    bool
	validateJSONSet bool
}

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.Clock == nil {
		c.Clock = joboutbox.SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = joboutbox.NopLogger{}
	}
	if !c.validateJSONSet {
		c.ValidateJSON = true
	}

	return c
}

// Option configures the MySQL store.
type Option func(*Config)

// WithTable sets the outbox table name. Use schema.table for a non-default schema.
func WithTable(name string) Option {
	return func(c *Config) {
		c.Table = name
	}
}

// WithClock sets the time source used for processed_at.
func WithClock(clock joboutbox.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithValidateJSON enables or disables JSON validation of entry arguments on enqueue.
func WithValidateJSON(enabled bool) Option {
	return func(c *Config) {
		c.ValidateJSON = enabled
		c.validateJSONSet = true
	}
}

// WithLogger sets the logger used for lock lease warnings.
func WithLogger(logger joboutbox.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
