package mysql

import "errors"

var (
	// ErrDBRequired is returned when a nil *sql.DB is provided.
	ErrDBRequired = errors.New("outbox mysql: db is required")
	// ErrExecutorRequired is returned when enqueue is called with a nil executor.
	ErrExecutorRequired = errors.New("outbox mysql: executor is required")
	// ErrTableNameRequired is returned when the table name is empty.
	ErrTableNameRequired = errors.New("outbox mysql: table name is required")
	// ErrInvalidTableName is returned when the table name has disallowed characters.
	ErrInvalidTableName = errors.New("outbox mysql: invalid table name")
	// ErrLockNameRequired is returned when an advisory lock name is empty.
	ErrLockNameRequired = errors.New("outbox mysql: lock name is required")
	// ErrLockNameTooLong is returned when an advisory lock name exceeds the MySQL limit.
	ErrLockNameTooLong = errors.New("outbox mysql: lock name exceeds 64 characters")
	// ErrCleanupBeforeRequired is returned when cleanup cutoff is missing.
	ErrCleanupBeforeRequired = errors.New("outbox mysql: cleanup before time is required")
	// ErrCleanupLimitInvalid is returned when cleanup limit is negative.
	ErrCleanupLimitInvalid = errors.New("outbox mysql: cleanup limit must be non-negative")
	// ErrCleanupRetentionInvalid is returned when cleanup retention is not positive.
	ErrCleanupRetentionInvalid = errors.New("outbox mysql: cleanup retention must be positive")
)
