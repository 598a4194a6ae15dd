package redis

import "errors"

var (
	// ErrClientRequired is returned when a nil Redis client is provided.
	ErrClientRequired = errors.New("outbox redis: client is required")
	// ErrHashTagRequired is returned when a cluster client is used with a prefix lacking a hash tag.
	ErrHashTagRequired = errors.New("outbox redis: cluster key prefix needs a hash tag")
	// ErrLeaseRequired is returned when a lock is requested without a positive lease.
	ErrLeaseRequired = errors.New("outbox redis: lock lease must be positive")
	// ErrLockNameRequired is returned when a lock name is empty.
	ErrLockNameRequired = errors.New("outbox redis: lock name is required")
	// ErrMethodRequired is returned when a work item has no method.
	ErrMethodRequired = errors.New("outbox redis: work item method is required")
)
