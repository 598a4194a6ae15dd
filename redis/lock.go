package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/velmie/joboutbox"
)

var releaseScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Locker implements joboutbox.Locker with expiring Redis keys.
type Locker struct {
	client goredis.UniversalClient
	cfg    Config
}

var _ joboutbox.Locker = (*Locker)(nil)

// NewLocker constructs a Redis locker.
func NewLocker(client goredis.UniversalClient, opts ...Option) (*Locker, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	return &Locker{client: client, cfg: newConfig(opts)}, nil
}

// TryAcquire sets the lock key with a fresh token if it does not exist. The key expires
// after lease, which bounds how long a crashed holder blocks other instances.
func (l *Locker) TryAcquire(ctx context.Context, name string, lease time.Duration) (joboutbox.Lease, error) {
	if name == "" {
		return nil, ErrLockNameRequired
	}
	if lease <= 0 {
		return nil, ErrLeaseRequired
	}
	token, err := l.cfg.NewID()
	if err != nil {
		return nil, fmt.Errorf("outbox redis: lock token: %w", err)
	}

	key := l.LockKey(name)
	ok, err := l.client.SetNX(ctx, key, token.String(), lease).Result()
	if err != nil {
		return nil, fmt.Errorf("outbox redis: acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, joboutbox.ErrLockUnavailable
	}

	return &lockLease{client: l.client, key: key, token: token.String()}, nil
}

// LockKey returns the key backing the lock name.
func (l *Locker) LockKey(name string) string {
	return l.cfg.Prefix + "lock:" + name
}

type lockLease struct {
	client goredis.UniversalClient
	key    string
	token  string
	once   sync.Once
	err    error
}

// Release deletes the lock key if it still carries this lease's token.
func (l *lockLease) Release(ctx context.Context) error {
	l.once.Do(func() {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
			l.err = fmt.Errorf("outbox redis: release lock %s: %w", l.key, err)
		}
	})

	return l.err
}
