package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

// Connect builds a client from a redis:// or rediss:// URL or a plain host:port address
// and verifies it with PING.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	var opts *goredis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := goredis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("outbox redis: parse url: %w", err)
		}
		opts = parsed
	} else {
		opts = &goredis.Options{Addr: addr}
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("outbox redis: ping: %w", err)
	}

	return client, nil
}
