// Package redis builds the go-redis client used by the card allocator.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/clinicdesk/clinic/internal/platform/db"
)

// NewRedis parses a redis:// URL and pings the server.
func NewRedis(ctx context.Context, url string) (*goredis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is empty")
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

func Check(rdb *goredis.Client) db.Check {
	return db.Check{
		Backend: "redis",
		Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
}
