// Package cache stores short-lived JSON values and counters, in Redis when
// configured and in process memory otherwise.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	// Get unmarshals the cached value into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Incr increments a counter and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Counter returns the current value of a counter, zero when unset.
	Counter(ctx context.Context, key string) (int64, error)
	Close() error
}

// New connects to Redis when url is set and falls back to memory otherwise.
func New(url string) (Cache, error) {
	if url == "" {
		slog.Info("cache using in-memory store")
		return NewMemory(), nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		return nil, err
	}

	slog.Info("cache connected to redis", "addr", opts.Addr)
	return NewRedis(client), nil
}

func CardKey(id string) string {
	return "card:" + id
}

func CardViewsKey(id string) string {
	return "card:" + id + ":views"
}
