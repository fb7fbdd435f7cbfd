package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store, for sidecars that need to share a
// rate limit across multiple instances of the same workload.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig configures a RedisStore connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // defaults to "mesh-proxy:ratelimit:"
}

// NewRedisStore connects to Redis and validates the connection with a
// ping before returning.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "mesh-proxy:ratelimit:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ratelimit: connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

// Increment atomically increments the counter for key using INCR plus an
// EXPIRE that only applies the first time the key is created in a window.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := s.prefix + key

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	ttlCmd := pipe.TTL(ctx, fullKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("ratelimit: redis increment: %w", err)
	}

	ttl := ttlCmd.Val()
	if ttl > window || ttl < 0 {
		ttl = window
	}
	return incr.Val(), ttl, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
