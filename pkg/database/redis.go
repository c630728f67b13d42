package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trivgame/qcache/pkg/config"
	"github.com/trivgame/qcache/pkg/retry"
)

// NewRedisClient creates a Redis client for the unseen-question buffer and
// verifies connectivity. Unlike the request path, which fails open when Redis
// is down, a failed connectivity check at startup is fatal.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Same startup grace as the database: the container may still be
	// coming up.
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
