// Package cache holds the Redis-backed destination cache and rate limiter.
package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sundayezeilo/shortlinks/internal/config"
	"github.com/sundayezeilo/shortlinks/internal/health"
)

// Connect opens a Redis client and waits until the server answers, bounded by
// cfg.ConnectTimeout.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("cache: missing redis address")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := health.WaitFor(ctx, "redis", Pinger(rdb), logger); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: failed to ping redis: %w", err)
	}

	// Best effort: popular codes should survive eviction longest. Needs maxmemory
	// on the server to have any effect.
	if err := rdb.ConfigSet(ctx, "maxmemory-policy", "allkeys-lfu").Err(); err != nil {
		logger.WarnContext(ctx, "could not set redis maxmemory-policy to allkeys-lfu", "error", err)
	}

	return rdb, nil
}

// Pinger adapts a Redis client to health.Pinger.
func Pinger(rdb redis.UniversalClient) health.Pinger {
	return health.PingFunc(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
}
