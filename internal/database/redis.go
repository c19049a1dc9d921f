package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ieraasyl/StorefrontCore/pkg/cache"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/ieraasyl/StorefrontCore/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisDB wraps a Redis client used for rate-limit counters and the user
// profile cache.
type RedisDB struct {
	client *redis.Client
}

// NewRedisDB creates a Redis connection with the same retry behavior as
// the PostgreSQL connect.
func NewRedisDB(cfg *config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var lastErr error
	err := utils.Retry(ctx, utils.DatabaseRetryConfig(), func() error {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pingCancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			lastErr = err
			log.Warn().Err(err).Msg("Failed to ping Redis, retrying...")
			return err
		}
		return nil
	})

	if err != nil {
		client.Close()
		if lastErr != nil {
			return nil, fmt.Errorf("failed to connect to Redis after retries: %w", lastErr)
		}
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Msg("Successfully connected to Redis")
	return &RedisDB{client: client}, nil
}

// Close closes the Redis connection.
func (r *RedisDB) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client for the cache layer and the
// Redis rate-limit store.
func (r *RedisDB) Client() *redis.Client {
	return r.client
}

// Ping checks if Redis is alive. Used by the readiness endpoint.
func (r *RedisDB) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// IncrementRateLimit atomically increments the fixed-window counter for an
// identifier and returns the new count. The window TTL is attached when
// the counter is first created, so the count resets when the key expires.
//
// INCR followed by a first-hit EXPIRE is the standard Redis fixed-window
// pattern; INCR is atomic, so two concurrent requests can never both read
// the same pre-increment value.
func (r *RedisDB) IncrementRateLimit(ctx context.Context, identifier string, window time.Duration) (int64, error) {
	key := cache.RateLimitKey(identifier)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count, nil
}
