package ratelimit

import (
	"context"
	"time"
)

// Counter is the slice of the Redis layer the store needs: an atomic
// fixed-window increment. *database.RedisDB satisfies it.
type Counter interface {
	IncrementRateLimit(ctx context.Context, identifier string, window time.Duration) (int64, error)
}

// RedisStore is a Store backed by shared Redis counters, for deployments
// running more than one instance behind a load balancer. The window TTL is
// set when the counter is created, so reset happens server-side.
type RedisStore struct {
	counter Counter
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(counter Counter) *RedisStore {
	return &RedisStore{counter: counter}
}

// Allow implements Store via INCR with a first-hit EXPIRE.
func (s *RedisStore) Allow(ctx context.Context, identifier string, max int, window time.Duration) (bool, error) {
	count, err := s.counter.IncrementRateLimit(ctx, identifier, window)
	if err != nil {
		return false, err
	}
	return count <= int64(max), nil
}
