// Package cache provides a Redis-backed cache with JSON serialization,
// used to keep user profile lookups (the admin check on privileged
// requests) to a single round trip against Redis instead of Postgres.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache wraps a Redis client with JSON marshaling for arbitrary structs.
type Cache struct {
	client *redis.Client
}

// NewCache creates a cache instance wrapping a Redis client.
//
// Example:
//
//	cacheInstance := cache.NewCache(redisDB.Client())
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get retrieves a value from cache and unmarshals it into target, which
// must be a pointer. Returns ErrCacheMiss when the key is absent.
//
// Example:
//
//	var user models.User
//	err := c.Get(ctx, cache.UserKey(userID), &user)
//	if errors.Is(err, cache.ErrCacheMiss) {
//	    // load from the database
//	}
func (c *Cache) Get(ctx context.Context, key string, target interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		log.Error().Err(err).Str("key", key).Msg("Failed to get from cache")
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to unmarshal cached data")
		return fmt.Errorf("unmarshal error: %w", err)
	}

	return nil
}

// Set stores a JSON-marshaled value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to marshal data for cache")
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to set cache")
		return fmt.Errorf("cache set error: %w", err)
	}

	log.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached data")
	return nil
}

// Delete removes one or more keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Error().Err(err).Strs("keys", keys).Msg("Failed to delete cache keys")
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// GetOrSet implements the cache-aside pattern: return the cached value if
// present, otherwise call loader, cache its result, and return it. Loader
// errors are returned as-is; caching errors after a successful load are
// logged but not returned, since the caller already has the value.
func (c *Cache) GetOrSet(ctx context.Context, key string, target interface{}, ttl time.Duration, loader func() (interface{}, error)) error {
	err := c.Get(ctx, key, target)
	if err == nil {
		return nil
	}
	if err != ErrCacheMiss {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed, falling through to loader")
	}

	value, err := loader()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal error: %w", err)
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to populate cache after load")
	}

	return nil
}
