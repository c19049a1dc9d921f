package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// Key prefixes for the cache types in use. Consistent prefixes keep keys
// from colliding and make Redis monitoring legible.
const (
	UserPrefix      = "user:"
	RateLimitPrefix = "ratelimit:"
)

// UserKey generates the cache key for a user profile by ID.
//
// Example: "user:123e4567-e89b-12d3-a456-426614174000"
func UserKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s", UserPrefix, userID.String())
}

// RateLimitKey generates the Redis key for a fixed-window counter.
// The identifier already composes category, client IP, and user ID.
//
// Example: "ratelimit:gallery:203.0.113.42:123e4567..."
func RateLimitKey(identifier string) string {
	return fmt.Sprintf("%s%s", RateLimitPrefix, identifier)
}
