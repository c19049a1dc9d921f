package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ieraasyl/StorefrontCore/internal/models"
)

// UserCache caches user profile rows so the authorization gate's admin
// check stays one round trip. Entries expire on a short TTL; writes to the
// profile (login upsert, admin flag changes) invalidate explicitly.
type UserCache struct {
	cache   *Cache
	ttl     time.Duration
	enabled bool
}

// NewUserCache creates a user profile cache. When disabled it becomes a
// transparent pass-through: every Get reports a miss and Set/Invalidate
// are no-ops, so callers need no conditional logic.
func NewUserCache(cache *Cache, ttl time.Duration, enabled bool) *UserCache {
	return &UserCache{cache: cache, ttl: ttl, enabled: enabled}
}

// Get returns the cached profile for userID, or ErrCacheMiss.
func (u *UserCache) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if !u.enabled {
		return nil, ErrCacheMiss
	}
	var user models.User
	if err := u.cache.Get(ctx, UserKey(userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Set caches a profile row under its user ID.
func (u *UserCache) Set(ctx context.Context, user *models.User) error {
	if !u.enabled {
		return nil
	}
	return u.cache.Set(ctx, UserKey(user.ID), user, u.ttl)
}

// Invalidate drops the cached profile, forcing the next privileged request
// to re-read the row. Called after any profile write so a revoked admin
// flag takes effect within one request rather than one TTL.
func (u *UserCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if !u.enabled {
		return nil
	}
	return u.cache.Delete(ctx, UserKey(userID))
}
