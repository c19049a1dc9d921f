package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ieraasyl/StorefrontCore/internal/apperrors"
	"github.com/ieraasyl/StorefrontCore/internal/models"
	"github.com/ieraasyl/StorefrontCore/pkg/cache"
	"github.com/rs/zerolog/log"
)

// UserStore is the profile lookup the gate needs. GetUserByID returns
// (nil, nil) when no such user exists.
type UserStore interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// AuthorizationGate answers "who is this" and "may they do X" by composing
// token verification, the session store, and the user profile lookup.
//
// The two failure kinds stay distinguishable: ErrUnauthenticated (no or
// invalid session) sends callers to login, ErrForbidden (valid user,
// insufficient privilege) sends them home with a warning. Handlers must
// never collapse one into the other.
type AuthorizationGate struct {
	sessions *SessionService
	users    UserStore
	cache    *cache.UserCache
}

// NewAuthorizationGate creates the gate. The user cache may be a disabled
// pass-through; the gate never requires it to be warm.
func NewAuthorizationGate(sessions *SessionService, users UserStore, userCache *cache.UserCache) *AuthorizationGate {
	return &AuthorizationGate{
		sessions: sessions,
		users:    users,
		cache:    userCache,
	}
}

// GetUser resolves a session token to its user. Absence is a normal
// outcome for anonymous browsing, reported as (nil, nil), never as an
// error. Errors are reserved for infrastructure failures.
func (g *AuthorizationGate) GetUser(ctx context.Context, token string) (*models.User, error) {
	session, err := g.sessions.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	user, err := g.lookupProfile(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Session row outlived its user (account deletion); treat as anonymous.
		log.Warn().
			Str("user_id", session.UserID.String()).
			Str("session_id", session.ID.String()).
			Msg("Live session references missing user")
		return nil, nil
	}

	return user, nil
}

// RequireUser resolves the token and fails with ErrUnauthenticated when no
// valid session exists.
func (g *AuthorizationGate) RequireUser(ctx context.Context, token string) (*models.User, error) {
	user, err := g.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	return user, nil
}

// RequireAdmin escalates RequireUser with the admin profile check. The
// flag comes from a second lookup keyed by the already-verified user ID;
// no client-supplied role claim is ever consulted.
//
// Fails with ErrUnauthenticated for anonymous callers and ErrForbidden for
// authenticated non-admins; the two are never conflated.
func (g *AuthorizationGate) RequireAdmin(ctx context.Context, token string) (*models.User, error) {
	user, err := g.RequireUser(ctx, token)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin {
		log.Warn().
			Str("user_id", user.ID.String()).
			Msg("Non-admin attempted privileged operation")
		return nil, apperrors.ErrForbidden
	}

	return user, nil
}

// lookupProfile reads the profile row through the cache-aside user cache.
func (g *AuthorizationGate) lookupProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if user, err := g.cache.Get(ctx, userID); err == nil {
		return user, nil
	} else if err != cache.ErrCacheMiss {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Profile cache read failed")
	}

	user, err := g.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	if err := g.cache.Set(ctx, user); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Profile cache write failed")
	}

	return user, nil
}
