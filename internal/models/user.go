// Package models defines the core domain models for the storefront's
// trust-and-access layer: user accounts and the server-held sessions
// that bind signed tokens to them.
//
// All models include JSON and database struct tags for serialization and
// scanning. Sensitive fields are marked with `json:"-"` to prevent
// accidental exposure in API responses.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a customer or staff account, authenticated via Google OAuth.
//
// IsAdmin is read from the stored profile row on every privileged request.
// It is never accepted from client input; the authorization gate performs a
// fresh profile lookup keyed by the already-verified user ID.
type User struct {
	ID         uuid.UUID  `json:"id" db:"id"`                           // Unique user identifier
	GoogleID   string     `json:"google_id" db:"google_id"`             // Google account ID (unique)
	Email      string     `json:"email" db:"email"`                     // User's email address
	Name       string     `json:"name" db:"name"`                       // Display name
	PictureURL string     `json:"picture_url" db:"picture_url"`         // Profile picture URL
	IsAdmin    bool       `json:"is_admin" db:"is_admin"`               // Admin flag, server-side only
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`           // Account creation timestamp
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`           // Last profile update timestamp
	LastLogin  *time.Time `json:"last_login,omitempty" db:"last_login"` // Most recent login time (nullable)
}

// Session is a server-held record binding a signed token to a user.
// A session row is the sole revocation point: deleting it invalidates an
// otherwise cryptographically valid token immediately, so lookups must
// always consult the store even when the token's own signature and embedded
// expiry check out.
//
// Lifecycle: created on successful code exchange, active while the row
// exists and now < ExpiresAt, then expired (detected lazily on lookup or by
// the periodic sweep) or revoked (explicit delete on logout). There is no
// way back to active; a new session must be issued.
type Session struct {
	ID         uuid.UUID `json:"id"`          // Unique session identifier
	UserID     uuid.UUID `json:"user_id"`     // User this session belongs to
	Token      string    `json:"-"`           // Signed session token (NEVER exposed in JSON)
	DeviceInfo string    `json:"device_info"` // User-Agent summary captured at login
	IPAddress  string    `json:"ip_address"`  // Client IP address (IPv4/IPv6)
	CreatedAt  time.Time `json:"created_at"`  // Session creation timestamp
	ExpiresAt  time.Time `json:"expires_at"`  // Session expiration (30 days default)
}

// Expired reports whether the session's database expiry has passed.
// The row expiry is authoritative; the token's embedded expiry is only a
// defense-in-depth upper bound.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
