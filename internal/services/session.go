package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ieraasyl/StorefrontCore/internal/models"
	"github.com/mileusna/useragent"
	"github.com/rs/zerolog/log"
)

// SessionRepository abstracts the persisted session rows so the service
// works over any relational or document store. FindByToken returns
// (nil, nil) for absent or store-expired rows.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.Session) error
	FindSessionByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteSessionByToken(ctx context.Context, token string) error
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

// SessionService manages the session lifecycle: minting tokens, persisting
// the revocable row, lookups on every authenticated request, logout
// deletion, and the periodic expiry sweep.
//
// The row is the single source of truth for expiry and revocation. The
// token's own signature and embedded expiry are verified first as a cheap
// defense-in-depth gate, but a verified token with no matching row
// authenticates nothing.
type SessionService struct {
	tokens *TokenService
	repo   SessionRepository
	ttl    time.Duration

	// onTokenFailure, when set, records rejected tokens by failure tag so
	// metrics can separate credential aging from forgery attempts.
	onTokenFailure func(failure string)
}

// SetFailureRecorder installs the metrics hook for rejected tokens.
// Called once during wiring; not safe to call concurrently with Lookup.
func (s *SessionService) SetFailureRecorder(fn func(failure string)) {
	s.onTokenFailure = fn
}

// NewSessionService creates a session service.
//
// Example:
//
//	sessionSvc := services.NewSessionService(tokenSvc, postgresDB, cfg.Session.TTL)
func NewSessionService(tokens *TokenService, repo SessionRepository, ttl time.Duration) *SessionService {
	return &SessionService{
		tokens: tokens,
		repo:   repo,
		ttl:    ttl,
	}
}

// Create mints a token for userID and persists the backing session row.
// Device info is summarized from the User-Agent header for the session
// record; the raw header is not stored.
//
// Returns the signed token (for the cookie) and the created session.
func (s *SessionService) Create(ctx context.Context, userID uuid.UUID, userAgent, ipAddress string) (string, *models.Session, error) {
	token, err := s.tokens.Sign(userID, s.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("failed to mint session token: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		ID:         uuid.New(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: summarizeDevice(userAgent),
		IPAddress:  ipAddress,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to persist session: %w", err)
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("session_id", session.ID.String()).
		Time("expires_at", session.ExpiresAt).
		Msg("Session created")

	return token, session, nil
}

// Lookup resolves a token to its session, or nil for anonymous callers.
//
// Order matters: the signature is verified before the store is consulted,
// so forged tokens never cost a database round trip, and the store is
// always consulted after a clean verification, so a deleted row revokes a
// cryptographically valid token immediately.
func (s *SessionService) Lookup(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}

	result := s.tokens.Verify(token)
	if !result.OK() {
		// Expired vs forged matters for monitoring even though both end as
		// an anonymous request.
		log.Debug().
			Str("failure", result.Failure.String()).
			Msg("Session token rejected before store lookup")
		if s.onTokenFailure != nil {
			s.onTokenFailure(result.Failure.String())
		}
		return nil, nil
	}

	session, err := s.repo.FindSessionByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	if session == nil {
		// Valid signature, no live row: revoked or swept.
		log.Debug().
			Str("user_id", result.UserID.String()).
			Msg("Verified token has no live session row")
		return nil, nil
	}

	return session, nil
}

// Delete revokes a session by deleting its row (logout). Idempotent.
func (s *SessionService) Delete(ctx context.Context, token string) error {
	if err := s.repo.DeleteSessionByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	log.Info().Msg("Session revoked")
	return nil
}

// SweepExpired deletes rows past their expiry. Invoked periodically from a
// background ticker in main.
func (s *SessionService) SweepExpired(ctx context.Context) error {
	removed, err := s.repo.SweepExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("session sweep failed: %w", err)
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("Swept expired sessions")
	}
	return nil
}

// summarizeDevice condenses a User-Agent header into a short display
// string like "Chrome 120 · Windows · Desktop".
func summarizeDevice(userAgent string) string {
	if userAgent == "" {
		return "Unknown device"
	}

	ua := useragent.Parse(userAgent)

	device := "Desktop"
	switch {
	case ua.Mobile:
		device = "Mobile"
	case ua.Tablet:
		device = "Tablet"
	case ua.Bot:
		device = "Bot"
	}

	browser := ua.Name
	if browser == "" {
		browser = "Unknown browser"
	} else if ua.Version != "" {
		browser = fmt.Sprintf("%s %s", browser, majorVersion(ua.Version))
	}

	os := ua.OS
	if os == "" {
		os = "Unknown OS"
	}

	return fmt.Sprintf("%s · %s · %s", browser, os, device)
}

// majorVersion trims "120.0.6099.144" to "120".
func majorVersion(version string) string {
	if idx := strings.IndexByte(version, '.'); idx != -1 {
		return version[:idx]
	}
	return version
}
