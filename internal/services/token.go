// Package services provides the business logic of the trust-and-access
// layer: token signing and verification, session lifecycle, the
// authorization gate, and the OAuth login exchange.
//
// Services coordinate between handlers and the database layer. They hold
// no per-request state; the only shared mutable state in the core lives in
// the rate limiter's counter store.
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
)

// VerifyFailure tags the outcome of token verification. A structurally
// valid but expired token is reported distinctly from a forged one so logs
// and metrics can tell credential aging from attack traffic.
type VerifyFailure int

const (
	// FailureNone means the token verified: signature valid, not expired.
	FailureNone VerifyFailure = iota
	// FailureMalformed means the token is not a parsable compact JWT.
	FailureMalformed
	// FailureSignatureInvalid means the signature does not match the
	// configured secret (forged, truncated, or signed by another deployment).
	FailureSignatureInvalid
	// FailureExpired means signature and structure are valid but the
	// embedded expiry has passed.
	FailureExpired
)

// String returns the failure tag for logs and metrics labels.
func (f VerifyFailure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureMalformed:
		return "malformed"
	case FailureSignatureInvalid:
		return "signature_invalid"
	case FailureExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// VerifyResult is the tagged outcome of TokenService.Verify. Claims are
// only populated when Failure is FailureNone or FailureExpired; a token
// whose signature did not verify contributes no trusted claims at all.
type VerifyResult struct {
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
	Failure   VerifyFailure
}

// OK reports whether the token verified cleanly.
func (r VerifyResult) OK() bool {
	return r.Failure == FailureNone
}

// TokenService signs and verifies compact session tokens (HS256 JWTs with
// subject, issued-at, and expiry claims). It is stateless and side-effect
// free; Sign and Verify are safe to call concurrently without locking.
//
// A verified token alone never authenticates a request: the session store
// must also hold a matching unexpired row. The token's own expiry is a
// defense-in-depth upper bound, not the authoritative check.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a token service using the signing secret from
// configuration. The secret is validated (>= 32 bytes) at config load.
func NewTokenService(cfg *config.SessionConfig) *TokenService {
	return &TokenService{secret: cfg.Secret}
}

// Sign mints a compact token for userID valid for ttl from now.
//
// Example:
//
//	token, err := tokenSvc.Sign(user.ID, 720*time.Hour)
func (s *TokenService) Sign(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and claims and returns a tagged
// result. The signature is verified before any embedded claim is trusted;
// only HMAC signing methods are accepted so an attacker cannot downgrade
// the algorithm.
func (s *TokenService) Verify(tokenString string) VerifyResult {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			// Signature verified; only the expiry claim failed. Claims are
			// structurally trustworthy, so report them with the tag.
			if token == nil {
				return VerifyResult{Failure: FailureExpired}
			}
			if claims, ok := token.Claims.(*jwt.RegisteredClaims); ok {
				result := VerifyResult{Failure: FailureExpired}
				if userID, perr := uuid.Parse(claims.Subject); perr == nil {
					result.UserID = userID
				}
				if claims.IssuedAt != nil {
					result.IssuedAt = claims.IssuedAt.Time
				}
				if claims.ExpiresAt != nil {
					result.ExpiresAt = claims.ExpiresAt.Time
				}
				return result
			}
			return VerifyResult{Failure: FailureExpired}
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return VerifyResult{Failure: FailureSignatureInvalid}
		case errors.Is(err, jwt.ErrTokenMalformed):
			return VerifyResult{Failure: FailureMalformed}
		default:
			// Unknown parse failures (bad claim types, wrong method) are
			// treated as malformed rather than leaking parser detail.
			return VerifyResult{Failure: FailureMalformed}
		}
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return VerifyResult{Failure: FailureMalformed}
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return VerifyResult{Failure: FailureMalformed}
	}

	result := VerifyResult{UserID: userID, Failure: FailureNone}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result
}
