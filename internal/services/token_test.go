package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *TokenService {
	return NewTokenService(&config.SessionConfig{
		Secret: []byte("test-secret-key-at-least-32-bytes!!"),
	})
}

func TestTokenService_SignAndVerify(t *testing.T) {
	svc := newTestTokenService()
	userID := uuid.New()

	t.Run("round trip", func(t *testing.T) {
		token, err := svc.Sign(userID, time.Hour)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		result := svc.Verify(token)
		assert.True(t, result.OK())
		assert.Equal(t, FailureNone, result.Failure)
		assert.Equal(t, userID, result.UserID)
		assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, 5*time.Second)
		assert.WithinDuration(t, time.Now(), result.IssuedAt, 5*time.Second)
	})

	t.Run("distinct tokens for distinct users", func(t *testing.T) {
		token1, err := svc.Sign(uuid.New(), time.Hour)
		require.NoError(t, err)
		token2, err := svc.Sign(uuid.New(), time.Hour)
		require.NoError(t, err)
		assert.NotEqual(t, token1, token2)
	})
}

func TestTokenService_Verify_Failures(t *testing.T) {
	svc := newTestTokenService()
	userID := uuid.New()

	t.Run("expired token reports expired with claims", func(t *testing.T) {
		token, err := svc.Sign(userID, -time.Minute)
		require.NoError(t, err)

		result := svc.Verify(token)
		assert.False(t, result.OK())
		assert.Equal(t, FailureExpired, result.Failure)
		// Signature verified, so the claims are still trustworthy.
		assert.Equal(t, userID, result.UserID)
	})

	t.Run("wrong secret reports signature invalid", func(t *testing.T) {
		other := NewTokenService(&config.SessionConfig{
			Secret: []byte("another-secret-key-32-bytes-long!!!"),
		})
		token, err := other.Sign(userID, time.Hour)
		require.NoError(t, err)

		result := svc.Verify(token)
		assert.Equal(t, FailureSignatureInvalid, result.Failure)
		// No trusted claims from an unverified signature.
		assert.Equal(t, uuid.Nil, result.UserID)
	})

	t.Run("garbage reports malformed", func(t *testing.T) {
		result := svc.Verify("not-a-token")
		assert.Equal(t, FailureMalformed, result.Failure)
	})

	t.Run("empty string reports malformed", func(t *testing.T) {
		result := svc.Verify("")
		assert.Equal(t, FailureMalformed, result.Failure)
	})

	t.Run("expired beats forged never happens together", func(t *testing.T) {
		// An expired token signed with the wrong secret must report the
		// signature failure, not expiry: expiry is only meaningful once the
		// signature verified.
		other := NewTokenService(&config.SessionConfig{
			Secret: []byte("another-secret-key-32-bytes-long!!!"),
		})
		token, err := other.Sign(userID, -time.Minute)
		require.NoError(t, err)

		result := svc.Verify(token)
		assert.Equal(t, FailureSignatureInvalid, result.Failure)
	})

	t.Run("non-uuid subject reports malformed", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte("test-secret-key-at-least-32-bytes!!"))
		require.NoError(t, err)

		result := svc.Verify(token)
		assert.Equal(t, FailureMalformed, result.Failure)
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		result := svc.Verify(token)
		assert.False(t, result.OK())
	})
}

func TestVerifyFailure_String(t *testing.T) {
	assert.Equal(t, "none", FailureNone.String())
	assert.Equal(t, "malformed", FailureMalformed.String())
	assert.Equal(t, "signature_invalid", FailureSignatureInvalid.String())
	assert.Equal(t, "expired", FailureExpired.String())
}
