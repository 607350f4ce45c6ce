package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-thats-at-least-32-characters"

// mintToken signs a token the way the identity service does, so the tests
// exercise the real parse path.
func mintToken(t *testing.T, secret string, userID uuid.UUID, issuedAt, expiresAt time.Time) string {
	t.Helper()

	claims := jwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newTestService(t *testing.T) *hmacJWTService {
	t.Helper()

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	return svc.(*hmacJWTService)
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	t.Run("rejects short secrets", func(t *testing.T) {
		t.Parallel()

		_, err := NewJWTService(config.AuthConfig{JWTSecret: "too-short"})
		assert.Error(t, err)
	})

	t.Run("accepts a 32+ character secret", func(t *testing.T) {
		t.Parallel()

		_, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret})
		assert.NoError(t, err)
	})
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()

	t.Run("valid token round-trips the user ID", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t)
		userID := uuid.New()
		token := mintToken(t, testSecret, userID, now, now.Add(time.Hour))

		claims, err := svc.ValidateToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, userID.String(), claims.Subject)
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t)
		_, err := svc.ValidateToken(ctx, "")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t)
		_, err := svc.ValidateToken(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong signing secret", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t)
		token := mintToken(t, "a-different-secret-also-32-characters-long",
			uuid.New(), now, now.Add(time.Hour))

		_, err := svc.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t)
		token := mintToken(t, testSecret, uuid.New(),
			now.Add(-2*time.Hour), now.Add(-time.Hour))

		_, err := svc.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("expiry within clock skew is tolerated", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t)
		token := mintToken(t, testSecret, uuid.New(),
			now.Add(-time.Hour), now.Add(-30*time.Second))

		_, err := svc.ValidateToken(ctx, token)
		assert.NoError(t, err)
	})

	t.Run("missing user ID claim", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t)
		token := mintToken(t, testSecret, uuid.Nil, now, now.Add(time.Hour))

		_, err := svc.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects the none algorithm", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t)
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwtCustomClaims{
			UserID: uuid.New(),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(ctx, signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
