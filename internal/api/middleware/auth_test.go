package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/api/shared"
	"github.com/phrazzld/jot-api/internal/mocks"
	"github.com/phrazzld/jot-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	jwtService := &mocks.MockJWTService{
		ValidateTokenFn: func(ctx context.Context, tokenString string) (*auth.Claims, error) {
			switch tokenString {
			case "valid":
				return &auth.Claims{UserID: userID}, nil
			case "expired":
				return nil, auth.ErrExpiredToken
			default:
				return nil, auth.ErrInvalidToken
			}
		},
	}
	mw := NewAuthMiddleware(jwtService)

	var seenUserID uuid.UUID
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
		require.True(t, ok)
		seenUserID = id
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid token reaches the handler with the user ID", func(t *testing.T) {
		rec := serve("Bearer valid")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, userID, seenUserID)
	})

	t.Run("scheme comparison is case-insensitive", func(t *testing.T) {
		rec := serve("bearer valid")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := serve("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rec := serve("Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("scheme without token", func(t *testing.T) {
		rec := serve("Bearer ")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		rec := serve("Bearer expired")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := serve("Bearer nonsense")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
