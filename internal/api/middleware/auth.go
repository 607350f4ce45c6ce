// Package middleware provides the HTTP middleware chain: request tracing
// and JWT bearer authentication. Every state-touching handler sits behind
// Authenticate; an unauthenticated request fails before any store access.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/jot-api/internal/api/shared"
	"github.com/phrazzld/jot-api/internal/platform/logger"
	"github.com/phrazzld/jot-api/internal/redact"
	"github.com/phrazzld/jot-api/internal/service/auth"
)

// AuthMiddleware authenticates requests by validating bearer tokens
// against the JWT service. The service only validates; tokens are minted
// by the identity service.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate validates the Authorization bearer token and places the
// authenticated user ID in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized,
				"Missing or malformed Authorization header")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrExpiredToken):
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			return
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			return
		default:
			logger.FromContext(r.Context()).Error("token validation failed",
				"error", redact.Error(err))
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header. The
// scheme comparison is case-insensitive per RFC 7235.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
