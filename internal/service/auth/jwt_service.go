package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService defines the token validation surface this service consumes.
// Tokens are minted by the session layer that fronts the web application;
// this API only ever proves "the caller is owner X" before touching state.
type JWTService interface {
	// ValidateToken validates the provided access token string and
	// extracts the claims. Returns an error if validation fails
	// (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
