// Package auth validates the bearer tokens presented to the API.
// Tokens are issued by the account service; GenerateToken exists for local
// tooling and tests.
package auth

import (
	"context"
	"time"

	"github.com/learnwell/microlearn-api/internal/domain"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the user and role.
	GenerateToken(ctx context.Context, userID int64, role domain.Role) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns the claims if the token is valid, or an error if validation fails
	// (expired, invalid signature, missing user ID, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the claims extracted from a validated token.
type Claims struct {
	// UserID is the numeric identifier of the user the token was issued for.
	UserID int64 `json:"uid"`

	// Role is the account role, e.g. "admin" or "applicant".
	Role domain.Role `json:"role"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
