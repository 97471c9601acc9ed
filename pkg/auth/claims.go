package auth

import (
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens so one can never
// be replayed as the other.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims represents the typed access JWT issued to clients.
type AccessTokenClaims struct {
	UserID    uuid.UUID      `json:"user_id"`
	Role      enums.UserRole `json:"role"`
	TokenType TokenType      `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims carries only the subject; role is re-read on refresh.
type RefreshTokenClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}
