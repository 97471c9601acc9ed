package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrWrongTokenType = errors.New("wrong token type")
)

// MintAccessToken issues a signed access JWT for the provided payload using the configured TTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return "", err
	}
	if cfg.AccessTokenTTL() <= 0 {
		return "", fmt.Errorf("jwt expiration minutes must be positive")
	}
	if payload.UserID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	claims := AccessTokenClaims{
		UserID:           payload.UserID,
		Role:             payload.Role,
		TokenType:        TokenTypeAccess,
		RegisteredClaims: registered(cfg, now, cfg.AccessTokenTTL(), payload.UserID, payload.JTI),
	}
	return sign(cfg, claims)
}

// MintRefreshToken issues a signed refresh JWT for userID.
func MintRefreshToken(cfg config.JWTConfig, now time.Time, userID uuid.UUID) (string, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return "", err
	}
	if cfg.RefreshTokenTTL() <= 0 {
		return "", fmt.Errorf("refresh token ttl must be positive")
	}
	if userID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}

	claims := RefreshTokenClaims{
		UserID:           userID,
		TokenType:        TokenTypeRefresh,
		RegisteredClaims: registered(cfg, now, cfg.RefreshTokenTTL(), userID, ""),
	}
	return sign(cfg, claims)
}

// ParseAccessToken validates the JWT string and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	return ParseAccessTokenAt(cfg, tokenString, time.Now())
}

// ParseAccessTokenAt is ParseAccessToken with expiry checked against now.
func ParseAccessTokenAt(cfg config.JWTConfig, tokenString string, now time.Time) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := parse(cfg, tokenString, now, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// ParseRefreshToken validates a refresh JWT and rejects access tokens.
func ParseRefreshToken(cfg config.JWTConfig, tokenString string) (*RefreshTokenClaims, error) {
	return ParseRefreshTokenAt(cfg, tokenString, time.Now())
}

func ParseRefreshTokenAt(cfg config.JWTConfig, tokenString string, now time.Time) (*RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}
	if err := parse(cfg, tokenString, now, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func checkSigningConfig(cfg config.JWTConfig) error {
	if cfg.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return fmt.Errorf("jwt issuer is required")
	}
	return nil
}

func registered(cfg config.JWTConfig, now time.Time, ttl time.Duration, userID uuid.UUID, jti string) jwt.RegisteredClaims {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		jti = uuid.NewString()
	}
	return jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        jti,
	}
}

func sign(cfg config.JWTConfig, claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func parse(cfg config.JWTConfig, tokenString string, now time.Time, claims jwt.Claims) error {
	if cfg.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if strings.TrimSpace(tokenString) == "" {
		return ErrTokenMalformed
	}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
