package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "secret",
		Issuer:                 "civicpulse",
		ExpirationMinutes:      30,
		RefreshTokenTTLMinutes: 60,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Role: enums.UserRoleAdministrator})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.UserRoleAdministrator {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Fatalf("unexpected token type %s", claims.TokenType)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("issuer mismatch: %s", claims.Issuer)
	}
	if claims.Subject != userID.String() {
		t.Fatalf("subject mismatch: %s", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be generated")
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 30*time.Minute {
		t.Fatalf("expected 30m lifetime, got %v", got)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCitizen})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	cfg.Secret = "different"
	_, err = ParseAccessToken(cfg, token)
	if !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected malformed error for wrong secret, got %v", err)
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCitizen})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestParseAtUsesSuppliedInstant(t *testing.T) {
	cfg := testJWTConfig()
	issued := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	access, err := MintAccessToken(cfg, issued, AccessTokenPayload{UserID: userID, Role: enums.UserRoleCitizen})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	refresh, err := MintRefreshToken(cfg, issued, userID)
	if err != nil {
		t.Fatalf("mint refresh token: %v", err)
	}

	if _, err := ParseAccessTokenAt(cfg, access, issued.Add(time.Minute)); err != nil {
		t.Fatalf("access token should be valid at issue time: %v", err)
	}
	if _, err := ParseRefreshTokenAt(cfg, refresh, issued.Add(time.Minute)); err != nil {
		t.Fatalf("refresh token should be valid at issue time: %v", err)
	}
	if _, err := ParseAccessToken(cfg, access); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected wall clock parse to report expiry, got %v", err)
	}
	if _, err := ParseRefreshTokenAt(cfg, refresh, issued.Add(2*time.Hour)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected refresh token expired after ttl, got %v", err)
	}
}

func TestParseGarbage(t *testing.T) {
	cfg := testJWTConfig()
	for _, raw := range []string{"", "   ", "not.a.jwt"} {
		if _, err := ParseAccessToken(cfg, raw); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("expected malformed error for %q, got %v", raw, err)
		}
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := MintRefreshToken(cfg, time.Now(), userID)
	if err != nil {
		t.Fatalf("mint refresh token: %v", err)
	}

	claims, err := ParseRefreshToken(cfg, token)
	if err != nil {
		t.Fatalf("parse refresh token: %v", err)
	}
	if claims.UserID != userID || claims.TokenType != TokenTypeRefresh {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokensCannotBeSwapped(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	access, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: userID, Role: enums.UserRoleCitizen})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	refresh, err := MintRefreshToken(cfg, time.Now(), userID)
	if err != nil {
		t.Fatalf("mint refresh token: %v", err)
	}

	if _, err := ParseRefreshToken(cfg, access); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
	if _, err := ParseAccessToken(cfg, refresh); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "mayor"}); err == nil {
		t.Fatal("expected invalid role to fail")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.UserRoleCitizen}); err == nil {
		t.Fatal("expected missing user id to fail")
	}
	cfg.Secret = ""
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCitizen}); err == nil {
		t.Fatal("expected missing secret to fail")
	}
}
