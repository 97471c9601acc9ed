package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	"github.com/angelmondragon/civicpulse-backend/pkg/auth"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/angelmondragon/civicpulse-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "civicpulse", ExpirationMinutes: 60, RefreshTokenTTLMinutes: 120}

type stubUsers struct {
	users map[uuid.UUID]*models.User
	err   error
}

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func newUser(role enums.UserRole, area *string, active bool) *models.User {
	return &models.User{ID: uuid.New(), Role: role, AdminArea: area, IsActive: active, Name: "U", Email: "u@example.com"}
}

func tokenFor(t *testing.T, u *models.User, issued time.Time) string {
	t.Helper()
	tok, err := auth.MintAccessToken(testJWT, issued, auth.AccessTokenPayload{UserID: u.ID, Role: u.Role})
	require.NoError(t, err)
	return tok
}

func serveAuth(mw func(http.Handler) http.Handler, header string) (*httptest.ResponseRecorder, policy.Actor) {
	var seen policy.Actor
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func reasonOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestRequireAuth(t *testing.T) {
	area := "Springfield"
	admin := newUser(enums.UserRoleAdministrator, &area, true)
	citizen := newUser(enums.UserRoleCitizen, nil, true)
	inactive := newUser(enums.UserRoleCitizen, nil, false)
	ghost := newUser(enums.UserRoleCitizen, nil, true)
	users := stubUsers{users: map[uuid.UUID]*models.User{admin.ID: admin, citizen.ID: citizen, inactive.ID: inactive}}
	mw := RequireAuth(testJWT, users, nil)

	rec, _ := serveAuth(mw, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ReasonNoToken, reasonOf(t, rec))

	rec, _ = serveAuth(mw, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ReasonInvalidToken, reasonOf(t, rec))

	rec, _ = serveAuth(mw, "Bearer "+tokenFor(t, citizen, time.Now().Add(-2*time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ReasonTokenExpired, reasonOf(t, rec))

	rec, _ = serveAuth(mw, "Bearer "+tokenFor(t, ghost, time.Now()))
	assert.Equal(t, ReasonUserNotFound, reasonOf(t, rec))

	rec, _ = serveAuth(mw, "Bearer "+tokenFor(t, inactive, time.Now()))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ReasonAccountDisable, reasonOf(t, rec))

	rec, actor := serveAuth(mw, "bearer "+tokenFor(t, admin, time.Now()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, policy.Administrator{UserID: admin.ID, Area: "Springfield"}, actor)

	rec, actor = serveAuth(mw, "Bearer "+tokenFor(t, citizen, time.Now()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, policy.Citizen{UserID: citizen.ID}, actor)
}

func TestRequireAuthUserStoreFailure(t *testing.T) {
	u := newUser(enums.UserRoleCitizen, nil, true)
	rec, _ := serveAuth(RequireAuth(testJWT, stubUsers{err: errors.New("db down")}, nil), "Bearer "+tokenFor(t, u, time.Now()))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOptionalAuth(t *testing.T) {
	citizen := newUser(enums.UserRoleCitizen, nil, true)
	mw := OptionalAuth(testJWT, stubUsers{users: map[uuid.UUID]*models.User{citizen.ID: citizen}}, nil)

	rec, actor := serveAuth(mw, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, actor)

	rec, actor = serveAuth(mw, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ReasonInvalidToken, reasonOf(t, rec))
	assert.Nil(t, actor)

	rec, actor = serveAuth(mw, "Bearer "+tokenFor(t, citizen, time.Now().Add(-2*time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ReasonTokenExpired, reasonOf(t, rec))
	assert.Nil(t, actor)

	rec, actor = serveAuth(mw, "Bearer "+tokenFor(t, citizen, time.Now()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, policy.Citizen{UserID: citizen.ID}, actor)
}

func TestRequireAdministrator(t *testing.T) {
	handler := RequireAdministrator(nil)(okHandler())
	serve := func(actor policy.Actor) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if actor != nil {
			req = req.WithContext(WithActor(req.Context(), actor))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(policy.Citizen{UserID: uuid.New()})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ReasonAdminRequired, reasonOf(t, rec))
	assert.Equal(t, http.StatusForbidden, serve(nil).Code)
	assert.Equal(t, http.StatusOK, serve(policy.Administrator{UserID: uuid.New()}).Code)
}
