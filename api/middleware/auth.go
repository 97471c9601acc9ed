package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/civicpulse-backend/api/responses"
	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	pkgAuth "github.com/angelmondragon/civicpulse-backend/pkg/auth"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReasonNoToken        = "NO_TOKEN"
	ReasonInvalidToken   = "INVALID_TOKEN"
	ReasonTokenExpired   = "TOKEN_EXPIRED"
	ReasonUserNotFound   = "USER_NOT_FOUND"
	ReasonAccountDisable = "ACCOUNT_DEACTIVATED"
	ReasonAdminRequired  = "ADMIN_REQUIRED"
)

// UserLoader resolves the token subject so role and area reflect the
// current account state rather than the token's issue time.
type UserLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(cfg config.JWTConfig, users UserLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "Access denied. No token provided.").WithReason(ReasonNoToken))
				return
			}
			actor, err := authenticate(r.Context(), cfg, users, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), logg, actor)))
		})
	}
}

// OptionalAuth lets requests without an Authorization header through
// anonymously. A bearer token that is present is held to the same rules as
// RequireAuth.
func OptionalAuth(cfg config.JWTConfig, users UserLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			actor, err := authenticate(r.Context(), cfg, users, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), logg, actor)))
		})
	}
}

// RequireAdministrator must run after RequireAuth.
func RequireAdministrator(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok || !policy.IsAdministrator(actor) {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "Administrator access required").WithReason(ReasonAdminRequired))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, users UserLoader, token string) (policy.Actor, error) {
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		if errors.Is(err, pkgAuth.ErrTokenExpired) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Token expired").WithReason(ReasonTokenExpired)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Invalid token").WithReason(ReasonInvalidToken)
	}

	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user store unavailable")
	}
	user, err := users.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid token. User not found.").WithReason(ReasonUserNotFound)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Account is deactivated").WithReason(ReasonAccountDisable)
	}
	return policy.NewActor(user.ID, user.Role, user.AdminArea), nil
}

func withActor(ctx context.Context, logg *logger.Logger, actor policy.Actor) context.Context {
	ctx = WithActor(ctx, actor)
	if logg != nil {
		ctx = logg.WithActor(ctx, actor.ID().String(), actor.Role().String())
	}
	return ctx
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}
