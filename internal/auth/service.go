package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/users"
	pkgAuth "github.com/angelmondragon/civicpulse-backend/pkg/auth"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/db"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/google/uuid"
)

// Service defines the behavior needed by the login and refresh controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*SessionResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	VerifyDummy(password string)
	NeedsRehash(encoded string) bool
}

type service struct {
	users  userRepository
	hasher passwordHasher
	jwtCfg config.JWTConfig
	logg   *logger.Logger
	now    func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo  userRepository
	Hasher    passwordHasher
	JWTConfig config.JWTConfig
	Logger    *logger.Logger
	Clock     func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = db.UTCNow
	}
	return &service{
		users:  params.UserRepo,
		hasher: params.Hasher,
		jwtCfg: params.JWTConfig,
		logg:   params.Logger,
		now:    clock,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	s.upgradeHash(ctx, user, req.Password, now)

	return issueSession(s.jwtCfg, now, user)
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := pkgAuth.ParseRefreshTokenAt(s.jwtCfg, strings.TrimSpace(req.RefreshToken), s.now())
	if err != nil {
		return nil, errInvalidRefresh()
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errInvalidRefresh()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive {
		return nil, errInvalidRefresh()
	}

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &RefreshResponse{Token: token}, nil
}

// authenticate returns the same error for unknown emails and wrong passwords,
// and spends one hash verification either way.
func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := users.NormalizeEmail(email)
	if input == "" {
		return nil, errInvalidCredentials()
	}

	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if db.IsNotFound(err) {
			s.hasher.VerifyDummy(password)
			return nil, errInvalidCredentials()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, errInvalidCredentials()
	}
	if !user.IsActive {
		return nil, errAccountDeactivated()
	}
	return user, nil
}

// upgradeHash re-hashes the password with the current cost settings when the
// stored hash predates them. Failures leave the old hash in place.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string, now time.Time) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, user.ID, hash, now)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "password rehash skipped")
		}
		return
	}
	user.PasswordHash = hash
}

func issueSession(cfg config.JWTConfig, now time.Time, user *models.User) (*SessionResponse, error) {
	access, err := pkgAuth.MintAccessToken(cfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refresh, err := pkgAuth.MintRefreshToken(cfg, now, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint refresh token")
	}
	return &SessionResponse{
		User:         users.FromModel(user),
		Token:        access,
		RefreshToken: refresh,
	}, nil
}
