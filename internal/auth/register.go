package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/users"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/db"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
)

// RegisterService creates accounts and signs the new user in.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error)
}

type registerRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	UserRepo         registerRepository
	Hasher           passwordHasher
	JWTConfig        config.JWTConfig
	AllowAdminSignup bool
	Clock            func() time.Time
}

type registerService struct {
	users       registerRepository
	hasher      passwordHasher
	jwtCfg      config.JWTConfig
	allowAdmins bool
	now         func() time.Time
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
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
	return &registerService{
		users:       params.UserRepo,
		hasher:      params.Hasher,
		jwtCfg:      params.JWTConfig,
		allowAdmins: params.AllowAdminSignup,
		now:         clock,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, fieldError("email", "Email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fieldError("name", "Name is required")
	}
	if err := checkPasswordStrength("password", req.Password); err != nil {
		return nil, err
	}

	role := enums.UserRoleCitizen
	if req.Role != nil {
		parsed, err := enums.ParseUserRole(strings.TrimSpace(*req.Role))
		if err != nil {
			return nil, fieldError("role", "Role must be citizen or administrator")
		}
		role = parsed
	}
	if role == enums.UserRoleAdministrator && !s.allowAdmins {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Administrator sign-up is disabled").WithReason(ReasonAdminSignupDisabled)
	}

	var adminArea *string
	if role == enums.UserRoleAdministrator && req.AdminArea != nil {
		if area := strings.TrimSpace(*req.AdminArea); area != "" {
			adminArea = &area
		}
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, errUserExists()
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	now := s.now()
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Phone:        trimmed(req.Phone),
		Address:      trimmed(req.Address),
		Role:         role,
		AdminArea:    adminArea,
		Now:          now,
	})
	if err != nil {
		// lost a race with a concurrent registration for the same email
		if db.IsUniqueViolation(err, "") {
			return nil, errUserExists()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	return issueSession(s.jwtCfg, now, user)
}

func errUserExists() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "User already exists with this email").WithReason(ReasonUserExists)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
