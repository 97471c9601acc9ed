package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/civicpulse-backend/internal/users"
	"github.com/angelmondragon/civicpulse-backend/pkg/db"
	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/google/uuid"
)

// ProfileService reads and edits the caller's own account.
type ProfileService interface {
	Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*users.UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
}

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch users.ProfilePatch, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error
}

type profileService struct {
	users  profileRepository
	hasher passwordHasher
	now    func() time.Time
}

// NewProfileService builds the profile service.
func NewProfileService(repo profileRepository, hasher passwordHasher) (ProfileService, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	return &profileService{users: repo, hasher: hasher, now: db.UTCNow}, nil
}

func (s *profileService) Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return users.FromModel(user), nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*users.UserDTO, error) {
	patch := users.ProfilePatch{Phone: req.Phone, Address: req.Address}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fieldError("name", "Name cannot be empty")
		}
		patch.Name = &name
	}

	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, userID, patch, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return s.Profile(ctx, userID)
}

func (s *profileService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "Current password is incorrect").WithReason(ReasonInvalidCurrentPassword)
	}
	if err := checkPasswordStrength("newPassword", req.NewPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

func (s *profileService) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errUserNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return user, nil
}
