package users

import (
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/db/models"
	"github.com/angelmondragon/civicpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Phone       *string        `json:"phone,omitempty"`
	Address     *string        `json:"address,omitempty"`
	Role        enums.UserRole `json:"role"`
	AdminArea   *string        `json:"adminArea,omitempty"`
	IsActive    bool           `json:"isActive"`
	LastLoginAt *time.Time     `json:"lastLogin,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// SummaryDTO is the compact user shape embedded in reports.
type SummaryDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        *string
	Address      *string
	Role         enums.UserRole
	AdminArea    *string
	Now          time.Time
}

// ProfilePatch lists the profile fields a user may change.
type ProfilePatch struct {
	Name    *string
	Phone   *string
	Address *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		Address:     u.Address,
		Role:        u.Role,
		AdminArea:   u.AdminArea,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// Summary returns the compact shape, or nil when u is nil.
func Summary(u *models.User, withEmail bool) *SummaryDTO {
	if u == nil {
		return nil
	}
	out := &SummaryDTO{ID: u.ID, Name: u.Name}
	if withEmail {
		out.Email = u.Email
	}
	return out
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleCitizen
	}
	now := c.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return &models.User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		Name:         c.Name,
		Phone:        c.Phone,
		Address:      c.Address,
		Role:         role,
		AdminArea:    c.AdminArea,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
