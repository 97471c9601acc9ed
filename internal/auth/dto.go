package auth

import "github.com/angelmondragon/civicpulse-backend/internal/users"

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name      string  `json:"name" validate:"required,trimmed,min=2,max=50"`
	Email     string  `json:"email" validate:"required,email,max=254"`
	Password  string  `json:"password" validate:"required,min=6,max=128,password"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=200"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=citizen administrator"`
	AdminArea *string `json:"adminArea,omitempty" validate:"omitempty,max=100"`
}

// LoginRequest captures credential payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token presented for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// UpdateProfileRequest lists the profile fields a user may change.
type UpdateProfileRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=200"`
}

// ChangePasswordRequest swaps the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=128,password"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	User         *users.UserDTO `json:"user"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
}

// RefreshResponse carries a newly minted access token. The refresh token is
// not rotated.
type RefreshResponse struct {
	Token string `json:"token"`
}
