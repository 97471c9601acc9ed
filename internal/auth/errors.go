package auth

import (
	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
	"github.com/angelmondragon/civicpulse-backend/pkg/types"
)

const (
	ReasonUserExists             = "USER_EXISTS"
	ReasonInvalidCredentials     = "INVALID_CREDENTIALS"
	ReasonAccountDeactivated     = "ACCOUNT_DEACTIVATED"
	ReasonInvalidRefreshToken    = "INVALID_REFRESH_TOKEN"
	ReasonAdminSignupDisabled    = "ADMIN_SIGNUP_DISABLED"
	ReasonInvalidCurrentPassword = "INVALID_CURRENT_PASSWORD"
	ReasonUserNotFound           = "USER_NOT_FOUND"
)

func errInvalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid email or password").WithReason(ReasonInvalidCredentials)
}

func errAccountDeactivated() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "Account is deactivated").WithReason(ReasonAccountDeactivated)
}

func errInvalidRefresh() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid refresh token").WithReason(ReasonInvalidRefreshToken)
}

func errUserNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "User not found").WithReason(ReasonUserNotFound)
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "Validation failed").
		WithDetails([]types.FieldError{{Field: field, Message: message}})
}
