package auth

import "github.com/angelmondragon/civicpulse-backend/pkg/security"

const passwordRuleMessage = "Password must contain at least one uppercase letter, one lowercase letter, and one number"

// checkPasswordStrength backs up the request validator for callers that skip
// the HTTP layer.
func checkPasswordStrength(field, password string) error {
	if !security.PasswordStrong(password) {
		return fieldError(field, passwordRuleMessage)
	}
	if len(password) < 6 {
		return fieldError(field, "Password must be at least 6 characters long")
	}
	return nil
}
