package session

import (
	"fmt"
	"strings"
	"unicode"
)

// Registration is the field set submitted to the registration endpoint.
type Registration struct {
	Name            string
	Email           string
	Mobile          string
	Password        string
	PasswordConfirm string
}

// ValidateRegistration runs the client-side checks that must pass before any
// network call is issued.
func ValidateRegistration(reg Registration) error {
	if strings.TrimSpace(reg.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateEmail(reg.Email); err != nil {
		return err
	}
	if strings.TrimSpace(reg.Mobile) == "" {
		return fmt.Errorf("mobile number is required")
	}
	if reg.Password != reg.PasswordConfirm {
		return fmt.Errorf("password fields didn't match")
	}
	return ValidatePasswordStrength(reg.Password)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
