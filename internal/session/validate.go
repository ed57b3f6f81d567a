package session

import (
	"strings"
	"unicode"
)

// ValidationError is a client-side input problem that blocks submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

const minPasswordLength = 8

// ValidateCredentials checks login input.
func ValidateCredentials(email, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	return nil
}

// ValidateRegistration checks sign-up input, including the password rules the
// backend enforces so the user sees them before a round trip.
func ValidateRegistration(email, password, confirm, fullName string) error {
	if strings.TrimSpace(fullName) == "" {
		return &ValidationError{Field: "full_name", Message: "Full name is required"}
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	var hasDigit, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if !hasDigit {
		return &ValidationError{Field: "password", Message: "Password must contain at least one digit"}
	}
	if !hasUpper {
		return &ValidationError{Field: "password", Message: "Password must contain at least one uppercase letter"}
	}
	if password != confirm {
		return &ValidationError{Field: "confirm_password", Message: "Passwords do not match"}
	}
	return nil
}

func validateEmail(email string) error {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	at := strings.Index(trimmed, "@")
	if at <= 0 || at == len(trimmed)-1 || strings.ContainsAny(trimmed, " \t") {
		return &ValidationError{Field: "email", Message: "Enter a valid email address"}
	}
	return nil
}
