package session

import "strings"

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// ValidationError is a form error caught before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidateLogin checks login form input.
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return &ValidationError{Message: "Please fill in all fields"}
	}
	return nil
}

// ValidateRegistration checks registration form input.
func ValidateRegistration(name, email, password, confirm string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" || confirm == "" {
		return &ValidationError{Message: "Please fill in all fields"}
	}
	if password != confirm {
		return &ValidationError{Message: "Passwords do not match"}
	}
	if len(password) < MinPasswordLength {
		return &ValidationError{Message: "Password must be at least 6 characters"}
	}
	return nil
}
