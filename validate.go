package authclient

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidationResult is the outcome of a single field check. Message is empty
// when the input is valid.
type ValidationResult struct {
	IsValid bool
	Message string
}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const passwordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

func valid() ValidationResult {
	return ValidationResult{IsValid: true}
}

func invalid(message string) ValidationResult {
	return ValidationResult{Message: message}
}

// ValidateEmail checks that the input looks like local@domain.tld. It does
// not attempt full RFC 5322 parsing; the server is the final arbiter.
func ValidateEmail(email string) ValidationResult {
	if email == "" {
		return invalid("Email is required")
	}

	if !emailShape.MatchString(email) {
		return invalid("Please enter a valid email address")
	}

	return valid()
}

// ValidatePassword enforces the strength policy: minimum 8 characters, one
// uppercase letter, one number, one special character. Checks run in that
// order and the first failure wins.
func ValidatePassword(password string) ValidationResult {
	if password == "" {
		return invalid("Password is required")
	}

	if len(password) < 8 {
		return invalid("Password must be at least 8 characters")
	}

	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return invalid("Password must contain at least one uppercase letter")
	}

	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return invalid("Password must contain at least one number")
	}

	if !strings.ContainsAny(password, passwordSymbols) {
		return invalid("Password must contain at least one special character")
	}

	return valid()
}

// ValidateName rejects empty or whitespace-only values. The field label is
// included in the message, e.g. "First name is required".
func ValidateName(name, fieldLabel string) ValidationResult {
	if strings.TrimSpace(name) == "" {
		return invalid(fieldLabel + " is required")
	}

	return valid()
}

// ValidatePasswordConfirmation checks that the confirmation is present and
// matches the password.
func ValidatePasswordConfirmation(password, confirmation string) ValidationResult {
	if confirmation == "" {
		return invalid("Please confirm your password")
	}

	if password != confirmation {
		return invalid("Passwords do not match")
	}

	return valid()
}
