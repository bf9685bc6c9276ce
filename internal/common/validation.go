package common

import (
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)
)

func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 50 {
		return ValidationError("username must be between 3 and 50 characters")
	}

	if !usernameRegex.MatchString(username) {
		return ValidationError("username can only contain letters, numbers, dots, dashes and underscores")
	}

	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 6 {
		return ValidationError("password must be at least 6 characters long")
	}

	if len(password) > 72 {
		return ValidationError("password must be at most 72 characters long")
	}

	return nil
}

func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ValidationError("email is required")
	}
	if !emailRegex.MatchString(email) {
		return ValidationError("invalid email format")
	}

	return nil
}

// NormalizeEmail is the form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
