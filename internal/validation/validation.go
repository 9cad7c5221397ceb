package validation

import (
	"fmt"
	"regexp"
	"strings"

	"readrise/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateFamilyCode checks if a family code is usable as a primary key
func ValidateFamilyCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ValidationError{Field: "family_code", Message: "family code is required"}
	}
	return nil
}

// ValidateReadingLevel checks the level against the fixed ordered set
func ValidateReadingLevel(level models.ReadingLevel) error {
	if !level.Valid() {
		return ValidationError{Field: "reading_level", Message: fmt.Sprintf("unknown reading level %q", level)}
	}
	return nil
}

// ValidateLogEntry checks a reading log entry before it is stored
func ValidateLogEntry(title string, minutes, pages int, mood models.Mood) error {
	if strings.TrimSpace(title) == "" {
		return ValidationError{Field: "title", Message: "title is required"}
	}
	if minutes < 0 {
		return ValidationError{Field: "minutes", Message: "minutes cannot be negative"}
	}
	if pages < 0 {
		return ValidationError{Field: "pages", Message: "pages cannot be negative"}
	}
	if !mood.Valid() {
		return ValidationError{Field: "mood", Message: fmt.Sprintf("unknown mood %q", mood)}
	}
	return nil
}
