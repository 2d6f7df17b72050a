package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Email is a validated, lowercased email address.
type Email string

// ParseEmail trims, lowercases and validates an email address shape.
func ParseEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if err := validate.Var(normalized, "required,email,max=254"); err != nil {
		return "", ErrInvalidEmail
	}
	return Email(normalized), nil
}

// String returns the string representation of Email.
func (e Email) String() string {
	return string(e)
}

// IsEmpty checks if the Email is empty.
func (e Email) IsEmpty() bool {
	return e == ""
}
