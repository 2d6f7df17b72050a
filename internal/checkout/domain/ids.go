package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptySessionID is returned when parsing an empty session ID.
var ErrEmptySessionID = errors.New("session_id cannot be empty")

// ErrInvalidSessionID is returned when parsing an invalid UUID format.
var ErrInvalidSessionID = errors.New("session_id: invalid uuid format")

// SessionID uniquely identifies a checkout session.
// It is a struct wrapper to prevent accidental type confusion at compile time.
type SessionID struct {
	value string
}

// NewSessionID generates a new unique SessionID.
func NewSessionID() SessionID {
	return SessionID{value: uuid.NewString()}
}

// ParseSessionID creates a SessionID from a string, validating UUID format.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, ErrEmptySessionID
	}
	if _, err := uuid.Parse(s); err != nil {
		return SessionID{}, fmt.Errorf("%w: %s", ErrInvalidSessionID, s)
	}
	return SessionID{value: s}, nil
}

// String returns the string representation of SessionID.
func (s SessionID) String() string {
	return s.value
}

// IsEmpty checks if the SessionID is empty.
func (s SessionID) IsEmpty() bool {
	return s.value == ""
}

// SubjectID identifies the thing being paid for, such as a rental application.
type SubjectID string

// ParseSubjectID validates that a subject ID is non-blank.
func ParseSubjectID(s string) (SubjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptySubjectID
	}
	return SubjectID(s), nil
}

// String returns the string representation of SubjectID.
func (s SubjectID) String() string {
	return string(s)
}

// VerificationID is the opaque token issued by the verification service for one code.
type VerificationID string

// String returns the string representation of VerificationID.
func (v VerificationID) String() string {
	return string(v)
}

// IsEmpty checks if the VerificationID is empty.
func (v VerificationID) IsEmpty() bool {
	return v == ""
}
