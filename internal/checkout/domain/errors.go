package domain

import (
	"errors"
	"fmt"
)

// Domain errors for the checkout context.
var (
	// ErrEventNotAllowed is returned when an event arrives in a phase that cannot accept it.
	ErrEventNotAllowed = errors.New("event not allowed in current phase")

	// ErrSessionBusy is returned when a gateway call is already outstanding for the session.
	ErrSessionBusy = errors.New("session has a call in flight")

	// ErrSessionDiscarded is returned for events on, or results for, a discarded session.
	ErrSessionDiscarded = errors.New("session discarded")

	// ErrSessionNotFound is returned when a session cannot be found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnsupportedBrand is returned when a declared brand is not visa or mastercard.
	ErrUnsupportedBrand = errors.New("unsupported card brand")

	// ErrEmptySubjectID is returned when a session is created without a subject.
	ErrEmptySubjectID = errors.New("subject_id is required")

	// ErrInvalidEmail is returned when an email does not have an RFC address shape.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidCodeFormat is returned when a code is not exactly 6 digits.
	ErrInvalidCodeFormat = errors.New("code must be 6 digits")

	// ErrCardIncomplete is returned when continuing without a complete card.
	ErrCardIncomplete = errors.New("card incomplete")
)

// User-facing messages. One generic message per failure category so that
// responses never reveal whether an email exists or how close a code was.
const (
	MsgCardIncomplete    = "card incomplete"
	MsgInvalidEmail      = "invalid email address"
	MsgInvalidCodeFormat = "code must be 6 digits"
	MsgInvalidCode       = "invalid or expired code"
	MsgRateLimited       = "too many codes requested, please wait and retry"
	MsgSendFailed        = "could not send code, please retry"
	MsgTimedOut          = "timed out, please retry"
	MsgPaymentFailed     = "payment could not be completed"
)

// ValidationError is a local rejection; no network call was made.
type ValidationError struct {
	Message string
	Err     error
}

// Error implements [error].
func (e *ValidationError) Error() string {
	return "validation: " + e.Message
}

// Unwrap returns the underlying sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// GatewayError is a send-code or verify-code failure. The owning phase stays
// active so the payer can retry.
type GatewayError struct {
	Message string
	Err     error
}

// Error implements [error].
func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway: %s: %v", e.Message, e.Err)
	}
	return "gateway: " + e.Message
}

// Unwrap returns the underlying cause.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ProcessorError is a charge failure. It is terminal for the session.
type ProcessorError struct {
	Message string
	Err     error
}

// Error implements [error].
func (e *ProcessorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("processor: %s: %v", e.Message, e.Err)
	}
	return "processor: " + e.Message
}

// Unwrap returns the underlying cause.
func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// ProtocolError records an event that the current phase cannot accept.
// It is logged and swallowed, never shown to the payer.
type ProtocolError struct {
	Event string
	Phase Phase
	Err   error
}

// Error implements [error].
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s in %s: %v", e.Event, e.Phase, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
