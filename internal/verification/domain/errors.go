package domain

import "errors"

var (
	// ErrInvalidEmail is returned when the address is not a deliverable shape.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidSubject is returned when the subject ID is blank.
	ErrInvalidSubject = errors.New("subject_id is required")
	// ErrRateLimited is returned when too many codes were sent to one address.
	ErrRateLimited = errors.New("too many codes requested")
	// ErrDeliveryFailed is returned when the mailer could not send the code.
	ErrDeliveryFailed = errors.New("code delivery failed")
	// ErrNotFound is returned when a verification does not exist.
	ErrNotFound = errors.New("verification not found")
)
