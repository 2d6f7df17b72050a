package domain

import "errors"

var (
	// ErrInvalidRequest is returned when an intent request is malformed.
	ErrInvalidRequest = errors.New("invalid intent request")
	// ErrVerificationRequired is returned when no redeemed email proof backs the intent.
	ErrVerificationRequired = errors.New("verification required")
	// ErrProofAlreadyUsed is returned when a verification already backs another intent.
	ErrProofAlreadyUsed = errors.New("verification already used")
	// ErrIntentNotFound is returned when an intent cannot be found.
	ErrIntentNotFound = errors.New("payment intent not found")
	// ErrMissingPaymentMethod is returned when a charge has no payment method.
	ErrMissingPaymentMethod = errors.New("payment method is required")
)
