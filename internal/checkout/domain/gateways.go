package domain

import (
	"context"
	"errors"

	"paygate/internal/common/types"
)

// Verification gateway failures for RequestCode.
var (
	ErrGatewayInvalidEmail = errors.New("INVALID_EMAIL")
	ErrGatewayRateLimited  = errors.New("RATE_LIMITED")
	ErrGatewayUnavailable  = errors.New("SERVICE_ERROR")
)

// Payment gateway failures that are answers rather than transport errors.
var (
	ErrIntentRejected = errors.New("payment service rejected intent")
	ErrLedgerRejected = errors.New("ledger rejected confirmation")
)

// VerifyOutcome is the verification service's answer to a code check.
type VerifyOutcome string

const (
	VerifyOK                   VerifyOutcome = "ok"
	VerifyCodeMismatch         VerifyOutcome = "CODE_MISMATCH"
	VerifyCodeExpired          VerifyOutcome = "CODE_EXPIRED"
	VerifyVerificationNotFound VerifyOutcome = "VERIFICATION_NOT_FOUND"
)

// VerificationGateway issues and redeems email verification codes.
// The server owns code expiry and single-use redemption.
type VerificationGateway interface {
	// RequestCode sends a code to email for subjectID.
	// Fails with ErrGatewayInvalidEmail, ErrGatewayRateLimited or ErrGatewayUnavailable.
	RequestCode(ctx context.Context, email Email, subjectID SubjectID) (VerificationID, error)
	// VerifyCode checks code against id. A non-nil error means no answer was obtained.
	VerifyCode(ctx context.Context, id VerificationID, code Code) (VerifyOutcome, error)
}

// IntentRequest asks the payment service for a charge intent.
// VerificationID and Email are the server-side proof of email possession.
type IntentRequest struct {
	SubjectID      SubjectID
	Amount         types.Money
	Brand          Brand
	VerificationID VerificationID
	Email          Email
}

// PaymentIntent is a created charge intent.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// LedgerConfirmation is the authoritative server-side confirmation of a charge.
type LedgerConfirmation struct {
	SubjectID       SubjectID
	PaymentIntentID string
	Brand           Brand
	VerificationID  VerificationID
}

// PaymentGateway creates intents and confirms charges with the ledger.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (PaymentIntent, error)
	// ConfirmLedger returns ErrLedgerRejected when the ledger answers not ok.
	ConfirmLedger(ctx context.Context, confirmation LedgerConfirmation) error
}

// CardToken is an opaque tokenized card handle.
type CardToken string

// ChargeStatus is the processor's status for a confirmed intent.
type ChargeStatus string

const (
	ChargeSucceeded      ChargeStatus = "succeeded"
	ChargeRequiresAction ChargeStatus = "requires_action"
	ChargeFailed         ChargeStatus = "failed"
)

// ChargeResult is the processor's answer to a confirmation.
// DeclineCode is internal and never shown to the payer.
type ChargeResult struct {
	Status          ChargeStatus
	PaymentIntentID string
	DeclineCode     string
	DeclineMessage  string
}

// Processor confirms a tokenized card against an intent client secret.
type Processor interface {
	ConfirmCardPayment(ctx context.Context, clientSecret string, card CardToken) (ChargeResult, error)
}
