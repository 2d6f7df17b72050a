package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"paygate/internal/common/types"
)

// Status is the processor state of an intent.
type Status string

const (
	StatusRequiresPaymentMethod Status = "requires_payment_method"
	StatusSucceeded             Status = "succeeded"
	StatusRequiresAction        Status = "requires_action"
	StatusFailed                Status = "failed"
)

// Brands accepted for intents.
var brands = map[string]bool{"visa": true, "mastercard": true}

// Intent is a charge intent bound to one subject, amount, brand and email proof.
type Intent struct {
	id              string
	clientSecret    string
	subjectID       string
	amount          types.Money
	brand           string
	verificationID  string
	email           string
	status          Status
	paymentMethod   string
	declineCode     string
	declineMessage  string
	ledgerConfirmed bool
	createdAt       time.Time
	updatedAt       time.Time
}

// NewIntent validates the request fields and creates an intent awaiting a payment method.
func NewIntent(subjectID string, amount types.Money, brand, verificationID, email string, now time.Time) (*Intent, error) {
	subjectID = strings.TrimSpace(subjectID)
	brand = strings.ToLower(strings.TrimSpace(brand))
	email = strings.ToLower(strings.TrimSpace(email))
	if subjectID == "" || verificationID == "" || email == "" || !amount.IsPositive() || !brands[brand] {
		return nil, ErrInvalidRequest
	}
	if _, err := types.ParseCurrency(amount.Currency.String()); err != nil {
		return nil, ErrInvalidRequest
	}
	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return &Intent{
		id:             id,
		clientSecret:   id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		subjectID:      subjectID,
		amount:         amount,
		brand:          brand,
		verificationID: verificationID,
		email:          email,
		status:         StatusRequiresPaymentMethod,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// Charge applies the processor's decision for paymentMethod. Only an intent
// awaiting a payment method changes; later calls return the recorded result.
func (i *Intent) Charge(paymentMethod string, decision Decision, now time.Time) {
	if i.status != StatusRequiresPaymentMethod {
		return
	}
	i.paymentMethod = paymentMethod
	i.status = decision.Status
	i.declineCode = decision.DeclineCode
	i.declineMessage = decision.DeclineMessage
	i.updatedAt = now
}

// ConfirmLedger records the charge when every binding matches a succeeded intent.
// Confirming twice is allowed.
func (i *Intent) ConfirmLedger(subjectID, brand, verificationID string, now time.Time) bool {
	if i.status != StatusSucceeded ||
		i.subjectID != subjectID ||
		!strings.EqualFold(i.brand, brand) ||
		i.verificationID != verificationID {
		return false
	}
	i.ledgerConfirmed = true
	i.updatedAt = now
	return true
}

// ID returns the intent identifier.
func (i *Intent) ID() string { return i.id }

// ClientSecret returns the secret handed to the payer's client.
func (i *Intent) ClientSecret() string { return i.clientSecret }

// SubjectID returns the subject being paid for.
func (i *Intent) SubjectID() string { return i.subjectID }

// Amount returns the charge amount.
func (i *Intent) Amount() types.Money { return i.amount }

// Brand returns the declared card network.
func (i *Intent) Brand() string { return i.brand }

// VerificationID returns the email proof backing the intent.
func (i *Intent) VerificationID() string { return i.verificationID }

// Email returns the verified email.
func (i *Intent) Email() string { return i.email }

// Status returns the processor state.
func (i *Intent) Status() Status { return i.status }

// PaymentMethod returns the token charged.
func (i *Intent) PaymentMethod() string { return i.paymentMethod }

// DeclineCode returns the processor decline code.
func (i *Intent) DeclineCode() string { return i.declineCode }

// DeclineMessage returns the payer-facing decline message.
func (i *Intent) DeclineMessage() string { return i.declineMessage }

// LedgerConfirmed reports whether the ledger recorded the charge.
func (i *Intent) LedgerConfirmed() bool { return i.ledgerConfirmed }

// CreatedAt returns the creation time.
func (i *Intent) CreatedAt() time.Time { return i.createdAt }
