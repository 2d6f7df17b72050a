package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// ID identifies one issued code.
type ID string

// NewID generates a new verification ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// String returns the string representation of ID.
func (id ID) String() string {
	return string(id)
}

// Status is the lifecycle state of a verification.
type Status string

const (
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusSuperseded Status = "superseded"
)

// Outcome is the answer to a code check.
type Outcome string

const (
	OutcomeOK                   Outcome = "ok"
	OutcomeCodeMismatch         Outcome = "CODE_MISMATCH"
	OutcomeCodeExpired          Outcome = "CODE_EXPIRED"
	OutcomeVerificationNotFound Outcome = "VERIFICATION_NOT_FOUND"
)

// NormalizeEmail trims and lowercases an address and validates its shape.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Verification is one emailed code (aggregate root).
// Invariants:
//   - the plain code is never retained, only its hash
//   - a code redeems at most once
//   - a code stops matching after expiresAt or maxAttempts wrong guesses
type Verification struct {
	id          ID
	subjectID   string
	email       string
	codeHash    string
	status      Status
	attempts    int
	maxAttempts int
	expiresAt   time.Time
	createdAt   time.Time
	verifiedAt  *time.Time
}

// NewVerification issues a verification for code. The caller delivers the
// plain code; it is hashed here and dropped.
func NewVerification(subjectID, email, code string, ttl time.Duration, maxAttempts int, now time.Time) (*Verification, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, ErrInvalidSubject
	}
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be positive, got %d", maxAttempts)
	}
	return &Verification{
		id:          NewID(),
		subjectID:   subjectID,
		email:       normalized,
		codeHash:    HashCode(code),
		status:      StatusPending,
		maxAttempts: maxAttempts,
		expiresAt:   now.Add(ttl),
		createdAt:   now,
	}, nil
}

// Restore rebuilds a verification from storage. It performs no validation.
func Restore(id ID, subjectID, email, codeHash string, status Status, attempts, maxAttempts int, expiresAt, createdAt time.Time, verifiedAt *time.Time) *Verification {
	return &Verification{
		id:          id,
		subjectID:   subjectID,
		email:       email,
		codeHash:    codeHash,
		status:      status,
		attempts:    attempts,
		maxAttempts: maxAttempts,
		expiresAt:   expiresAt,
		createdAt:   createdAt,
		verifiedAt:  verifiedAt,
	}
}

// Check redeems code. A redeemed or superseded verification answers as if it
// did not exist; an expired or exhausted one answers CODE_EXPIRED.
func (v *Verification) Check(code string, now time.Time) Outcome {
	if v.status != StatusPending {
		return OutcomeVerificationNotFound
	}
	if !now.Before(v.expiresAt) || v.attempts >= v.maxAttempts {
		return OutcomeCodeExpired
	}
	if !CodeMatches(code, v.codeHash) {
		v.attempts++
		return OutcomeCodeMismatch
	}
	v.status = StatusVerified
	v.verifiedAt = &now
	return OutcomeOK
}

// Supersede invalidates a pending verification when a newer code is issued.
func (v *Verification) Supersede() {
	if v.status == StatusPending {
		v.status = StatusSuperseded
	}
}

// Proves reports whether the verification is a redeemed proof for subjectID and email.
// The email must be the address the code was sent to, ignoring case.
func (v *Verification) Proves(subjectID, email string) bool {
	if v.status != StatusVerified || v.subjectID != subjectID {
		return false
	}
	return email != "" && strings.EqualFold(v.email, email)
}

// ID returns the verification ID.
func (v *Verification) ID() ID { return v.id }

// SubjectID returns the subject the code was issued for.
func (v *Verification) SubjectID() string { return v.subjectID }

// Email returns the normalized address the code was sent to.
func (v *Verification) Email() string { return v.email }

// CodeHash returns the stored code hash.
func (v *Verification) CodeHash() string { return v.codeHash }

// Status returns the lifecycle state.
func (v *Verification) Status() Status { return v.status }

// Attempts returns the number of wrong guesses so far.
func (v *Verification) Attempts() int { return v.attempts }

// MaxAttempts returns the wrong-guess cap.
func (v *Verification) MaxAttempts() int { return v.maxAttempts }

// ExpiresAt returns the code expiry.
func (v *Verification) ExpiresAt() time.Time { return v.expiresAt }

// CreatedAt returns the issue time.
func (v *Verification) CreatedAt() time.Time { return v.createdAt }

// VerifiedAt returns the redemption time, if redeemed.
func (v *Verification) VerifiedAt() *time.Time { return v.verifiedAt }
