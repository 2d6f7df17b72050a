package domain

import (
	"time"

	"paygate/internal/common/types"
)

// Session is one checkout attempt (aggregate root).
// Invariants:
//   - phase only moves forward, except RequestResend (AWAITING_CODE -> AWAITING_EMAIL)
//   - a code is only accepted while a verification ID is held in AWAITING_CODE
//   - a payment intent is only recorded after a server-confirmed code match
//   - the email cannot change while a verification ID is held
//
// Sessions live in memory only; they carry a live verification token.
type Session struct {
	id                  SessionID
	subjectID           SubjectID
	amount              types.Money
	declaredBrand       Brand
	cardState           CardState
	chargeToken         CardToken
	detectedBrand       DetectedBrand
	email               Email
	verificationID      VerificationID
	paymentIntentSecret string
	paymentIntentID     string
	phase               Phase
	lastError           string
	createdAt           time.Time
	updatedAt           time.Time
}

// NewSession creates a session in SELECT_BRAND.
// The now parameter makes the function pure and testable.
func NewSession(subjectID SubjectID, amount types.Money, now time.Time) (*Session, error) {
	if subjectID == "" {
		return nil, ErrEmptySubjectID
	}
	if !amount.IsPositive() {
		return nil, types.ErrNonPositiveAmount
	}
	return &Session{
		id:            NewSessionID(),
		subjectID:     subjectID,
		amount:        amount,
		cardState:     CardState{Status: CardIncomplete},
		detectedBrand: DetectedUnknown,
		phase:         PhaseSelectBrand,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

func (s *Session) require(event string, phases ...Phase) error {
	for _, p := range phases {
		if s.phase == p {
			return nil
		}
	}
	return &ProtocolError{Event: event, Phase: s.phase, Err: ErrEventNotAllowed}
}

func (s *Session) moveTo(to Phase, now time.Time) {
	s.phase = to
	s.lastError = ""
	s.updatedAt = now
}

func (s *Session) reject(message string, now time.Time) {
	s.lastError = message
	s.updatedAt = now
}

// ChooseBrand fixes the declared brand and moves to ENTER_CARD.
func (s *Session) ChooseBrand(brand Brand, now time.Time) error {
	if err := s.require("brandChosen", PhaseSelectBrand); err != nil {
		return err
	}
	parsed, err := ParseBrand(string(brand))
	if err != nil {
		return &ValidationError{Message: err.Error(), Err: ErrUnsupportedBrand}
	}
	s.declaredBrand = parsed
	s.moveTo(PhaseEnterCard, now)
	return nil
}

// ChangeCard records a card field change. The detected brand is stored but
// never compared against the declared brand here.
func (s *Session) ChangeCard(detected DetectedBrand, state CardState, now time.Time) error {
	if err := s.require("cardFieldChanged", PhaseEnterCard); err != nil {
		return err
	}
	s.detectedBrand = detected
	s.cardState = state
	s.lastError = ""
	s.updatedAt = now
	return nil
}

// Continue moves to AWAITING_EMAIL when the card is complete and valid, and
// fixes the token that will be charged.
func (s *Session) Continue(now time.Time) error {
	if err := s.require("continuePressed", PhaseEnterCard); err != nil {
		return err
	}
	if !s.cardState.IsSubmittable() {
		s.reject(MsgCardIncomplete, now)
		return &ValidationError{Message: MsgCardIncomplete, Err: ErrCardIncomplete}
	}
	s.chargeToken = s.cardState.Token
	s.moveTo(PhaseAwaitingEmail, now)
	return nil
}

// AcceptEmail validates an email submission before a code is requested.
// The session phase does not change.
func (s *Session) AcceptEmail(raw string, now time.Time) (Email, error) {
	if err := s.require("emailSubmitted", PhaseAwaitingEmail); err != nil {
		return "", err
	}
	email, err := ParseEmail(raw)
	if err != nil {
		s.reject(MsgInvalidEmail, now)
		return "", &ValidationError{Message: MsgInvalidEmail, Err: err}
	}
	return email, nil
}

// CodeIssued records the verification ID returned for email and moves to AWAITING_CODE.
func (s *Session) CodeIssued(email Email, id VerificationID, now time.Time) error {
	if err := s.require("codeIssued", PhaseAwaitingEmail); err != nil {
		return err
	}
	if id.IsEmpty() {
		s.reject(MsgSendFailed, now)
		return &GatewayError{Message: MsgSendFailed}
	}
	s.email = email
	s.verificationID = id
	s.moveTo(PhaseAwaitingCode, now)
	return nil
}

// CodeRequestFailed keeps the session in AWAITING_EMAIL with a retryable error.
func (s *Session) CodeRequestFailed(message string, now time.Time) error {
	if err := s.require("codeRequestFailed", PhaseAwaitingEmail); err != nil {
		return err
	}
	s.reject(message, now)
	return nil
}

// AcceptCode validates a code submission and returns the verification ID it must be redeemed against.
func (s *Session) AcceptCode(raw string, now time.Time) (Code, VerificationID, error) {
	if err := s.require("codeSubmitted", PhaseAwaitingCode); err != nil {
		return "", "", err
	}
	if s.verificationID.IsEmpty() {
		return "", "", &ProtocolError{Event: "codeSubmitted", Phase: s.phase, Err: ErrEventNotAllowed}
	}
	code, err := ParseCode(raw)
	if err != nil {
		s.reject(MsgInvalidCodeFormat, now)
		return "", "", &ValidationError{Message: MsgInvalidCodeFormat, Err: err}
	}
	return code, s.verificationID, nil
}

// CodeVerified moves to VERIFIED after the server confirmed the code for id.
// A result for any verification ID other than the current one is stale.
func (s *Session) CodeVerified(id VerificationID, now time.Time) error {
	if err := s.requireCurrent("codeVerified", id); err != nil {
		return err
	}
	s.moveTo(PhaseVerified, now)
	return nil
}

// CodeRejected keeps the session in AWAITING_CODE with the verification ID preserved.
func (s *Session) CodeRejected(id VerificationID, message string, now time.Time) error {
	if err := s.requireCurrent("codeRejected", id); err != nil {
		return err
	}
	s.reject(message, now)
	return nil
}

func (s *Session) requireCurrent(event string, id VerificationID) error {
	if err := s.require(event, PhaseAwaitingCode); err != nil {
		return err
	}
	if id.IsEmpty() || id != s.verificationID {
		return &ProtocolError{Event: event, Phase: s.phase, Err: ErrEventNotAllowed}
	}
	return nil
}

// RequestResend drops the current verification ID and returns to AWAITING_EMAIL.
// This is the only backward transition.
func (s *Session) RequestResend(now time.Time) error {
	if err := s.require("resendRequested", PhaseAwaitingCode); err != nil {
		return err
	}
	s.verificationID = ""
	s.moveTo(PhaseAwaitingEmail, now)
	return nil
}

// BeginCharge moves VERIFIED to CHARGING.
func (s *Session) BeginCharge(now time.Time) error {
	if err := s.require("beginCharge", PhaseVerified); err != nil {
		return err
	}
	s.moveTo(PhaseCharging, now)
	return nil
}

// RecordIntent stores the payment intent created for this session.
func (s *Session) RecordIntent(clientSecret, intentID string, now time.Time) error {
	if err := s.require("intentCreated", PhaseCharging); err != nil {
		return err
	}
	s.paymentIntentSecret = clientSecret
	s.paymentIntentID = intentID
	s.updatedAt = now
	return nil
}

// Succeed moves CHARGING to SUCCEEDED once the ledger confirmed the charge.
func (s *Session) Succeed(now time.Time) error {
	if err := s.require("chargeSucceeded", PhaseCharging); err != nil {
		return err
	}
	s.moveTo(PhaseSucceeded, now)
	return nil
}

// Fail moves a charging session to FAILED. A failed session is never reset;
// retrying needs a new session and a new intent.
func (s *Session) Fail(message string, now time.Time) error {
	if err := s.require("chargeFailed", PhaseVerified, PhaseCharging); err != nil {
		return err
	}
	s.moveTo(PhaseFailed, now)
	s.lastError = message
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() SessionID { return s.id }

// SubjectID returns the identifier of the thing being paid for.
func (s *Session) SubjectID() SubjectID { return s.subjectID }

// Amount returns the charge amount.
func (s *Session) Amount() types.Money { return s.amount }

// DeclaredBrand returns the brand chosen in SELECT_BRAND.
func (s *Session) DeclaredBrand() Brand { return s.declaredBrand }

// CardState returns the last card field state.
func (s *Session) CardState() CardState { return s.cardState }

// ChargeToken returns the card token validated by Continue.
func (s *Session) ChargeToken() CardToken { return s.chargeToken }

// DetectedBrand returns the brand last detected by the card field.
func (s *Session) DetectedBrand() DetectedBrand { return s.detectedBrand }

// Email returns the email a code was last requested for.
func (s *Session) Email() Email { return s.email }

// VerificationID returns the live verification ID, if any.
func (s *Session) VerificationID() VerificationID { return s.verificationID }

// PaymentIntentSecret returns the client secret of the payment intent.
func (s *Session) PaymentIntentSecret() string { return s.paymentIntentSecret }

// PaymentIntentID returns the payment intent identifier.
func (s *Session) PaymentIntentID() string { return s.paymentIntentID }

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase }

// LastError returns the last user-facing error message.
func (s *Session) LastError() string { return s.lastError }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the time of the last change.
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// Snapshot is the render model of a session. It omits the verification ID
// and the intent secret.
type Snapshot struct {
	ID            string        `json:"id"`
	SubjectID     string        `json:"subject_id"`
	Amount        types.Money   `json:"amount"`
	Phase         Phase         `json:"phase"`
	DeclaredBrand Brand         `json:"declared_brand,omitempty"`
	DetectedBrand DetectedBrand `json:"detected_brand"`
	BrandMismatch bool          `json:"brand_mismatch"`
	CardStatus    CardStatus    `json:"card_status"`
	CardError     string        `json:"card_error,omitempty"`
	Email         string        `json:"email,omitempty"`
	AwaitingCode  bool          `json:"awaiting_code"`
	LastError     string        `json:"last_error,omitempty"`
	Busy          bool          `json:"busy"`
}

// Snapshot returns the render model of the session. Busy is filled in by the caller.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:            s.id.String(),
		SubjectID:     s.subjectID.String(),
		Amount:        s.amount,
		Phase:         s.phase,
		DeclaredBrand: s.declaredBrand,
		DetectedBrand: s.detectedBrand,
		BrandMismatch: s.declaredBrand != "" && s.detectedBrand != DetectedUnknown && !s.detectedBrand.Matches(s.declaredBrand),
		CardStatus:    s.cardState.Status,
		CardError:     s.cardState.Reason,
		Email:         s.email.String(),
		AwaitingCode:  s.phase == PhaseAwaitingCode && !s.verificationID.IsEmpty(),
		LastError:     s.lastError,
	}
}
