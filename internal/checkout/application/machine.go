package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"paygate/internal/checkout/cardfield"
	"paygate/internal/checkout/domain"
	"paygate/internal/common/logging"
)

// Gateway operation names used in CallCompleted.
const (
	OpRequestCode   = "request_code"
	OpVerifyCode    = "verify_code"
	OpCreateIntent  = "create_intent"
	OpConfirmCard   = "confirm_card"
	OpConfirmLedger = "confirm_ledger"
)

// Dependencies are the collaborators a Machine drives.
type Dependencies struct {
	Verification domain.VerificationGateway
	Payments     domain.PaymentGateway
	Processor    domain.Processor
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Machine drives one checkout session. It serializes events, allows at most
// one outstanding gateway call, and ignores results that arrive after Discard.
//
// Key design decisions:
//   - Events illegal for the current phase are swallowed as *domain.ProtocolError
//   - The busy flag is derived from the in-flight call, not a separate phase
//   - VERIFIED advances to CHARGING without a payer action
type Machine struct {
	mu        sync.Mutex
	id        domain.SessionID
	session   *domain.Session
	card      *cardfield.Adapter
	deps      Dependencies
	observers []Observer
	inflight  bool
	// live is the liveness token captured by each call; empty once discarded.
	live string
}

// NewMachine wraps session. The session must not be shared with another Machine.
func NewMachine(session *domain.Session, deps Dependencies) *Machine {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	m := &Machine{
		id:      session.ID(),
		session: session,
		deps:    deps,
		live:    uuid.NewString(),
	}
	m.card = cardfield.NewAdapter(func(ctx context.Context, change cardfield.Change) error {
		return m.Dispatch(ctx, change.Event())
	})
	return m
}

// ID returns the session identifier.
func (m *Machine) ID() domain.SessionID {
	return m.id
}

// CardField returns the adapter the tokenization capability reports into.
func (m *Machine) CardField() *cardfield.Adapter {
	return m.card
}

// Subscribe registers an observer for the machine's output stream.
func (m *Machine) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Snapshot returns the current render model.
func (m *Machine) Snapshot() domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.session.Snapshot()
	snap.Busy = m.inflight
	return snap
}

// Phase returns the current phase.
func (m *Machine) Phase() domain.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Phase()
}

// Busy reports whether a gateway call is outstanding.
func (m *Machine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight
}

// Discard abandons the session. Later events are ignored, and so are results
// of calls still in flight.
func (m *Machine) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = ""
}

// Discarded reports whether Discard was called.
func (m *Machine) Discarded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live == ""
}

// Dispatch applies a payer event. The returned error is one of
// *domain.ValidationError, *domain.GatewayError, *domain.ProcessorError or
// *domain.ProtocolError; the first three are also reflected in the snapshot's
// last error, the last one leaves the session untouched.
func (m *Machine) Dispatch(ctx context.Context, ev domain.Event) error {
	ctx = logging.WithSessionID(ctx, m.id.String())

	switch e := ev.(type) {
	case domain.BrandChosen:
		return m.step(ctx, func(now time.Time) error {
			if err := m.admit(e.Name()); err != nil {
				return err
			}
			return m.session.ChooseBrand(e.Brand, now)
		})
	case domain.CardFieldChanged:
		return m.step(ctx, func(now time.Time) error {
			if err := m.admit(e.Name()); err != nil {
				return err
			}
			return m.session.ChangeCard(e.Detected, e.State, now)
		})
	case domain.ContinuePressed:
		return m.step(ctx, func(now time.Time) error {
			if err := m.admit(e.Name()); err != nil {
				return err
			}
			return m.session.Continue(now)
		})
	case domain.ResendRequested:
		return m.step(ctx, func(now time.Time) error {
			if err := m.admit(e.Name()); err != nil {
				return err
			}
			return m.session.RequestResend(now)
		})
	case domain.EmailSubmitted:
		return m.submitEmail(ctx, e)
	case domain.CodeSubmitted:
		return m.submitCode(ctx, e)
	}

	name := "unknown"
	if ev != nil {
		name = ev.Name()
	}
	return m.step(ctx, func(time.Time) error {
		return &domain.ProtocolError{Event: name, Phase: m.session.Phase(), Err: domain.ErrEventNotAllowed}
	})
}

func (m *Machine) submitEmail(ctx context.Context, e domain.EmailSubmitted) error {
	var (
		email   domain.Email
		subject domain.SubjectID
		token   string
	)
	if err := m.step(ctx, func(now time.Time) error {
		if err := m.admit(e.Name()); err != nil {
			return err
		}
		var err error
		if email, err = m.session.AcceptEmail(e.Email, now); err != nil {
			return err
		}
		subject = m.session.SubjectID()
		token = m.begin()
		return nil
	}); err != nil {
		return err
	}

	started := time.Now()
	id, callErr := m.deps.Verification.RequestCode(ctx, email, subject)
	m.called(ctx, OpRequestCode, callOutcome(callErr), time.Since(started))

	return m.step(ctx, func(now time.Time) error {
		if err := m.finish(token, "codeIssued"); err != nil {
			return err
		}
		if callErr != nil {
			message := requestCodeMessage(callErr)
			if err := m.session.CodeRequestFailed(message, now); err != nil {
				return err
			}
			return &domain.GatewayError{Message: message, Err: callErr}
		}
		return m.session.CodeIssued(email, id, now)
	})
}

func (m *Machine) submitCode(ctx context.Context, e domain.CodeSubmitted) error {
	var (
		code  domain.Code
		vid   domain.VerificationID
		token string
	)
	if err := m.step(ctx, func(now time.Time) error {
		if err := m.admit(e.Name()); err != nil {
			return err
		}
		var err error
		if code, vid, err = m.session.AcceptCode(e.Code, now); err != nil {
			return err
		}
		token = m.begin()
		return nil
	}); err != nil {
		return err
	}

	started := time.Now()
	outcome, callErr := m.deps.Verification.VerifyCode(ctx, vid, code)
	if callErr != nil {
		m.called(ctx, OpVerifyCode, callOutcome(callErr), time.Since(started))
	} else {
		m.called(ctx, OpVerifyCode, string(outcome), time.Since(started))
	}

	verified := false
	err := m.step(ctx, func(now time.Time) error {
		if callErr != nil || outcome != domain.VerifyOK {
			if err := m.finish(token, "codeRejected"); err != nil {
				return err
			}
			message, cause := domain.MsgInvalidCode, callErr
			if callErr != nil {
				message = domain.MsgTimedOut
			} else {
				cause = fmt.Errorf("verification outcome %s", outcome)
			}
			if err := m.session.CodeRejected(vid, message, now); err != nil {
				return err
			}
			return &domain.GatewayError{Message: message, Err: cause}
		}
		if err := m.check(token, "codeVerified"); err != nil {
			m.inflight = false
			return err
		}
		if err := m.session.CodeVerified(vid, now); err != nil {
			m.inflight = false
			return err
		}
		verified = true
		return nil
	})
	if !verified {
		return err
	}
	return m.charge(ctx, token)
}

// charge runs intent creation, processor confirmation and ledger confirmation
// as one step. The in-flight flag stays set from code verification until the
// session reaches SUCCEEDED or FAILED. The card charged is the token the
// session fixed at Continue.
func (m *Machine) charge(ctx context.Context, token string) error {
	var (
		req  domain.IntentRequest
		card domain.CardToken
	)
	if err := m.step(ctx, func(now time.Time) error {
		if err := m.check(token, "beginCharge"); err != nil {
			m.inflight = false
			return err
		}
		if err := m.session.BeginCharge(now); err != nil {
			m.inflight = false
			return err
		}
		req = domain.IntentRequest{
			SubjectID:      m.session.SubjectID(),
			Amount:         m.session.Amount(),
			Brand:          m.session.DeclaredBrand(),
			VerificationID: m.session.VerificationID(),
			Email:          m.session.Email(),
		}
		card = m.session.ChargeToken()
		return nil
	}); err != nil {
		return err
	}

	started := time.Now()
	intent, err := m.deps.Payments.CreateIntent(ctx, req)
	m.called(ctx, OpCreateIntent, callOutcome(err), time.Since(started))
	if err != nil {
		return m.fail(ctx, token, chargeFailureMessage(err), err)
	}

	if err := m.step(ctx, func(now time.Time) error {
		if err := m.check(token, "intentCreated"); err != nil {
			m.inflight = false
			return err
		}
		return m.session.RecordIntent(intent.ClientSecret, intent.ID, now)
	}); err != nil {
		return err
	}

	started = time.Now()
	result, err := m.deps.Processor.ConfirmCardPayment(ctx, intent.ClientSecret, card)
	if err != nil {
		m.called(ctx, OpConfirmCard, callOutcome(err), time.Since(started))
		return m.fail(ctx, token, domain.MsgTimedOut, err)
	}
	m.called(ctx, OpConfirmCard, string(result.Status), time.Since(started))
	if result.Status != domain.ChargeSucceeded {
		message := result.DeclineMessage
		if message == "" {
			message = domain.MsgPaymentFailed
		}
		return m.fail(ctx, token, message, fmt.Errorf("charge %s: %s", result.Status, result.DeclineCode))
	}

	intentID := result.PaymentIntentID
	if intentID == "" {
		intentID = intent.ID
	}
	started = time.Now()
	err = m.deps.Payments.ConfirmLedger(ctx, domain.LedgerConfirmation{
		SubjectID:       req.SubjectID,
		PaymentIntentID: intentID,
		Brand:           req.Brand,
		VerificationID:  req.VerificationID,
	})
	m.called(ctx, OpConfirmLedger, callOutcome(err), time.Since(started))
	if err != nil {
		return m.fail(ctx, token, chargeFailureMessage(err), err)
	}

	return m.step(ctx, func(now time.Time) error {
		if err := m.finish(token, "chargeSucceeded"); err != nil {
			return err
		}
		return m.session.Succeed(now)
	})
}

func (m *Machine) fail(ctx context.Context, token, message string, cause error) error {
	return m.step(ctx, func(now time.Time) error {
		if err := m.finish(token, "chargeFailed"); err != nil {
			return err
		}
		if err := m.session.Fail(message, now); err != nil {
			return err
		}
		return &domain.ProcessorError{Message: message, Err: cause}
	})
}

// admit rejects payer events on a discarded or busy session. Caller holds mu.
func (m *Machine) admit(event string) error {
	if m.live == "" {
		return &domain.ProtocolError{Event: event, Phase: m.session.Phase(), Err: domain.ErrSessionDiscarded}
	}
	if m.inflight {
		return &domain.ProtocolError{Event: event, Phase: m.session.Phase(), Err: domain.ErrSessionBusy}
	}
	return nil
}

// begin marks a call in flight and returns the liveness token to check on return. Caller holds mu.
func (m *Machine) begin() string {
	m.inflight = true
	return m.live
}

// check verifies the session is still the one the call was made for. Caller holds mu.
func (m *Machine) check(token, event string) error {
	if m.live == "" || m.live != token {
		return &domain.ProtocolError{Event: event, Phase: m.session.Phase(), Err: domain.ErrSessionDiscarded}
	}
	return nil
}

// finish clears the in-flight flag and checks liveness. Caller holds mu.
func (m *Machine) finish(token, event string) error {
	m.inflight = false
	return m.check(token, event)
}

// step runs fn under the session lock, then emits what changed.
func (m *Machine) step(ctx context.Context, fn func(now time.Time) error) error {
	m.mu.Lock()
	from := m.session.Phase()
	err := fn(m.deps.Clock())
	to := m.session.Phase()
	lastError := m.session.LastError()
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	if to != from {
		change := PhaseChange{SessionID: m.id, From: from, To: to, At: m.deps.Clock()}
		for _, o := range observers {
			o.PhaseChanged(ctx, change)
		}
	}

	var pErr *domain.ProtocolError
	switch {
	case errors.As(err, &pErr):
		ignored := EventIgnored{SessionID: m.id, Event: pErr.Event, Phase: pErr.Phase, Err: pErr.Err}
		for _, o := range observers {
			o.EventIgnored(ctx, ignored)
		}
	case err != nil:
		raised := ErrorRaised{SessionID: m.id, Phase: to, Message: lastError, Err: err}
		for _, o := range observers {
			o.ErrorRaised(ctx, raised)
		}
	}
	return err
}

func (m *Machine) called(ctx context.Context, operation, outcome string, d time.Duration) {
	m.mu.Lock()
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	call := CallCompleted{SessionID: m.id, Operation: operation, Outcome: outcome, Duration: d}
	for _, o := range observers {
		o.CallCompleted(ctx, call)
	}
}

func requestCodeMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrGatewayInvalidEmail):
		return domain.MsgInvalidEmail
	case errors.Is(err, domain.ErrGatewayRateLimited):
		return domain.MsgRateLimited
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return domain.MsgSendFailed
	default:
		return domain.MsgTimedOut
	}
}

func chargeFailureMessage(err error) string {
	if errors.Is(err, domain.ErrIntentRejected) || errors.Is(err, domain.ErrLedgerRejected) {
		return domain.MsgPaymentFailed
	}
	return domain.MsgTimedOut
}

func callOutcome(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
