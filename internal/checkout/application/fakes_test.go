package application_test

import (
	"context"
	"fmt"
	"sync"

	"paygate/internal/checkout/application"
	"paygate/internal/checkout/domain"
)

type fakeVerification struct {
	mu        sync.Mutex
	requested []domain.Email
	verified  []domain.VerificationID
	requestFn func(n int) (domain.VerificationID, error)
	verifyFn  func(id domain.VerificationID, code domain.Code) (domain.VerifyOutcome, error)
	// entered and release make RequestCode block when non-nil.
	entered chan struct{}
	release chan struct{}
	// verifyEntered and verifyRelease do the same for VerifyCode.
	verifyEntered chan struct{}
	verifyRelease chan struct{}
}

func newFakeVerification() *fakeVerification {
	return &fakeVerification{
		verifyFn: func(_ domain.VerificationID, code domain.Code) (domain.VerifyOutcome, error) {
			if code == "123456" {
				return domain.VerifyOK, nil
			}
			return domain.VerifyCodeMismatch, nil
		},
	}
}

func (f *fakeVerification) RequestCode(_ context.Context, email domain.Email, _ domain.SubjectID) (domain.VerificationID, error) {
	f.mu.Lock()
	f.requested = append(f.requested, email)
	n := len(f.requested)
	fn := f.requestFn
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if fn != nil {
		return fn(n)
	}
	return domain.VerificationID(fmt.Sprintf("ver-%d", n)), nil
}

func (f *fakeVerification) VerifyCode(_ context.Context, id domain.VerificationID, code domain.Code) (domain.VerifyOutcome, error) {
	f.mu.Lock()
	f.verified = append(f.verified, id)
	f.mu.Unlock()

	if f.verifyEntered != nil {
		f.verifyEntered <- struct{}{}
		<-f.verifyRelease
	}
	return f.verifyFn(id, code)
}

func (f *fakeVerification) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requested)
}

func (f *fakeVerification) verifiedIDs() []domain.VerificationID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.VerificationID(nil), f.verified...)
}

type fakePayments struct {
	mu        sync.Mutex
	intents   []domain.IntentRequest
	ledger    []domain.LedgerConfirmation
	intentErr error
	ledgerErr error
	// entered and release make CreateIntent block when non-nil.
	entered chan struct{}
	release chan struct{}
}

func (f *fakePayments) CreateIntent(_ context.Context, req domain.IntentRequest) (domain.PaymentIntent, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, req)
	if f.intentErr != nil {
		return domain.PaymentIntent{}, f.intentErr
	}
	n := len(f.intents)
	return domain.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", n),
		ClientSecret: fmt.Sprintf("pi_%d_secret", n),
	}, nil
}

func (f *fakePayments) intentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.intents)
}

func (f *fakePayments) ConfirmLedger(_ context.Context, c domain.LedgerConfirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger = append(f.ledger, c)
	return f.ledgerErr
}

type fakeProcessor struct {
	mu      sync.Mutex
	charged []domain.CardToken
	result  *domain.ChargeResult
	err     error
}

func (f *fakeProcessor) ConfirmCardPayment(_ context.Context, clientSecret string, card domain.CardToken) (domain.ChargeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charged = append(f.charged, card)
	if f.err != nil {
		return domain.ChargeResult{}, f.err
	}
	if f.result != nil {
		return *f.result, nil
	}
	id := clientSecret[:len(clientSecret)-len("_secret")]
	return domain.ChargeResult{Status: domain.ChargeSucceeded, PaymentIntentID: id}, nil
}

// recorder collects the machine's output stream.
type recorder struct {
	mu      sync.Mutex
	changes []application.PhaseChange
	errors  []application.ErrorRaised
	ignored []application.EventIgnored
	calls   []application.CallCompleted
}

func (r *recorder) PhaseChanged(_ context.Context, c application.PhaseChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) ErrorRaised(_ context.Context, e application.ErrorRaised) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, e)
}

func (r *recorder) EventIgnored(_ context.Context, e application.EventIgnored) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ignored = append(r.ignored, e)
}

func (r *recorder) CallCompleted(_ context.Context, c application.CallCompleted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) phases() []domain.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Phase, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.To)
	}
	return out
}

func (r *recorder) operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.Operation)
	}
	return out
}
