package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"paygate/internal/common/logging"
	"paygate/internal/common/types"
	"paygate/internal/payment/domain"
)

// Service creates intents, runs the simulated processor and confirms the ledger.
type Service struct {
	mu        sync.Mutex
	repo      domain.Repository
	proofs    domain.ProofChecker
	processor *domain.Processor
	nowF      func() time.Time
}

// NewService creates a new Service.
func NewService(repo domain.Repository, proofs domain.ProofChecker, processor *domain.Processor) *Service {
	return &Service{
		repo:      repo,
		proofs:    proofs,
		processor: processor,
		nowF:      time.Now,
	}
}

// CreateIntentRequest contains parameters for creating an intent.
type CreateIntentRequest struct {
	SubjectID      string
	Amount         types.Money
	Brand          string
	VerificationID string
	Email          string
}

// CreateIntent creates an intent once the verification proof checks out.
// A proof backs at most one intent.
func (s *Service) CreateIntent(ctx context.Context, req CreateIntentRequest) (*domain.Intent, error) {
	intent, err := domain.NewIntent(req.SubjectID, req.Amount, req.Brand, req.VerificationID, req.Email, s.nowF())
	if err != nil {
		return nil, err
	}

	verified, err := s.proofs.IsVerified(ctx, req.VerificationID, intent.SubjectID(), intent.Email())
	if err != nil {
		return nil, fmt.Errorf("checking verification: %w", err)
	}
	if !verified {
		logging.WarnContext(ctx, "Intent refused without verification proof",
			"subject_id", intent.SubjectID(),
			"verification_id", req.VerificationID,
		)
		return nil, domain.ErrVerificationRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.repo.FindByVerificationID(ctx, req.VerificationID); err == nil {
		return nil, domain.ErrProofAlreadyUsed
	} else if !errors.Is(err, domain.ErrIntentNotFound) {
		return nil, err
	}
	if err := s.repo.Save(ctx, intent); err != nil {
		return nil, err
	}

	logging.InfoContext(ctx, "Payment intent created",
		"payment_intent_id", intent.ID(),
		"subject_id", intent.SubjectID(),
		"amount", intent.Amount().String(),
	)
	return intent, nil
}

// ConfirmPayment charges paymentMethod against the intent identified by clientSecret.
func (s *Service) ConfirmPayment(ctx context.Context, clientSecret, paymentMethod string) (*domain.Intent, error) {
	if paymentMethod == "" {
		return nil, domain.ErrMissingPaymentMethod
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	intent, err := s.repo.FindByClientSecret(ctx, clientSecret)
	if err != nil {
		return nil, err
	}
	intent.Charge(paymentMethod, s.processor.Decide(paymentMethod, intent.Brand()), s.nowF())
	if err := s.repo.Save(ctx, intent); err != nil {
		return nil, err
	}

	if intent.Status() != domain.StatusSucceeded {
		logging.WarnContext(ctx, "Payment declined",
			"payment_intent_id", intent.ID(),
			"status", string(intent.Status()),
			"decline_code", intent.DeclineCode(),
		)
	}
	return intent, nil
}

// LedgerConfirmation contains the bindings the ledger checks before recording a charge.
type LedgerConfirmation struct {
	SubjectID       string
	PaymentIntentID string
	Brand           string
	VerificationID  string
}

// ConfirmLedger records a succeeded charge. It reports false when the intent
// is unknown, not succeeded, or bound to different values.
func (s *Service) ConfirmLedger(ctx context.Context, conf LedgerConfirmation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, err := s.repo.FindByID(ctx, conf.PaymentIntentID)
	if errors.Is(err, domain.ErrIntentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !intent.ConfirmLedger(conf.SubjectID, conf.Brand, conf.VerificationID, s.nowF()) {
		logging.WarnContext(ctx, "Ledger confirmation refused", "payment_intent_id", intent.ID())
		return false, nil
	}
	if err := s.repo.Save(ctx, intent); err != nil {
		return false, err
	}
	logging.InfoContext(ctx, "Ledger confirmed", "payment_intent_id", intent.ID())
	return true, nil
}
