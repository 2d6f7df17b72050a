package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"paygate/internal/common/logging"
	"paygate/internal/common/metrics"
	"paygate/internal/verification/domain"
)

// Config holds the code policy.
type Config struct {
	CodeTTL     time.Duration
	MaxAttempts int
}

// Service issues and redeems emailed verification codes.
type Service struct {
	// checkMu serializes redemption so a code cannot be redeemed twice in this process.
	checkMu sync.Mutex
	repo    domain.Repository
	limiter domain.RateLimiter
	mailer  domain.Mailer
	cfg     Config
	nowF    func() time.Time
}

// NewService creates a new Service.
func NewService(repo domain.Repository, limiter domain.RateLimiter, mailer domain.Mailer, cfg Config) *Service {
	return &Service{
		repo:    repo,
		limiter: limiter,
		mailer:  mailer,
		cfg:     cfg,
		nowF:    time.Now,
	}
}

// WithClock replaces the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.nowF = now
	return s
}

// Send issues a fresh code for (subjectID, email), invalidating any code still
// pending for the pair, and emails it.
func (s *Service) Send(ctx context.Context, email, subjectID string) (domain.ID, error) {
	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(subjectID) == "" {
		return "", domain.ErrInvalidSubject
	}

	allowed, err := s.limiter.Allow(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("checking send rate: %w", err)
	}
	if !allowed {
		logging.WarnContext(ctx, "Verification send rate limited", "email", normalized)
		return "", domain.ErrRateLimited
	}

	code, err := domain.GenerateCode()
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	now := s.nowF()
	v, err := domain.NewVerification(subjectID, normalized, code, s.cfg.CodeTTL, s.cfg.MaxAttempts, now)
	if err != nil {
		return "", err
	}

	if err := s.repo.SupersedePending(ctx, v.SubjectID(), v.Email()); err != nil {
		return "", err
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return "", err
	}

	if err := s.mailer.Send(ctx, domain.Message{
		To:        v.Email(),
		SubjectID: v.SubjectID(),
		Code:      code,
		ExpiresAt: v.ExpiresAt(),
	}); err != nil {
		logging.ErrorContext(ctx, "Verification mail failed", "verification_id", v.ID().String(), "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}

	metrics.VerificationCodesSent.Inc()
	logging.InfoContext(ctx, "Verification code issued",
		"verification_id", v.ID().String(),
		"subject_id", v.SubjectID(),
	)
	return v.ID(), nil
}

// Check redeems code against id.
func (s *Service) Check(ctx context.Context, id domain.ID, code string) (domain.Outcome, error) {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()

	v, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.RecordVerificationCheck(string(domain.OutcomeVerificationNotFound))
		return domain.OutcomeVerificationNotFound, nil
	}
	if err != nil {
		return "", err
	}

	before := v.Status()
	attempts := v.Attempts()
	outcome := v.Check(code, s.nowF())
	if v.Status() != before || v.Attempts() != attempts {
		if err := s.repo.Save(ctx, v); err != nil {
			return "", err
		}
	}

	metrics.RecordVerificationCheck(string(outcome))
	logging.InfoContext(ctx, "Verification code checked",
		"verification_id", id.String(),
		"outcome", string(outcome),
	)
	return outcome, nil
}

// IsVerified reports whether id is a redeemed proof for subjectID and email.
func (s *Service) IsVerified(ctx context.Context, id domain.ID, subjectID, email string) (bool, error) {
	v, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v.Proves(subjectID, email), nil
}
