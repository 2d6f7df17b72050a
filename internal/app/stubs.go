package app

import (
	"context"
	"fmt"
	"net/http"

	"paygate/internal/common/config"
	"paygate/internal/common/logging"
	paymentapi "paygate/internal/payment/api"
	paymentapp "paygate/internal/payment/application"
	paymentdomain "paygate/internal/payment/domain"
	paymentmemory "paygate/internal/payment/infrastructure/memory"
	verificationapi "paygate/internal/verification/api"
	verificationapp "paygate/internal/verification/application"
	verificationdomain "paygate/internal/verification/domain"
	"paygate/internal/verification/infrastructure/mail"
	verificationmemory "paygate/internal/verification/infrastructure/memory"
	verificationpg "paygate/internal/verification/infrastructure/postgres"
	verificationredis "paygate/internal/verification/infrastructure/redis"
)

// Stubs are the reference verification and payment services mounted next to
// checkout when no external deployment is configured.
type Stubs struct {
	Verification *verificationapp.Service
	Payments     *paymentapp.Service
	Outbox       *mail.Outbox

	checks  map[string]func(context.Context) error
	closers []func()
}

// NewStubs builds the stub services from cfg. Postgres and Redis are only
// dialed when the config selects them.
func NewStubs(ctx context.Context, cfg *config.Config) (*Stubs, error) {
	s := &Stubs{
		Outbox: mail.NewOutbox(mail.LogMailer{}),
		checks: make(map[string]func(context.Context) error),
	}

	var repo verificationdomain.Repository = verificationmemory.NewStore()
	if cfg.VerificationStore == "postgres" {
		pool, err := cfg.NewPostgresPool(ctx)
		if err != nil {
			return nil, fmt.Errorf("connecting verification store: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		s.checks["postgres"] = pool.Ping
		repo = verificationpg.NewStore(pool)
	}

	var limiter verificationdomain.RateLimiter = verificationmemory.NewRateLimiter(cfg.VerificationSendLimit, cfg.VerificationSendWindow)
	if cfg.RateLimitStore == "redis" {
		client, err := cfg.NewRedisClient(ctx)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connecting rate limiter: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		limiter = verificationredis.NewRateLimiter(client, cfg.VerificationSendLimit, cfg.VerificationSendWindow)
	}

	s.Verification = verificationapp.NewService(repo, limiter, s.Outbox, verificationapp.Config{
		CodeTTL:     cfg.VerificationCodeTTL,
		MaxAttempts: cfg.VerificationMaxAttempts,
	})

	proofs := paymentdomain.ProofCheckerFunc(func(ctx context.Context, verificationID, subjectID, email string) (bool, error) {
		return s.Verification.IsVerified(ctx, verificationdomain.ID(verificationID), subjectID, email)
	})
	s.Payments = paymentapp.NewService(paymentmemory.NewStore(), proofs, paymentdomain.NewProcessor(nil))

	logging.InfoContext(ctx, "Stub services initialized",
		"verification_store", cfg.VerificationStore,
		"rate_limit_store", cfg.RateLimitStore,
	)
	return s, nil
}

// RegisterRoutes mounts the stub endpoints. The dev code endpoint is only
// mounted when exposeCodes is set.
func (s *Stubs) RegisterRoutes(mux *http.ServeMux, exposeCodes bool) {
	var codes verificationapi.CodeReader
	if exposeCodes {
		codes = s.Outbox
	}
	verificationapi.NewHandler(s.Verification, codes).RegisterRoutes(mux)
	paymentapi.NewHandler(s.Payments).RegisterRoutes(mux)
}

// Check pings every backing store.
func (s *Stubs) Check(ctx context.Context) map[string]error {
	results := make(map[string]error, len(s.checks))
	for name, check := range s.checks {
		results[name] = check(ctx)
	}
	return results
}

// Close releases backing connections.
func (s *Stubs) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
