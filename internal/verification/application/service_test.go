package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"paygate/internal/verification/application"
	"paygate/internal/verification/domain"
	"paygate/internal/verification/infrastructure/mail"
	"paygate/internal/verification/infrastructure/memory"
)

type brokenMailer struct{}

func (brokenMailer) Send(context.Context, domain.Message) error { return errors.New("smtp down") }

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	outbox  *mail.Outbox
	store   *memory.Store
	service *application.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s.outbox = mail.NewOutbox(nil)
	s.store = memory.NewStore()
	s.service = application.NewService(s.store, memory.NewRateLimiter(3, time.Hour), s.outbox, application.Config{
		CodeTTL:     10 * time.Minute,
		MaxAttempts: 3,
	}).WithClock(func() time.Time { return s.now })
}

func (s *ServiceSuite) send(email string) (domain.ID, string) {
	id, err := s.service.Send(s.ctx, email, "application-42")
	s.Require().NoError(err)
	code, ok := s.outbox.LastCode("payer@example.com")
	s.Require().True(ok)
	return id, code
}

func (s *ServiceSuite) TestSendAndCheck() {
	id, code := s.send("Payer@Example.com")

	outcome, err := s.service.Check(s.ctx, id, code)
	s.Require().NoError(err)
	s.Equal(domain.OutcomeOK, outcome)

	ok, err := s.service.IsVerified(s.ctx, id, "application-42", "payer@example.com")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestCodeIsSingleUse() {
	id, code := s.send("payer@example.com")

	first, _ := s.service.Check(s.ctx, id, code)
	second, _ := s.service.Check(s.ctx, id, code)

	s.Equal(domain.OutcomeOK, first)
	s.Equal(domain.OutcomeVerificationNotFound, second)
}

func (s *ServiceSuite) TestStoresOnlyHash() {
	id, code := s.send("payer@example.com")

	v, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.NotEqual(code, v.CodeHash())
	s.Equal(domain.HashCode(code), v.CodeHash())
}

func (s *ServiceSuite) TestMismatchThenExhausted() {
	id, code := s.send("payer@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for range 3 {
		outcome, err := s.service.Check(s.ctx, id, wrong)
		s.Require().NoError(err)
		s.Equal(domain.OutcomeCodeMismatch, outcome)
	}
	outcome, err := s.service.Check(s.ctx, id, code)
	s.Require().NoError(err)
	s.Equal(domain.OutcomeCodeExpired, outcome)
}

func (s *ServiceSuite) TestExpiry() {
	id, code := s.send("payer@example.com")
	s.now = s.now.Add(10 * time.Minute)

	outcome, err := s.service.Check(s.ctx, id, code)

	s.Require().NoError(err)
	s.Equal(domain.OutcomeCodeExpired, outcome)
}

func (s *ServiceSuite) TestUnknownID() {
	outcome, err := s.service.Check(s.ctx, domain.NewID(), "123456")

	s.Require().NoError(err)
	s.Equal(domain.OutcomeVerificationNotFound, outcome)

	ok, err := s.service.IsVerified(s.ctx, domain.NewID(), "application-42", "")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestResendSupersedesPreviousCode() {
	firstID, firstCode := s.send("payer@example.com")
	secondID, secondCode := s.send("payer@example.com")

	s.NotEqual(firstID, secondID)
	outcome, _ := s.service.Check(s.ctx, firstID, firstCode)
	s.Equal(domain.OutcomeVerificationNotFound, outcome)
	outcome, _ = s.service.Check(s.ctx, secondID, secondCode)
	s.Equal(domain.OutcomeOK, outcome)
}

func (s *ServiceSuite) TestSendValidation() {
	_, err := s.service.Send(s.ctx, "not-an-email", "application-42")
	s.ErrorIs(err, domain.ErrInvalidEmail)

	_, err = s.service.Send(s.ctx, "payer@example.com", " ")
	s.ErrorIs(err, domain.ErrInvalidSubject)
	s.Empty(s.outbox.Messages())
}

func (s *ServiceSuite) TestSendRateLimited() {
	for range 3 {
		s.send("payer@example.com")
	}

	_, err := s.service.Send(s.ctx, "PAYER@example.com", "application-42")

	s.ErrorIs(err, domain.ErrRateLimited)
	s.Len(s.outbox.Messages(), 3)
}

func (s *ServiceSuite) TestSendDeliveryFailure() {
	service := application.NewService(memory.NewStore(), memory.NewRateLimiter(3, time.Hour), brokenMailer{}, application.Config{
		CodeTTL:     time.Minute,
		MaxAttempts: 3,
	})

	_, err := service.Send(s.ctx, "payer@example.com", "application-42")

	s.ErrorIs(err, domain.ErrDeliveryFailed)
}

func (s *ServiceSuite) TestIsVerifiedChecksBinding() {
	id, code := s.send("payer@example.com")

	ok, _ := s.service.IsVerified(s.ctx, id, "application-42", "payer@example.com")
	s.False(ok, "pending code is not a proof")

	_, _ = s.service.Check(s.ctx, id, code)

	ok, _ = s.service.IsVerified(s.ctx, id, "application-99", "payer@example.com")
	s.False(ok)
	ok, _ = s.service.IsVerified(s.ctx, id, "application-42", "other@example.com")
	s.False(ok)
	ok, _ = s.service.IsVerified(s.ctx, id, "application-42", "")
	s.False(ok, "a proof always names its email")
	ok, _ = s.service.IsVerified(s.ctx, id, "application-42", "Payer@Example.com")
	s.True(ok)
}
