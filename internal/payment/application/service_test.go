package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"paygate/internal/common/types"
	"paygate/internal/payment/application"
	"paygate/internal/payment/domain"
	"paygate/internal/payment/infrastructure/memory"
)

type proof struct {
	subjectID, email string
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	proven  map[string]proof
	checked int
	service *application.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.checked = 0
	s.proven = map[string]proof{
		"ver-1": {"application-42", "payer@example.com"},
		"ver-2": {"application-42", "payer@example.com"},
	}
	proofs := domain.ProofCheckerFunc(func(_ context.Context, id, subjectID, email string) (bool, error) {
		s.checked++
		p, ok := s.proven[id]
		return ok && p.subjectID == subjectID && email != "" && strings.EqualFold(p.email, email), nil
	})
	s.service = application.NewService(memory.NewStore(), proofs, domain.NewProcessor(nil))
}

func (s *ServiceSuite) request(verificationID string) application.CreateIntentRequest {
	return application.CreateIntentRequest{
		SubjectID:      "application-42",
		Amount:         types.MustMoney("1250.00", "EUR"),
		Brand:          "visa",
		VerificationID: verificationID,
		Email:          "payer@example.com",
	}
}

func (s *ServiceSuite) TestHappyPath() {
	intent, err := s.service.CreateIntent(s.ctx, s.request("ver-1"))
	s.Require().NoError(err)

	charged, err := s.service.ConfirmPayment(s.ctx, intent.ClientSecret(), "tok_visa")
	s.Require().NoError(err)
	s.Equal(domain.StatusSucceeded, charged.Status())

	ok, err := s.service.ConfirmLedger(s.ctx, application.LedgerConfirmation{
		SubjectID:       "application-42",
		PaymentIntentID: intent.ID(),
		Brand:           "visa",
		VerificationID:  "ver-1",
	})
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestIntentRequiresProof() {
	_, err := s.service.CreateIntent(s.ctx, s.request("ver-unknown"))
	s.ErrorIs(err, domain.ErrVerificationRequired)

	req := s.request("ver-1")
	req.SubjectID = "application-99"
	_, err = s.service.CreateIntent(s.ctx, req)
	s.ErrorIs(err, domain.ErrVerificationRequired)
}

func (s *ServiceSuite) TestIntentRequiresEmail() {
	for _, email := range []string{"", "   "} {
		req := s.request("ver-1")
		req.Email = email

		_, err := s.service.CreateIntent(s.ctx, req)

		s.ErrorIs(err, domain.ErrInvalidRequest)
	}
	s.Zero(s.checked, "a request without email never reaches the proof check")
}

func (s *ServiceSuite) TestIntentEmailMustMatchProof() {
	req := s.request("ver-1")
	req.Email = "other@example.com"
	_, err := s.service.CreateIntent(s.ctx, req)
	s.ErrorIs(err, domain.ErrVerificationRequired)

	req.Email = "Payer@Example.com"
	intent, err := s.service.CreateIntent(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("payer@example.com", intent.Email())
}

func (s *ServiceSuite) TestProofBacksOneIntent() {
	_, err := s.service.CreateIntent(s.ctx, s.request("ver-1"))
	s.Require().NoError(err)

	_, err = s.service.CreateIntent(s.ctx, s.request("ver-1"))
	s.ErrorIs(err, domain.ErrProofAlreadyUsed)

	_, err = s.service.CreateIntent(s.ctx, s.request("ver-2"))
	s.NoError(err)
}

func (s *ServiceSuite) TestProofCheckerFailure() {
	service := application.NewService(memory.NewStore(), domain.ProofCheckerFunc(func(context.Context, string, string, string) (bool, error) {
		return false, errors.New("db down")
	}), domain.NewProcessor(nil))

	_, err := service.CreateIntent(s.ctx, s.request("ver-1"))

	s.Require().Error(err)
	s.NotErrorIs(err, domain.ErrVerificationRequired)
}

func (s *ServiceSuite) TestDeclineBlocksLedger() {
	intent, err := s.service.CreateIntent(s.ctx, s.request("ver-1"))
	s.Require().NoError(err)

	charged, err := s.service.ConfirmPayment(s.ctx, intent.ClientSecret(), "tok_chargeDeclined")
	s.Require().NoError(err)
	s.Equal(domain.StatusFailed, charged.Status())
	s.Equal("Your card was declined.", charged.DeclineMessage())

	again, err := s.service.ConfirmPayment(s.ctx, intent.ClientSecret(), "tok_visa")
	s.Require().NoError(err)
	s.Equal(domain.StatusFailed, again.Status(), "a failed intent is never retried")

	ok, err := s.service.ConfirmLedger(s.ctx, application.LedgerConfirmation{
		SubjectID:       "application-42",
		PaymentIntentID: intent.ID(),
		Brand:           "visa",
		VerificationID:  "ver-1",
	})
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestConfirmPaymentErrors() {
	_, err := s.service.ConfirmPayment(s.ctx, "pi_missing_secret", "tok_visa")
	s.ErrorIs(err, domain.ErrIntentNotFound)

	_, err = s.service.ConfirmPayment(s.ctx, "pi_missing_secret", "")
	s.ErrorIs(err, domain.ErrMissingPaymentMethod)
}

func (s *ServiceSuite) TestLedgerUnknownIntent() {
	ok, err := s.service.ConfirmLedger(s.ctx, application.LedgerConfirmation{PaymentIntentID: "pi_missing"})

	s.Require().NoError(err)
	s.False(ok)
}
