package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"paygate/internal/checkout/domain"
	"paygate/internal/common/types"
)

// PaymentClient talks to the payment service for intents and ledger confirmation.
type PaymentClient struct {
	client
}

// NewPaymentClient returns a client for the service at baseURL.
func NewPaymentClient(baseURL string, httpClient *http.Client) *PaymentClient {
	return &PaymentClient{client: newClient(baseURL, httpClient)}
}

var _ domain.PaymentGateway = (*PaymentClient)(nil)

type intentRequest struct {
	SubjectID      string      `json:"subjectId"`
	Amount         types.Money `json:"amount"`
	Brand          string      `json:"brand"`
	VerificationID string      `json:"verificationId"`
	Email          string      `json:"email"`
}

type intentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type confirmRequest struct {
	SubjectID       string `json:"subjectId"`
	PaymentIntentID string `json:"paymentIntentId"`
	Brand           string `json:"brand"`
	VerificationID  string `json:"verificationId"`
}

type confirmResponse struct {
	OK bool `json:"ok"`
}

// CreateIntent asks for a charge intent. A 4xx answer is ErrIntentRejected.
func (c *PaymentClient) CreateIntent(ctx context.Context, req domain.IntentRequest) (domain.PaymentIntent, error) {
	var resp intentResponse
	err := c.post(ctx, "payment intent", "/payment/intent", intentRequest{
		SubjectID:      req.SubjectID.String(),
		Amount:         req.Amount,
		Brand:          req.Brand.String(),
		VerificationID: req.VerificationID.String(),
		Email:          req.Email.String(),
	}, &resp)
	if err != nil {
		return domain.PaymentIntent{}, rejectedOnClientError(err, domain.ErrIntentRejected)
	}
	if resp.ClientSecret == "" {
		return domain.PaymentIntent{}, fmt.Errorf("%w: empty client secret", domain.ErrIntentRejected)
	}
	return domain.PaymentIntent{ID: resp.PaymentIntentID, ClientSecret: resp.ClientSecret}, nil
}

// ConfirmLedger records the charge with the ledger. Anything but ok=true is ErrLedgerRejected.
func (c *PaymentClient) ConfirmLedger(ctx context.Context, conf domain.LedgerConfirmation) error {
	var resp confirmResponse
	err := c.post(ctx, "payment confirm", "/payment/confirm", confirmRequest{
		SubjectID:       conf.SubjectID.String(),
		PaymentIntentID: conf.PaymentIntentID,
		Brand:           conf.Brand.String(),
		VerificationID:  conf.VerificationID.String(),
	}, &resp)
	if err != nil {
		return rejectedOnClientError(err, domain.ErrLedgerRejected)
	}
	if !resp.OK {
		return domain.ErrLedgerRejected
	}
	return nil
}

func rejectedOnClientError(err, rejected error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Status >= 400 && statusErr.Status < 500 {
		return fmt.Errorf("%w: %w", rejected, err)
	}
	return err
}
