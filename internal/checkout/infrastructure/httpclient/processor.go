package httpclient

import (
	"context"
	"net/http"

	"paygate/internal/checkout/domain"
)

// ProcessorClient confirms card payments with the payment processor.
type ProcessorClient struct {
	client
}

// NewProcessorClient returns a client for the processor at baseURL.
func NewProcessorClient(baseURL string, httpClient *http.Client) *ProcessorClient {
	return &ProcessorClient{client: newClient(baseURL, httpClient)}
}

var _ domain.Processor = (*ProcessorClient)(nil)

type processorRequest struct {
	ClientSecret  string `json:"clientSecret"`
	PaymentMethod string `json:"paymentMethod"`
}

type processorResponse struct {
	Status          string `json:"status"`
	PaymentIntentID string `json:"paymentIntentId"`
	DeclineCode     string `json:"declineCode,omitempty"`
	DeclineMessage  string `json:"declineMessage,omitempty"`
}

// ConfirmCardPayment charges the tokenized card against the intent's client secret.
func (c *ProcessorClient) ConfirmCardPayment(ctx context.Context, clientSecret string, card domain.CardToken) (domain.ChargeResult, error) {
	var resp processorResponse
	if err := c.post(ctx, "processor confirm", "/processor/confirm", processorRequest{
		ClientSecret:  clientSecret,
		PaymentMethod: string(card),
	}, &resp); err != nil {
		return domain.ChargeResult{}, err
	}
	return domain.ChargeResult{
		Status:          domain.ChargeStatus(resp.Status),
		PaymentIntentID: resp.PaymentIntentID,
		DeclineCode:     resp.DeclineCode,
		DeclineMessage:  resp.DeclineMessage,
	}, nil
}
