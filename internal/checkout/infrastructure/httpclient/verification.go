package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"paygate/internal/checkout/domain"
)

// VerificationClient talks to the email verification service.
type VerificationClient struct {
	client
}

// NewVerificationClient returns a client for the service at baseURL.
// A nil httpClient gets DefaultTimeout.
func NewVerificationClient(baseURL string, httpClient *http.Client) *VerificationClient {
	return &VerificationClient{client: newClient(baseURL, httpClient)}
}

var _ domain.VerificationGateway = (*VerificationClient)(nil)

type sendRequest struct {
	Email     string `json:"email"`
	SubjectID string `json:"subjectId"`
}

type sendResponse struct {
	VerificationID string `json:"verificationId"`
}

type checkRequest struct {
	VerificationID string `json:"verificationId"`
	Code           string `json:"code"`
}

type checkResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// RequestCode asks the service to email a code.
func (c *VerificationClient) RequestCode(ctx context.Context, email domain.Email, subjectID domain.SubjectID) (domain.VerificationID, error) {
	var resp sendResponse
	err := c.post(ctx, "verification send", "/verification/send", sendRequest{
		Email:     email.String(),
		SubjectID: subjectID.String(),
	}, &resp)
	if err != nil {
		return "", classifySend(err)
	}
	if resp.VerificationID == "" {
		return "", fmt.Errorf("%w: empty verification id", domain.ErrGatewayUnavailable)
	}
	return domain.VerificationID(resp.VerificationID), nil
}

// VerifyCode checks code against id. Unknown reasons count as a mismatch.
func (c *VerificationClient) VerifyCode(ctx context.Context, id domain.VerificationID, code domain.Code) (domain.VerifyOutcome, error) {
	var resp checkResponse
	err := c.post(ctx, "verification check", "/verification/check", checkRequest{
		VerificationID: id.String(),
		Code:           code.String(),
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.OK {
		return domain.VerifyOK, nil
	}
	switch outcome := domain.VerifyOutcome(resp.Reason); outcome {
	case domain.VerifyCodeExpired, domain.VerifyVerificationNotFound, domain.VerifyCodeMismatch:
		return outcome, nil
	default:
		return domain.VerifyCodeMismatch, nil
	}
}

func classifySend(err error) error {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	switch {
	case statusErr.Code == "INVALID_EMAIL":
		return fmt.Errorf("%w: %w", domain.ErrGatewayInvalidEmail, err)
	case statusErr.Code == "RATE_LIMITED", statusErr.Status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrGatewayRateLimited, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrGatewayUnavailable, err)
	}
}
