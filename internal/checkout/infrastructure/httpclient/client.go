// Package httpclient implements the checkout gateways over HTTP JSON.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"paygate/internal/common/logging"
)

const (
	// DefaultTimeout bounds every gateway call when no timeout is configured.
	DefaultTimeout = 15 * time.Second

	maxErrorBody = 4 << 10
)

// StatusError is a non-2xx answer from a gateway.
type StatusError struct {
	Operation string
	Status    int
	Code      string
	Body      string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: status=%d code=%s", e.Operation, e.Status, e.Code)
	}
	return fmt.Sprintf("%s: status=%d body=%s", e.Operation, e.Status, e.Body)
}

// errorBody is the error envelope shared by the gateways.
type errorBody struct {
	Error string `json:"error"`
}

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, httpClient *http.Client) client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// post sends in as JSON and decodes a 2xx answer into out.
func (c client) post(ctx context.Context, operation, path string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := logging.CorrelationIDFromContext(ctx); !id.IsEmpty() {
		req.Header.Set("X-Correlation-ID", id.String())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Operation: operation, Status: resp.StatusCode, Body: string(body)}
		var envelope errorBody
		if json.Unmarshal(body, &envelope) == nil {
			statusErr.Code = envelope.Error
		}
		return statusErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}
