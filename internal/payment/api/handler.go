// Package api serves the payment and processor endpoints consumed by checkout.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"paygate/internal/common/logging"
	"paygate/internal/common/types"
	"paygate/internal/payment/application"
	"paygate/internal/payment/domain"
)

// Handler handles HTTP requests for the payment service and its processor.
type Handler struct {
	service *application.Service
}

// NewHandler creates a new Handler.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the payment routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /payment/intent", h.CreateIntent)
	mux.HandleFunc("POST /payment/confirm", h.ConfirmLedger)
	mux.HandleFunc("POST /processor/confirm", h.ConfirmPayment)
}

// CreateIntentRequest is the JSON request body for creating an intent.
type CreateIntentRequest struct {
	SubjectID      string      `json:"subjectId"`
	Amount         types.Money `json:"amount"`
	Brand          string      `json:"brand"`
	VerificationID string      `json:"verificationId"`
	Email          string      `json:"email"`
}

// CreateIntentResponse is the JSON response for a created intent.
type CreateIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// ConfirmLedgerRequest is the JSON request body for ledger confirmation.
type ConfirmLedgerRequest struct {
	SubjectID       string `json:"subjectId"`
	PaymentIntentID string `json:"paymentIntentId"`
	Brand           string `json:"brand"`
	VerificationID  string `json:"verificationId"`
}

// ConfirmLedgerResponse is the JSON response for ledger confirmation.
type ConfirmLedgerResponse struct {
	OK bool `json:"ok"`
}

// ConfirmPaymentRequest is the JSON request body for a processor charge.
type ConfirmPaymentRequest struct {
	ClientSecret  string `json:"clientSecret"`
	PaymentMethod string `json:"paymentMethod"`
}

// ConfirmPaymentResponse is the JSON response for a processor charge.
type ConfirmPaymentResponse struct {
	Status          string `json:"status"`
	PaymentIntentID string `json:"paymentIntentId"`
	DeclineCode     string `json:"declineCode,omitempty"`
	DeclineMessage  string `json:"declineMessage,omitempty"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateIntent handles POST /payment/intent.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	intent, err := h.service.CreateIntent(r.Context(), application.CreateIntentRequest{
		SubjectID:      req.SubjectID,
		Amount:         req.Amount,
		Brand:          req.Brand,
		VerificationID: req.VerificationID,
		Email:          req.Email,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateIntentResponse{
		ClientSecret:    intent.ClientSecret(),
		PaymentIntentID: intent.ID(),
	})
}

// ConfirmLedger handles POST /payment/confirm.
func (h *Handler) ConfirmLedger(w http.ResponseWriter, r *http.Request) {
	var req ConfirmLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	ok, err := h.service.ConfirmLedger(r.Context(), application.LedgerConfirmation{
		SubjectID:       req.SubjectID,
		PaymentIntentID: req.PaymentIntentID,
		Brand:           req.Brand,
		VerificationID:  req.VerificationID,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmLedgerResponse{OK: ok})
}

// ConfirmPayment handles POST /processor/confirm.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	intent, err := h.service.ConfirmPayment(r.Context(), req.ClientSecret, req.PaymentMethod)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmPaymentResponse{
		Status:          string(intent.Status()),
		PaymentIntentID: intent.ID(),
		DeclineCode:     intent.DeclineCode(),
		DeclineMessage:  intent.DeclineMessage(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, ErrorResponse{Error: code})
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrMissingPaymentMethod):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
	case errors.Is(err, domain.ErrVerificationRequired):
		writeError(w, http.StatusForbidden, "VERIFICATION_REQUIRED")
	case errors.Is(err, domain.ErrProofAlreadyUsed):
		writeError(w, http.StatusConflict, "VERIFICATION_ALREADY_USED")
	case errors.Is(err, domain.ErrIntentNotFound):
		writeError(w, http.StatusNotFound, "INTENT_NOT_FOUND")
	default:
		logging.ErrorContext(r.Context(), "Payment request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "SERVICE_ERROR")
	}
}
