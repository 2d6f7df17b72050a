// Package api serves the verification endpoints consumed by checkout.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"paygate/internal/common/logging"
	"paygate/internal/verification/application"
	"paygate/internal/verification/domain"
)

// Error codes returned in the error envelope.
const (
	CodeInvalidEmail   = "INVALID_EMAIL"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeRateLimited    = "RATE_LIMITED"
	CodeServiceError   = "SERVICE_ERROR"
)

// CodeReader exposes sent codes for development tooling.
type CodeReader interface {
	LastCode(email string) (string, bool)
}

// Handler handles HTTP requests for the verification service.
type Handler struct {
	service *application.Service
	codes   CodeReader
}

// NewHandler creates a new Handler. codes may be nil; when set, a
// development endpoint returns the last code sent to an address.
func NewHandler(service *application.Service, codes CodeReader) *Handler {
	return &Handler{service: service, codes: codes}
}

// RegisterRoutes registers the verification routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /verification/send", h.Send)
	mux.HandleFunc("POST /verification/check", h.Check)
	if h.codes != nil {
		mux.HandleFunc("GET /dev/verification/code", h.LastCode)
	}
}

// SendRequest is the JSON request body for sending a code.
type SendRequest struct {
	Email     string `json:"email"`
	SubjectID string `json:"subjectId"`
}

// SendResponse is the JSON response for a sent code.
type SendResponse struct {
	VerificationID string `json:"verificationId"`
}

// CheckRequest is the JSON request body for checking a code.
type CheckRequest struct {
	VerificationID string `json:"verificationId"`
	Code           string `json:"code"`
}

// CheckResponse is the JSON response for a code check.
type CheckResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Send handles POST /verification/send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest)
		return
	}

	id, err := h.service.Send(r.Context(), req.Email, req.SubjectID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidEmail):
			writeError(w, http.StatusBadRequest, CodeInvalidEmail)
		case errors.Is(err, domain.ErrInvalidSubject):
			writeError(w, http.StatusBadRequest, CodeInvalidRequest)
		case errors.Is(err, domain.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, CodeRateLimited)
		case errors.Is(err, domain.ErrDeliveryFailed):
			writeError(w, http.StatusBadGateway, CodeServiceError)
		default:
			logging.ErrorContext(r.Context(), "Verification send failed", "error", err)
			writeError(w, http.StatusInternalServerError, CodeServiceError)
		}
		return
	}

	writeJSON(w, http.StatusOK, SendResponse{VerificationID: id.String()})
}

// Check handles POST /verification/check. Every well-formed check answers 200.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest)
		return
	}
	if req.VerificationID == "" {
		writeJSON(w, http.StatusOK, CheckResponse{Reason: string(domain.OutcomeVerificationNotFound)})
		return
	}

	outcome, err := h.service.Check(r.Context(), domain.ID(req.VerificationID), req.Code)
	if err != nil {
		logging.ErrorContext(r.Context(), "Verification check failed", "error", err)
		writeError(w, http.StatusInternalServerError, CodeServiceError)
		return
	}

	if outcome == domain.OutcomeOK {
		writeJSON(w, http.StatusOK, CheckResponse{OK: true})
		return
	}
	writeJSON(w, http.StatusOK, CheckResponse{Reason: string(outcome)})
}

// LastCode handles GET /dev/verification/code?email=.
func (h *Handler) LastCode(w http.ResponseWriter, r *http.Request) {
	email, err := domain.NormalizeEmail(r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidEmail)
		return
	}
	code, ok := h.codes.LastCode(email)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code, "note": "DEV MODE ONLY"})
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
