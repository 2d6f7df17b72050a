package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"paygate/internal/checkout/application"
	"paygate/internal/checkout/cardfield"
	"paygate/internal/checkout/domain"
	"paygate/internal/common/logging"
	"paygate/internal/common/types"
)

// Handler exposes checkout sessions over HTTP. Every payer intent is answered
// with the session snapshot, including intents the session ignored.
type Handler struct {
	registry *application.Registry
}

// NewHandler creates a new Handler.
func NewHandler(registry *application.Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes registers the checkout routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /checkout/sessions", h.CreateSession)
	mux.HandleFunc("GET /checkout/sessions/{id}", h.GetSession)
	mux.HandleFunc("DELETE /checkout/sessions/{id}", h.DiscardSession)
	mux.HandleFunc("POST /checkout/sessions/{id}/brand", h.ChooseBrand)
	mux.HandleFunc("POST /checkout/sessions/{id}/card", h.ChangeCard)
	mux.HandleFunc("POST /checkout/sessions/{id}/continue", h.Continue)
	mux.HandleFunc("POST /checkout/sessions/{id}/email", h.SubmitEmail)
	mux.HandleFunc("POST /checkout/sessions/{id}/code", h.SubmitCode)
	mux.HandleFunc("POST /checkout/sessions/{id}/resend", h.Resend)
	mux.HandleFunc("POST /checkout/sessions/{id}/retry", h.Retry)
}

// CreateSessionRequest is the JSON request body for starting a checkout.
type CreateSessionRequest struct {
	SubjectID string `json:"subject_id"`
	Amount    struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
}

// SessionResponse is the JSON rendering of a session.
type SessionResponse struct {
	domain.Snapshot
	// Ignored is set when the session swallowed the intent.
	Ignored bool `json:"ignored,omitempty"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChooseBrandRequest is the JSON request body for declaring a card network.
type ChooseBrandRequest struct {
	Brand string `json:"brand"`
}

// SubmitEmailRequest is the JSON request body for requesting a code.
type SubmitEmailRequest struct {
	Email string `json:"email"`
}

// SubmitCodeRequest is the JSON request body for redeeming a code.
type SubmitCodeRequest struct {
	Code string `json:"code"`
}

// CreateSession handles POST /checkout/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	subjectID, err := domain.ParseSubjectID(req.SubjectID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "subject_id is required")
		return
	}
	amount, err := types.NewPositiveFromString(req.Amount.Value, req.Amount.Currency)
	if err != nil {
		if errors.Is(err, types.ErrNonPositiveAmount) {
			writeError(w, http.StatusBadRequest, "amount must be positive")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	m, err := h.registry.Create(r.Context(), subjectID, amount)
	if err != nil {
		handleServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{Snapshot: m.Snapshot()})
}

// GetSession handles GET /checkout/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Snapshot: m.Snapshot()})
}

// DiscardSession handles DELETE /checkout/sessions/{id}.
func (h *Handler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSessionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := h.registry.Discard(r.Context(), id); err != nil {
		handleServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChooseBrand handles POST /checkout/sessions/{id}/brand.
func (h *Handler) ChooseBrand(w http.ResponseWriter, r *http.Request) {
	var req ChooseBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	brand, err := domain.ParseBrand(req.Brand)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported brand")
		return
	}
	h.dispatch(w, r, domain.BrandChosen{Brand: brand})
}

// ChangeCard handles POST /checkout/sessions/{id}/card. The body is the
// tokenization capability's change payload.
func (h *Handler) ChangeCard(w http.ResponseWriter, r *http.Request) {
	var req cardfield.RawChange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	ctx := logging.WithSessionID(context.WithoutCancel(r.Context()), m.ID().String())
	delivered, err := m.CardField().Observe(ctx, req)
	var pErr *domain.ProtocolError
	writeJSON(w, http.StatusOK, SessionResponse{Snapshot: m.Snapshot(), Ignored: !delivered || errors.As(err, &pErr)})
}

// Continue handles POST /checkout/sessions/{id}/continue.
func (h *Handler) Continue(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, domain.ContinuePressed{})
}

// SubmitEmail handles POST /checkout/sessions/{id}/email.
func (h *Handler) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	var req SubmitEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.dispatch(w, r, domain.EmailSubmitted{Email: req.Email})
}

// SubmitCode handles POST /checkout/sessions/{id}/code.
func (h *Handler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	var req SubmitCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.dispatch(w, r, domain.CodeSubmitted{Code: req.Code})
}

// Resend handles POST /checkout/sessions/{id}/resend.
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, domain.ResendRequested{})
}

// Retry handles POST /checkout/sessions/{id}/retry. It answers with a new session.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSessionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	m, err := h.registry.Retry(r.Context(), id)
	if err != nil {
		handleServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{Snapshot: m.Snapshot()})
}

// dispatch applies ev and renders the resulting snapshot. Gateway calls
// outlive a disconnected client so a charge is never cut off halfway.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, ev domain.Event) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	err := m.Dispatch(ctx, ev)

	var pErr *domain.ProtocolError
	writeJSON(w, http.StatusOK, SessionResponse{
		Snapshot: m.Snapshot(),
		Ignored:  errors.As(err, &pErr),
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*application.Machine, bool) {
	id, err := domain.ParseSessionID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	m, err := h.registry.Get(id)
	if err != nil {
		handleServiceError(r.Context(), w, err)
		return nil, false
	}
	return m, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrEventNotAllowed):
		writeError(w, http.StatusConflict, "not allowed in current phase")
	case errors.Is(err, domain.ErrEmptySubjectID):
		writeError(w, http.StatusBadRequest, "subject_id is required")
	case errors.Is(err, types.ErrNonPositiveAmount):
		writeError(w, http.StatusBadRequest, "amount must be positive")
	default:
		logging.ErrorContext(ctx, "Internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
