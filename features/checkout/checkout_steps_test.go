package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/cucumber/godog"

	"paygate/internal/app"
	"paygate/internal/common/config"
)

type checkoutState struct {
	server     *httptest.Server
	stubs      *app.Stubs
	sessionID  string
	previousID string
	email      string
	remembered string
	status     int
	body       map[string]any
}

func InitializeCheckoutScenario(ctx *godog.ScenarioContext) {
	state := &checkoutState{}

	// Background steps
	ctx.Step(`^the checkout service is running$`, state.theCheckoutServiceIsRunning)
	ctx.Step(`^a checkout session for subject "([^"]*)" over ([0-9.]+) ([A-Z]{3})$`, state.aCheckoutSessionFor)

	// Payer intents
	ctx.Step(`^the payer chooses brand "([^"]*)"$`, state.thePayerChoosesBrand)
	ctx.Step(`^the card field reports a complete "([^"]*)" card with token "([^"]*)"$`, state.theCardFieldReportsACompleteCard)
	ctx.Step(`^the card field reports an incomplete "([^"]*)" card$`, state.theCardFieldReportsAnIncompleteCard)
	ctx.Step(`^the payer continues$`, state.thePayerContinues)
	ctx.Step(`^the payer submits email "([^"]*)"$`, state.thePayerSubmitsEmail)
	ctx.Step(`^the payer submits code "([^"]*)"$`, state.thePayerSubmitsCode)
	ctx.Step(`^the payer submits the code that was emailed$`, state.thePayerSubmitsTheEmailedCode)
	ctx.Step(`^the payer submits a wrong code$`, state.thePayerSubmitsAWrongCode)
	ctx.Step(`^the payer remembers the emailed code$`, state.thePayerRemembersTheEmailedCode)
	ctx.Step(`^the payer submits the remembered code$`, state.thePayerSubmitsTheRememberedCode)
	ctx.Step(`^the payer asks for a new code$`, state.thePayerAsksForANewCode)
	ctx.Step(`^the payer retries$`, state.thePayerRetries)
	ctx.Step(`^the payer abandons the session$`, state.thePayerAbandonsTheSession)
	ctx.Step(`^the payer has reached the code step with email "([^"]*)"$`, state.thePayerHasReachedTheCodeStep)
	ctx.Step(`^the payer has reached the code step with email "([^"]*)" using token "([^"]*)"$`, state.thePayerHasReachedTheCodeStepUsingToken)

	// Outcomes
	ctx.Step(`^the session phase should be "([^"]*)"$`, state.theSessionPhaseShouldBe)
	ctx.Step(`^the session error should be "([^"]*)"$`, state.theSessionErrorShouldBe)
	ctx.Step(`^the session should not be busy$`, state.theSessionShouldNotBeBusy)
	ctx.Step(`^the session should flag a brand mismatch$`, state.theSessionShouldFlagABrandMismatch)
	ctx.Step(`^the intent should be ignored$`, state.theIntentShouldBeIgnored)
	ctx.Step(`^the previous session should be gone$`, state.thePreviousSessionShouldBeGone)
	ctx.Step(`^the session should not be found$`, state.theSessionShouldNotBeFound)

	ctx.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if state.server != nil {
			state.server.Close()
		}
		if state.stubs != nil {
			state.stubs.Close()
		}
		return ctx, nil
	})
}

func (s *checkoutState) theCheckoutServiceIsRunning() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var handler http.Handler
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	cfg.VerificationBaseURL = s.server.URL
	cfg.PaymentBaseURL = s.server.URL
	cfg.ProcessorBaseURL = s.server.URL

	s.stubs, err = app.NewStubs(context.Background(), cfg)
	if err != nil {
		return err
	}
	registry := app.NewRegistry(cfg, s.server.Client())
	handler = app.NewRouter(app.RouterDeps{Config: cfg, Registry: registry, Stubs: s.stubs})
	return nil
}

func (s *checkoutState) do(method, path string, body any) error {
	raw := []byte("{}")
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, s.server.URL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	s.status = resp.StatusCode
	s.body = nil
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(&s.body)
}

func (s *checkoutState) session(action string, body any) error {
	path := "/checkout/sessions/" + s.sessionID
	if action != "" {
		path += "/" + action
	}
	if err := s.do(http.MethodPost, path, body); err != nil {
		return err
	}
	if s.status != http.StatusOK && s.status != http.StatusCreated {
		return fmt.Errorf("%s answered %d: %v", path, s.status, s.body)
	}
	return nil
}

func (s *checkoutState) aCheckoutSessionFor(subjectID, amount, currency string) error {
	if err := s.do(http.MethodPost, "/checkout/sessions", map[string]any{
		"subject_id": subjectID,
		"amount":     map[string]string{"value": amount, "currency": currency},
	}); err != nil {
		return err
	}
	if s.status != http.StatusCreated {
		return fmt.Errorf("expected status 201, got %d", s.status)
	}
	s.sessionID, _ = s.body["id"].(string)
	return nil
}

func (s *checkoutState) thePayerChoosesBrand(brand string) error {
	return s.session("brand", map[string]string{"brand": brand})
}

func (s *checkoutState) theCardFieldReportsACompleteCard(brand, token string) error {
	return s.session("card", map[string]any{"brand": brand, "complete": true, "token": token})
}

func (s *checkoutState) theCardFieldReportsAnIncompleteCard(brand string) error {
	return s.session("card", map[string]any{"brand": brand, "complete": false})
}

func (s *checkoutState) thePayerContinues() error {
	return s.session("continue", nil)
}

func (s *checkoutState) thePayerSubmitsEmail(email string) error {
	s.email = email
	return s.session("email", map[string]string{"email": email})
}

func (s *checkoutState) thePayerSubmitsCode(code string) error {
	return s.session("code", map[string]string{"code": code})
}

func (s *checkoutState) emailedCode() (string, error) {
	code, ok := s.stubs.Outbox.LastCode(s.email)
	if !ok {
		return "", fmt.Errorf("no code was emailed to %s", s.email)
	}
	return code, nil
}

func (s *checkoutState) thePayerSubmitsTheEmailedCode() error {
	code, err := s.emailedCode()
	if err != nil {
		return err
	}
	return s.thePayerSubmitsCode(code)
}

func (s *checkoutState) thePayerSubmitsAWrongCode() error {
	code, err := s.emailedCode()
	if err != nil {
		return err
	}
	return s.thePayerSubmitsCode(wrongCode(code))
}

func (s *checkoutState) thePayerRemembersTheEmailedCode() error {
	code, err := s.emailedCode()
	s.remembered = code
	return err
}

func (s *checkoutState) thePayerSubmitsTheRememberedCode() error {
	current, err := s.emailedCode()
	if err != nil {
		return err
	}
	code := s.remembered
	// A fresh code can repeat the old digits; the old verification is still superseded.
	if code == current {
		code = wrongCode(current)
	}
	return s.thePayerSubmitsCode(code)
}

func (s *checkoutState) thePayerAsksForANewCode() error {
	return s.session("resend", nil)
}

func (s *checkoutState) thePayerRetries() error {
	s.previousID = s.sessionID
	if err := s.session("retry", nil); err != nil {
		return err
	}
	s.sessionID, _ = s.body["id"].(string)
	return nil
}

func (s *checkoutState) thePayerAbandonsTheSession() error {
	if err := s.do(http.MethodDelete, "/checkout/sessions/"+s.sessionID, nil); err != nil {
		return err
	}
	if s.status != http.StatusNoContent {
		return fmt.Errorf("expected status 204, got %d", s.status)
	}
	return nil
}

func (s *checkoutState) thePayerHasReachedTheCodeStep(email string) error {
	return s.thePayerHasReachedTheCodeStepUsingToken(email, "tok_visa")
}

func (s *checkoutState) thePayerHasReachedTheCodeStepUsingToken(email, token string) error {
	steps := []func() error{
		func() error { return s.thePayerChoosesBrand("visa") },
		func() error { return s.theCardFieldReportsACompleteCard("visa", token) },
		s.thePayerContinues,
		func() error { return s.thePayerSubmitsEmail(email) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return s.theSessionPhaseShouldBe("AWAITING_CODE")
}

func (s *checkoutState) theSessionPhaseShouldBe(expected string) error {
	if phase := s.body["phase"]; phase != expected {
		return fmt.Errorf("expected phase %s, got %v (last_error %v)", expected, phase, s.body["last_error"])
	}
	return nil
}

func (s *checkoutState) theSessionErrorShouldBe(expected string) error {
	if got := s.body["last_error"]; got != expected {
		return fmt.Errorf("expected error %q, got %v", expected, got)
	}
	return nil
}

func (s *checkoutState) theSessionShouldNotBeBusy() error {
	if busy := s.body["busy"]; busy != false {
		return fmt.Errorf("expected session not busy, got %v", busy)
	}
	return nil
}

func (s *checkoutState) theSessionShouldFlagABrandMismatch() error {
	if mismatch := s.body["brand_mismatch"]; mismatch != true {
		return fmt.Errorf("expected brand mismatch, got %v", mismatch)
	}
	return nil
}

func (s *checkoutState) theIntentShouldBeIgnored() error {
	if ignored := s.body["ignored"]; ignored != true {
		return fmt.Errorf("expected intent to be ignored, got %v", ignored)
	}
	return nil
}

func (s *checkoutState) thePreviousSessionShouldBeGone() error {
	current := s.body
	defer func() { s.body = current }()
	if err := s.do(http.MethodGet, "/checkout/sessions/"+s.previousID, nil); err != nil {
		return err
	}
	if s.status != http.StatusNotFound {
		return fmt.Errorf("expected previous session to be gone, got %d", s.status)
	}
	return nil
}

func (s *checkoutState) theSessionShouldNotBeFound() error {
	if err := s.do(http.MethodGet, "/checkout/sessions/"+s.sessionID, nil); err != nil {
		return err
	}
	if s.status != http.StatusNotFound {
		return fmt.Errorf("expected status 404, got %d", s.status)
	}
	return nil
}

// wrongCode returns a six digit code that differs from code.
func wrongCode(code string) string {
	b := []byte(code)
	last := len(b) - 1
	if b[last] == '9' {
		b[last] = '0'
	} else {
		b[last]++
	}
	return string(b)
}
