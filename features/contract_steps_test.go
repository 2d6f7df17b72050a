package features

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/cucumber/godog"

	"paygate/internal/app"
	"paygate/internal/common/config"
)

type contractState struct {
	server   *httptest.Server
	stubs    *app.Stubs
	response *http.Response
}

func InitializeScenario(sc *godog.ScenarioContext) {
	state := &contractState{}

	sc.Step(`^the service is running$`, state.theServiceIsRunning)
	sc.Step(`^I request the health endpoint$`, state.iRequestTheHealthEndpoint)
	sc.Step(`^I request the ready endpoint$`, state.iRequestTheReadyEndpoint)
	sc.Step(`^I request checkout session "([^"]*)"$`, state.iRequestCheckoutSession)
	sc.Step(`^the response status should be (\d+)$`, state.theResponseStatusShouldBe)
	sc.Step(`^the response should carry a correlation ID$`, state.theResponseShouldCarryACorrelationID)

	sc.After(func(ctx context.Context, scenario *godog.Scenario, err error) (context.Context, error) {
		if state.server != nil {
			state.server.Close()
		}
		if state.stubs != nil {
			state.stubs.Close()
		}
		if state.response != nil {
			state.response.Body.Close()
		}
		return ctx, nil
	})
}

func (s *contractState) theServiceIsRunning() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	s.stubs, err = app.NewStubs(context.Background(), cfg)
	if err != nil {
		return err
	}
	s.server = httptest.NewServer(app.NewRouter(app.RouterDeps{
		Config:   cfg,
		Registry: app.NewRegistry(cfg, nil),
		Stubs:    s.stubs,
	}))
	return nil
}

func (s *contractState) get(path string) error {
	if s.server == nil {
		return fmt.Errorf("server not running")
	}
	resp, err := http.Get(s.server.URL + path)
	if err != nil {
		return fmt.Errorf("failed to request %s: %w", path, err)
	}
	if s.response != nil {
		s.response.Body.Close()
	}
	s.response = resp
	return nil
}

func (s *contractState) iRequestTheHealthEndpoint() error {
	return s.get("/health")
}

func (s *contractState) iRequestTheReadyEndpoint() error {
	return s.get("/ready")
}

func (s *contractState) iRequestCheckoutSession(id string) error {
	return s.get("/checkout/sessions/" + id)
}

func (s *contractState) theResponseStatusShouldBe(expected int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d", expected, s.response.StatusCode)
	}
	return nil
}

func (s *contractState) theResponseShouldCarryACorrelationID() error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.Header.Get(app.CorrelationHeader) == "" {
		return fmt.Errorf("missing %s header", app.CorrelationHeader)
	}
	return nil
}
