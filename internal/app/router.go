// Package app assembles the paygate HTTP server from its bounded contexts.
package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"paygate/internal/checkout/api"
	"paygate/internal/checkout/application"
	"paygate/internal/checkout/infrastructure/httpclient"
	"paygate/internal/common/config"
	"paygate/internal/common/logging"
	"paygate/internal/common/metrics"
)

// NewRegistry builds the checkout session registry backed by HTTP gateways.
func NewRegistry(cfg *config.Config, client *http.Client) *application.Registry {
	if client == nil {
		client = &http.Client{Timeout: cfg.GatewayTimeout}
	}
	deps := application.Dependencies{
		Verification: httpclient.NewVerificationClient(cfg.VerificationBaseURL, client),
		Payments:     httpclient.NewPaymentClient(cfg.PaymentBaseURL, client),
		Processor:    httpclient.NewProcessorClient(cfg.ProcessorBaseURL, client),
	}
	return application.NewRegistry(deps, cfg.SessionIdleTTL,
		application.LoggingObserver{},
		application.MetricsObserver{},
	)
}

// RouterDeps contains everything the router mounts.
type RouterDeps struct {
	Config   *config.Config
	Registry *application.Registry
	// Stubs is nil when verification and payment run elsewhere.
	Stubs *Stubs
}

// NewRouter creates the HTTP handler with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(deps.Config, deps.Stubs))
	mux.Handle("GET /metrics", metrics.Handler())

	api.NewHandler(deps.Registry).RegisterRoutes(mux)
	if deps.Stubs != nil {
		deps.Stubs.RegisterRoutes(mux, deps.Config.IsDevelopment())
	}

	// Middleware chain: metrics -> correlation -> handler
	return metrics.Middleware(CorrelationMiddleware(deps.Config.RequestTimeout)(mux))
}

// healthHandler returns basic health status.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// readyHandler reports ready once every backing store answers a ping.
func readyHandler(cfg *config.Config, stubs *Stubs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		deps := map[string]string{}
		if stubs != nil {
			for name, err := range stubs.Check(ctx) {
				if err != nil {
					logging.WarnContext(ctx, "Dependency not ready", "dependency", name, "error", err)
					deps[name] = "unavailable"
					status, code = "not_ready", http.StatusServiceUnavailable
					continue
				}
				deps[name] = "ok"
			}
		}

		writeJSON(w, code, map[string]any{
			"status":       status,
			"environment":  cfg.Environment,
			"dependencies": deps,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", "error", err)
	}
}
