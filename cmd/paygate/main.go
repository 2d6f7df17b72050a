package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paygate/internal/app"
	"paygate/internal/common/config"
	"paygate/internal/common/logging"
	"paygate/internal/common/types"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Generate correlation ID for startup
	startupCtx := logging.WithCorrelationID(context.Background(), types.NewCorrelationID())

	logging.InfoContext(startupCtx, "Starting paygate checkout",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"log_level", cfg.LogLevel,
		"stub_services", cfg.StubServices,
	)

	var stubs *app.Stubs
	if cfg.StubServices {
		stubs, err = app.NewStubs(startupCtx, cfg)
		if err != nil {
			logging.ErrorContext(startupCtx, "Failed to start stub services", "error", err)
			os.Exit(1)
		}
		defer stubs.Close()
	}

	registry := app.NewRegistry(cfg, nil)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go registry.Run(sweepCtx, cfg.SessionSweepInterval)

	logging.InfoContext(startupCtx, "Checkout context initialized",
		"verification_url", cfg.VerificationBaseURL,
		"payment_url", cfg.PaymentBaseURL,
		"processor_url", cfg.ProcessorBaseURL,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: app.NewRouter(app.RouterDeps{Config: cfg, Registry: registry, Stubs: stubs}),
		// The charge chain makes up to four gateway calls in one request.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 4*cfg.GatewayTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logging.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down server")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logging.Info("Server stopped")
}
