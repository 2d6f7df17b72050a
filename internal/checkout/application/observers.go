package application

import (
	"context"
	"errors"

	"paygate/internal/checkout/domain"
	"paygate/internal/common/logging"
	"paygate/internal/common/metrics"
)

// LoggingObserver writes the machine's output stream to the structured log.
type LoggingObserver struct{}

func (LoggingObserver) PhaseChanged(ctx context.Context, change PhaseChange) {
	logging.InfoContext(ctx, "Checkout phase changed",
		"session_id", change.SessionID.String(),
		"from", change.From.String(),
		"to", change.To.String(),
	)
}

func (LoggingObserver) ErrorRaised(ctx context.Context, raised ErrorRaised) {
	args := []any{
		"session_id", raised.SessionID.String(),
		"phase", raised.Phase.String(),
		"message", raised.Message,
	}
	if raised.Err != nil {
		args = append(args, "error", raised.Err)
	}
	var pErr *domain.ProcessorError
	if errors.As(raised.Err, &pErr) {
		logging.WarnContext(ctx, "Checkout charge failed", args...)
		return
	}
	logging.InfoContext(ctx, "Checkout error raised", args...)
}

func (LoggingObserver) EventIgnored(ctx context.Context, ignored EventIgnored) {
	logging.DebugContext(ctx, "Checkout event ignored",
		"session_id", ignored.SessionID.String(),
		"event", ignored.Event,
		"phase", ignored.Phase.String(),
		"reason", ignored.Err,
	)
}

func (LoggingObserver) CallCompleted(ctx context.Context, call CallCompleted) {
	logging.DebugContext(ctx, "Checkout gateway call completed",
		"session_id", call.SessionID.String(),
		"operation", call.Operation,
		"outcome", call.Outcome,
		"duration_ms", call.Duration.Milliseconds(),
	)
}

// MetricsObserver records the machine's output stream as Prometheus metrics.
type MetricsObserver struct{}

func (MetricsObserver) PhaseChanged(_ context.Context, change PhaseChange) {
	metrics.RecordPhaseTransition(change.From.String(), change.To.String())
}

func (MetricsObserver) ErrorRaised(context.Context, ErrorRaised) {}

func (MetricsObserver) EventIgnored(_ context.Context, ignored EventIgnored) {
	reason := "not_allowed"
	switch {
	case errors.Is(ignored.Err, domain.ErrSessionBusy):
		reason = "busy"
	case errors.Is(ignored.Err, domain.ErrSessionDiscarded):
		reason = "discarded"
	}
	metrics.RecordEventIgnored(ignored.Event, reason)
}

func (MetricsObserver) CallCompleted(_ context.Context, call CallCompleted) {
	metrics.RecordGatewayCall(call.Operation, call.Outcome, call.Duration)
}
