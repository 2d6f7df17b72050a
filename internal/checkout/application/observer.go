package application

import (
	"context"
	"time"

	"paygate/internal/checkout/domain"
)

// PhaseChange is emitted after every phase transition.
type PhaseChange struct {
	SessionID domain.SessionID
	From      domain.Phase
	To        domain.Phase
	At        time.Time
}

// ErrorRaised is emitted when a session's last error is set.
// Message is user-facing; Err is the internal cause and must not be rendered.
type ErrorRaised struct {
	SessionID domain.SessionID
	Phase     domain.Phase
	Message   string
	Err       error
}

// EventIgnored is emitted when the machine swallows an event.
type EventIgnored struct {
	SessionID domain.SessionID
	Event     string
	Phase     domain.Phase
	Err       error
}

// CallCompleted is emitted after every outbound gateway call.
type CallCompleted struct {
	SessionID domain.SessionID
	Operation string
	Outcome   string
	Duration  time.Duration
}

// Observer receives the machine's output stream. Callbacks run synchronously
// on the dispatching goroutine, outside the session lock.
type Observer interface {
	PhaseChanged(ctx context.Context, change PhaseChange)
	ErrorRaised(ctx context.Context, raised ErrorRaised)
	EventIgnored(ctx context.Context, ignored EventIgnored)
	CallCompleted(ctx context.Context, call CallCompleted)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	OnPhaseChange   func(context.Context, PhaseChange)
	OnError         func(context.Context, ErrorRaised)
	OnEventIgnored  func(context.Context, EventIgnored)
	OnCallCompleted func(context.Context, CallCompleted)
}

func (o ObserverFuncs) PhaseChanged(ctx context.Context, change PhaseChange) {
	if o.OnPhaseChange != nil {
		o.OnPhaseChange(ctx, change)
	}
}

func (o ObserverFuncs) ErrorRaised(ctx context.Context, raised ErrorRaised) {
	if o.OnError != nil {
		o.OnError(ctx, raised)
	}
}

func (o ObserverFuncs) EventIgnored(ctx context.Context, ignored EventIgnored) {
	if o.OnEventIgnored != nil {
		o.OnEventIgnored(ctx, ignored)
	}
}

func (o ObserverFuncs) CallCompleted(ctx context.Context, call CallCompleted) {
	if o.OnCallCompleted != nil {
		o.OnCallCompleted(ctx, call)
	}
}
