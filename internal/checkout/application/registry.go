package application

import (
	"context"
	"sync"
	"time"

	"paygate/internal/checkout/domain"
	"paygate/internal/common/logging"
	"paygate/internal/common/metrics"
	"paygate/internal/common/types"
)

// terminalTTL bounds how long a SUCCEEDED or FAILED session stays readable.
const terminalTTL = time.Minute

// Registry holds the live checkout sessions of this process.
// Sessions are never persisted; they carry a live verification token.
type Registry struct {
	mu        sync.Mutex
	machines  map[string]*entry
	deps      Dependencies
	observers []Observer
	idleTTL   time.Duration
}

type entry struct {
	machine  *Machine
	lastSeen time.Time
}

// NewRegistry creates a registry. Sessions untouched for idleTTL are discarded by Sweep.
func NewRegistry(deps Dependencies, idleTTL time.Duration, observers ...Observer) *Registry {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Registry{
		machines:  make(map[string]*entry),
		deps:      deps,
		observers: observers,
		idleTTL:   idleTTL,
	}
}

// Create starts a new session in SELECT_BRAND.
func (r *Registry) Create(ctx context.Context, subjectID domain.SubjectID, amount types.Money) (*Machine, error) {
	now := r.deps.Clock()
	session, err := domain.NewSession(subjectID, amount, now)
	if err != nil {
		return nil, err
	}
	m := NewMachine(session, r.deps)
	for _, o := range r.observers {
		m.Subscribe(o)
	}

	r.mu.Lock()
	r.machines[m.ID().String()] = &entry{machine: m, lastSeen: now}
	count := len(r.machines)
	r.mu.Unlock()

	metrics.CheckoutSessionsActive.Set(float64(count))
	logging.InfoContext(logging.WithSessionID(ctx, m.ID().String()), "Checkout session created",
		"subject_id", subjectID.String(),
		"amount", amount.String(),
	)
	return m, nil
}

// Get returns the session and marks it as seen.
func (r *Registry) Get(id domain.SessionID) (*Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.machines[id.String()]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastSeen = r.deps.Clock()
	return e.machine, nil
}

// Discard abandons and forgets the session. Calls still in flight complete
// against the gateways but their results are dropped.
func (r *Registry) Discard(ctx context.Context, id domain.SessionID) error {
	r.mu.Lock()
	e, ok := r.machines[id.String()]
	if ok {
		delete(r.machines, id.String())
	}
	count := len(r.machines)
	r.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	e.machine.Discard()
	metrics.CheckoutSessionsActive.Set(float64(count))
	logging.InfoContext(logging.WithSessionID(ctx, id.String()), "Checkout session discarded")
	return nil
}

// Retry replaces a FAILED session with a fresh one for the same subject and amount.
// The new session needs a new verification and a new payment intent.
func (r *Registry) Retry(ctx context.Context, id domain.SessionID) (*Machine, error) {
	old, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if phase := old.Phase(); phase != domain.PhaseFailed {
		return nil, &domain.ProtocolError{Event: "retry", Phase: phase, Err: domain.ErrEventNotAllowed}
	}
	snap := old.Snapshot()
	m, err := r.Create(ctx, domain.SubjectID(snap.SubjectID), snap.Amount)
	if err != nil {
		return nil, err
	}
	if err := r.Discard(ctx, id); err != nil {
		return nil, err
	}
	return m, nil
}

// Sweep discards idle sessions and terminal sessions past their read window.
// It returns the number of sessions removed.
func (r *Registry) Sweep(ctx context.Context) int {
	now := r.deps.Clock()
	var expired []domain.SessionID

	r.mu.Lock()
	for _, e := range r.machines {
		idle := now.Sub(e.lastSeen)
		if idle >= r.idleTTL || (e.machine.Phase().IsTerminal() && idle >= terminalTTL) {
			expired = append(expired, e.machine.ID())
		}
	}
	r.mu.Unlock()

	removed := 0
	for _, id := range expired {
		if err := r.Discard(ctx, id); err == nil {
			removed++
		}
	}
	if removed > 0 {
		logging.DebugContext(ctx, "Swept checkout sessions", "removed", removed)
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}
