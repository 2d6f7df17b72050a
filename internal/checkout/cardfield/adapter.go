// Package cardfield adapts the external card tokenization capability to the
// checkout session. Raw card data never passes through this package; it only
// sees brand detection, completeness, validity errors and an opaque token handle.
package cardfield

import (
	"context"
	"errors"
	"sync"

	"paygate/internal/checkout/domain"
)

// RawChange is a change payload as emitted by the tokenization capability.
type RawChange struct {
	Brand    string    `json:"brand"`
	Complete bool      `json:"complete"`
	Error    *RawError `json:"error,omitempty"`
	Token    string    `json:"token,omitempty"`
}

// RawError is the capability's validity error.
type RawError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Change is a normalized card field change.
type Change struct {
	Brand    domain.DetectedBrand
	Complete bool
	Err      string
	Token    domain.CardToken
}

// CardState converts the change into the session's card state.
func (c Change) CardState() domain.CardState {
	return domain.NewCardState(c.Complete, c.Err, c.Token)
}

// Event converts the change into a session event.
func (c Change) Event() domain.CardFieldChanged {
	return domain.CardFieldChanged{Detected: c.Brand, State: c.CardState()}
}

// Adapter normalizes capability changes and forwards each distinct change once.
// Brand match is not checked here; the declared brand remains authoritative.
type Adapter struct {
	// observe serializes Observe so the collapse check and the commit see the same last change.
	observe  sync.Mutex
	mu       sync.Mutex
	last     *Change
	onChange func(context.Context, Change) error
}

// NewAdapter returns an adapter that delivers changes to onChange. A change
// onChange refuses with a *domain.ProtocolError is not remembered, so the same
// field contents are delivered again later.
func NewAdapter(onChange func(context.Context, Change) error) *Adapter {
	return &Adapter{onChange: onChange}
}

// Observe ingests a capability change. It reports whether the change was
// delivered, along with the error onChange returned. A change identical to the
// last accepted one is collapsed.
func (a *Adapter) Observe(ctx context.Context, raw RawChange) (bool, error) {
	change := Change{
		Brand:    domain.DetectBrand(raw.Brand),
		Complete: raw.Complete,
	}
	if raw.Error != nil {
		change.Err = raw.Error.Message
		if change.Err == "" {
			change.Err = "card details are invalid"
		}
	}
	// A token only describes the field contents it was issued for.
	if change.Complete && change.Err == "" {
		change.Token = domain.CardToken(raw.Token)
	}

	a.observe.Lock()
	defer a.observe.Unlock()

	if last, ok := a.Last(); ok && last == change {
		return false, nil
	}

	var err error
	if a.onChange != nil {
		err = a.onChange(ctx, change)
	}
	var pErr *domain.ProtocolError
	if errors.As(err, &pErr) {
		return true, err
	}

	a.mu.Lock()
	a.last = &change
	a.mu.Unlock()
	return true, err
}

// Last returns the last accepted change.
func (a *Adapter) Last() (Change, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return Change{}, false
	}
	return *a.last, true
}
