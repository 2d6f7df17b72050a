// Package mail provides code mailers that do not leave the process.
package mail

import (
	"context"
	"sync"

	"paygate/internal/common/logging"
	"paygate/internal/verification/domain"
)

// LogMailer records that a code was sent without logging the code itself.
type LogMailer struct{}

// Send logs the delivery.
func (LogMailer) Send(ctx context.Context, msg domain.Message) error {
	logging.InfoContext(ctx, "Verification code sent",
		"to", msg.To,
		"subject_id", msg.SubjectID,
		"expires_at", msg.ExpiresAt,
	)
	return nil
}

// Outbox keeps sent messages in memory so development tools and tests can
// read the code back. Never use it in production.
type Outbox struct {
	mu       sync.RWMutex
	messages []domain.Message
	next     domain.Mailer
}

// NewOutbox creates an outbox that also forwards to next when non-nil.
func NewOutbox(next domain.Mailer) *Outbox {
	return &Outbox{next: next}
}

// Send stores msg and forwards it.
func (o *Outbox) Send(ctx context.Context, msg domain.Message) error {
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()
	if o.next != nil {
		return o.next.Send(ctx, msg)
	}
	return nil
}

// LastCode returns the most recent code sent to email.
func (o *Outbox) LastCode(email string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].To == email {
			return o.messages[i].Code, true
		}
	}
	return "", false
}

// Messages returns a copy of everything sent.
func (o *Outbox) Messages() []domain.Message {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]domain.Message(nil), o.messages...)
}

var (
	_ domain.Mailer = LogMailer{}
	_ domain.Mailer = (*Outbox)(nil)
)
