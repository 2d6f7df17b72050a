package domain

import (
	"context"
	"time"
)

// Repository persists verifications.
type Repository interface {
	// Save inserts or updates v.
	Save(ctx context.Context, v *Verification) error
	// FindByID returns ErrNotFound when id is unknown.
	FindByID(ctx context.Context, id ID) (*Verification, error)
	// SupersedePending invalidates pending verifications for subjectID and email.
	SupersedePending(ctx context.Context, subjectID, email string) error
}

// RateLimiter counts events per key in a fixed window.
type RateLimiter interface {
	// Allow records one event for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

// Message is an outgoing code email.
type Message struct {
	To        string
	SubjectID string
	Code      string
	ExpiresAt time.Time
}

// Mailer delivers code emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
