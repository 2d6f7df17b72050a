package memory

import (
	"context"
	"sync"
	"time"

	"paygate/internal/verification/domain"
)

// RateLimiter is a fixed-window counter held in process memory.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window
	nowF    func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter allows limit events per key in each window.
func NewRateLimiter(limit int, windowLen time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  windowLen,
		windows: make(map[string]*window),
		nowF:    time.Now,
	}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

// Allow records one event for key.
func (l *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowF()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.limit, nil
}
