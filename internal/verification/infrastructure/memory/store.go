// Package memory provides in-memory verification storage and rate limiting
// for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"paygate/internal/verification/domain"
)

// Store is an in-memory domain.Repository.
type Store struct {
	mu            sync.RWMutex
	verifications map[domain.ID]*domain.Verification
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{verifications: make(map[domain.ID]*domain.Verification)}
}

var _ domain.Repository = (*Store)(nil)

// Save stores a copy of v.
func (s *Store) Save(_ context.Context, v *domain.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifications[v.ID()] = clone(v)
	return nil
}

// FindByID returns a copy of the stored verification.
func (s *Store) FindByID(_ context.Context, id domain.ID) (*domain.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.verifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(v), nil
}

// SupersedePending invalidates pending verifications for subjectID and email.
func (s *Store) SupersedePending(_ context.Context, subjectID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.verifications {
		if v.SubjectID() == subjectID && v.Email() == email {
			v.Supersede()
		}
	}
	return nil
}

func clone(v *domain.Verification) *domain.Verification {
	var verifiedAt *time.Time
	if v.VerifiedAt() != nil {
		t := *v.VerifiedAt()
		verifiedAt = &t
	}
	return domain.Restore(v.ID(), v.SubjectID(), v.Email(), v.CodeHash(), v.Status(),
		v.Attempts(), v.MaxAttempts(), v.ExpiresAt(), v.CreatedAt(), verifiedAt)
}
