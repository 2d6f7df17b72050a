// Package memory keeps payment intents in process memory.
package memory

import (
	"context"
	"sync"

	"paygate/internal/payment/domain"
)

// Store is an in-memory domain.Repository. Callers serialize mutation of
// returned intents.
type Store struct {
	mu             sync.RWMutex
	byID           map[string]*domain.Intent
	bySecret       map[string]string
	byVerification map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byID:           make(map[string]*domain.Intent),
		bySecret:       make(map[string]string),
		byVerification: make(map[string]string),
	}
}

var _ domain.Repository = (*Store)(nil)

// Save stores intent and indexes it.
func (s *Store) Save(_ context.Context, intent *domain.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[intent.ID()] = intent
	s.bySecret[intent.ClientSecret()] = intent.ID()
	s.byVerification[intent.VerificationID()] = intent.ID()
	return nil
}

// FindByID returns the intent with id.
func (s *Store) FindByID(_ context.Context, id string) (*domain.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

// FindByClientSecret returns the intent issued with secret.
func (s *Store) FindByClientSecret(_ context.Context, secret string) (*domain.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(s.bySecret[secret])
}

// FindByVerificationID returns the intent backed by verificationID.
func (s *Store) FindByVerificationID(_ context.Context, verificationID string) (*domain.Intent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(s.byVerification[verificationID])
}

func (s *Store) get(id string) (*domain.Intent, error) {
	intent, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrIntentNotFound
	}
	return intent, nil
}
