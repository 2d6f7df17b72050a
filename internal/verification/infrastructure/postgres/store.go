// Package postgres stores verifications in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"paygate/internal/common/metrics"
	"paygate/internal/verification/domain"
)

// Store implements domain.Repository using PostgreSQL.
type Store struct {
	db Executor
}

// NewStore creates a new Store.
func NewStore(db Executor) *Store {
	return &Store{db: db}
}

var _ domain.Repository = (*Store)(nil)

// Save upserts v. Only mutable columns are updated on conflict.
func (s *Store) Save(ctx context.Context, v *domain.Verification) error {
	defer observe("verification_save", time.Now())

	_, err := s.db.Exec(ctx, `
		INSERT INTO verification.verifications (
			id, subject_id, email, code_hash, status,
			attempts, max_attempts, expires_at, created_at, verified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			verified_at = EXCLUDED.verified_at`,
		v.ID().String(),
		v.SubjectID(),
		v.Email(),
		v.CodeHash(),
		string(v.Status()),
		v.Attempts(),
		v.MaxAttempts(),
		v.ExpiresAt(),
		v.CreatedAt(),
		v.VerifiedAt(),
	)
	if err != nil {
		return fmt.Errorf("saving verification: %w", err)
	}
	return nil
}

// FindByID loads a verification by id.
func (s *Store) FindByID(ctx context.Context, id domain.ID) (*domain.Verification, error) {
	if _, err := uuid.Parse(id.String()); err != nil {
		return nil, domain.ErrNotFound
	}
	defer observe("verification_find", time.Now())

	var (
		rowID, subjectID, email, codeHash, status string
		attempts, maxAttempts                     int
		expiresAt, createdAt                      time.Time
		verifiedAt                                *time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT id::text, subject_id, email, code_hash, status,
			attempts, max_attempts, expires_at, created_at, verified_at
		FROM verification.verifications
		WHERE id = $1`,
		id.String(),
	).Scan(&rowID, &subjectID, &email, &codeHash, &status,
		&attempts, &maxAttempts, &expiresAt, &createdAt, &verifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding verification: %w", err)
	}
	return domain.Restore(domain.ID(rowID), subjectID, email, codeHash, domain.Status(status),
		attempts, maxAttempts, expiresAt, createdAt, verifiedAt), nil
}

// SupersedePending invalidates pending verifications for subjectID and email.
func (s *Store) SupersedePending(ctx context.Context, subjectID, email string) error {
	defer observe("verification_supersede", time.Now())

	_, err := s.db.Exec(ctx, `
		UPDATE verification.verifications
		SET status = 'superseded'
		WHERE subject_id = $1 AND email = $2 AND status = 'pending'`,
		subjectID, email,
	)
	if err != nil {
		return fmt.Errorf("superseding verifications: %w", err)
	}
	return nil
}

func observe(operation string, started time.Time) {
	metrics.RecordQueryDuration(operation, time.Since(started))
}
