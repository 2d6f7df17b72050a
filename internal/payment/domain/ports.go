package domain

import "context"

// Repository stores intents.
type Repository interface {
	Save(ctx context.Context, intent *Intent) error
	FindByID(ctx context.Context, id string) (*Intent, error)
	FindByClientSecret(ctx context.Context, secret string) (*Intent, error)
	// FindByVerificationID returns ErrIntentNotFound when no intent uses the proof.
	FindByVerificationID(ctx context.Context, verificationID string) (*Intent, error)
}

// ProofChecker confirms that a verification ID is a redeemed email proof.
type ProofChecker interface {
	IsVerified(ctx context.Context, verificationID, subjectID, email string) (bool, error)
}

// ProofCheckerFunc adapts a function to ProofChecker.
type ProofCheckerFunc func(ctx context.Context, verificationID, subjectID, email string) (bool, error)

// IsVerified calls f.
func (f ProofCheckerFunc) IsVerified(ctx context.Context, verificationID, subjectID, email string) (bool, error) {
	return f(ctx, verificationID, subjectID, email)
}
