package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenService issues and verifies bearer tokens whose subject is the account email.
// Implemented by token.Service.
type TokenService interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Verify(token string) (string, error)
}

// PasswordHasher is implemented by password.Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
	NeedsRehash(digest string) bool
}

// PendingRegistration is an email that asked to sign up but has not chosen credentials yet.
type PendingRegistration struct {
	ID        string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// PasswordResetRequest binds an opaque id to a short-lived token for one account.
type PasswordResetRequest struct {
	ID        string
	AccountID uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// PendingRegistrationStore returns ErrPendingRegistrationNotFound for absent or expired records.
// Save replaces any live record for the same email in one step.
type PendingRegistrationStore interface {
	Save(ctx context.Context, p *PendingRegistration) error
	Get(ctx context.Context, id string) (*PendingRegistration, error)
	Consume(ctx context.Context, id string) (*PendingRegistration, error)
	DeleteByEmail(ctx context.Context, email string) (bool, error)
}

// PasswordResetStore returns ErrPasswordResetNotFound for absent or expired records.
// Save replaces any live record for the same account in one step.
type PasswordResetStore interface {
	Save(ctx context.Context, req *PasswordResetRequest) error
	Get(ctx context.Context, id string) (*PasswordResetRequest, error)
	Consume(ctx context.Context, id string) (*PasswordResetRequest, error)
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) (bool, error)
}
