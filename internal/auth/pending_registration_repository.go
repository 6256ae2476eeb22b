package auth

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/account-service/internal/account"
	"github.com/redmonkez12/account-service/internal/apperr"
)

const (
	pendingRegistrationPrefix = "pending_registration"
	fieldEmail                = "email"
)

var ErrPendingRegistrationNotFound = apperr.New(apperr.ErrNotFound, "registration request not found or expired")

// PendingRegistrationRepository stores pending registrations in Redis, at most one per email.
type PendingRegistrationRepository struct {
	tickets *ticketStore
}

func NewPendingRegistrationRepository(client *redis.Client) *PendingRegistrationRepository {
	return &PendingRegistrationRepository{
		tickets: newTicketStore(client, pendingRegistrationPrefix),
	}
}

func (r *PendingRegistrationRepository) Save(ctx context.Context, p *PendingRegistration) error {
	email := account.NormalizeEmail(p.Email)
	return r.tickets.save(ctx, p.ID, email, p.CreatedAt, p.ExpiresAt, map[string]any{
		fieldEmail: email,
	})
}

func (r *PendingRegistrationRepository) Get(ctx context.Context, id string) (*PendingRegistration, error) {
	data, err := r.tickets.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPendingRegistration(id, data)
}

func (r *PendingRegistrationRepository) Consume(ctx context.Context, id string) (*PendingRegistration, error) {
	data, err := r.tickets.consume(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPendingRegistration(id, data)
}

func (r *PendingRegistrationRepository) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	return r.tickets.deleteByOwner(ctx, account.NormalizeEmail(email))
}

func toPendingRegistration(id string, data map[string]string) (*PendingRegistration, error) {
	if data == nil {
		return nil, ErrPendingRegistrationNotFound
	}
	return &PendingRegistration{
		ID:        id,
		Email:     data[fieldEmail],
		CreatedAt: parseMillis(data[fieldCreatedAt]),
		ExpiresAt: parseMillis(data[fieldExpiresAt]),
	}, nil
}
