package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/account-service/internal/apperr"
)

const (
	passwordResetPrefix = "password_reset"
	fieldAccountID      = "account_id"
	fieldToken          = "token"
)

var ErrPasswordResetNotFound = apperr.New(apperr.ErrNotFound, "password reset request not found or expired")

// PasswordResetRepository stores password reset requests in Redis, at most one per account.
type PasswordResetRepository struct {
	tickets *ticketStore
}

func NewPasswordResetRepository(client *redis.Client) *PasswordResetRepository {
	return &PasswordResetRepository{
		tickets: newTicketStore(client, passwordResetPrefix),
	}
}

func (r *PasswordResetRepository) Save(ctx context.Context, req *PasswordResetRequest) error {
	return r.tickets.save(ctx, req.ID, req.AccountID.String(), req.CreatedAt, req.ExpiresAt, map[string]any{
		fieldAccountID: req.AccountID.String(),
		fieldToken:     req.Token,
	})
}

func (r *PasswordResetRepository) Get(ctx context.Context, id string) (*PasswordResetRequest, error) {
	data, err := r.tickets.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPasswordResetRequest(id, data)
}

func (r *PasswordResetRepository) Consume(ctx context.Context, id string) (*PasswordResetRequest, error) {
	data, err := r.tickets.consume(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPasswordResetRequest(id, data)
}

func (r *PasswordResetRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return r.tickets.deleteByOwner(ctx, accountID.String())
}

func toPasswordResetRequest(id string, data map[string]string) (*PasswordResetRequest, error) {
	if data == nil {
		return nil, ErrPasswordResetNotFound
	}

	accountID, err := uuid.Parse(data[fieldAccountID])
	if err != nil {
		return nil, fmt.Errorf("failed to parse account ID: %w", err)
	}

	return &PasswordResetRequest{
		ID:        id,
		AccountID: accountID,
		Token:     data[fieldToken],
		CreatedAt: parseMillis(data[fieldCreatedAt]),
		ExpiresAt: parseMillis(data[fieldExpiresAt]),
	}, nil
}
