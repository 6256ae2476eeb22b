package account

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/redmonkez12/account-service/internal/apperr"
)

var (
	ErrNotFound        = apperr.New(apperr.ErrNotFound, "account not found")
	ErrDuplicate       = apperr.New(apperr.ErrDuplicateKey, "username or email already in use")
	ErrInvalidUsername = apperr.New(apperr.ErrValidation, "username must be 8 to 30 letters or digits")
)

const (
	UsernameMinLength = 8
	UsernameMaxLength = 30
)

// Store is the persistence contract used by the account flows.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	// Insert fails with ErrDuplicate when the username or email is taken.
	Insert(ctx context.Context, a *Account) error
	// ApplyPartialUpdate writes only the non-nil fields of u and returns the updated account.
	ApplyPartialUpdate(ctx context.Context, id uuid.UUID, u Update) (*Account, error)
}

// ValidateUsername accepts 8 to 30 ASCII letters or digits.
func ValidateUsername(username string) error {
	err := validation.Validate(username,
		validation.Required,
		validation.Length(UsernameMinLength, UsernameMaxLength),
		is.Alphanumeric,
	)
	if err != nil {
		return ErrInvalidUsername
	}
	return nil
}
