package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/account-service/internal/database"
)

// Repository handles account persistence with bun
type Repository struct {
	db  *bun.DB
	now func() time.Time
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Insert stores a new account. ID and timestamps are filled in when zero.
func (r *Repository) Insert(ctx context.Context, a *Account) error {
	now := r.now()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Role == "" {
		a.Role = RoleStandard
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	row := mapModelToDBAccount(a)

	_, err := r.db.NewInsert().
		Model(row).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// FindByID retrieves an account by ID
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail retrieves an account by email
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByUsername retrieves an account by username
func (r *Repository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *Repository) findOne(ctx context.Context, where string, arg any) (*Account, error) {
	row := new(database.Account)
	err := r.db.NewSelect().
		Model(row).
		Where(where, arg).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return mapDBAccountToModel(row), nil
}

// ApplyPartialUpdate writes the non-nil fields of u in a single UPDATE.
func (r *Repository) ApplyPartialUpdate(ctx context.Context, id uuid.UUID, u Update) (*Account, error) {
	if u.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	q := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("updated_at = ?", r.now()).
		Where("id = ?", id)

	if u.Email != nil {
		q = q.Set("email = ?", *u.Email)
	}
	if u.Role != nil {
		q = q.Set("role = ?", string(*u.Role))
	}
	if u.Disabled != nil {
		q = q.Set("disabled = ?", *u.Disabled)
	}
	if u.PasswordHash != nil {
		q = q.Set("password_hash = ?", *u.PasswordHash)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.FindByID(ctx, id)
}

// isUniqueViolation recognizes Postgres (23505) and SQLite unique-constraint failures.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

func mapModelToDBAccount(a *Account) *database.Account {
	return &database.Account{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Disabled:     a.Disabled,
		Role:         string(a.Role),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// mapDBAccountToModel converts database model to domain model
func mapDBAccountToModel(row *database.Account) *Account {
	return &Account{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Disabled:     row.Disabled,
		Role:         Role(row.Role),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
