package account

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/redmonkez12/account-service/internal/apperr"
	"github.com/redmonkez12/account-service/internal/database"
)

func setupRepository(t *testing.T) *Repository {
	t.Helper()

	sqlDB, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(context.Background(), sqlDB, database.DialectSQLite))

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db)
}

func newAccount(username, email string) *Account {
	return &Account{
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA",
	}
}

func TestRepository_InsertAndFind(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	a := newAccount("longusername", "a@x.com")
	require.NoError(t, repo.Insert(ctx, a))

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, RoleStandard, a.Role)
	assert.False(t, a.CreatedAt.IsZero())

	byEmail, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.ID)
	assert.Equal(t, "longusername", byEmail.Username)
	assert.Equal(t, RoleStandard, byEmail.Role)
	assert.False(t, byEmail.Disabled)
	assert.Equal(t, a.PasswordHash, byEmail.PasswordHash)

	byUsername, err := repo.FindByUsername(ctx, "longusername")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byUsername.ID)

	byID, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)
}

func TestRepository_NotFound(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	_, err := repo.FindByEmail(ctx, "nouser@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = repo.FindByUsername(ctx, "nobodyhere")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.ApplyPartialUpdate(ctx, uuid.New(), Update{Disabled: ptr(true)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_InsertDuplicate(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, newAccount("longusername", "a@x.com")))

	err := repo.Insert(ctx, newAccount("longusername", "b@x.com"))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorIs(t, err, apperr.ErrDuplicateKey)

	err = repo.Insert(ctx, newAccount("otherusername", "a@x.com"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestRepository_ApplyPartialUpdate(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	a := newAccount("longusername", "a@x.com")
	require.NoError(t, repo.Insert(ctx, a))

	admin := RoleAdmin
	updated, err := repo.ApplyPartialUpdate(ctx, a.ID, Update{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, updated.Role)
	assert.Equal(t, "a@x.com", updated.Email, "absent fields are untouched")
	assert.Equal(t, a.PasswordHash, updated.PasswordHash)

	updated, err = repo.ApplyPartialUpdate(ctx, a.ID, Update{Email: ptr("new@x.com"), Disabled: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", updated.Email)
	assert.True(t, updated.Disabled)
	assert.Equal(t, RoleAdmin, updated.Role)

	updated, err = repo.ApplyPartialUpdate(ctx, a.ID, Update{PasswordHash: ptr("newhash")})
	require.NoError(t, err)
	assert.Equal(t, "newhash", updated.PasswordHash)

	unchanged, err := repo.ApplyPartialUpdate(ctx, a.ID, Update{})
	require.NoError(t, err)
	assert.Equal(t, updated.Email, unchanged.Email)
}

func TestRepository_UpdateToTakenEmail(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	first := newAccount("firstusername", "a@x.com")
	second := newAccount("secondusername", "b@x.com")
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))

	_, err := repo.ApplyPartialUpdate(ctx, second.ID, Update{Email: ptr("a@x.com")})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func ptr[T any](v T) *T {
	return &v
}
