package main

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/redmonkez12/account-service/internal/database"
	"github.com/redmonkez12/account-service/internal/password"
	"github.com/redmonkez12/account-service/internal/token"
)

func testDeps(t *testing.T) (deps, *token.Service) {
	t.Helper()

	tokens, err := token.NewService("cli-secret", "HS256")
	require.NoError(t, err)

	// a file so every command invocation sees the same schema
	dsn := filepath.Join(t.TempDir(), "accounts.db")

	d := deps{
		openDB: func() (*sql.DB, string, error) {
			db, err := sql.Open(sqliteshim.ShimName, dsn)
			if err != nil {
				return nil, "", err
			}
			db.SetMaxOpenConns(1)
			return db, database.DialectSQLite, nil
		},
		loadTokens:     func() (*token.Service, error) { return tokens, nil },
		hasher:         password.NewHasher(password.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}),
		isTerminal:     func() bool { return false },
		promptPassword: func(func(string) error) (string, error) { return "from-the-prompt", nil },
	}
	return d, tokens
}

func execute(t *testing.T, d deps, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(d)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestHashPassword_Stdin(t *testing.T) {
	d, _ := testDeps(t)

	out, _, err := execute(t, d, "correct-horse\n", "hash-password")
	require.NoError(t, err)

	digest := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$"))
	assert.True(t, d.hasher.Verify("correct-horse", digest))
}

func TestHashPassword_Prompt(t *testing.T) {
	d, _ := testDeps(t)
	d.isTerminal = func() bool { return true }

	out, _, err := execute(t, d, "", "hash-password")
	require.NoError(t, err)
	assert.True(t, d.hasher.Verify("from-the-prompt", strings.TrimSpace(out)))
}

func TestHashPassword_RejectsShortPassword(t *testing.T) {
	d, _ := testDeps(t)

	_, stderr, err := execute(t, d, "short\n", "hash-password")
	assert.Error(t, err)
	assert.Contains(t, stderr, "password must be 8 to 36 characters")
}

func TestIssueAndVerifyToken(t *testing.T) {
	d, tokens := testDeps(t)

	out, _, err := execute(t, d, "", "issue-token", "--subject", "a@x.com", "--ttl", "5m")
	require.NoError(t, err)
	tok := strings.TrimSpace(out)

	claims, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Subject)
	assert.Equal(t, 5*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt))

	out, _, err = execute(t, d, "", "verify-token", tok)
	require.NoError(t, err)
	assert.Contains(t, out, "a@x.com")
	assert.Contains(t, out, "HS256")
}

func TestIssueToken_RequiresSubject(t *testing.T) {
	d, _ := testDeps(t)

	_, _, err := execute(t, d, "", "issue-token")
	assert.Error(t, err)
}

func TestVerifyToken_Invalid(t *testing.T) {
	d, _ := testDeps(t)

	_, stderr, err := execute(t, d, "", "verify-token", "garbage")
	assert.ErrorIs(t, err, token.ErrSignatureInvalid)
	assert.NotEmpty(t, stderr)
}

func TestMigrate(t *testing.T) {
	d, _ := testDeps(t)

	out, _, err := execute(t, d, "", "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "00001_create_accounts.sql")
	assert.Contains(t, out, "pending")

	out, _, err = execute(t, d, "", "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version 1")

	out, _, err = execute(t, d, "", "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "version: 1")
	assert.Contains(t, out, "00001_create_accounts.sql")
	assert.Contains(t, out, "applied")
	assert.NotContains(t, out, "pending")
}
