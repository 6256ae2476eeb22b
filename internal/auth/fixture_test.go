package auth

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/redmonkez12/account-service/internal/account"
	"github.com/redmonkez12/account-service/internal/database"
	"github.com/redmonkez12/account-service/internal/email"
	"github.com/redmonkez12/account-service/internal/logging"
	"github.com/redmonkez12/account-service/internal/password"
	"github.com/redmonkez12/account-service/internal/token"
)

const (
	testFrontendURL = "https://app.example.com"
	testAccessTTL   = 15 * time.Minute
	testPendingTTL  = time.Hour
)

var testHasherParams = password.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	Template  email.Template
	Recipient string
	Data      map[string]string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, tmpl email.Template, recipient string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Template: tmpl, Recipient: recipient, Data: data})
	return nil
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no email sent")
	return m.sent[len(m.sent)-1]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fixture struct {
	svc      *Service
	accounts *account.Repository
	pending  *PendingRegistrationRepository
	resets   *PasswordResetRepository
	tokens   *token.Service
	hasher   *password.Hasher
	mailer   *recordingMailer
	clock    *testClock
	redis    *redis.Client
	mr       *miniredis.Miniredis
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newTestAccounts(t *testing.T) *account.Repository {
	t.Helper()

	sqlDB, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(context.Background(), sqlDB, database.DialectSQLite))

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	return account.NewRepository(db)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client, mr := newTestRedis(t)
	clock := &testClock{now: time.Now().UTC().Truncate(time.Second)}

	tokens, err := token.NewService("test-secret", "HS256", token.WithClock(clock.Now))
	require.NoError(t, err)

	f := &fixture{
		accounts: newTestAccounts(t),
		pending:  NewPendingRegistrationRepository(client),
		resets:   NewPasswordResetRepository(client),
		tokens:   tokens,
		hasher:   password.NewHasher(testHasherParams),
		mailer:   &recordingMailer{},
		clock:    clock,
		redis:    client,
		mr:       mr,
	}
	f.pending.tickets.now = clock.Now
	f.resets.tickets.now = clock.Now

	f.svc = NewService(f.accounts, f.pending, f.resets, f.tokens, f.hasher, f.mailer, logging.Discard(), Settings{
		FrontendURL:            testFrontendURL,
		AccessTokenTTL:         testAccessTTL,
		PendingRegistrationTTL: testPendingTTL,
	})
	f.svc.now = clock.Now

	return f
}

// linkID returns the id at the end of the link in the last email.
func (f *fixture) linkID(t *testing.T, prefix string) string {
	t.Helper()
	url := f.mailer.last(t).Data[email.KeyURL]
	require.True(t, strings.HasPrefix(url, testFrontendURL+prefix), "unexpected link %q", url)
	return strings.TrimPrefix(url, testFrontendURL+prefix)
}

// register runs both registration steps and returns the new account.
func (f *fixture) register(t *testing.T, emailAddr, username, pw string) *account.Account {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.svc.BeginRegistration(ctx, emailAddr))
	a, err := f.svc.CompleteRegistration(ctx, f.linkID(t, "/create-user/"), username, pw)
	require.NoError(t, err)
	return a
}

func (f *fixture) login(t *testing.T, emailAddr, pw string) string {
	t.Helper()
	tok, err := f.svc.Login(context.Background(), emailAddr, pw)
	require.NoError(t, err)
	return tok
}
