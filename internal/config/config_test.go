package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/account-service/internal/apperr"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SECRET_KEY", "super-secret")
	t.Setenv("ALGORITHM", "HS256")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "30")
	t.Setenv("FRONTEND_URL", "https://app.example.com/")
	t.Setenv("EMAIL_TRANSPORT", "")
	t.Setenv("TRUSTED_ORIGINS", "")
	t.Setenv("PENDING_REGISTRATION_TTL_MINUTES", "")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "")
	t.Setenv("RATE_LIMIT_WINDOW", "")
	t.Setenv("SERVER_BEHIND_PROXY", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "super-secret", cfg.Auth.SecretKey)
	assert.Equal(t, "HS256", cfg.Auth.Algorithm)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.PendingRegistrationTTL)
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.TrustedOrigins)
	assert.Equal(t, TransportLog, cfg.Email.Transport)
	assert.Equal(t, "Test_NewUserV1", cfg.Email.Templates.NewUser)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.Server.BehindProxy)
}

func TestLoad_BehindProxy(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_BEHIND_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Server.BehindProxy)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("SECRET_KEY", "")
	t.Setenv("FRONTEND_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "SECRET_KEY")
	assert.Contains(t, err.Error(), "FRONTEND_URL")
}

func TestLoad_InvalidTTL(t *testing.T) {
	for _, v := range []string{"0", "-5", "ten"} {
		t.Run(v, func(t *testing.T) {
			setRequired(t)
			t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", v)

			_, err := Load()
			assert.ErrorIs(t, err, apperr.ErrConfiguration)
		})
	}
}

func TestLoad_PendingTTLOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("PENDING_REGISTRATION_TTL_MINUTES", "1440")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.Auth.PendingRegistrationTTL)
}

func TestLoad_EmailTransport(t *testing.T) {
	setRequired(t)
	t.Setenv("EMAIL_TRANSPORT", "carrier-pigeon")

	_, err := Load()
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	t.Setenv("EMAIL_TRANSPORT", "smtp")
	t.Setenv("SMTP_HOST", "")
	_, err = Load()
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	t.Setenv("SMTP_HOST", "smtp.example.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, TransportSMTP, cfg.Email.Transport)
}

func TestLoad_TrustedOriginsKeepFrontend(t *testing.T) {
	setRequired(t)
	t.Setenv("TRUSTED_ORIGINS", "http://localhost:3000, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "https://admin.example.com", "https://app.example.com"}, cfg.Server.TrustedOrigins)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "accounts", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=accounts sslmode=disable", c.ConnectionString())

	c.ChannelBinding = "require"
	assert.Contains(t, c.ConnectionString(), "channel_binding=require")
}

func TestLoadDatabase_NoSecretsRequired(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")

	db := LoadDatabase()
	assert.Equal(t, "db.internal", db.Host)
	assert.Equal(t, 7, db.MaxOpenConns)
}
