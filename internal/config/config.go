package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/redmonkez12/account-service/internal/apperr"
)

// Email transports
const (
	TransportSMTP  = "smtp"
	TransportSES   = "ses"
	TransportKafka = "kafka"
	TransportLog   = "log"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Email       EmailConfig
	RateLimit   RateLimitConfig
	FrontendURL string
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	Version         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins, FRONTEND_URL is always included
	BehindProxy     bool     // trust X-Forwarded-For / X-Real-IP from the fronting proxy
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	MaxOpenConns   int
	MaxIdleConns   int
	AutoMigrate    bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RateLimitConfig throttles the public endpoints per IP. MaxRequests 0 disables it.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

type AuthConfig struct {
	SecretKey              string
	Algorithm              string
	AccessTokenTTL         time.Duration
	PendingRegistrationTTL time.Duration
}

type EmailConfig struct {
	Transport    string
	From         string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string

	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	SESEndpoint  string
	Templates    TemplateNames

	KafkaBrokers []string
	KafkaTopic   string
}

// TemplateNames maps the logical templates to provider-side template names.
type TemplateNames struct {
	ExistingAccount string
	NewUser         string
	ForgotPassword  string
}

// Load reads configuration from environment variables, optionally seeded by a .env file.
// SECRET_KEY, ALGORITHM, ACCESS_TOKEN_EXPIRE_MINUTES and FRONTEND_URL are required.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var missing []string
	require := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	secret := require("SECRET_KEY")
	algorithm := require("ALGORITHM")
	ttlRaw := require("ACCESS_TOKEN_EXPIRE_MINUTES")
	frontendURL := strings.TrimRight(require("FRONTEND_URL"), "/")

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required environment variables: %s",
			apperr.ErrConfiguration, strings.Join(missing, ", "))
	}

	ttlMinutes, err := strconv.Atoi(ttlRaw)
	if err != nil || ttlMinutes <= 0 {
		return nil, fmt.Errorf("%w: ACCESS_TOKEN_EXPIRE_MINUTES must be a positive integer, got %q",
			apperr.ErrConfiguration, ttlRaw)
	}
	accessTTL := time.Duration(ttlMinutes) * time.Minute

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "3000"),
			Env:             getEnv("APP_ENV", "dev"),
			Version:         getEnv("APP_VERSION", "0.0.1"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  withOrigin(getSliceEnv("TRUSTED_ORIGINS", nil), frontendURL),
			BehindProxy:     getBoolEnv("SERVER_BEHIND_PROXY", false),
		},
		Database: LoadDatabase(),
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			SecretKey:              secret,
			Algorithm:              algorithm,
			AccessTokenTTL:         accessTTL,
			PendingRegistrationTTL: getMinutesEnv("PENDING_REGISTRATION_TTL_MINUTES", accessTTL),
		},
		Email: EmailConfig{
			Transport:    strings.ToLower(getEnv("EMAIL_TRANSPORT", TransportLog)),
			From:         getEnv("EMAIL_FROM", "do-not-reply@example.com"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKey: getEnv("AWS_SEND_EMAIL_ACCESS_KEY", ""),
			AWSSecretKey: getEnv("AWS_SEND_EMAIL_SECRET_KEY", ""),
			SESEndpoint:  getEnv("SES_ENDPOINT", ""),
			Templates: TemplateNames{
				ExistingAccount: getEnv("SES_TEMPLATE_EXISTING_ACCOUNT", "Test_CreateUserExistingAccountV1"),
				NewUser:         getEnv("SES_TEMPLATE_NEW_USER", "Test_NewUserV1"),
				ForgotPassword:  getEnv("SES_TEMPLATE_FORGOT_PASSWORD", "Test_ForgotPasswordTemplateV3"),
			},
			KafkaBrokers: getSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			KafkaTopic:   getEnv("KAFKA_MAIL_TOPIC", "account-mail"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 10),
			Window:      getDurationEnv("RATE_LIMIT_WINDOW", 60*time.Second),
		},
		FrontendURL: frontendURL,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the DB_* settings. Used by tooling that does not need secrets.
func LoadDatabase() DatabaseConfig {
	_ = godotenv.Load()

	return DatabaseConfig{
		Host:           getEnv("DB_HOST", "localhost"),
		Port:           getEnv("DB_PORT", "5432"),
		User:           getEnv("DB_USER", "postgres"),
		Password:       getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "accounts"),
		SSLMode:        getEnv("DB_SSLMODE", "disable"),
		ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
		MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
		AutoMigrate:    getBoolEnv("DB_AUTO_MIGRATE", true),
	}
}

func (c *Config) validate() error {
	switch c.Email.Transport {
	case TransportLog, TransportSES, TransportKafka:
	case TransportSMTP:
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("%w: SMTP_HOST is required for the smtp email transport", apperr.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown EMAIL_TRANSPORT %q", apperr.ErrConfiguration, c.Email.Transport)
	}

	if c.Auth.PendingRegistrationTTL <= 0 {
		return fmt.Errorf("%w: PENDING_REGISTRATION_TTL_MINUTES must be positive", apperr.ErrConfiguration)
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func withOrigin(origins []string, origin string) []string {
	for _, o := range origins {
		if o == origin {
			return origins
		}
	}
	return append(origins, origin)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return b
}

// getDurationEnv reads a whole number of seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	minutes, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(minutes) * time.Minute
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
