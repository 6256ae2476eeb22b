package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/account-service/internal/account"
	"github.com/redmonkez12/account-service/internal/auth"
	"github.com/redmonkez12/account-service/internal/config"
	"github.com/redmonkez12/account-service/internal/database"
	"github.com/redmonkez12/account-service/internal/email"
	httpServer "github.com/redmonkez12/account-service/internal/http"
	"github.com/redmonkez12/account-service/internal/logging"
	"github.com/redmonkez12/account-service/internal/password"
	"github.com/redmonkez12/account-service/internal/ratelimit"
	"github.com/redmonkez12/account-service/internal/token"
)

const mailTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"version", cfg.Server.Version,
		"port", cfg.Server.Port,
		"email_transport", cfg.Email.Transport,
	)

	// Initialize database connection
	sqlDB, err := database.Open(cfg.Database.ConnectionString(), database.PoolConfig{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer sqlDB.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background(), sqlDB, database.DialectPostgres); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	db := database.NewBunDB(sqlDB)

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	tokens, err := token.NewService(cfg.Auth.SecretKey, cfg.Auth.Algorithm)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	sender, closeSender, err := newSender(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize email sender: %w", err)
	}
	defer closeSender()
	mailer := email.NewAsync(sender, logger, mailTimeout)

	authService := auth.NewService(
		account.NewRepository(db),
		auth.NewPendingRegistrationRepository(redisClient),
		auth.NewPasswordResetRepository(redisClient),
		tokens,
		password.NewHasher(password.DefaultParams),
		mailer,
		logger,
		auth.Settings{
			FrontendURL:            cfg.FrontendURL,
			AccessTokenTTL:         cfg.Auth.AccessTokenTTL,
			PendingRegistrationTTL: cfg.Auth.PendingRegistrationTTL,
		},
	)

	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	authHandler := auth.NewHandler(authService, rateLimiter)

	router := httpServer.NewRouter(cfg, authHandler, logger)
	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		// let queued emails go out before the sender closes
		if err := mailer.Wait(ctx); err != nil {
			logger.Warn("pending emails not delivered before shutdown", "error", err)
		}
	}

	return nil
}

// newSender builds the configured email transport and its cleanup func.
func newSender(ctx context.Context, cfg *config.Config, logger *logging.Logger) (email.Sender, func(), error) {
	noop := func() {}

	switch cfg.Email.Transport {
	case config.TransportSMTP:
		return email.NewSMTPSender(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.From,
		), noop, nil
	case config.TransportSES:
		sender, err := email.NewSESSender(ctx, email.SESConfig{
			Region:    cfg.Email.AWSRegion,
			AccessKey: cfg.Email.AWSAccessKey,
			SecretKey: cfg.Email.AWSSecretKey,
			Endpoint:  cfg.Email.SESEndpoint,
			From:      cfg.Email.From,
			Templates: map[email.Template]string{
				email.TemplateExistingAccount: cfg.Email.Templates.ExistingAccount,
				email.TemplateNewUser:         cfg.Email.Templates.NewUser,
				email.TemplateForgotPassword:  cfg.Email.Templates.ForgotPassword,
			},
		})
		if err != nil {
			return nil, nil, err
		}
		return sender, noop, nil
	case config.TransportKafka:
		sender := email.NewKafkaSender(cfg.Email.KafkaBrokers, cfg.Email.KafkaTopic)
		return sender, func() {
			if err := sender.Close(); err != nil {
				logger.Error("failed to close kafka writer", "error", err)
			}
		}, nil
	default:
		return email.NewLogSender(logger), noop, nil
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
