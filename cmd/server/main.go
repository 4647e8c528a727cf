package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/fixora/authapi/application/port/outbound"
	"github.com/fixora/authapi/application/usecase"
	"github.com/fixora/authapi/application/usecase/user_management"
	"github.com/fixora/authapi/infrastructure/adapter/postgres"
	"github.com/fixora/authapi/infrastructure/config"
	"github.com/fixora/authapi/infrastructure/http/handler"
	"github.com/fixora/authapi/infrastructure/http/middleware"
	"github.com/fixora/authapi/infrastructure/http/router"
	"github.com/fixora/authapi/infrastructure/service/email"
	"github.com/fixora/authapi/infrastructure/service/jwt"
	"github.com/fixora/authapi/infrastructure/service/logger"
	"github.com/fixora/authapi/infrastructure/service/metrics"
	"github.com/fixora/authapi/infrastructure/service/password"
	"github.com/fixora/authapi/infrastructure/service/ratelimit"
)

type appMetrics interface {
	outbound.AuthMetrics
	middleware.HTTPObserver
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "authapi",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env":             cfg.Environment,
		"email_transport": cfg.EmailTransport,
	})

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		structuredLogger.Error(ctx, "Failed to ping database", err, nil)
		log.Fatalf("Failed to ping database: %v", err)
	}
	structuredLogger.Info(ctx, "Database connection established", nil)

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		structuredLogger.Info(ctx, "Migrations applied", nil)
	}

	rateLimitService, err := ratelimit.NewRateLimitService(ratelimit.RateLimitConfig{
		Enabled:  cfg.RateLimitEnabled,
		RedisURL: cfg.RedisURL,
	}, structuredLogger)
	if err != nil {
		structuredLogger.Error(ctx, "Rate limiting disabled, redis unavailable", err, map[string]interface{}{
			"redis_url": cfg.RedisURL,
		})
		rateLimitService = ratelimit.NoopRateLimitService{}
	}

	var authMetrics appMetrics = metrics.Noop{}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		m := metrics.NewMetrics()
		authMetrics = m
		metricsHandler = m.Handler()
	}

	// Repositories
	userRepo := postgres.NewUserRepositoryAdapter(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepositoryAdapter(db, cfg.RefreshTokenSalt)
	resetRepo := postgres.NewPasswordResetRepositoryAdapter(db, cfg.RefreshTokenSalt)

	// Services
	tokenService, err := jwt.NewJWTService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	passwordService := password.NewBcryptPasswordService(cfg.BcryptCost)

	sender, closeSender, err := newEmailSender(cfg, structuredLogger)
	if err != nil {
		log.Fatalf("Failed to initialize email transport: %v", err)
	}
	defer closeSender()
	composer := email.NewComposer(cfg.ResetLinkBaseURL, humanDuration(cfg.PasswordResetTTL))

	// Use cases
	issuer := usecase.NewTokenIssuer(tokenService, refreshTokenRepo, structuredLogger, usecase.TokenIssuerConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		MaxAttempts:     cfg.RefreshTokenMaxAttempts,
	})
	rotator := usecase.NewTokenRotator(userRepo, refreshTokenRepo, tokenService, issuer, authMetrics, structuredLogger)
	authUseCase := usecase.NewAuthUseCase(userRepo, passwordService, issuer, rotator, authMetrics, structuredLogger)
	resetUseCase := usecase.NewPasswordResetUseCase(
		userRepo,
		resetRepo,
		tokenService,
		passwordService,
		composer,
		sender,
		authMetrics,
		structuredLogger,
		cfg.PasswordResetTTL,
	)
	userManagementUseCase := user_management.NewUserManagementUseCase(userRepo)

	routes := router.New(
		router.Config{
			CORSEnabled:          cfg.CORSEnabled && len(cfg.CORSAllowedOrigins) > 0,
			CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
			CORSAllowCredentials: cfg.CORSAllowCredentials,
			CorrelationIDHeader:  cfg.LogCorrelationIDHeader,
			RequestLogEnabled:    cfg.LogEnableRequestLog,
		},
		router.Handlers{
			Auth:          handler.NewAuthHandler(authUseCase, structuredLogger),
			PasswordReset: handler.NewPasswordResetHandler(resetUseCase, structuredLogger),
			Users:         handler.NewUserHandler(userManagementUseCase),
			Health:        handler.NewHealthHandler(db),
			Metrics:       metricsHandler,
		},
		router.Middlewares{
			Auth: middleware.NewAuthMiddleware(tokenService),
			RateLimit: middleware.NewRateLimitMiddleware(rateLimitService, middleware.RateLimitConfig{
				Attempts:      cfg.RateLimitIPAttempts,
				Window:        cfg.RateLimitIPWindow,
				BlockDuration: cfg.RateLimitBlockDuration,
			}, structuredLogger),
			Observer: authMetrics,
		},
		structuredLogger,
	)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           routes,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		structuredLogger.Info(ctx, "Starting server", map[string]interface{}{
			"addr": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		structuredLogger.Error(ctx, "Server failed", err, nil)
	}

	structuredLogger.Info(context.Background(), "Shutting down server...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(shutdownCtx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(shutdownCtx, "Server exited", nil)
}

func newEmailSender(cfg *config.Config, log logger.Logger) (outbound.EmailSender, func(), error) {
	switch cfg.EmailTransport {
	case config.EmailTransportAMQP:
		publisher := email.NewAMQPPublisher(cfg.AMQPURL, cfg.EmailQueue, log)
		return publisher, func() { _ = publisher.Close() }, nil
	case config.EmailTransportSMTP:
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
		}), func() {}, nil
	case config.EmailTransportLog:
		return email.NewLogSender(log), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown email transport %q", cfg.EmailTransport)
}

// humanDuration renders the reset link lifetime for the e-mail body.
func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return d.String()
}
