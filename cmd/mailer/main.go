package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/fixora/authapi/infrastructure/config"
	"github.com/fixora/authapi/infrastructure/service/email"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadMailer()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "authapi-mailer",
	})

	sender := email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	})

	consumer := email.NewConsumer(email.ConsumerConfig{
		URL:   cfg.AMQPURL,
		Queue: cfg.EmailQueue,
	}, sender, structuredLogger)

	structuredLogger.Info(ctx, "Mailer starting", map[string]interface{}{
		"queue":     cfg.EmailQueue,
		"smtp_host": cfg.SMTPHost,
	})
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Mailer stopped: %v", err)
	}
	structuredLogger.Info(context.Background(), "Mailer exited", nil)
}
