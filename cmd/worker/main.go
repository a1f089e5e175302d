package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flightreservation/config"
	"github.com/Domenick1991/flightreservation/internal/email"
	"github.com/Domenick1991/flightreservation/internal/kafka"
	"github.com/Domenick1991/flightreservation/internal/observability"
	"go.uber.org/zap"
)

// The worker turns reservation events from the notifications topic into passenger emails.
func main() {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Fatal("kafka.brokers must be set for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logger)
	defer func() { _ = consumer.Close() }()

	sender := email.NewSender(cfg.Email, logger)

	logger.Info("notification worker started", zap.String("topic", cfg.Kafka.NotificationsTopic))
	if err := consumer.Consume(ctx, sender.Send); err != nil {
		logger.Error("consumer stopped", zap.Error(err))
		return
	}
	logger.Info("notification worker stopped")
}
