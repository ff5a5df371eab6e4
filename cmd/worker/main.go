package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chapelgive/donation-engine/internal/config"
	infraredis "github.com/chapelgive/donation-engine/internal/infra/redis"
	"github.com/chapelgive/donation-engine/internal/mail"
	"github.com/chapelgive/donation-engine/internal/observability"
	"github.com/chapelgive/donation-engine/internal/queue"
	"github.com/chapelgive/donation-engine/internal/service"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.MailRatePerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	publisher := queue.NewRabbitMQPublisher(rabbit)
	defer publisher.Close()

	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.WorkerConcurrency, logger)
	defer consumer.Close()

	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
	})
	if err != nil {
		logger.Fatal("smtp sender initialization failed", zap.Error(err))
	}

	worker, err := service.NewMailWorker(consumer, publisher, sender, rateLimiter, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal("mail worker initialization failed", zap.Error(err))
	}
	worker.SetMetrics(observability.NewMetrics())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("donation-engine worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Int("mailRatePerSec", cfg.MailRatePerSec),
	)

	if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker stopped with error", zap.Error(err))
	}

	logger.Info("donation-engine worker stopped")
}
