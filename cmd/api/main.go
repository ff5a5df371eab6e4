package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chapelgive/donation-engine/internal/config"
	"github.com/chapelgive/donation-engine/internal/handler"
	"github.com/chapelgive/donation-engine/internal/infra/postgresql"
	"github.com/chapelgive/donation-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/chapelgive/donation-engine/internal/infra/redis"
	"github.com/chapelgive/donation-engine/internal/observability"
	"github.com/chapelgive/donation-engine/internal/paystack"
	"github.com/chapelgive/donation-engine/internal/queue"
	"github.com/chapelgive/donation-engine/internal/repository"
	"github.com/chapelgive/donation-engine/internal/seed"
	"github.com/chapelgive/donation-engine/internal/service"
	"github.com/chapelgive/donation-engine/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

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

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	refDataRepo := repository.NewGormReferenceDataRepo(db)
	if err := seed.ReferenceData(context.Background(), refDataRepo); err != nil {
		logger.Fatal("reference data seeding failed", zap.Error(err))
	}

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	publisher := queue.NewRabbitMQPublisher(rabbit)
	defer publisher.Close()

	gateway, err := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.PaystackWebhookSecret)
	if err != nil {
		logger.Fatal("paystack client initialization failed", zap.Error(err))
	}

	mailService, err := service.NewMailService(publisher, logger)
	if err != nil {
		logger.Fatal("mail service initialization failed", zap.Error(err))
	}

	donationService, err := service.NewDonationService(
		repository.NewGormDonationRepo(db),
		repository.NewGormDonorRepo(db),
		refDataRepo,
		repository.NewGormTransactionRepo(db),
		repository.NewGormMailLogRepo(db),
		gateway,
		mailService,
		cfg.CallbackBaseURL,
		logger,
	)
	if err != nil {
		logger.Fatal("donation service initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	donationService.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterDonationRoutes(app, donationService); err != nil {
		logger.Fatal("donation routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterWebhookRoutes(app, donationService, gateway, logger); err != nil {
		logger.Fatal("webhook routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	logger.Info("donation-engine api started", zap.Int("port", cfg.APIPort))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("donation-engine api stopped")
}
