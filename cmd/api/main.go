package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/email-classifier-api/internal/bootstrap"
	"github.com/noah-isme/email-classifier-api/internal/config"
	"github.com/noah-isme/email-classifier-api/internal/database"
	"github.com/noah-isme/email-classifier-api/internal/handler"
	"github.com/noah-isme/email-classifier-api/internal/middleware"
	"github.com/noah-isme/email-classifier-api/internal/models"
	"github.com/noah-isme/email-classifier-api/internal/repository"
	"github.com/noah-isme/email-classifier-api/internal/router"
	"github.com/noah-isme/email-classifier-api/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Printf("api: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := bootstrap.NewLogger(cfg, os.Stdout)

	masker, closeMasker, err := bootstrap.NewMasker(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build masker: %w", err)
	}
	defer closeMasker()

	categories, err := bootstrap.APICategories(cfg)
	if err != nil {
		return fmt.Errorf("invalid category table: %w", err)
	}

	pipeline, err := bootstrap.LoadPipeline(cfg, categories)
	if err != nil {
		return fmt.Errorf("failed to load model artifacts: %w", err)
	}
	logger.Info().Int("clusters", pipeline.NClusters()).Msg("classification pipeline loaded")

	opts := service.ClassificationOptions{
		CacheTTL:   cfg.CacheTTL,
		EntryPoint: models.EntryPointAPI,
	}

	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.AutoMigrate(&models.ClassificationRecord{}); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		opts.Repository = repository.NewClassificationRepository(db)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		opts.Cache = redisClient
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer natsConn.Close()
	}

	if redisClient != nil || natsConn != nil {
		opts.Publisher = service.NewClassificationPublisher(redisClient, natsConn, cfg.EventsChannel, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	classificationService := service.NewClassificationService(masker, pipeline, validate, logger, opts)
	classificationHandler := handler.NewClassificationHandler(classificationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigin: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		ClassificationHandler: classificationHandler,
		Model: handler.ModelInfo{
			Clusters:      pipeline.NClusters(),
			Detectors:     masker.Detectors(),
			OverlapPolicy: string(masker.Policy()),
		},
		HistoryEnabled: opts.Repository != nil,
	})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(cfg.HTTPAddress())
	}()

	return waitForShutdown(app, listenErr)
}

func waitForShutdown(app *fiber.App, listenErr <-chan error) error {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-listenErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-shutdownCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
	return nil
}
