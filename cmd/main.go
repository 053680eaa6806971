package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/api"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/config"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/configs/env"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/extract"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/infra/mongo"
	redisInfra "github.com/SlenderjuniorxD/UPDS-TIM/internal/infra/redis"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/logger"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/metrics"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/notify"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/repository"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/scanner"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/storage"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/stream"
	"github.com/SlenderjuniorxD/UPDS-TIM/internal/vetting"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel)
	log.Info().Msg("Starting UPDS-TIM server")

	// Initialize Prometheus metrics
	metrics.InitPrometheus()
	log.Info().Msg("Prometheus metrics initialized")

	// Start metrics server in separate goroutine on port 2112
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    ":2112",
		Handler: metricsMux,
	}
	go func() {
		log.Info().Str("port", "2112").Msg("Metrics server started")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Metrics server failed to start")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect MongoDB
	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(ctx)

	// Connect Redis
	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	// Initialize MongoDB repository
	mongoRepo := repository.NewMongoRepository(mongoClient)

	// Initialize repositories
	submissionsRepo := repository.NewSubmissionsRepository(mongoRepo)
	notificationsRepo := repository.NewNotificationsRepository(mongoRepo)

	// External service clients
	scannerClient := scanner.NewClient(cfg.ScannerBaseURL, cfg.ScannerAPIKey)
	fileStore := storage.NewClient(cfg.FileStoreBaseURL, cfg.FileStoreUploadPreset)
	extractor := extract.NewClient(cfg.ExtractorBaseURL, cfg.ExtractorAPIKey)

	notifier := notify.NewService(notificationsRepo)
	vettingStatus := vetting.NewRedisStatus(redisClient)

	vettingSvc := vetting.NewService(
		scannerClient,
		fileStore,
		submissionsRepo,
		notifier,
		vettingStatus,
		vetting.Config{
			PollInterval:       cfg.ScanPollInterval,
			PollMaxAttempts:    cfg.ScanPollMaxAttempts,
			RejectionThreshold: cfg.RejectionThreshold,
			TitleWeight:        cfg.TitleWeight,
			ContentWeight:      cfg.ContentWeight,
		},
	)

	// Initialize retry handler
	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey)

	// Initialize Redis stream consumer
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(
		redisClient.Client,
		cfg.RedisStreamKey,
		cfg.RedisConsumerGroup,
		consumerName,
		vettingSvc,
		retryHandler,
		cfg.StreamRetentionDuration,
	)
	log.Info().Str("consumer_name", consumerName).Msg("Redis stream consumer initialized")

	router := api.SetupRoutes(cfg, submissionsRepo, notificationsRepo, vettingSvc,
		vettingStatus, notifier, fileStore, extractor, redisClient)

	// Start Redis consumer in background
	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()
	go func() {
		if err := consumer.Start(consumerCtx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Redis consumer error")
		}
	}()
	log.Info().Msg("Redis consumer started")

	// Start Gin server - Gin handles all HTTP routing, middleware (auth, rate limiter), and request processing
	srv := api.StartServer(router, cfg.ServerPort)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	// Shutdown Gin server gracefully
	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down Gin server")
	}

	// Shutdown metrics server gracefully
	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	if err := metricsServer.Shutdown(metricsCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}
