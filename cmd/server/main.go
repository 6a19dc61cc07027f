package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory-ledger/config"
	"inventory-ledger/internal/api"
	"inventory-ledger/internal/auth"
	"inventory-ledger/internal/broker"
	"inventory-ledger/internal/redisclient"
	"inventory-ledger/internal/report"
	"inventory-ledger/internal/service"
	"inventory-ledger/internal/store"
	"inventory-ledger/internal/util"
	"inventory-ledger/internal/voice"
	"inventory-ledger/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting inventory ledger")

	if cfg.Observ.JaegerEndpoint != "" {
		tp, err := util.InitTracer(cfg.Server.Env, cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	adapter, err := store.Open(cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer adapter.Close()
	logger.Info("Store opened", zap.String("driver", cfg.Storage.Driver))

	var (
		sessions auth.SessionStore = auth.NewMemorySessionStore()
		locker   service.Locker
	)
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		sessions = redisclient.NewSessionStore(redisClient)
		locker = redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	var publisher service.EventPublisher
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var lowStockWorker *worker.LowStockWorker
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
		lowStockWorker = worker.NewLowStockWorker(consumer, cfg.Business.LowStockThreshold)
		go func() {
			if err := lowStockWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Low stock worker error", zap.Error(err))
			}
		}()
	}

	inventory := service.NewInventoryService(adapter, publisher, locker)
	if err := inventory.Load(context.Background()); err != nil {
		logger.Fatal("Failed to load ledger", zap.Error(err))
	}

	renderer := report.NewPDFRenderer()
	forecasts := service.NewForecastService(inventory, renderer)
	reports := service.NewReportService(inventory, renderer)

	var voiceSearch *service.VoiceSearchService
	if cfg.Voice.TranscribeURL != "" {
		transcriber := voice.NewHTTPTranscriber(cfg.Voice.TranscribeURL, cfg.Voice.ContentType, cfg.Voice.Timeout)
		voiceSearch = service.NewVoiceSearchService(inventory, transcriber, cfg.Voice.Timeout)
	}

	guard := auth.NewGuard(cfg.Auth.Credentials, sessions, cfg.Auth.SessionTTL)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(guard, inventory, forecasts, reports, voiceSearch, api.Defaults{
		LowStockThreshold: cfg.Business.LowStockThreshold,
		ForecastPeriods:   cfg.Business.ForecastPeriods,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if lowStockWorker != nil {
		if err := lowStockWorker.Stop(); err != nil {
			logger.Error("Failed to stop low stock worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
