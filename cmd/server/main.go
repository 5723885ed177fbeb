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

	"stock-alert-service/config"
	"stock-alert-service/internal/api"
	"stock-alert-service/internal/broker"
	"stock-alert-service/internal/redisclient"
	"stock-alert-service/internal/service"
	"stock-alert-service/internal/store"
	"stock-alert-service/internal/util"
	"stock-alert-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting stock alert service",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
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

	deps := map[string]api.Pinger{}

	var repo store.Repository
	if cfg.Database.URL != "" {
		db, err := store.NewStore(cfg.Database.URL, cfg.Alerting.LockTimeout)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("Database connected")

		if cfg.Database.MigrateOnStart {
			if err := db.Migrate(context.Background()); err != nil {
				logger.Fatal("Failed to apply schema", zap.Error(err))
			}
			logger.Info("Schema applied")
		}
		repo = db
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		repo = store.NewMemoryStore(cfg.Alerting.LockTimeout)
	}
	deps["database"] = repo

	var idempotency service.IdempotencyStore
	var redisClient *redisclient.Client
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("Redis connected")
		idempotency = redisClient
		deps["redis"] = redisClient
	}

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlertEvents)
		defer producer.Close()
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicAlertEvents))
		publisher = broker.NewEventPublisher(producer)
	}

	engine := service.NewAlertEngine(repo, publisher, idempotency, cfg.Alerting.IdempotencyTTL)
	if redisClient != nil {
		engine.SetSweepLock(redisClient)
	}

	if cfg.Alerting.ReconcileOnStart {
		if _, err := engine.ReconcileAll(context.Background(), cfg.Alerting.ReconcileConcurrency); err != nil {
			logger.Error("Startup reconciliation failed", zap.Error(err))
		}
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var commandWorker *worker.StockCommandWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicStockCommands, cfg.Kafka.ConsumerGroup)
		commandWorker = worker.NewStockCommandWorker(consumer, engine)
		go func() {
			if err := commandWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Stock command worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(engine, cfg.Alerting.ReconcileConcurrency, deps)
	handler.SetupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key", "traceparent"},
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: c.Handler(router),
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

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if commandWorker != nil {
		if err := commandWorker.Stop(); err != nil {
			logger.Error("Error stopping stock command worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
