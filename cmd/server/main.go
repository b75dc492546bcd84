package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/libhub/orders-storage/internal/application/reconciliation"
	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/infrastructure/config"
	"github.com/libhub/orders-storage/internal/infrastructure/consortium"
	"github.com/libhub/orders-storage/internal/infrastructure/inventorybridge"
	consumerkafka "github.com/libhub/orders-storage/internal/infrastructure/kafka"
	"github.com/libhub/orders-storage/internal/infrastructure/logger"
	"github.com/libhub/orders-storage/internal/infrastructure/outbox"
	"github.com/libhub/orders-storage/internal/infrastructure/persistence"
	"github.com/libhub/orders-storage/internal/infrastructure/scheduler"
	httpiface "github.com/libhub/orders-storage/internal/interfaces/http"
	"github.com/libhub/orders-storage/internal/interfaces/http/handler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("starting orders storage",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Database
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Redis (optional tenant-resolution cache)
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unavailable, tenant resolution cache disabled", zap.Error(err))
			redisClient = nil
		}
		defer func() {
			if redisClient != nil {
				_ = redisClient.Close()
			}
		}()
	}

	// Repositories
	poLines := persistence.NewGormPoLineRepository(db.DB)
	pieces := persistence.NewGormPieceRepository(db.DB)
	batches := persistence.NewGormBatchTrackingRepository(db.DB)
	consortiumConfigs := persistence.NewGormConsortiumConfigRepository(db.DB)
	outboxRepo := outbox.NewGormOutboxRepository(db.DB)

	// Outbox publication
	auditPublisher := outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	defer auditPublisher.Close()
	recorder := outbox.NewRecorder(outboxRepo, auditPublisher, cfg.Outbox.BatchSize, log)

	// Inventory propagation
	propagator := inventorybridge.NewKafkaPropagator(cfg.Kafka.Brokers, cfg.Kafka.InventoryTopic)
	defer propagator.Close()

	// Tenant resolution
	resolver := consortium.NewResolver(consortiumConfigs, redisClient, cfg.Consortium.CacheTTL, log)

	// Reconciliation handlers
	deps := &reconciliation.Deps{
		Tx:        db,
		PoLines:   poLines,
		Pieces:    pieces,
		Batches:   batches,
		Audit:     recorder,
		Inventory: propagator,
		Logger:    log.Named("reconciliation"),
	}
	dispatcher := reconciliation.NewDispatcher(resolver, log.Named("dispatch"),
		reconciliation.NewHoldingCreateHandler(deps),
		reconciliation.NewHoldingUpdateHandler(deps),
		reconciliation.NewItemCreateHandler(deps),
		reconciliation.NewItemUpdateHandler(deps),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Kafka consumer
	consumer := consumerkafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID,
		[]consumerkafka.TopicBinding{
			{Topic: cfg.Kafka.HoldingTopic, Kind: inventory.KindHolding},
			{Topic: cfg.Kafka.ItemTopic, Kind: inventory.KindItem},
		},
		dispatcher, log,
	)
	if err := consumer.Start(rootCtx); err != nil {
		log.Fatal("failed to start kafka consumer", zap.Error(err))
	}

	// Background outbox processor
	var processor *outbox.Processor
	if cfg.Outbox.ProcessorEnabled {
		processor = outbox.NewProcessor(outboxRepo, recorder, auditPublisher, outbox.ProcessorConfig{
			BatchSize:        cfg.Outbox.BatchSize,
			PollInterval:     cfg.Outbox.PollInterval,
			CleanupEnabled:   cfg.Outbox.CleanupEnabled,
			CleanupRetention: cfg.Outbox.CleanupRetention,
			CleanupInterval:  cfg.Outbox.CleanupInterval,
		}, log)
		if err := processor.Start(rootCtx); err != nil {
			log.Fatal("failed to start outbox processor", zap.Error(err))
		}
	}

	// Batch tracking cleanup
	batchCleanup := scheduler.NewBatchCleanupScheduler(batches, cfg.Batch.CleanupInterval, cfg.Batch.MaxAge, log)
	if cfg.Batch.CleanupEnabled {
		if err := batchCleanup.Start(rootCtx); err != nil {
			log.Fatal("failed to start batch cleanup", zap.Error(err))
		}
	}

	// Admin HTTP server
	admin := handler.NewAdminHandler(db, outboxRepo, batchCleanup)
	router := httpiface.NewRouter(admin, log, cfg.App.IsProduction())
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	go func() {
		log.Info("admin http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin http server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("admin http shutdown failed", zap.Error(err))
	}
	if err := consumer.Stop(shutdownCtx); err != nil {
		log.Error("kafka consumer shutdown failed", zap.Error(err))
	}
	if processor != nil {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Error("outbox processor shutdown failed", zap.Error(err))
		}
	}
	if cfg.Batch.CleanupEnabled {
		if err := batchCleanup.Stop(shutdownCtx); err != nil {
			log.Error("batch cleanup shutdown failed", zap.Error(err))
		}
	}

	log.Info("orders storage stopped")
}
