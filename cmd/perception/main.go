package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poseidoneye/perception-server/internal/api"
	"github.com/poseidoneye/perception-server/internal/cache"
	"github.com/poseidoneye/perception-server/internal/database"
	"github.com/poseidoneye/perception-server/internal/perception"
	"github.com/poseidoneye/perception-server/internal/pipeline"
	"github.com/poseidoneye/perception-server/internal/queue"
	"github.com/poseidoneye/perception-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Perception Server...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Build the engine from configuration
	engineCfg := perception.DefaultConfig()
	engineCfg.Detector.Forest.Contamination = cfg.Perception.Contamination
	engineCfg.Detector.Forest.Estimators = cfg.Perception.Estimators
	engineCfg.Detector.Forest.SampleSize = cfg.Perception.SampleSize
	engineCfg.Detector.Forest.Seed = cfg.Perception.Seed
	engineCfg.Detector.ZBound = cfg.Perception.ZBound
	engineCfg.Detector.CriticalMargin = cfg.Perception.CriticalMargin
	engineCfg.BufferCapacity = cfg.Perception.BufferCapacity
	engineCfg.ClearAfter = cfg.Perception.ClearAfter
	engineCfg.RUL.MinPoints = cfg.Perception.MinTrendPoints
	engineCfg.RUL.FailureScore = cfg.Perception.FailureScore
	engineCfg.RUL.CapHours = cfg.Perception.RULCapHours
	engineCfg.RUL.WarnPct = cfg.Perception.WarnPct
	engineCfg.RUL.CriticalPct = cfg.Perception.CriticalPct

	engine := perception.NewEngine(engineCfg)

	// Restore the latest persisted model, or train from scratch when
	// none exists yet
	if err := loadOrTrain(engine, db, &cfg.Perception); err != nil {
		log.Fatalf("Failed to initialize model: %v", err)
	}
	fmt.Printf("Model ready (trained at %s)\n", engine.TrainedAt().Format(time.RFC3339))

	// Connect to Redis status cache
	statusCache, err := cache.NewStatusCache(&cfg.Redis, 10*time.Minute)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer statusCache.Close()
	fmt.Println("Connected to Redis")

	// Kafka consumer for telemetry, producer for alert events
	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicTelemetry, "perception-group")
	defer consumer.Close()

	alertProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertProducer.Close()

	// Perception pipeline
	processor := pipeline.NewProcessor(engine, consumer, alertProducer, statusCache, db, cfg.Perception.WorkerShards)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := processor.Run(ctx); err != nil {
			log.Fatalf("Pipeline failed: %v", err)
		}
	}()

	// HTTP API
	apiServer := api.NewServer(&cfg.HTTPServer, engine, statusCache)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	fmt.Println("\n✓ Perception Server is running")
	fmt.Printf("✓ HTTP API listening on %s\n", cfg.HTTPServer.Addr)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("API shutdown error: %v\n", err)
	}
}

// loadOrTrain restores the most recent persisted model snapshot, falling
// back to training on synthetic baseline data when the database has none.
func loadOrTrain(engine *perception.Engine, db *database.DB, cfg *config.PerceptionConfig) error {
	snapshot, err := db.GetLatestModelSnapshot()
	if err != nil {
		return fmt.Errorf("failed to query model snapshot: %w", err)
	}

	if snapshot != nil {
		if err := engine.RestoreSnapshot(snapshot.Payload); err != nil {
			return fmt.Errorf("failed to restore model snapshot: %w", err)
		}
		fmt.Println("Restored model from persisted snapshot")
		return nil
	}

	fmt.Printf("No persisted model found, training on %d synthetic baseline rows\n", cfg.BootstrapRows)

	rows := perception.GenerateTrainingData(cfg.BootstrapRows, cfg.Seed)
	if err := engine.Train(rows); err != nil {
		return fmt.Errorf("failed to train model: %w", err)
	}

	payload, err := engine.MarshalSnapshot()
	if err != nil {
		return fmt.Errorf("failed to marshal model snapshot: %w", err)
	}

	if err := db.SaveModelSnapshot(&database.ModelSnapshot{
		TrainedAt: engine.TrainedAt(),
		Payload:   payload,
	}); err != nil {
		return fmt.Errorf("failed to persist model snapshot: %w", err)
	}

	return nil
}
