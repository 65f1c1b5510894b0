package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poseidoneye/perception-server/internal/connection"
	"github.com/poseidoneye/perception-server/internal/database"
	"github.com/poseidoneye/perception-server/internal/queue"
	"github.com/poseidoneye/perception-server/internal/server"
	"github.com/poseidoneye/perception-server/internal/timer"
	"github.com/poseidoneye/perception-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Telemetry Ingest Server...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Run migrations
	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create Kafka topics
	if err := queue.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicTelemetry,
		cfg.Kafka.NumPartitions,
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	if err := queue.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicAlerts,
		1, // single partition for alerts
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	// Create Kafka producer
	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicTelemetry)
	defer producer.Close()
	fmt.Println("Kafka producer initialized")

	// Create connection manager
	connManager := connection.NewManager(cfg.TCPServer.MaxConnections)
	fmt.Println("Connection manager initialized")

	// Create inactivity timer scheduler
	scheduler := timer.NewScheduler(10) // 10 worker goroutines
	scheduler.Start()
	defer scheduler.Stop()
	fmt.Println("Timer scheduler started")

	// Create TCP server
	tcpServer := server.NewTCPServer(&cfg.TCPServer, connManager, scheduler, producer)
	if err := tcpServer.Start(); err != nil {
		log.Fatalf("Failed to start TCP server: %v", err)
	}
	defer tcpServer.Stop()

	// Print statistics periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := connManager.Stats()
			timerStats := scheduler.Stats()
			fmt.Printf("\n--- Ingest Statistics ---\n")
			fmt.Printf("Active Connections: %d / %d\n", stats.TotalConnections, stats.MaxConnections)
			fmt.Printf("Unique Engines: %d\n", stats.UniqueEngines)
			fmt.Printf("Scheduled Timers: %d\n", timerStats.ScheduledTasks)
			fmt.Printf("-------------------------\n\n")
		}
	}()

	fmt.Println("\n✓ Telemetry Ingest Server is running")
	fmt.Printf("✓ TCP Server listening on port %d\n", cfg.TCPServer.Port)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}
