package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/poseidoneye/perception-server/internal/api"
	"github.com/poseidoneye/perception-server/internal/cache"
	"github.com/poseidoneye/perception-server/internal/database"
	"github.com/poseidoneye/perception-server/internal/perception"
	"github.com/poseidoneye/perception-server/internal/protocol"
	"github.com/poseidoneye/perception-server/internal/queue"
)

// Processor consumes telemetry from Kafka and runs each reading through the
// perception engine. Work is sharded by source partition so each partition
// is handled by one worker in fetch order: offsets commit in order within a
// partition, and readings for one engine never interleave across workers
// since the producer keys each engine to a single partition.
type Processor struct {
	engine        *perception.Engine
	consumer      *queue.Consumer
	alertProducer *queue.Producer
	statusCache   *cache.StatusCache
	db            *database.DB

	shards  []chan kafka.Message
	wg      sync.WaitGroup
	started bool
}

// NewProcessor creates a processor with the given number of worker shards
func NewProcessor(engine *perception.Engine, consumer *queue.Consumer, alertProducer *queue.Producer, statusCache *cache.StatusCache, db *database.DB, numShards int) *Processor {
	if numShards < 1 {
		numShards = 1
	}

	shards := make([]chan kafka.Message, numShards)
	for i := range shards {
		shards[i] = make(chan kafka.Message, 256)
	}

	return &Processor{
		engine:        engine,
		consumer:      consumer,
		alertProducer: alertProducer,
		statusCache:   statusCache,
		db:            db,
		shards:        shards,
	}
}

// Run consumes until the context is cancelled. It blocks.
func (p *Processor) Run(ctx context.Context) error {
	if p.started {
		return errors.New("processor already started")
	}
	p.started = true

	for i, ch := range p.shards {
		p.wg.Add(1)
		go p.worker(ctx, i, ch)
	}

	fmt.Printf("Perception pipeline started with %d shards\n", len(p.shards))

consume:
	for {
		msg, err := p.consumer.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			fmt.Printf("Failed to consume message: %v\n", err)
			continue
		}

		// Route by the source partition: every message of a partition
		// goes through one worker in fetch order, so commits never run
		// ahead of an unprocessed offset, and per-engine ordering holds
		// because the producer keys each engine to one partition.
		shard := shardFor(msg, len(p.shards))

		select {
		case p.shards[shard] <- msg:
		case <-ctx.Done():
			break consume
		}
	}

	for _, ch := range p.shards {
		close(ch)
	}
	p.wg.Wait()

	fmt.Println("Perception pipeline stopped")
	return nil
}

// shardFor maps a message to a worker by its source partition.
func shardFor(msg kafka.Message, numShards int) int {
	return msg.Partition % numShards
}

func (p *Processor) worker(ctx context.Context, id int, ch <-chan kafka.Message) {
	defer p.wg.Done()

	for msg := range ch {
		if err := p.process(ctx, msg); err != nil {
			fmt.Printf("Shard %d failed to process message: %v\n", id, err)
		}

		if err := p.consumer.Commit(context.Background(), msg); err != nil {
			fmt.Printf("Shard %d failed to commit offset: %v\n", id, err)
		}
	}
}

func (p *Processor) process(ctx context.Context, msg kafka.Message) error {
	reading, err := protocol.DecodeReadingMessage(msg.Value)
	if err != nil {
		api.ReadingsRejectedTotal.WithLabelValues("decode").Inc()
		return fmt.Errorf("failed to decode reading: %w", err)
	}

	r, err := perception.ReadingFromMap(reading.FeatureMap())
	if err != nil {
		api.ReadingsRejectedTotal.WithLabelValues("validation").Inc()
		return fmt.Errorf("rejected reading from %s: %w", reading.EngineID, err)
	}

	start := time.Now()
	result, err := p.engine.Ingest(reading.EngineID, r, reading.Timestamp())
	if err != nil {
		api.ReadingsRejectedTotal.WithLabelValues("scoring").Inc()
		return fmt.Errorf("failed to score reading from %s: %w", reading.EngineID, err)
	}
	api.PredictionDurationSeconds.Observe(time.Since(start).Seconds())

	api.ReadingsProcessedTotal.WithLabelValues(reading.EngineID).Inc()
	if result.Prediction.IsAnomaly {
		api.AnomaliesDetectedTotal.WithLabelValues(reading.EngineID, string(result.Prediction.Severity)).Inc()
	}

	// Trend estimate is best effort: early in the window there is not
	// enough history yet. Ingest already buffered this reading's score,
	// so the estimate runs on the history alone.
	var degradation *float64
	var rulHours *float64
	estimate, rulErr := p.engine.EstimateRULFromHistory(reading.EngineID)
	if rulErr == nil {
		degradation = &estimate.DegradationPct
		hours := float64(estimate.Hours)
		rulHours = &hours
	}

	status := &cache.ComponentStatus{
		EngineID:       reading.EngineID,
		Vessel:         reading.Vessel,
		Component:      reading.EngineID,
		Severity:       string(result.Prediction.Severity),
		AnomalyScore:   result.Prediction.Score,
		IsAnomaly:      result.Prediction.IsAnomaly,
		Violations:     result.Prediction.Violations,
		DegradationPct: degradation,
		RULHours:       rulHours,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := p.statusCache.SetComponentStatus(ctx, status); err != nil {
		fmt.Printf("Failed to cache status for %s: %v\n", reading.EngineID, err)
	}

	if result.Transition != nil {
		if err := p.handleTransition(ctx, reading, result, degradation); err != nil {
			fmt.Printf("Failed to handle alert transition for %s: %v\n", reading.EngineID, err)
		}
	}

	return nil
}

func (p *Processor) handleTransition(ctx context.Context, reading *protocol.ReadingMessage, result perception.IngestResult, degradation *float64) error {
	t := result.Transition

	api.AlertTransitionsTotal.WithLabelValues(reading.EngineID, string(t.To)).Inc()

	eventType := protocol.AlertTypeRaised
	if severityRank(t.To) < severityRank(t.From) {
		eventType = protocol.AlertTypeLowered
	}

	event := &protocol.AlertEvent{
		Type:      eventType,
		EngineID:  reading.EngineID,
		Vessel:    reading.Vessel,
		Component: t.Component,
		Severity:  string(t.To),
		Previous:  string(t.From),
		Score:     t.Score,
		Timestamp: t.At,
	}
	if degradation != nil {
		event.DegradationPct = *degradation
	}

	data, err := protocol.EncodeAlertEvent(event)
	if err != nil {
		return fmt.Errorf("failed to encode alert event: %w", err)
	}

	if err := p.alertProducer.Publish(ctx, reading.EngineID, data); err != nil {
		return fmt.Errorf("failed to publish alert event: %w", err)
	}

	record := &database.AlertTransition{
		EngineID:       reading.EngineID,
		Component:      t.Component,
		FromSeverity:   string(t.From),
		ToSeverity:     string(t.To),
		Score:          t.Score,
		DegradationPct: degradation,
		OccurredAt:     t.At,
	}
	if err := p.db.InsertAlertTransition(record); err != nil {
		return fmt.Errorf("failed to persist alert transition: %w", err)
	}

	fmt.Printf("Alert transition for %s: %s -> %s (score=%.4f)\n", reading.EngineID, t.From, t.To, t.Score)
	return nil
}

func severityRank(s perception.Severity) int {
	switch s {
	case perception.SeverityCritical:
		return 2
	case perception.SeverityWarning:
		return 1
	default:
		return 0
	}
}
