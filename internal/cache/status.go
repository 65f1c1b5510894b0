package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poseidoneye/perception-server/pkg/config"
)

// ComponentStatus is the cached view of a component's latest health
// assessment, served to API consumers without touching the pipeline.
type ComponentStatus struct {
	EngineID       string    `json:"engine_id"`
	Vessel         string    `json:"vessel"`
	Component      string    `json:"component"`
	Severity       string    `json:"severity"`
	AnomalyScore   float64   `json:"anomaly_score"`
	IsAnomaly      bool      `json:"is_anomaly"`
	Violations     []string  `json:"threshold_violations,omitempty"`
	DegradationPct *float64  `json:"degradation_percentage,omitempty"`
	RULHours       *float64  `json:"rul_hours,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const statusKeyPrefix = "component_status:"

// StatusCache stores per-component health status in Redis
type StatusCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStatusCache connects to Redis and returns a status cache
func NewStatusCache(cfg *config.RedisConfig, ttl time.Duration) (*StatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &StatusCache{redis: client, ttl: ttl}, nil
}

// Close closes the underlying Redis connection
func (c *StatusCache) Close() error {
	return c.redis.Close()
}

// SetComponentStatus saves the latest status for a component
func (c *StatusCache) SetComponentStatus(ctx context.Context, status *ComponentStatus) error {
	key := statusKeyPrefix + status.Component

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set status in Redis: %w", err)
	}

	return nil
}

// GetComponentStatus retrieves the latest status for a component.
// Returns nil when no status has been cached.
func (c *StatusCache) GetComponentStatus(ctx context.Context, component string) (*ComponentStatus, error) {
	key := statusKeyPrefix + component

	data, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status from Redis: %w", err)
	}

	var status ComponentStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	return &status, nil
}

// GetAllStatuses returns the cached status of every known component
func (c *StatusCache) GetAllStatuses(ctx context.Context) (map[string]*ComponentStatus, error) {
	keys, err := c.redis.Keys(ctx, statusKeyPrefix+"*").Result()
	if err != nil {
		return nil, err
	}

	statuses := make(map[string]*ComponentStatus)
	for _, key := range keys {
		data, err := c.redis.Get(ctx, key).Result()
		if err != nil {
			continue
		}

		var status ComponentStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			continue
		}

		component := strings.TrimPrefix(key, statusKeyPrefix)
		statuses[component] = &status
	}

	return statuses, nil
}

// DeleteComponentStatus removes a component's cached status
func (c *StatusCache) DeleteComponentStatus(ctx context.Context, component string) error {
	return c.redis.Del(ctx, statusKeyPrefix+component).Err()
}
