package database

import (
	"time"
)

// Engine represents a monitored engine installation
type Engine struct {
	EngineID  string
	Vessel    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RawReading represents one stored sensor sweep
type RawReading struct {
	ID              int64
	EngineID        string
	Timestamp       time.Time
	ExhaustGasTemp  *float64
	LubeOilPressure *float64
	MainBearingTemp *float64
	VibrationRMS    *float64
	EngineRPM       *float64
	FuelConsumption *float64
	ReceivedAt      time.Time
}

// HourlyReading represents hourly aggregated telemetry
type HourlyReading struct {
	ID             int64
	EngineID       string
	HourTimestamp  time.Time
	AvgExhaustTemp *float64
	AvgOilPressure *float64
	AvgBearingTemp *float64
	AvgVibration   *float64
	SampleCount    int
	CreatedAt      time.Time
}

// DailySummary represents daily min/max telemetry
type DailySummary struct {
	ID             int64
	EngineID       string
	Date           time.Time
	MinExhaustTemp *float64
	MaxExhaustTemp *float64
	MinOilPressure *float64
	MaxOilPressure *float64
	MinBearingTemp *float64
	MaxBearingTemp *float64
	MinVibration   *float64
	MaxVibration   *float64
	CreatedAt      time.Time
}

// AlertTransition represents a logged alert severity change
type AlertTransition struct {
	ID             int64
	EngineID       string
	Component      string
	FromSeverity   string
	ToSeverity     string
	Score          float64
	DegradationPct *float64
	OccurredAt     time.Time
	CreatedAt      time.Time
}

// ModelSnapshot is a persisted fitted-model pair, letting the perception
// service restart without retraining
type ModelSnapshot struct {
	ID        int64
	TrainedAt time.Time
	Payload   []byte // JSON-serialized snapshot
	CreatedAt time.Time
}
