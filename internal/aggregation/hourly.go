package aggregation

import (
	"fmt"
	"time"

	"github.com/poseidoneye/perception-server/internal/database"
)

// HourlyAggregator performs hourly aggregation
type HourlyAggregator struct {
	db *database.DB
}

// NewHourlyAggregator creates a new hourly aggregator
func NewHourlyAggregator(db *database.DB) *HourlyAggregator {
	return &HourlyAggregator{db: db}
}

// Aggregate performs hourly aggregation for the specified hour
func (h *HourlyAggregator) Aggregate(targetHour time.Time) error {
	// Truncate to the beginning of the hour
	startTime := targetHour.Truncate(time.Hour)
	endTime := startTime.Add(time.Hour)

	fmt.Printf("Running hourly aggregation for %s\n", startTime.Format("2006-01-02 15:04:05"))

	query := `
		INSERT INTO hourly_readings (
			engine_id, hour_timestamp, avg_exhaust_temp, avg_oil_pressure,
			avg_bearing_temp, avg_vibration, sample_count
		)
		SELECT
			engine_id,
			$1 AS hour_timestamp,
			AVG(exhaust_gas_temp_c) AS avg_exhaust_temp,
			AVG(lube_oil_pressure_bar) AS avg_oil_pressure,
			AVG(main_bearing_temp_c) AS avg_bearing_temp,
			AVG(vibration_rms_mm_s) AS avg_vibration,
			COUNT(*) AS sample_count
		FROM
			raw_readings
		WHERE
			timestamp >= $1 AND timestamp < $2
		GROUP BY
			engine_id
		ON CONFLICT (engine_id, hour_timestamp) DO UPDATE
		SET
			avg_exhaust_temp = EXCLUDED.avg_exhaust_temp,
			avg_oil_pressure = EXCLUDED.avg_oil_pressure,
			avg_bearing_temp = EXCLUDED.avg_bearing_temp,
			avg_vibration = EXCLUDED.avg_vibration,
			sample_count = EXCLUDED.sample_count
	`

	result, err := h.db.Exec(query, startTime, endTime)
	if err != nil {
		return fmt.Errorf("failed to aggregate hourly data: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	fmt.Printf("Hourly aggregation completed: %d engines processed\n", rowsAffected)

	return nil
}

// AggregatePreviousHour aggregates the previous full hour
func (h *HourlyAggregator) AggregatePreviousHour() error {
	now := time.Now()
	previousHour := now.Add(-1 * time.Hour).Truncate(time.Hour)
	return h.Aggregate(previousHour)
}

// CalculateNextRunTime calculates when the hourly aggregation should next run
// It runs at HH:05:00 (5 minutes past each hour)
func (h *HourlyAggregator) CalculateNextRunTime(delay time.Duration) time.Time {
	now := time.Now()

	// Next hour
	nextHour := now.Truncate(time.Hour).Add(time.Hour)

	// Add delay (e.g., 5 minutes past the hour)
	nextRun := nextHour.Add(delay)

	// If we're past the next run time, add another hour
	if now.After(nextRun) {
		nextRun = nextRun.Add(time.Hour)
	}

	return nextRun
}
