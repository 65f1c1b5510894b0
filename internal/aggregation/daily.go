package aggregation

import (
	"fmt"
	"time"

	"github.com/poseidoneye/perception-server/internal/database"
)

// DailyAggregator performs daily aggregation
type DailyAggregator struct {
	db *database.DB
}

// NewDailyAggregator creates a new daily aggregator
func NewDailyAggregator(db *database.DB) *DailyAggregator {
	return &DailyAggregator{db: db}
}

// Aggregate performs daily aggregation for the specified date
func (d *DailyAggregator) Aggregate(targetDate time.Time) error {
	// Truncate to beginning of day
	date := targetDate.Truncate(24 * time.Hour)

	fmt.Printf("Running daily aggregation for %s\n", date.Format("2006-01-02"))

	query := `
		INSERT INTO daily_summaries (
			engine_id, date,
			min_exhaust_temp, max_exhaust_temp,
			min_oil_pressure, max_oil_pressure,
			min_bearing_temp, max_bearing_temp,
			min_vibration, max_vibration
		)
		SELECT
			engine_id,
			$1::date AS date,
			MIN(avg_exhaust_temp) AS min_exhaust_temp,
			MAX(avg_exhaust_temp) AS max_exhaust_temp,
			MIN(avg_oil_pressure) AS min_oil_pressure,
			MAX(avg_oil_pressure) AS max_oil_pressure,
			MIN(avg_bearing_temp) AS min_bearing_temp,
			MAX(avg_bearing_temp) AS max_bearing_temp,
			MIN(avg_vibration) AS min_vibration,
			MAX(avg_vibration) AS max_vibration
		FROM
			hourly_readings
		WHERE
			DATE(hour_timestamp) = $1::date
		GROUP BY
			engine_id
		ON CONFLICT (engine_id, date) DO UPDATE
		SET
			min_exhaust_temp = EXCLUDED.min_exhaust_temp,
			max_exhaust_temp = EXCLUDED.max_exhaust_temp,
			min_oil_pressure = EXCLUDED.min_oil_pressure,
			max_oil_pressure = EXCLUDED.max_oil_pressure,
			min_bearing_temp = EXCLUDED.min_bearing_temp,
			max_bearing_temp = EXCLUDED.max_bearing_temp,
			min_vibration = EXCLUDED.min_vibration,
			max_vibration = EXCLUDED.max_vibration
	`

	result, err := d.db.Exec(query, date)
	if err != nil {
		return fmt.Errorf("failed to aggregate daily data: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	fmt.Printf("Daily aggregation completed: %d engines processed\n", rowsAffected)

	return nil
}

// AggregatePreviousDay aggregates the previous full day
func (d *DailyAggregator) AggregatePreviousDay() error {
	now := time.Now()
	yesterday := now.AddDate(0, 0, -1).Truncate(24 * time.Hour)
	return d.Aggregate(yesterday)
}

// CalculateNextRunTime calculates when the daily aggregation should next run
// It runs at a specific time each day (e.g., 00:05:00)
func (d *DailyAggregator) CalculateNextRunTime(timeOfDay string) (time.Time, error) {
	now := time.Now()

	// Parse time of day (format: "HH:MM")
	var hour, minute int
	if _, err := fmt.Sscanf(timeOfDay, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %s (expected HH:MM)", timeOfDay)
	}

	// Today's run time
	todayRun := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	// If we're past today's run time, schedule for tomorrow
	if now.After(todayRun) {
		return todayRun.AddDate(0, 0, 1), nil
	}

	return todayRun, nil
}
