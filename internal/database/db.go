package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// UpsertEngine inserts or updates an engine installation
func (db *DB) UpsertEngine(e *Engine) error {
	query := `
		INSERT INTO engines (engine_id, vessel)
		VALUES ($1, $2)
		ON CONFLICT (engine_id) DO UPDATE
		SET vessel = EXCLUDED.vessel,
		    updated_at = CURRENT_TIMESTAMP
	`
	_, err := db.Exec(query, e.EngineID, e.Vessel)
	return err
}

// GetEngine retrieves an engine by ID
func (db *DB) GetEngine(engineID string) (*Engine, error) {
	query := `
		SELECT engine_id, vessel, created_at, updated_at
		FROM engines
		WHERE engine_id = $1
	`

	var e Engine
	err := db.QueryRow(query, engineID).Scan(
		&e.EngineID,
		&e.Vessel,
		&e.CreatedAt,
		&e.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// InsertRawReading inserts a raw sensor sweep
func (db *DB) InsertRawReading(r *RawReading) error {
	query := `
		INSERT INTO raw_readings (
			engine_id, timestamp, exhaust_gas_temp_c, lube_oil_pressure_bar,
			main_bearing_temp_c, vibration_rms_mm_s, engine_rpm,
			fuel_consumption_l_h, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	return db.QueryRow(
		query,
		r.EngineID,
		r.Timestamp,
		r.ExhaustGasTemp,
		r.LubeOilPressure,
		r.MainBearingTemp,
		r.VibrationRMS,
		r.EngineRPM,
		r.FuelConsumption,
		r.ReceivedAt,
	).Scan(&r.ID)
}

// InsertAlertTransition logs an alert severity change
func (db *DB) InsertAlertTransition(t *AlertTransition) error {
	query := `
		INSERT INTO alert_transitions (
			engine_id, component, from_severity, to_severity,
			score, degradation_pct, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return db.QueryRow(
		query,
		t.EngineID,
		t.Component,
		t.FromSeverity,
		t.ToSeverity,
		t.Score,
		t.DegradationPct,
		t.OccurredAt,
	).Scan(&t.ID)
}

// SaveModelSnapshot persists a fitted-model snapshot
func (db *DB) SaveModelSnapshot(s *ModelSnapshot) error {
	query := `
		INSERT INTO model_snapshots (trained_at, payload)
		VALUES ($1, $2)
		RETURNING id
	`
	return db.QueryRow(query, s.TrainedAt, s.Payload).Scan(&s.ID)
}

// GetLatestModelSnapshot retrieves the most recently trained snapshot, or
// nil when none has been persisted yet
func (db *DB) GetLatestModelSnapshot() (*ModelSnapshot, error) {
	query := `
		SELECT id, trained_at, payload, created_at
		FROM model_snapshots
		ORDER BY trained_at DESC
		LIMIT 1
	`

	var s ModelSnapshot
	err := db.QueryRow(query).Scan(&s.ID, &s.TrainedAt, &s.Payload, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// GetRecentAlertTransitions returns the latest transitions for an engine
func (db *DB) GetRecentAlertTransitions(engineID string, limit int) ([]*AlertTransition, error) {
	query := `
		SELECT id, engine_id, component, from_severity, to_severity,
		       score, degradation_pct, occurred_at, created_at
		FROM alert_transitions
		WHERE engine_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := db.Query(query, engineID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []*AlertTransition
	for rows.Next() {
		var t AlertTransition
		if err := rows.Scan(
			&t.ID,
			&t.EngineID,
			&t.Component,
			&t.FromSeverity,
			&t.ToSeverity,
			&t.Score,
			&t.DegradationPct,
			&t.OccurredAt,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		transitions = append(transitions, &t)
	}

	return transitions, rows.Err()
}

// PruneModelSnapshots deletes snapshots older than the cutoff, keeping the
// newest one regardless of age
func (db *DB) PruneModelSnapshots(olderThan time.Time) error {
	query := `
		DELETE FROM model_snapshots
		WHERE trained_at < $1
		  AND id <> (SELECT id FROM model_snapshots ORDER BY trained_at DESC LIMIT 1)
	`
	_, err := db.Exec(query, olderThan)
	return err
}
