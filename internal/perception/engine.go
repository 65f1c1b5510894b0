package perception

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// Config collects the tunables of the perception engine.
type Config struct {
	Detector       DetectorConfig
	RUL            RULConfig
	BufferCapacity int
	ClearAfter     int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Detector: DetectorConfig{
			Forest: ForestConfig{
				Contamination: 0.1,
				Estimators:    100,
				SampleSize:    0, // min(256, n)
				Seed:          42,
			},
			ZBound:         3,
			CriticalMargin: 0.08,
		},
		RUL: RULConfig{
			MinPoints:    10,
			FailureScore: 0.7,
			CapHours:     10000,
			WarnPct:      60,
			CriticalPct:  85,
		},
		BufferCapacity: DefaultBufferCapacity,
		ClearAfter:     DefaultClearAfter,
	}
}

// Prediction is the result of scoring a single reading.
type Prediction struct {
	IsAnomaly  bool     `json:"is_anomaly"`
	Score      float64  `json:"anomaly_score"`
	Severity   Severity `json:"severity"`
	Violations []string `json:"threshold_violations"`
}

// IngestResult is the outcome of processing one streamed reading for a
// component: its prediction plus the alert transition it caused, if any.
type IngestResult struct {
	Prediction Prediction  `json:"prediction"`
	Transition *Transition `json:"transition,omitempty"`
}

// snapshot is the immutable fitted-model pair shared by all readers. A
// retrain builds a fresh snapshot and swaps the pointer atomically, so
// in-flight calls always see one consistent model.
type snapshot struct {
	Scaler    *Scaler   `json:"scaler"`
	Detector  *Detector `json:"detector"`
	TrainedAt time.Time `json:"trained_at"`
	Rows      int       `json:"training_rows"`
}

// Engine is the perception and prognostics facade. It owns the fitted
// models, the per-component retention buffer and the alert state machine,
// and exposes Train, PredictAnomaly and EstimateRUL as the public surface.
// Readings for one component must be ingested in arrival order; distinct
// components may be processed concurrently.
type Engine struct {
	cfg    Config
	snap   atomic.Pointer[snapshot]
	buffer *Buffer
	alerts *AlertMachine
	rul    *RULEstimator
}

// NewEngine creates an untrained engine.
func NewEngine(cfg Config) *Engine {
	buffer := NewBuffer(cfg.BufferCapacity)
	return &Engine{
		cfg:    cfg,
		buffer: buffer,
		alerts: NewAlertMachine(cfg.ClearAfter),
		rul:    NewRULEstimator(cfg.RUL, buffer),
	}
}

// Train fits the normalization and anomaly models on a dataset of
// known-normal readings and atomically replaces the active models. The
// dataset is not retained. Alert states reset, since severities are only
// meaningful relative to one fitted baseline.
func (e *Engine) Train(rows []Reading) error {
	scaler, err := FitScaler(rows)
	if err != nil {
		return err
	}

	vectors := make([][]float64, len(rows))
	for i, row := range rows {
		vec, err := scaler.Transform(row)
		if err != nil {
			return err
		}
		vectors[i] = vec
	}

	detector := NewDetector(e.cfg.Detector)
	if err := detector.Train(e.cfg.Detector.Forest, vectors); err != nil {
		return fmt.Errorf("failed to train detector: %w", err)
	}

	e.snap.Store(&snapshot{
		Scaler:    scaler,
		Detector:  detector,
		TrainedAt: time.Now().UTC(),
		Rows:      len(rows),
	})
	e.alerts.Reset()
	return nil
}

// Trained reports whether the engine holds fitted models.
func (e *Engine) Trained() bool { return e.snap.Load() != nil }

// PredictAnomaly scores a reading against the fitted models. It has no side
// effects. Fails with NotTrainedError before Train and ValidationError on
// malformed input.
func (e *Engine) PredictAnomaly(r Reading) (Prediction, error) {
	snap := e.snap.Load()
	if snap == nil {
		return Prediction{}, &NotTrainedError{Op: "PredictAnomaly"}
	}
	return predict(snap, r)
}

func predict(snap *snapshot, r Reading) (Prediction, error) {
	vec, err := snap.Scaler.Transform(r)
	if err != nil {
		return Prediction{}, err
	}
	score, isAnomaly, err := snap.Detector.Score(vec)
	if err != nil {
		return Prediction{}, err
	}
	violations := snap.Detector.Violations(vec)
	return Prediction{
		IsAnomaly:  isAnomaly,
		Score:      score,
		Severity:   snap.Detector.Severity(score, len(violations)),
		Violations: violations,
	}, nil
}

// EstimateRUL estimates remaining useful life for a component from its
// buffered history plus the current reading's anomaly score. The buffer is
// not mutated; the estimate is derived fresh on every call.
func (e *Engine) EstimateRUL(r Reading, component string) (Estimate, error) {
	snap := e.snap.Load()
	if snap == nil {
		return Estimate{}, &NotTrainedError{Op: "EstimateRUL"}
	}
	pred, err := predict(snap, r)
	if err != nil {
		return Estimate{}, err
	}
	return e.rul.Estimate(component, snap.Detector.Forest.Baseline, time.Now().UTC(), pred.Score)
}

// EstimateRULFromHistory estimates remaining useful life from the buffered
// history alone. The streaming pipeline calls this after Ingest has already
// scored and buffered the current reading, so no observation is scored or
// weighted twice.
func (e *Engine) EstimateRULFromHistory(component string) (Estimate, error) {
	snap := e.snap.Load()
	if snap == nil {
		return Estimate{}, &NotTrainedError{Op: "EstimateRULFromHistory"}
	}
	return e.rul.EstimateFromHistory(component, snap.Detector.Forest.Baseline)
}

// Ingest processes one streamed reading for a component: it scores the
// reading, appends it to the retention buffer and feeds the alert state
// machine. Calls for the same component must not be concurrent; the
// pipeline shards by component to guarantee arrival order.
func (e *Engine) Ingest(component string, r Reading, at time.Time) (IngestResult, error) {
	snap := e.snap.Load()
	if snap == nil {
		return IngestResult{}, &NotTrainedError{Op: "Ingest"}
	}
	pred, err := predict(snap, r)
	if err != nil {
		return IngestResult{}, err
	}

	e.buffer.Push(component, Entry{Timestamp: at, Reading: r, Score: pred.Score})

	result := IngestResult{Prediction: pred}
	if t, ok := e.alerts.Observe(component, pred.Severity, pred.Score, at); ok {
		result.Transition = &t
	}
	return result, nil
}

// AlertState returns the current alert severity for a component.
func (e *Engine) AlertState(component string) Severity {
	return e.alerts.State(component)
}

// AlertHistory returns the recorded alert transitions for a component.
func (e *Engine) AlertHistory(component string) []Transition {
	return e.alerts.History(component)
}

// Components returns the components with buffered history.
func (e *Engine) Components() []string {
	return e.buffer.Components()
}

// HistoryLen returns the number of buffered readings for a component.
func (e *Engine) HistoryLen(component string) int {
	return e.buffer.Len(component)
}

// MarshalSnapshot serializes the fitted models for the persistence sink so
// a restarted process can skip retraining. Fails with NotTrainedError
// before Train.
func (e *Engine) MarshalSnapshot() ([]byte, error) {
	snap := e.snap.Load()
	if snap == nil {
		return nil, &NotTrainedError{Op: "MarshalSnapshot"}
	}
	return json.Marshal(snap)
}

// RestoreSnapshot installs previously persisted models, atomically
// replacing any active ones. Alert states reset as they would on retrain.
func (e *Engine) RestoreSnapshot(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode model snapshot: %w", err)
	}
	if snap.Scaler == nil || snap.Detector == nil || snap.Detector.Forest == nil {
		return fmt.Errorf("model snapshot is incomplete")
	}
	e.snap.Store(&snap)
	e.alerts.Reset()
	return nil
}

// TrainedAt returns when the active models were fitted, or the zero time if
// the engine is untrained.
func (e *Engine) TrainedAt() time.Time {
	if snap := e.snap.Load(); snap != nil {
		return snap.TrainedAt
	}
	return time.Time{}
}
