package perception

import (
	"errors"
	"testing"
	"time"
)

func rulTestConfig() RULConfig {
	return RULConfig{
		MinPoints:    10,
		FailureScore: 0.7,
		CapHours:     10000,
		WarnPct:      60,
		CriticalPct:  85,
	}
}

// fillScores pushes one entry per hour with the given scores, ending at start.
func fillScores(b *Buffer, component string, start time.Time, scores []float64) {
	for i, s := range scores {
		b.Push(component, Entry{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Score:     s,
		})
	}
}

func TestRUL_InsufficientHistory(t *testing.T) {
	b := NewBuffer(100)
	est := NewRULEstimator(rulTestConfig(), b)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	fillScores(b, "ME-4501", start, []float64{0.4, 0.4, 0.4}) // 3 points + current = 4 < 10

	_, err := est.Estimate("ME-4501", 0.4, start.Add(4*time.Hour), 0.4)
	var insufficient *InsufficientHistoryError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientHistoryError, got %v", err)
	}
	if insufficient.Component != "ME-4501" {
		t.Errorf("Unexpected component: %s", insufficient.Component)
	}
}

func TestRUL_FlatTrendCapsEstimate(t *testing.T) {
	b := NewBuffer(100)
	cfg := rulTestConfig()
	est := NewRULEstimator(cfg, b)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	scores := make([]float64, 20)
	for i := range scores {
		scores[i] = 0.45
	}
	fillScores(b, "ME-4501", start, scores)

	e, err := est.Estimate("ME-4501", 0.4, start.Add(20*time.Hour), 0.45)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	if e.Hours != int(cfg.CapHours) {
		t.Errorf("Flat trend should cap at %v hours, got %d", cfg.CapHours, e.Hours)
	}
	if e.Days != e.Hours/24 {
		t.Errorf("Days %d inconsistent with hours %d", e.Days, e.Hours)
	}
	// (0.45-0.4)/(0.7-0.4) is well under the warn tier
	if e.Action != ActionMonitor {
		t.Errorf("Expected monitor action, got %s", e.Action)
	}
	if e.DegradationPct < 10 || e.DegradationPct > 25 {
		t.Errorf("Unexpected degradation %v", e.DegradationPct)
	}
}

func TestRUL_WorseningTrendShortensLife(t *testing.T) {
	b := NewBuffer(100)
	est := NewRULEstimator(rulTestConfig(), b)

	// Score climbs 0.01 per hour from 0.40: the trend crosses the 0.7
	// failure score in a finite, small number of hours.
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	scores := make([]float64, 20)
	for i := range scores {
		scores[i] = 0.40 + 0.01*float64(i)
	}
	fillScores(b, "ME-4501", start, scores)

	e, err := est.Estimate("ME-4501", 0.4, start.Add(20*time.Hour), 0.60)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	if e.Hours >= int(rulTestConfig().CapHours) {
		t.Errorf("Worsening trend should not hit the cap, got %d hours", e.Hours)
	}
	if e.Hours <= 0 {
		t.Errorf("Trend has not crossed failure yet, expected positive hours, got %d", e.Hours)
	}
	if e.DegradationPct <= 30 {
		t.Errorf("Expected substantial degradation, got %v", e.DegradationPct)
	}
}

func TestRUL_MonotonicUnderWorseningScore(t *testing.T) {
	b := NewBuffer(100)
	est := NewRULEstimator(rulTestConfig(), b)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	scores := make([]float64, 30)
	for i := range scores {
		scores[i] = 0.40 + 0.005*float64(i)
	}
	fillScores(b, "ME-4501", start, scores)

	now := start.Add(30 * time.Hour)
	mild, err := est.Estimate("ME-4501", 0.4, now, 0.55)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	severe, err := est.Estimate("ME-4501", 0.4, now, 0.68)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	if severe.Hours > mild.Hours {
		t.Errorf("Worse current score must not lengthen life: %d > %d", severe.Hours, mild.Hours)
	}
	if severe.DegradationPct < mild.DegradationPct {
		t.Errorf("Worse current score must not lower degradation: %v < %v",
			severe.DegradationPct, mild.DegradationPct)
	}
}

func TestRUL_HistoryOnlyMatchesStreamedObservation(t *testing.T) {
	// The streaming path buffers a reading's score and then estimates from
	// the history alone. That must give the same result as the pure path
	// where the newest observation is passed in on top of the remaining
	// history; anything else means the newest point is weighted twice.
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	scores := make([]float64, 12)
	for i := range scores {
		scores[i] = 0.45
	}
	spikeAt := start.Add(12 * time.Hour)
	const spike = 0.62

	streamed := NewBuffer(100)
	fillScores(streamed, "ME-4501", start, scores)
	streamed.Push("ME-4501", Entry{Timestamp: spikeAt, Score: spike})
	fromHistory, err := NewRULEstimator(rulTestConfig(), streamed).EstimateFromHistory("ME-4501", 0.4)
	if err != nil {
		t.Fatalf("EstimateFromHistory failed: %v", err)
	}

	pure := NewBuffer(100)
	fillScores(pure, "ME-4501", start, scores)
	fromCurrent, err := NewRULEstimator(rulTestConfig(), pure).Estimate("ME-4501", 0.4, spikeAt, spike)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	if fromHistory != fromCurrent {
		t.Errorf("History-only estimate %+v differs from streamed-observation estimate %+v",
			fromHistory, fromCurrent)
	}
}

func TestRUL_ActionTiers(t *testing.T) {
	b := NewBuffer(200)
	cfg := rulTestConfig()
	est := NewRULEstimator(cfg, b)

	// Scores already near failure: degradation lands in the critical tier.
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	scores := make([]float64, 20)
	for i := range scores {
		scores[i] = 0.66 + 0.001*float64(i)
	}
	fillScores(b, "ME-4501", start, scores)

	e, err := est.Estimate("ME-4501", 0.4, start.Add(20*time.Hour), 0.68)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if e.Action != ActionImmediateInspection {
		t.Errorf("Expected immediate_inspection at degradation %v, got %s", e.DegradationPct, e.Action)
	}

	// Degradation is clamped even when the trend is past the failure score.
	scores = make([]float64, 20)
	for i := range scores {
		scores[i] = 0.9
	}
	b2 := NewBuffer(100)
	est2 := NewRULEstimator(cfg, b2)
	fillScores(b2, "AE-0902", start, scores)

	e, err = est2.Estimate("AE-0902", 0.4, start.Add(20*time.Hour), 0.9)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if e.DegradationPct != 100 {
		t.Errorf("Expected degradation clamped to 100, got %v", e.DegradationPct)
	}
	if e.Action != ActionImmediateInspection {
		t.Errorf("Expected immediate_inspection, got %s", e.Action)
	}
}
