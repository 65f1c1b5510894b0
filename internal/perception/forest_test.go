package perception

import (
	"testing"
)

func trainingVectors(t *testing.T, n int, seed int64) [][]float64 {
	t.Helper()
	rows := GenerateTrainingData(n, seed)
	scaler, err := FitScaler(rows)
	if err != nil {
		t.Fatalf("FitScaler failed: %v", err)
	}
	vectors := make([][]float64, len(rows))
	for i, row := range rows {
		vec, err := scaler.Transform(row)
		if err != nil {
			t.Fatalf("Transform failed: %v", err)
		}
		vectors[i] = vec
	}
	return vectors
}

func TestFitForest_ConfigValidation(t *testing.T) {
	vectors := trainingVectors(t, 200, 1)

	if _, err := FitForest(ForestConfig{Contamination: 0, Estimators: 10}, vectors); err == nil {
		t.Error("Expected error for contamination 0")
	}
	if _, err := FitForest(ForestConfig{Contamination: 1, Estimators: 10}, vectors); err == nil {
		t.Error("Expected error for contamination 1")
	}
	if _, err := FitForest(ForestConfig{Contamination: 0.1, Estimators: 0}, vectors); err == nil {
		t.Error("Expected error for zero estimators")
	}
	if _, err := FitForest(ForestConfig{Contamination: 0.1, Estimators: 10}, nil); err == nil {
		t.Error("Expected error for empty training set")
	}
}

func TestFitForest_Deterministic(t *testing.T) {
	vectors := trainingVectors(t, 300, 42)
	cfg := ForestConfig{Contamination: 0.1, Estimators: 50, Seed: 42}

	f1, err := FitForest(cfg, vectors)
	if err != nil {
		t.Fatalf("FitForest failed: %v", err)
	}
	f2, err := FitForest(cfg, vectors)
	if err != nil {
		t.Fatalf("FitForest failed: %v", err)
	}

	if f1.Threshold != f2.Threshold {
		t.Errorf("Thresholds differ: %v vs %v", f1.Threshold, f2.Threshold)
	}
	if f1.Baseline != f2.Baseline {
		t.Errorf("Baselines differ: %v vs %v", f1.Baseline, f2.Baseline)
	}
	for i, vec := range vectors {
		if f1.Score(vec) != f2.Score(vec) {
			t.Fatalf("Score differs for vector %d", i)
		}
	}
}

func TestForestScore_Range(t *testing.T) {
	vectors := trainingVectors(t, 300, 7)
	f, err := FitForest(ForestConfig{Contamination: 0.1, Estimators: 100, Seed: 7}, vectors)
	if err != nil {
		t.Fatalf("FitForest failed: %v", err)
	}

	for i, vec := range vectors {
		score := f.Score(vec)
		if score <= 0 || score >= 1 {
			t.Fatalf("Score for vector %d out of (0,1): %v", i, score)
		}
	}
}

func TestForestScore_OutlierScoresHigher(t *testing.T) {
	vectors := trainingVectors(t, 500, 11)
	f, err := FitForest(ForestConfig{Contamination: 0.1, Estimators: 100, Seed: 11}, vectors)
	if err != nil {
		t.Fatalf("FitForest failed: %v", err)
	}

	// The origin is the densest region of standardized training data; a
	// point far outside the envelope must isolate faster and score higher.
	center := []float64{0, 0, 0, 0}
	outlier := []float64{12, -12, 12, 12}

	centerScore := f.Score(center)
	outlierScore := f.Score(outlier)
	if outlierScore <= centerScore {
		t.Errorf("Outlier score %v not above center score %v", outlierScore, centerScore)
	}
	if !f.Anomalous(outlierScore) {
		t.Errorf("Extreme outlier (score %v) not above threshold %v", outlierScore, f.Threshold)
	}
	if f.Anomalous(centerScore) {
		t.Errorf("Center of the training mass (score %v) flagged above threshold %v", centerScore, f.Threshold)
	}
}

func TestFitForest_ThresholdCalibration(t *testing.T) {
	vectors := trainingVectors(t, 400, 3)
	contamination := 0.1
	f, err := FitForest(ForestConfig{Contamination: contamination, Estimators: 100, Seed: 3}, vectors)
	if err != nil {
		t.Fatalf("FitForest failed: %v", err)
	}

	flagged := 0
	for _, vec := range vectors {
		if f.Anomalous(f.Score(vec)) {
			flagged++
		}
	}

	// The threshold is the empirical (1 - contamination) quantile, so about
	// a contamination fraction of the training set scores at or above it.
	frac := float64(flagged) / float64(len(vectors))
	if frac < contamination/2 || frac > contamination*2 {
		t.Errorf("Flagged fraction %v too far from contamination %v", frac, contamination)
	}
}
