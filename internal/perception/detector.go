package perception

import "math"

// Severity classifies how abnormal a reading is.
type Severity string

const (
	SeverityNormal   Severity = "NORMAL"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

func severityRank(s Severity) int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	default:
		return 0
	}
}

// DetectorConfig configures the anomaly detector.
type DetectorConfig struct {
	Forest ForestConfig
	// ZBound is the per-feature deviation bound: a normalized feature with
	// |z| above it is reported as a threshold violation regardless of the
	// learned model.
	ZBound float64
	// CriticalMargin is how far above the decision threshold a score must
	// be to count as critical on its own.
	CriticalMargin float64
}

// Detector scores normalized feature vectors against a fitted outlier model
// and applies a rule-based per-feature deviation check layered on top of it.
// Fields are exported for snapshot serialization; a trained Detector is
// treated as immutable.
type Detector struct {
	ZBound         float64 `json:"z_bound"`
	CriticalMargin float64 `json:"critical_margin"`
	Forest         *Forest `json:"forest"`
}

// NewDetector creates an untrained detector.
func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{
		ZBound:         cfg.ZBound,
		CriticalMargin: cfg.CriticalMargin,
	}
}

// Train fits the outlier model over normalized vectors from known-normal
// data. Training is deterministic for a fixed seed and input.
func (d *Detector) Train(cfg ForestConfig, vectors [][]float64) error {
	forest, err := FitForest(cfg, vectors)
	if err != nil {
		return err
	}
	d.Forest = forest
	return nil
}

// Trained reports whether the detector holds a fitted model.
func (d *Detector) Trained() bool { return d.Forest != nil }

// Score returns the anomaly score for a normalized vector and whether it
// crosses the contamination-calibrated threshold. Fails with
// NotTrainedError before Train.
func (d *Detector) Score(vec []float64) (float64, bool, error) {
	if d.Forest == nil {
		return 0, false, &NotTrainedError{Op: "Score"}
	}
	score := d.Forest.Score(vec)
	return score, d.Forest.Anomalous(score), nil
}

// Violations lists the features of a normalized vector whose absolute
// deviation exceeds the configured bound. This check is independent of the
// learned model.
func (d *Detector) Violations(vec []float64) []string {
	var out []string
	for i, z := range vec {
		if math.Abs(z) > d.ZBound {
			out = append(out, FeatureNames[i])
		}
	}
	return out
}

// Severity classifies a scored vector. Two or more rule violations, or a
// score well past the threshold, are critical; a single violation or a
// threshold crossing is a warning.
func (d *Detector) Severity(score float64, violations int) Severity {
	if d.Forest == nil {
		return SeverityNormal
	}
	switch {
	case violations >= 2 || score >= d.Forest.Threshold+d.CriticalMargin:
		return SeverityCritical
	case violations == 1 || score >= d.Forest.Threshold:
		return SeverityWarning
	default:
		return SeverityNormal
	}
}
