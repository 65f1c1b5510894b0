package perception

import (
	"math"
	"time"
)

// Action is the maintenance recommendation attached to a RUL estimate.
type Action string

const (
	ActionMonitor             Action = "monitor"
	ActionScheduleMaintenance Action = "schedule_maintenance"
	ActionImmediateInspection Action = "immediate_inspection"
)

// RULConfig configures the remaining-useful-life estimator.
type RULConfig struct {
	// MinPoints is the minimum window of history required for an estimate.
	MinPoints int
	// FailureScore is the anomaly score treated as the failure threshold
	// the degradation trend is extrapolated toward.
	FailureScore float64
	// CapHours bounds the estimate when the trend is flat or improving.
	CapHours float64
	// WarnPct and CriticalPct are the two degradation tiers that select
	// the recommended action.
	WarnPct     float64
	CriticalPct float64
}

// Estimate is a remaining-useful-life estimate for a component, derived
// fresh from buffered history on every call.
type Estimate struct {
	Component      string  `json:"component"`
	Hours          int     `json:"rul_hours"`
	Days           int     `json:"rul_days"`
	DegradationPct float64 `json:"degradation_percentage"`
	Action         Action  `json:"recommended_action"`
}

// RULEstimator extrapolates a degradation trend from the retained history of
// a component. It is a heuristic trend extrapolation, not a physics model:
// the only guarantee is monotonic consistency under a worsening trend.
type RULEstimator struct {
	cfg    RULConfig
	buffer *Buffer
}

// NewRULEstimator creates an estimator over the given retention buffer.
func NewRULEstimator(cfg RULConfig, buffer *Buffer) *RULEstimator {
	return &RULEstimator{cfg: cfg, buffer: buffer}
}

// Estimate fits a linear trend of anomaly score over time across the
// component's window plus the current observation, and extrapolates the
// time until the trend crosses the failure score. baseline is the
// learned-normal score the degradation percentage is measured from. Fails
// with InsufficientHistoryError when fewer than MinPoints observations are
// available.
func (e *RULEstimator) Estimate(component string, baseline float64, now time.Time, currentScore float64) (Estimate, error) {
	times, scores := e.window(component)
	times = append(times, now)
	scores = append(scores, currentScore)
	return e.estimate(component, baseline, times, scores)
}

// EstimateFromHistory fits the trend across the buffered window alone. The
// streaming path uses it after the current reading has already been pushed,
// so the newest observation is counted exactly once.
func (e *RULEstimator) EstimateFromHistory(component string, baseline float64) (Estimate, error) {
	times, scores := e.window(component)
	return e.estimate(component, baseline, times, scores)
}

func (e *RULEstimator) window(component string) ([]time.Time, []float64) {
	var times []time.Time
	var scores []float64
	for entry := range e.buffer.Window(component, e.buffer.Capacity()) {
		times = append(times, entry.Timestamp)
		scores = append(scores, entry.Score)
	}
	return times, scores
}

func (e *RULEstimator) estimate(component string, baseline float64, times []time.Time, scores []float64) (Estimate, error) {
	if len(scores) < e.cfg.MinPoints {
		return Estimate{}, &InsufficientHistoryError{
			Component: component,
			Points:    len(scores),
			Required:  e.cfg.MinPoints,
		}
	}

	// Least-squares fit of score against hours elapsed since the window start.
	origin := times[0]
	xs := make([]float64, len(times))
	for i, t := range times {
		xs[i] = t.Sub(origin).Hours()
	}
	slope, intercept := leastSquares(xs, scores)
	current := intercept + slope*xs[len(xs)-1]

	span := e.cfg.FailureScore - baseline
	degradation := 0.0
	if span > 0 {
		degradation = (current - baseline) / span * 100
	}
	degradation = math.Min(100, math.Max(0, degradation))

	hours := e.cfg.CapHours
	if slope > 0 {
		hours = (e.cfg.FailureScore - current) / slope
		if hours < 0 {
			hours = 0
		}
		if hours > e.cfg.CapHours {
			hours = e.cfg.CapHours
		}
	}

	action := ActionMonitor
	switch {
	case degradation >= e.cfg.CriticalPct:
		action = ActionImmediateInspection
	case degradation >= e.cfg.WarnPct:
		action = ActionScheduleMaintenance
	}

	return Estimate{
		Component:      component,
		Hours:          int(hours),
		Days:           int(hours) / 24,
		DegradationPct: degradation,
		Action:         action,
	}, nil
}

// leastSquares returns the slope and intercept of the ordinary
// least-squares line through (xs, ys). A degenerate x-range yields a flat
// line at the mean.
func leastSquares(xs, ys []float64) (slope, intercept float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
