package perception

import "math"

// MinTrainingRows is the minimum number of readings required to fit the
// normalization model.
const MinTrainingRows = 100

// Scaler maps raw readings to standardized feature vectors using a
// per-feature mean and standard deviation fitted from known-normal data.
// A fitted Scaler is immutable; retraining produces a new one.
type Scaler struct {
	Means   []float64 `json:"means"`
	Stddevs []float64 `json:"stddevs"`
}

// FitScaler computes per-feature mean and standard deviation from the
// training dataset. It fails with InsufficientDataError when fewer than
// MinTrainingRows rows are supplied and with ValidationError when any row
// contains a non-finite value.
func FitScaler(rows []Reading) (*Scaler, error) {
	if len(rows) < MinTrainingRows {
		return nil, &InsufficientDataError{Rows: len(rows), Required: MinTrainingRows}
	}

	means := make([]float64, NumFeatures)
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, err
		}
		for i, v := range row.Values() {
			means[i] += v
		}
	}
	n := float64(len(rows))
	for i := range means {
		means[i] /= n
	}

	stddevs := make([]float64, NumFeatures)
	for _, row := range rows {
		for i, v := range row.Values() {
			d := v - means[i]
			stddevs[i] += d * d
		}
	}
	for i := range stddevs {
		stddevs[i] = math.Sqrt(stddevs[i] / n)
		// A constant feature would divide by zero; substitute unit scale.
		if stddevs[i] == 0 {
			stddevs[i] = 1
		}
	}

	return &Scaler{Means: means, Stddevs: stddevs}, nil
}

// Transform returns the standardized vector (x - mean) / std in fixed
// feature order. It fails with ValidationError when the reading contains a
// non-finite value.
func (s *Scaler) Transform(r Reading) ([]float64, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	vec := make([]float64, NumFeatures)
	for i, v := range r.Values() {
		vec[i] = (v - s.Means[i]) / s.Stddevs[i]
	}
	return vec, nil
}
