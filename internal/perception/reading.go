package perception

import (
	"math"
)

// Required sensor channels for every engine reading.
const (
	FeatureExhaustGasTemp  = "exhaust_gas_temp_c"
	FeatureLubeOilPressure = "lube_oil_pressure_bar"
	FeatureMainBearingTemp = "main_bearing_temp_c"
	FeatureVibrationRMS    = "vibration_rms_mm_s"
)

// FeatureNames lists the required features in the fixed vector order used
// throughout the pipeline.
var FeatureNames = []string{
	FeatureExhaustGasTemp,
	FeatureLubeOilPressure,
	FeatureMainBearingTemp,
	FeatureVibrationRMS,
}

// NumFeatures is the dimensionality of a feature vector.
const NumFeatures = 4

// Reading is a validated sensor reading. All four channels are guaranteed
// present and finite once a Reading has been constructed via ReadingFromMap
// or checked with Validate.
type Reading struct {
	ExhaustGasTemp  float64 `json:"exhaust_gas_temp_c"`
	LubeOilPressure float64 `json:"lube_oil_pressure_bar"`
	MainBearingTemp float64 `json:"main_bearing_temp_c"`
	VibrationRMS    float64 `json:"vibration_rms_mm_s"`
}

// ReadingFromMap builds a Reading from a feature-name keyed map, validating
// that every required feature is present and finite.
func ReadingFromMap(values map[string]float64) (Reading, error) {
	var r Reading
	for _, name := range FeatureNames {
		v, ok := values[name]
		if !ok {
			return Reading{}, &ValidationError{Feature: name, Reason: "missing required feature"}
		}
		if !isFinite(v) {
			return Reading{}, &ValidationError{Feature: name, Reason: "value is not finite"}
		}
		r.set(name, v)
	}
	return r, nil
}

// Values returns the reading as a vector in FeatureNames order.
func (r Reading) Values() []float64 {
	return []float64{r.ExhaustGasTemp, r.LubeOilPressure, r.MainBearingTemp, r.VibrationRMS}
}

// Validate checks that every channel holds a finite value.
func (r Reading) Validate() error {
	for i, v := range r.Values() {
		if !isFinite(v) {
			return &ValidationError{Feature: FeatureNames[i], Reason: "value is not finite"}
		}
	}
	return nil
}

func (r *Reading) set(name string, v float64) {
	switch name {
	case FeatureExhaustGasTemp:
		r.ExhaustGasTemp = v
	case FeatureLubeOilPressure:
		r.LubeOilPressure = v
	case FeatureMainBearingTemp:
		r.MainBearingTemp = v
	case FeatureVibrationRMS:
		r.VibrationRMS = v
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
