package perception

import (
	"errors"
	"math"
	"testing"
)

func uniformRows(n int, r Reading) []Reading {
	rows := make([]Reading, n)
	for i := range rows {
		rows[i] = r
	}
	return rows
}

func TestFitScaler_TooFewRows(t *testing.T) {
	rows := GenerateTrainingData(MinTrainingRows-1, 1)

	_, err := FitScaler(rows)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientDataError, got %v", err)
	}
	if insufficient.Rows != MinTrainingRows-1 || insufficient.Required != MinTrainingRows {
		t.Errorf("Unexpected error detail: %+v", insufficient)
	}
}

func TestFitScaler_RejectsNonFinite(t *testing.T) {
	rows := GenerateTrainingData(MinTrainingRows, 1)
	rows[13].VibrationRMS = math.NaN()

	_, err := FitScaler(rows)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if validation.Feature != FeatureVibrationRMS {
		t.Errorf("Expected violation on %s, got %s", FeatureVibrationRMS, validation.Feature)
	}
}

func TestFitScaler_ConstantFeatureGetsUnitScale(t *testing.T) {
	// All rows identical: every feature is constant, so every stddev
	// degenerates and must be substituted with 1.
	r := Reading{ExhaustGasTemp: 380, LubeOilPressure: 3.5, MainBearingTemp: 70, VibrationRMS: 4.5}
	scaler, err := FitScaler(uniformRows(MinTrainingRows, r))
	if err != nil {
		t.Fatalf("FitScaler failed: %v", err)
	}

	for i, std := range scaler.Stddevs {
		if std != 1 {
			t.Errorf("Feature %s: expected unit stddev, got %v", FeatureNames[i], std)
		}
	}

	vec, err := scaler.Transform(r)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	for i, z := range vec {
		if z != 0 {
			t.Errorf("Feature %s: expected z=0 at the mean, got %v", FeatureNames[i], z)
		}
	}
}

func TestScalerTransform(t *testing.T) {
	rows := GenerateTrainingData(500, 7)
	scaler, err := FitScaler(rows)
	if err != nil {
		t.Fatalf("FitScaler failed: %v", err)
	}

	// A reading exactly at the fitted means maps close to the origin.
	atMean := Reading{
		ExhaustGasTemp:  scaler.Means[0],
		LubeOilPressure: scaler.Means[1],
		MainBearingTemp: scaler.Means[2],
		VibrationRMS:    scaler.Means[3],
	}
	vec, err := scaler.Transform(atMean)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	for i, z := range vec {
		if math.Abs(z) > 1e-9 {
			t.Errorf("Feature %s: expected z=0 at the mean, got %v", FeatureNames[i], z)
		}
	}

	// One stddev above the mean maps to z=1.
	oneUp := atMean
	oneUp.ExhaustGasTemp += scaler.Stddevs[0]
	vec, err = scaler.Transform(oneUp)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if math.Abs(vec[0]-1) > 1e-9 {
		t.Errorf("Expected z=1 one stddev up, got %v", vec[0])
	}
}

func TestScalerTransform_RejectsNonFinite(t *testing.T) {
	scaler, err := FitScaler(GenerateTrainingData(200, 3))
	if err != nil {
		t.Fatalf("FitScaler failed: %v", err)
	}

	bad := Reading{ExhaustGasTemp: math.Inf(1), LubeOilPressure: 3.5, MainBearingTemp: 70, VibrationRMS: 4.5}
	_, err = scaler.Transform(bad)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestReadingFromMap(t *testing.T) {
	values := map[string]float64{
		FeatureExhaustGasTemp:  380,
		FeatureLubeOilPressure: 3.5,
		FeatureMainBearingTemp: 70,
		FeatureVibrationRMS:    4.5,
	}

	r, err := ReadingFromMap(values)
	if err != nil {
		t.Fatalf("ReadingFromMap failed: %v", err)
	}
	if r.ExhaustGasTemp != 380 || r.VibrationRMS != 4.5 {
		t.Errorf("Unexpected reading: %+v", r)
	}

	// Missing feature
	delete(values, FeatureMainBearingTemp)
	_, err = ReadingFromMap(values)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Expected ValidationError for missing feature, got %v", err)
	}
	if validation.Feature != FeatureMainBearingTemp {
		t.Errorf("Expected error on %s, got %s", FeatureMainBearingTemp, validation.Feature)
	}

	// Extra keys are ignored
	values[FeatureMainBearingTemp] = 70
	values["engine_rpm"] = 514
	if _, err := ReadingFromMap(values); err != nil {
		t.Errorf("Extra keys should be ignored, got %v", err)
	}
}
