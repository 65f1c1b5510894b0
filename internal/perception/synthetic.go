package perception

import "math/rand"

// Normal operating baselines for a marine diesel engine, used for bootstrap
// training and by the simulator.
const (
	BaseExhaustGasTemp  = 380.0 // °C
	BaseLubeOilPressure = 3.5   // bar
	BaseMainBearingTemp = 70.0  // °C
	BaseVibrationRMS    = 4.5   // mm/s
)

// GenerateTrainingData produces n synthetic known-normal readings around the
// engine baselines. Deterministic for a fixed seed; used to bootstrap the
// models when no persisted snapshot exists yet.
func GenerateTrainingData(n int, seed int64) []Reading {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]Reading, n)
	for i := range rows {
		rows[i] = Reading{
			ExhaustGasTemp:  BaseExhaustGasTemp + rng.NormFloat64()*15,
			LubeOilPressure: BaseLubeOilPressure + rng.NormFloat64()*0.15,
			MainBearingTemp: BaseMainBearingTemp + rng.NormFloat64()*4,
			VibrationRMS:    BaseVibrationRMS + rng.NormFloat64()*0.4,
		}
	}
	return rows
}
