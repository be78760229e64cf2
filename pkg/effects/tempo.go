package effects

// Audio tempo limits of a single atempo step. The underlying audio tempo
// primitive cannot exceed this ratio in one application, so out-of-range
// speeds are decomposed into a chain of in-range steps.
const (
	minTempoStep = 0.5
	maxTempoStep = 2.0
)

// TempoChain decomposes a playback speed into a sequence of tempo steps.
// Speeds above 2 are repeatedly halved by emitting 2.0 steps; speeds below
// 0.5 get a single 0.5 step, which brings any speed down to the 0.25 floor
// back into range. The remainder becomes the final step: 5x yields
// [2, 2, 1.25] and 0.2x yields [0.5, 0.4]. A neutral speed yields no
// steps. Range clamping of the input is the caller's concern.
func TempoChain(speed float64) []float64 {
	if speed <= 0 || speed == 1.0 {
		return nil
	}

	var steps []float64
	remaining := speed
	for remaining > maxTempoStep {
		steps = append(steps, maxTempoStep)
		remaining /= maxTempoStep
	}
	if remaining < minTempoStep {
		steps = append(steps, minTempoStep)
		remaining /= minTempoStep
	}
	steps = append(steps, remaining)
	return steps
}
