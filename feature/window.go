package feature

import "math"

// analysisWindow returns the fftSize-sample analysis window: a symmetric
// Hann window over the first frameLen samples, zero beyond.
func analysisWindow(fftSize, frameLen int) []float64 {
	out := make([]float64, fftSize)

	if frameLen == 1 {
		out[0] = 1
		return out
	}

	den := float64(frameLen - 1)
	for i := range frameLen {
		out[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/den)
	}

	return out
}
