package mel

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// HzToMel converts a frequency in Hz to the mel scale.
func HzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

// MelToHz converts a mel-scale value back to Hz.
func MelToHz(m float64) float64 {
	return 700 * (math.Pow(10, m/2595) - 1)
}

// FilterBank is an immutable [bands x spectrumBins] triangular filter
// matrix stored row-major. Entries are non-negative and every row with any
// non-zero weight sums to 1.
type FilterBank struct {
	bands   int
	bins    int
	weights []float64
}

// New builds a filter bank for fftSize-point spectra at the given sample
// rate, with bands triangles spaced uniformly in mel between fMin and fMax.
//
// bands and fftSize must be positive and fMin < fMax; violating this is a
// programmer error and panics.
func New(sampleRate, fftSize, bands int, fMin, fMax float64) *FilterBank {
	if bands <= 0 || fftSize <= 0 {
		panic(fmt.Sprintf("mel: bands and fftSize must be > 0: %d, %d", bands, fftSize))
	}

	if !(fMin < fMax) || fMin < 0 {
		panic(fmt.Sprintf("mel: need 0 <= fMin < fMax: %f, %f", fMin, fMax))
	}

	bins := fftSize/2 + 1

	// bands+2 points equally spaced in mel give each band its left,
	// center and right boundary in Hz.
	melLo := HzToMel(fMin)
	melHi := HzToMel(fMax)

	points := make([]float64, bands+2)
	for i := range points {
		points[i] = MelToHz(melLo + (melHi-melLo)*float64(i)/float64(bands+1))
	}

	binHz := float64(sampleRate) / float64(fftSize)
	weights := make([]float64, bands*bins)

	for m := range bands {
		left := points[m]
		center := points[m+1]
		right := points[m+2]

		row := weights[m*bins : (m+1)*bins]

		for k := range bins {
			f := float64(k) * binHz

			w := math.Min((f-left)/(center-left), (right-f)/(right-center))
			if w > 0 {
				row[k] = w
			}
		}

		if sum := vecmath.Sum(row); sum > 0 {
			vecmath.ScaleBlockInPlace(row, 1/sum)
		}
	}

	return &FilterBank{bands: bands, bins: bins, weights: weights}
}

// Bands returns the number of mel bands.
func (fb *FilterBank) Bands() int { return fb.bands }

// Bins returns the number of spectrum bins each row spans.
func (fb *FilterBank) Bins() int { return fb.bins }

// Row returns a copy of band m's weights.
func (fb *FilterBank) Row(m int) []float64 {
	out := make([]float64, fb.bins)
	copy(out, fb.weights[m*fb.bins:(m+1)*fb.bins])

	return out
}

// Apply projects a power spectrum onto the filter bank:
// dst[m] = sum_k weights[m][k] * power[k]. dst must have length Bands()
// and power length Bins().
func (fb *FilterBank) Apply(dst, power []float64) {
	for m := range fb.bands {
		dst[m] = vecmath.DotProduct(fb.weights[m*fb.bins:(m+1)*fb.bins], power)
	}
}
