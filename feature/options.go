package feature

import (
	"fmt"
	"math"
)

const (
	defaultSampleRate     = 16000
	defaultWindowSeconds  = 0.02
	defaultStrideSeconds  = 0.01
	defaultFFTSize        = 512
	defaultMelBands       = 64
	defaultBlockAlignment = 16
	defaultDitherAmount   = 1e-5
)

type config struct {
	sampleRate     int
	windowSeconds  float64
	strideSeconds  float64
	fftSize        int
	melBands       int
	blockAlignment int
	ditherAmount   float64
	normalize      bool
	fMin           float64
	fMax           float64 // <= 0 selects Nyquist
}

func defaultConfig() config {
	return config{
		sampleRate:     defaultSampleRate,
		windowSeconds:  defaultWindowSeconds,
		strideSeconds:  defaultStrideSeconds,
		fftSize:        defaultFFTSize,
		melBands:       defaultMelBands,
		blockAlignment: defaultBlockAlignment,
		ditherAmount:   defaultDitherAmount,
		normalize:      true,
	}
}

// Option configures an [Extractor].
type Option func(*config) error

// WithSampleRate sets the waveform sample rate in Hz (default 16000).
func WithSampleRate(rate int) Option {
	return func(cfg *config) error {
		if rate <= 0 {
			return fmt.Errorf("feature: sample rate must be > 0: %d", rate)
		}

		cfg.sampleRate = rate

		return nil
	}
}

// WithWindowSeconds sets the analysis window length in seconds
// (default 0.02).
func WithWindowSeconds(sec float64) Option {
	return func(cfg *config) error {
		if sec <= 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
			return fmt.Errorf("feature: window length must be > 0 and finite: %f", sec)
		}

		cfg.windowSeconds = sec

		return nil
	}
}

// WithStrideSeconds sets the hop between successive frames in seconds
// (default 0.01).
func WithStrideSeconds(sec float64) Option {
	return func(cfg *config) error {
		if sec <= 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
			return fmt.Errorf("feature: stride must be > 0 and finite: %f", sec)
		}

		cfg.strideSeconds = sec

		return nil
	}
}

// WithFFTSize sets the FFT size (default 512). The size must be even and
// at least the window length in samples.
func WithFFTSize(size int) Option {
	return func(cfg *config) error {
		if size <= 0 || size%2 != 0 {
			return fmt.Errorf("feature: fft size must be positive and even: %d", size)
		}

		cfg.fftSize = size

		return nil
	}
}

// WithMelBands sets the mel band count (default 64).
func WithMelBands(bands int) Option {
	return func(cfg *config) error {
		if bands <= 0 {
			return fmt.Errorf("feature: mel band count must be > 0: %d", bands)
		}

		cfg.melBands = bands

		return nil
	}
}

// WithBlockAlignment sets the multiple the time axis is zero-padded to
// (default 16). Zero disables block padding.
func WithBlockAlignment(n int) Option {
	return func(cfg *config) error {
		if n < 0 {
			return fmt.Errorf("feature: block alignment must be >= 0: %d", n)
		}

		cfg.blockAlignment = n

		return nil
	}
}

// WithDitherAmount sets the Gaussian dither scale (default 1e-5). Zero
// disables dithering.
func WithDitherAmount(amount float64) Option {
	return func(cfg *config) error {
		if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
			return fmt.Errorf("feature: dither amount must be >= 0 and finite: %f", amount)
		}

		cfg.ditherAmount = amount

		return nil
	}
}

// WithNormalize enables or disables per-feature normalization
// (default true).
func WithNormalize(enabled bool) Option {
	return func(cfg *config) error {
		cfg.normalize = enabled
		return nil
	}
}

// WithFrequencyRange sets the filter bank frequency range in Hz. The
// default range is [0, sampleRate/2].
func WithFrequencyRange(fMin, fMax float64) Option {
	return func(cfg *config) error {
		if fMin < 0 || !(fMin < fMax) {
			return fmt.Errorf("feature: need 0 <= fMin < fMax: %f, %f", fMin, fMax)
		}

		cfg.fMin = fMin
		cfg.fMax = fMax

		return nil
	}
}
