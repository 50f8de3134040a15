package feature

import (
	"fmt"
	"math"
	"math/rand/v2"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-speech/mel"
)

const (
	// logFloor bounds mel energies away from zero before log compression.
	logFloor = 1e-10
	// stdFloor bounds the per-band standard deviation used for
	// normalization.
	stdFloor = 1e-5
)

// Features is one utterance's feature matrix. Data holds Bands x Frames
// values band-major: all time steps of band 0, then band 1, and so on.
// Columns at or beyond ValidFrames are exactly zero block padding.
type Features struct {
	Data        []float64
	Bands       int
	Frames      int
	ValidFrames int
}

// At returns the value for band m at time step t.
func (f Features) At(m, t int) float64 {
	return f.Data[m*f.Frames+t]
}

// Band returns band m's time series as a view into Data.
func (f Features) Band(m int) []float64 {
	return f.Data[m*f.Frames : (m+1)*f.Frames]
}

// Column returns the values of every band at time step t.
func (f Features) Column(t int) []float64 {
	out := make([]float64, f.Bands)
	for m := range out {
		out[m] = f.Data[m*f.Frames+t]
	}

	return out
}

// Extractor computes padded log-mel feature matrices from mono waveforms.
//
// All state is immutable after construction, so one Extractor may serve
// concurrent Process calls.
type Extractor struct {
	cfg      config
	frameLen int
	hopLen   int
	window   []float64
	bank     *mel.FilterBank
}

// New creates an Extractor. Defaults match the acoustic model's
// training-time preprocessor:
// 16 kHz, 20 ms Hann window, 10 ms stride, 512-point FFT, 64 mel bands,
// block alignment 16, dither 1e-5, per-feature normalization on.
func New(opts ...Option) (*Extractor, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	frameLen := int(math.Round(cfg.windowSeconds * float64(cfg.sampleRate)))
	hopLen := int(math.Round(cfg.strideSeconds * float64(cfg.sampleRate)))

	if frameLen < 1 || hopLen < 1 {
		return nil, fmt.Errorf("feature: window and stride must cover at least one sample: %d, %d", frameLen, hopLen)
	}

	if cfg.fftSize < frameLen {
		return nil, fmt.Errorf("feature: fft size %d smaller than window length %d", cfg.fftSize, frameLen)
	}

	// Fail fast if the FFT backend rejects the size.
	if _, err := algofft.NewPlan64(cfg.fftSize); err != nil {
		return nil, fmt.Errorf("feature: fft plan: %w", err)
	}

	fMax := cfg.fMax
	if fMax <= 0 {
		fMax = float64(cfg.sampleRate) / 2
	}

	return &Extractor{
		cfg:      cfg,
		frameLen: frameLen,
		hopLen:   hopLen,
		window:   analysisWindow(cfg.fftSize, frameLen),
		bank:     mel.New(cfg.sampleRate, cfg.fftSize, cfg.melBands, cfg.fMin, fMax),
	}, nil
}

// SampleRate returns the configured sample rate in Hz.
func (e *Extractor) SampleRate() int { return e.cfg.sampleRate }

// FrameLength returns the analysis window length in samples.
func (e *Extractor) FrameLength() int { return e.frameLen }

// HopLength returns the frame stride in samples.
func (e *Extractor) HopLength() int { return e.hopLen }

// FFTSize returns the FFT size.
func (e *Extractor) FFTSize() int { return e.cfg.fftSize }

// Bands returns the mel band count.
func (e *Extractor) Bands() int { return e.cfg.melBands }

// BlockAlignment returns the time-axis padding multiple, 0 when disabled.
func (e *Extractor) BlockAlignment() int { return e.cfg.blockAlignment }

// DitherAmount returns the Gaussian dither scale.
func (e *Extractor) DitherAmount() float64 { return e.cfg.ditherAmount }

// Normalize reports whether per-feature normalization is enabled.
func (e *Extractor) Normalize() bool { return e.cfg.normalize }

// FilterBank returns the shared mel filter bank.
func (e *Extractor) FilterBank() *mel.FilterBank { return e.bank }

// Process extracts features using a fresh entropy source for dithering.
// It never fails: every finite input, including an empty waveform, yields
// at least one frame of finite values.
func (e *Extractor) Process(samples []float64) Features {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	return e.ProcessWithRNG(samples, rng)
}

// ProcessWithRNG extracts features drawing dither noise from rng, enabling
// deterministic output from a seeded generator. The rng is used only by
// this call, keeping concurrent calls on one Extractor independent.
func (e *Extractor) ProcessWithRNG(samples []float64, rng *rand.Rand) Features {
	fftSize := e.cfg.fftSize
	bins := fftSize/2 + 1
	bands := e.cfg.melBands

	padded := e.padInput(samples, rng)

	valid := 1 + (len(padded)-fftSize)/e.hopLen

	frames := valid
	if a := e.cfg.blockAlignment; a > 0 {
		frames = (valid + a - 1) / a * a
	}

	data := make([]float64, bands*frames)

	// Per-call FFT state keeps the extractor reentrant.
	plan, _ := algofft.NewPlan64(fftSize)

	var (
		windowed = make([]float64, fftSize)
		fftIn    = make([]complex128, fftSize)
		fftOut   = make([]complex128, fftSize)
		re       = make([]float64, bins)
		im       = make([]float64, bins)
		power    = make([]float64, bins)
		energies = make([]float64, bands)
	)

	// Power is normalized by the analysis-window length squared, not the
	// FFT size squared. The trained model expects this scaling.
	powerScale := 1 / (float64(e.frameLen) * float64(e.frameLen))

	for t := range valid {
		off := t * e.hopLen

		vecmath.MulBlock(windowed, padded[off:off+fftSize], e.window)

		for i, v := range windowed {
			fftIn[i] = complex(v, 0)
		}

		_ = plan.Forward(fftOut, fftIn)

		for k := range bins {
			re[k] = real(fftOut[k])
			im[k] = imag(fftOut[k])
		}

		vecmath.Power(power, re, im)
		vecmath.ScaleBlockInPlace(power, powerScale)

		e.bank.Apply(energies, power)

		for m := range bands {
			data[m*frames+t] = math.Log10(math.Max(energies[m], logFloor))
		}
	}

	if e.cfg.normalize {
		normalizePerBand(data, bands, frames, valid)
	}

	return Features{Data: data, Bands: bands, Frames: frames, ValidFrames: valid}
}

// padInput dithers the waveform and extends both ends by fftSize/2 samples
// of edge-inclusive mirror reflection, centering frame t at t*hop.
func (e *Extractor) padInput(samples []float64, rng *rand.Rand) []float64 {
	pad := e.cfg.fftSize / 2
	n := len(samples)

	out := make([]float64, n+2*pad)
	copy(out[pad:], samples)

	if e.cfg.ditherAmount > 0 && n > 0 {
		addBoxMullerNoise(out[pad:pad+n], e.cfg.ditherAmount, rng)
	}

	if n == 0 {
		return out
	}

	src := out[pad : pad+n]
	for i := range pad {
		out[i] = src[mirrorIndex(i-pad, n)]
		out[pad+n+i] = src[mirrorIndex(n+i, n)]
	}

	return out
}

// mirrorIndex folds idx into [0, n) by repeated edge-inclusive reflection,
// so idx -1 maps to 0 and idx n maps to n-1.
func mirrorIndex(idx, n int) int {
	for idx < 0 || idx >= n {
		if idx < 0 {
			idx = -idx - 1
		}

		if idx >= n {
			idx = 2*n - 1 - idx
		}
	}

	return idx
}

// addBoxMullerNoise adds Gaussian noise scaled by amount to every sample.
// Pairs are drawn from the uniform source with the Box-Muller transform
// to mirror the training-time preprocessor's draw sequence; rand/v2's
// ziggurat NormFloat64 would produce different values from the same seed.
func addBoxMullerNoise(buf []float64, amount float64, rng *rand.Rand) {
	for i := 0; i < len(buf); i += 2 {
		// 1-u is in (0, 1], keeping the log finite.
		r := math.Sqrt(-2 * math.Log(1-rng.Float64()))
		theta := 2 * math.Pi * rng.Float64()

		buf[i] += amount * r * math.Cos(theta)

		if i+1 < len(buf) {
			buf[i+1] += amount * r * math.Sin(theta)
		}
	}
}

// normalizePerBand rescales each band over its valid frames to zero mean
// and unit population standard deviation, with the deviation floored at
// stdFloor. Padding columns are left untouched at exact zero.
func normalizePerBand(data []float64, bands, frames, valid int) {
	for m := range bands {
		row := data[m*frames : m*frames+valid]

		mean := vecmath.Sum(row) / float64(valid)

		var ss float64
		for _, v := range row {
			d := v - mean
			ss += d * d
		}

		std := math.Sqrt(ss / float64(valid))
		if std < stdFloor {
			std = stdFloor
		}

		inv := 1 / std
		for i, v := range row {
			row[i] = (v - mean) * inv
		}
	}
}
