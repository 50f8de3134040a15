// Command melspec decodes a PCM WAV file and prints the geometry and
// per-band summary of its log-mel feature matrix.
//
// Usage:
//
//	melspec [flags] file.wav
//
// Examples:
//
//	melspec utterance.wav
//	melspec -bands 80 -fft 512 utterance.wav
//	melspec -seed 42 -align 0 utterance.wav
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-speech/feature"
	"github.com/cwbudde/algo-speech/wave"
)

func main() {
	var (
		rate      = flag.Int("rate", 16000, "target sample rate in Hz")
		bands     = flag.Int("bands", 64, "mel band count")
		fftSize   = flag.Int("fft", 512, "FFT size")
		windowSec = flag.Float64("window", 0.02, "window length in seconds")
		strideSec = flag.Float64("stride", 0.01, "stride in seconds")
		align     = flag.Int("align", 16, "block alignment (0 disables)")
		dither    = flag.Float64("dither", 1e-5, "dither amount")
		rawScale  = flag.Bool("raw", false, "skip per-feature normalization")
		seed      = flag.Uint64("seed", 0, "dither seed (0 uses fresh entropy)")
	)

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: melspec [flags] file.wav")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *rate, *bands, *fftSize, *windowSec, *strideSec, *align, *dither, !*rawScale, *seed); err != nil {
		fmt.Fprintln(os.Stderr, "melspec:", err)
		os.Exit(1)
	}
}

func run(path string, rate, bands, fftSize int, windowSec, strideSec float64, align int, dither float64, normalize bool, seed uint64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	samples, err := wave.Decode(data, wave.WithTargetRate(rate))
	if err != nil {
		return err
	}

	ex, err := feature.New(
		feature.WithSampleRate(rate),
		feature.WithMelBands(bands),
		feature.WithFFTSize(fftSize),
		feature.WithWindowSeconds(windowSec),
		feature.WithStrideSeconds(strideSec),
		feature.WithBlockAlignment(align),
		feature.WithDitherAmount(dither),
		feature.WithNormalize(normalize),
	)
	if err != nil {
		return err
	}

	var out feature.Features
	if seed != 0 {
		out = ex.ProcessWithRNG(samples, rand.New(rand.NewPCG(seed, seed)))
	} else {
		out = ex.Process(samples)
	}

	fmt.Printf("%s: %d samples at %d Hz\n", path, len(samples), rate)
	fmt.Printf("features: %d bands x %d frames (%d valid)\n\n", out.Bands, out.Frames, out.ValidFrames)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "band\tmin\tmean\tmax")

	for m := range out.Bands {
		row := out.Band(m)[:out.ValidFrames]

		lo := math.Inf(1)
		hi := math.Inf(-1)
		sum := 0.0

		for _, v := range row {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			sum += v
		}

		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f\n", m, lo, sum/float64(len(row)), hi)
	}

	return w.Flush()
}
