package feature

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/algo-speech/mel"
	"github.com/cwbudde/algo-speech/wave"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestDefaults(t *testing.T) {
	ex, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if ex.SampleRate() != 16000 {
		t.Errorf("SampleRate=%d, want 16000", ex.SampleRate())
	}

	if ex.FrameLength() != 320 {
		t.Errorf("FrameLength=%d, want 320", ex.FrameLength())
	}

	if ex.HopLength() != 160 {
		t.Errorf("HopLength=%d, want 160", ex.HopLength())
	}

	if ex.FFTSize() != 512 {
		t.Errorf("FFTSize=%d, want 512", ex.FFTSize())
	}

	if ex.Bands() != 64 {
		t.Errorf("Bands=%d, want 64", ex.Bands())
	}

	if ex.BlockAlignment() != 16 {
		t.Errorf("BlockAlignment=%d, want 16", ex.BlockAlignment())
	}

	if ex.DitherAmount() != 1e-5 {
		t.Errorf("DitherAmount=%g, want 1e-5", ex.DitherAmount())
	}

	if !ex.Normalize() {
		t.Error("Normalize=false, want true")
	}

	if fb := ex.FilterBank(); fb.Bands() != 64 || fb.Bins() != 257 {
		t.Errorf("FilterBank shape %dx%d, want 64x257", fb.Bands(), fb.Bins())
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	cases := []struct {
		name string
		opt  Option
	}{
		{"zero sample rate", WithSampleRate(0)},
		{"negative window", WithWindowSeconds(-0.01)},
		{"zero stride", WithStrideSeconds(0)},
		{"odd fft size", WithFFTSize(511)},
		{"zero bands", WithMelBands(0)},
		{"negative alignment", WithBlockAlignment(-1)},
		{"negative dither", WithDitherAmount(-1)},
		{"inverted range", WithFrequencyRange(4000, 100)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.opt); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	t.Run("fft smaller than window", func(t *testing.T) {
		if _, err := New(WithFFTSize(256)); err == nil {
			t.Fatal("expected error for 256-point FFT under a 320-sample window")
		}
	})
}

func TestFrameCountFormula(t *testing.T) {
	ex, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Reflect padding adds fftSize/2 on both ends, so the padded length
	// is n + fftSize and validFrames = 1 + n/hop.
	for _, n := range []int{0, 1, 160, 320, 800, 1600} {
		got := ex.ProcessWithRNG(make([]float64, n), testRNG(1))

		want := 1 + n/ex.HopLength()
		if got.ValidFrames != want {
			t.Errorf("n=%d: ValidFrames=%d, want %d", n, got.ValidFrames, want)
		}
	}
}

func TestBlockPadding(t *testing.T) {
	t.Run("aligned", func(t *testing.T) {
		ex, err := New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		got := ex.ProcessWithRNG(make([]float64, 1600), testRNG(1))

		if got.ValidFrames != 11 {
			t.Fatalf("ValidFrames=%d, want 11", got.ValidFrames)
		}

		if got.Frames != 16 {
			t.Fatalf("Frames=%d, want 16 (next multiple of 16)", got.Frames)
		}

		if len(got.Data) != got.Bands*got.Frames {
			t.Fatalf("len(Data)=%d, want %d", len(got.Data), got.Bands*got.Frames)
		}

		for m := range got.Bands {
			for t2 := got.ValidFrames; t2 < got.Frames; t2++ {
				if v := got.At(m, t2); v != 0 {
					t.Fatalf("padding At(%d,%d)=%g, want exact 0", m, t2, v)
				}
			}
		}
	})

	t.Run("exact multiple stays put", func(t *testing.T) {
		ex, err := New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		// 2400 samples: 1 + 2400/160 = 16 valid frames already aligned.
		got := ex.ProcessWithRNG(make([]float64, 2400), testRNG(1))
		if got.ValidFrames != 16 || got.Frames != 16 {
			t.Fatalf("frames %d/%d, want 16/16", got.ValidFrames, got.Frames)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		ex, err := New(WithBlockAlignment(0))
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		got := ex.ProcessWithRNG(make([]float64, 1600), testRNG(1))
		if got.Frames != got.ValidFrames {
			t.Fatalf("Frames=%d, want ValidFrames=%d", got.Frames, got.ValidFrames)
		}
	})
}

func TestOutputFinite(t *testing.T) {
	ex, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	inputs := map[string][]float64{
		"empty":    nil,
		"one zero": make([]float64, 1),
		"silence":  make([]float64, 1600),
		"clipped":  {1, -1, 1, -1, 1, -1, 1, -1},
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got := ex.ProcessWithRNG(in, testRNG(7))

			if got.ValidFrames < 1 {
				t.Fatalf("ValidFrames=%d, want >= 1", got.ValidFrames)
			}

			for i, v := range got.Data {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("Data[%d] = %v", i, v)
				}
			}
		})
	}
}

func TestSeededRNGIsDeterministic(t *testing.T) {
	ex, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := make([]float64, 1600)
	for i := range in {
		in[i] = 0.4 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}

	a := ex.ProcessWithRNG(in, testRNG(99))
	b := ex.ProcessWithRNG(in, testRNG(99))

	if len(a.Data) != len(b.Data) {
		t.Fatalf("lengths differ: %d vs %d", len(a.Data), len(b.Data))
	}

	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("Data[%d] differs: %g vs %g", i, a.Data[i], b.Data[i])
		}
	}

	c := ex.ProcessWithRNG(in, testRNG(100))

	same := true
	for i := range a.Data {
		if a.Data[i] != c.Data[i] {
			same = false
			break
		}
	}

	if same {
		t.Fatal("different seeds produced identical output")
	}
}

func TestPerFeatureNormalization(t *testing.T) {
	ex, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rng := testRNG(5)

	in := make([]float64, 4800)
	for i := range in {
		in[i] = 0.3*math.Sin(2*math.Pi*300*float64(i)/16000) + 0.05*(rng.Float64()*2-1)
	}

	got := ex.ProcessWithRNG(in, testRNG(5))

	for m := range got.Bands {
		row := got.Band(m)[:got.ValidFrames]

		mean := 0.0
		for _, v := range row {
			mean += v
		}
		mean /= float64(len(row))

		ss := 0.0
		for _, v := range row {
			d := v - mean
			ss += d * d
		}
		std := math.Sqrt(ss / float64(len(row)))

		if math.Abs(mean) > 1e-9 {
			t.Fatalf("band %d mean = %g, want 0", m, mean)
		}

		if math.Abs(std-1) > 1e-6 {
			t.Fatalf("band %d std = %g, want 1", m, std)
		}
	}
}

// TestMatchesNaiveDFTReference runs the extractor on a DC waveform with
// dithering and normalization off, then recomputes the expected log-mel
// values from first principles with an O(n^2) DFT. This pins the Hann
// window, the centered reflect framing, and the window-length-squared
// power normalization: dividing by fftSize^2 instead would shift every
// value by 0.41 in log10.
func TestMatchesNaiveDFTReference(t *testing.T) {
	ex, err := New(WithDitherAmount(0), WithNormalize(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := make([]float64, 512)
	for i := range in {
		in[i] = 1
	}

	got := ex.ProcessWithRNG(in, testRNG(1))

	const (
		fftSize  = 512
		frameLen = 320
		bins     = fftSize/2 + 1
	)

	// Every frame of a mirrored all-ones waveform is all ones, so every
	// valid column must equal the reference column.
	window := make([]float64, fftSize)
	for i := range frameLen {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(frameLen-1))
	}

	power := make([]float64, bins)
	for k := range bins {
		var re, im float64
		for i := range fftSize {
			phase := 2 * math.Pi * float64(k) * float64(i) / float64(fftSize)
			re += window[i] * math.Cos(phase)
			im -= window[i] * math.Sin(phase)
		}

		power[k] = (re*re + im*im) / float64(frameLen*frameLen)
	}

	bank := mel.New(16000, fftSize, 64, 0, 8000)
	want := make([]float64, 64)
	bank.Apply(want, power)

	for m := range want {
		want[m] = math.Log10(math.Max(want[m], 1e-10))
	}

	for col := range got.ValidFrames {
		for m := range got.Bands {
			if diff := math.Abs(got.At(m, col) - want[m]); diff > 1e-4 {
				t.Fatalf("band %d frame %d = %g, want %g (diff %g)", m, col, got.At(m, col), want[m], diff)
			}
		}
	}
}

func TestMirrorIndex(t *testing.T) {
	cases := []struct {
		idx, n, want int
	}{
		{-1, 10, 0},
		{-2, 10, 1},
		{-10, 10, 9},
		{0, 10, 0},
		{9, 10, 9},
		{10, 10, 9},
		{11, 10, 8},
		{19, 10, 0},
		{-1, 1, 0},
		{5, 1, 0},
		{-3, 2, 1},
	}

	for _, tc := range cases {
		if got := mirrorIndex(tc.idx, tc.n); got != tc.want {
			t.Errorf("mirrorIndex(%d, %d) = %d, want %d", tc.idx, tc.n, got, tc.want)
		}
	}
}

func TestReflectPadding(t *testing.T) {
	ex, err := New(WithDitherAmount(0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := []float64{0.1, 0.2, 0.3, 0.4}
	padded := ex.padInput(in, testRNG(1))

	pad := ex.FFTSize() / 2
	if len(padded) != len(in)+2*pad {
		t.Fatalf("padded len=%d, want %d", len(padded), len(in)+2*pad)
	}

	// Head mirror: pad[pad-1] == src[0], pad[pad-2] == src[1].
	if padded[pad-1] != 0.1 || padded[pad-2] != 0.2 {
		t.Fatalf("head mirror %g, %g; want 0.1, 0.2", padded[pad-1], padded[pad-2])
	}

	// Tail mirror: first padded tail sample repeats src[n-1].
	if padded[pad+4] != 0.4 || padded[pad+5] != 0.3 {
		t.Fatalf("tail mirror %g, %g; want 0.4, 0.3", padded[pad+4], padded[pad+5])
	}
}

func TestEndToEndMinimalWav(t *testing.T) {
	ex, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, n := range []int{160, 320, 800} {
		data := minimalWav16k(t, n)

		samples, err := wave.Decode(data)
		if err != nil {
			t.Fatalf("n=%d: Decode: %v", n, err)
		}

		if len(samples) != n {
			t.Fatalf("n=%d: decoded %d samples", n, len(samples))
		}

		got := ex.ProcessWithRNG(samples, testRNG(3))

		want := 1 + n/160
		if got.ValidFrames != want {
			t.Fatalf("n=%d: ValidFrames=%d, want %d", n, got.ValidFrames, want)
		}
	}
}

// minimalWav16k builds a 44-byte mono 16 kHz PCM16 header followed by n
// zero samples.
func minimalWav16k(tb testing.TB, n int) []byte {
	tb.Helper()

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+2*n))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint32(16000))
	_ = binary.Write(buf, binary.LittleEndian, uint32(32000))
	_ = binary.Write(buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(2*n))
	buf.Write(make([]byte, 2*n))

	return buf.Bytes()
}

func BenchmarkProcess(b *testing.B) {
	ex, err := New()
	if err != nil {
		b.Fatalf("New: %v", err)
	}

	in := make([]float64, 16000)
	for i := range in {
		in[i] = 0.4 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}

	rng := testRNG(1)

	b.ResetTimer()

	for range b.N {
		ex.ProcessWithRNG(in, rng)
	}
}
