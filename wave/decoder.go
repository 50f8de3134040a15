package wave

import (
	"encoding/binary"
	"fmt"
)

const (
	// DefaultTargetRate is the output sample rate expected by the
	// acoustic front-end.
	DefaultTargetRate = 16000

	headerLen  = 44
	chunkStart = 12

	pcmEncoding = 1
)

type config struct {
	targetRate int
}

// Option configures decoding.
type Option func(*config)

// WithTargetRate overrides the output sample rate (default 16000 Hz).
func WithTargetRate(rate int) Option {
	return func(cfg *config) {
		if rate > 0 {
			cfg.targetRate = rate
		}
	}
}

func defaultConfig() config {
	return config{targetRate: DefaultTargetRate}
}

type format struct {
	encoding   uint16
	channels   int
	sampleRate int
	bitDepth   int
}

// Decode parses a RIFF/WAVE buffer and returns channel 0 as a normalized
// mono waveform at the target rate.
//
// Samples are scaled into [-1, 1] according to their bit depth. If the
// container's sample rate differs from the target rate the waveform is
// resampled with [Resample]. Decoding is deterministic: identical input
// bytes always produce identical output.
func Decode(data []byte, opts ...Option) ([]float64, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	fmtChunk, pcm, err := parseContainer(data)
	if err != nil {
		return nil, err
	}

	samples, err := decodeChannel0(pcm, fmtChunk)
	if err != nil {
		return nil, err
	}

	if fmtChunk.sampleRate != cfg.targetRate {
		samples = Resample(samples, fmtChunk.sampleRate, cfg.targetRate)
	}

	return samples, nil
}

// parseContainer validates the RIFF/WAVE header and walks the chunk list
// until both the fmt and data chunks have been located.
func parseContainer(data []byte) (format, []byte, error) {
	if len(data) < headerLen {
		return format{}, nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedHeader, len(data), headerLen)
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return format{}, nil, fmt.Errorf("%w: RIFF/WAVE tags not found", ErrMalformedHeader)
	}

	var (
		fmtChunk format
		haveFmt  bool
		pcm      []byte
		haveData bool
	)

	pos := chunkStart
	for pos+8 <= len(data) && (!haveFmt || !haveData) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))

		body := data[pos+8:]
		if size < len(body) {
			body = body[:size]
		}

		switch id {
		case "fmt ":
			if len(body) < 16 {
				return format{}, nil, fmt.Errorf("%w: fmt chunk truncated to %d bytes", ErrMissingFormatChunk, len(body))
			}

			fmtChunk = format{
				encoding:   binary.LittleEndian.Uint16(body[0:2]),
				channels:   int(binary.LittleEndian.Uint16(body[2:4])),
				sampleRate: int(binary.LittleEndian.Uint32(body[4:8])),
				bitDepth:   int(binary.LittleEndian.Uint16(body[14:16])),
			}
			haveFmt = true
		case "data":
			pcm = body
			haveData = true
		}

		// Chunks are padded to even length.
		pos += 8 + size + size%2
	}

	if !haveFmt {
		return format{}, nil, ErrMissingFormatChunk
	}

	if !haveData {
		return format{}, nil, ErrMissingDataChunk
	}

	if fmtChunk.encoding != pcmEncoding {
		return format{}, nil, fmt.Errorf("%w: encoding code %d, want linear PCM (1)", ErrUnsupportedEncoding, fmtChunk.encoding)
	}

	if fmtChunk.channels <= 0 || fmtChunk.sampleRate <= 0 {
		return format{}, nil, fmt.Errorf("%w: %d channels at %d Hz", ErrMalformedHeader, fmtChunk.channels, fmtChunk.sampleRate)
	}

	return fmtChunk, pcm, nil
}

// decodeChannel0 extracts channel 0 of interleaved PCM frames and scales
// each sample into [-1, 1].
func decodeChannel0(pcm []byte, f format) ([]float64, error) {
	bytesPerSample := f.bitDepth / 8

	switch f.bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedBitDepth, f.bitDepth)
	}

	frameBytes := bytesPerSample * f.channels
	frames := len(pcm) / frameBytes

	out := make([]float64, frames)

	for i := range frames {
		// Channel 0 of frame i sits at interleaved sample i*channels.
		off := i * frameBytes

		var v float64

		switch f.bitDepth {
		case 8:
			v = (float64(pcm[off]) - 128) / 128
		case 16:
			s := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			v = float64(s) / 32768
		case 24:
			u := uint32(pcm[off]) | uint32(pcm[off+1])<<8 | uint32(pcm[off+2])<<16
			s := int32(u << 8) >> 8 // sign-extend bit 23
			v = float64(s) / 8388608
		case 32:
			s := int32(binary.LittleEndian.Uint32(pcm[off : off+4]))
			v = float64(s) / 2147483648
		}

		out[i] = clamp(v)
	}

	return out, nil
}

// Resample converts in from fromRate to toRate using 2-point linear
// interpolation. The output length is round(len(in)*toRate/fromRate); an
// empty result is returned when that rounds to zero. Output values are
// clamped to [-1, 1].
func Resample(in []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate {
		return in
	}

	oldLen := len(in)
	newLen := int(float64(oldLen)*float64(toRate)/float64(fromRate) + 0.5)
	if newLen <= 0 || oldLen == 0 {
		return nil
	}

	out := make([]float64, newLen)

	if newLen == 1 || oldLen == 1 {
		for i := range out {
			out[i] = clamp(in[0])
		}

		return out
	}

	scale := float64(oldLen-1) / float64(newLen-1)

	for i := range out {
		pos := float64(i) * scale

		j := int(pos)
		if j >= oldLen-1 {
			out[i] = clamp(in[oldLen-1])
			continue
		}

		frac := pos - float64(j)
		out[i] = clamp(in[j] + frac*(in[j+1]-in[j]))
	}

	return out
}

func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}

	if v > 1 {
		return 1
	}

	return v
}
