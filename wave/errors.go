package wave

import "errors"

var (
	// ErrMalformedHeader indicates a buffer too short for a RIFF/WAVE
	// header or one without the RIFF and WAVE tags at their fixed offsets.
	ErrMalformedHeader = errors.New("wave: malformed RIFF/WAVE header")
	// ErrMissingFormatChunk indicates no fmt chunk was found.
	ErrMissingFormatChunk = errors.New("wave: missing fmt chunk")
	// ErrMissingDataChunk indicates no data chunk was found.
	ErrMissingDataChunk = errors.New("wave: missing data chunk")
	// ErrUnsupportedEncoding indicates an encoding other than linear PCM.
	ErrUnsupportedEncoding = errors.New("wave: unsupported encoding")
	// ErrUnsupportedBitDepth indicates a PCM bit depth other than 8, 16,
	// 24 or 32.
	ErrUnsupportedBitDepth = errors.New("wave: unsupported bit depth")
)
