// Package wave decodes RIFF/WAVE containers into normalized mono waveforms
// for feature extraction.
//
// The decoder reads linear PCM at 8, 16, 24 or 32 bits per sample, keeps
// channel 0 of interleaved frames, scales samples into [-1, 1], and
// resamples to a fixed target rate (16 kHz by default) with 2-point linear
// interpolation. Malformed or unsupported containers are reported through
// distinct sentinel errors so callers can classify failures without string
// matching.
package wave
