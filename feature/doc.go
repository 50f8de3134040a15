// Package feature turns normalized mono waveforms into the padded log-mel
// feature matrices consumed by the acoustic model.
//
// An [Extractor] is configured once and is safe for concurrent use: the
// filter bank and analysis window are immutable after construction and
// every Process call owns its FFT plan, scratch buffers and dither noise
// source. Process is total over finite input; even an empty waveform yields
// one frame of padded-silence features.
//
// Two conventions here deliberately diverge from textbook spectrograms to
// match the trained model's expected input distribution: the power spectrum
// is normalized by the analysis-window length squared (not the FFT size
// squared), and mel triangles keep non-zero weights at their boundary bins.
package feature
