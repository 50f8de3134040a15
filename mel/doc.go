// Package mel builds triangular mel-scale filter banks for spectral
// feature extraction.
//
// A [FilterBank] is constructed once from the analysis configuration and is
// immutable afterwards, so a single instance can be shared across
// concurrent extraction calls. Triangles are evaluated directly from band
// boundary frequencies, which keeps the response non-zero at a band's own
// boundary bins, and each active row is area-normalized to sum to 1.
package mel
