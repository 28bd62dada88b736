// Package spectrum provides spectrum-domain utilities and power spectral
// density estimation.
//
// Bin helpers operate on complex spectra produced by an FFT backend.
// [Welch] estimates a one-sided power spectral density by averaging
// tapered, overlapping periodograms.
package spectrum
