package spectrum

import (
	"errors"
	"fmt"
	"math"
)

// ErrSignalProcessing is wrapped by every error returned from spectral
// estimation.
var ErrSignalProcessing = errors.New("spectrum: signal processing failed")

// PSD is a one-sided power spectral density estimate.
//
// Freqs is strictly increasing (Hz) and Power holds the density in units
// of signal²/Hz at each frequency.
type PSD struct {
	Freqs []float64
	Power []float64
}

// Len returns the number of frequency bins.
func (p PSD) Len() int { return len(p.Freqs) }

// Resolution returns the spacing of the first two bins in Hz, or 0 for a
// single-bin estimate.
func (p PSD) Resolution() float64 {
	if len(p.Freqs) < 2 {
		return 0
	}
	return p.Freqs[1] - p.Freqs[0]
}

// Validate checks the PSD invariants: matching non-zero lengths, strictly
// increasing frequencies, finite non-negative power.
func (p PSD) Validate() error {
	if len(p.Freqs) == 0 {
		return fmt.Errorf("%w: psd has no bins", ErrSignalProcessing)
	}
	if len(p.Freqs) != len(p.Power) {
		return fmt.Errorf("%w: psd length mismatch: %d freqs, %d power values",
			ErrSignalProcessing, len(p.Freqs), len(p.Power))
	}
	for i := range p.Freqs {
		if i > 0 && !(p.Freqs[i] > p.Freqs[i-1]) {
			return fmt.Errorf("%w: psd frequencies must be strictly increasing at index %d", ErrSignalProcessing, i)
		}
		v := p.Power[i]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: psd power invalid at index %d: %v", ErrSignalProcessing, i, v)
		}
	}
	return nil
}

// At returns the PSD linearly interpolated at each query frequency, with
// the boundary values used outside the estimated range.
func (p PSD) At(freqs []float64) ([]float64, error) {
	out, err := InterpolateLinear(p.Freqs, p.Power, freqs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignalProcessing, err)
	}
	return out, nil
}
