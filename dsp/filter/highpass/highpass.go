// Package highpass removes low-frequency content from a sampled series with
// a zero-phase Butterworth high-pass filter.
package highpass

import (
	"errors"
	"fmt"
	"math"

	"github.com/kristyvitulova/Publication/dsp/core"
	"github.com/kristyvitulova/Publication/dsp/filter/biquad"
	"github.com/kristyvitulova/Publication/dsp/filter/design/pass"
)

// ErrInvalidFilterParameters is returned when the cutoff, order or sample
// rate cannot describe a stable high-pass design.
var ErrInvalidFilterParameters = errors.New("highpass: invalid filter parameters")

// Filter is a designed zero-phase Butterworth high-pass. A Filter is not
// safe for concurrent use.
type Filter struct {
	cutoff     float64
	sampleRate float64
	chain      *biquad.Chain
}

// New designs a Butterworth high-pass of the given order with its -3 dB
// point at cutoffHz.
func New(cutoffHz, sampleRate float64, order int) (*Filter, error) {
	if err := Validate(cutoffHz, sampleRate, order); err != nil {
		return nil, err
	}

	coeffs := pass.ButterworthHP(cutoffHz, order, sampleRate)
	if coeffs == nil {
		return nil, fmt.Errorf("%w: design failed for cutoff %g Hz at %g Hz", ErrInvalidFilterParameters, cutoffHz, sampleRate)
	}

	chain := biquad.NewChain(coeffs)
	if !chain.Stable() {
		return nil, fmt.Errorf("%w: unstable design for cutoff %g Hz", ErrInvalidFilterParameters, cutoffHz)
	}

	return &Filter{
		cutoff:     cutoffHz,
		sampleRate: sampleRate,
		chain:      chain,
	}, nil
}

// Validate reports whether the parameters describe a realizable high-pass.
func Validate(cutoffHz, sampleRate float64, order int) error {
	switch {
	case order <= 0:
		return fmt.Errorf("%w: order must be > 0: %d", ErrInvalidFilterParameters, order)
	case sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0):
		return fmt.Errorf("%w: sample rate must be > 0: %g", ErrInvalidFilterParameters, sampleRate)
	case cutoffHz <= 0 || math.IsNaN(cutoffHz):
		return fmt.Errorf("%w: cutoff must be > 0: %g", ErrInvalidFilterParameters, cutoffHz)
	case cutoffHz >= sampleRate/2:
		return fmt.Errorf("%w: cutoff %g Hz must be below Nyquist %g Hz", ErrInvalidFilterParameters, cutoffHz, sampleRate/2)
	}
	return nil
}

// Apply filters samples forward and backward and returns a new slice of
// the same length. The input is not modified.
func (f *Filter) Apply(samples []float64) ([]float64, error) {
	if i := core.AllFinite(samples); i >= 0 {
		return nil, fmt.Errorf("highpass: non-finite sample at index %d", i)
	}
	return f.chain.FiltFilt(samples), nil
}

// Cutoff returns the -3 dB frequency in Hz.
func (f *Filter) Cutoff() float64 { return f.cutoff }

// Order returns the order of the designed cascade.
func (f *Filter) Order() int { return f.chain.Order() }

// Sections returns the number of biquad sections in the cascade.
func (f *Filter) Sections() int { return f.chain.NumSections() }

// SampleRate returns the design sample rate in Hz.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// MagnitudeDB returns the zero-phase (forward-backward) magnitude response
// at freqHz, which is twice the single-pass response in dB.
func (f *Filter) MagnitudeDB(freqHz float64) float64 {
	return 2 * f.chain.MagnitudeDB(freqHz, f.sampleRate)
}

// Apply designs a filter and applies it once. Use New when filtering many
// series with the same parameters.
func Apply(samples []float64, cutoffHz, sampleRate float64, order int) ([]float64, error) {
	f, err := New(cutoffHz, sampleRate, order)
	if err != nil {
		return nil, err
	}
	return f.Apply(samples)
}
