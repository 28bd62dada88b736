// Package pass designs Butterworth lowpass and highpass cascades as
// biquad coefficient slices for dsp/filter/biquad.
//
// Even orders produce order/2 second-order sections. Odd orders append a
// single first-order section (B2 = A2 = 0).
package pass
