// Package core holds small numeric helpers shared by the conditioning and
// diagnostics code.
package core

import "math"

// AllFinite returns the index of the first non-finite value in x, or -1.
func AllFinite(x []float64) int {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

// LinearPowerToDB converts a power or power density to dB (10*log10).
// Returns -Inf for zero and NaN for negative values.
func LinearPowerToDB(power float64) float64 {
	if power < 0 {
		return math.NaN()
	}
	if power == 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(power)
}

// ASD converts a one-sided power spectral density (unit²/Hz) to the
// amplitude spectral density (unit/√Hz) that strain plots use.
func ASD(psd float64) float64 {
	if psd <= 0 {
		return 0
	}
	return math.Sqrt(psd)
}
