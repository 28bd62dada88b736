package window

import "math"

// Analysis holds numerically computed spectral properties of a window.
type Analysis struct {
	// CoherentGain is sum(w[n]) / N, the DC response of the window.
	CoherentGain float64
	// NoiseGain is sum(w[n]^2) / N, the power loss applied to broadband noise.
	NoiseGain float64
	// ENBW is the equivalent noise bandwidth in bins.
	ENBW float64
	// Bandwidth3dB is the 3 dB (half-power) main lobe width in bins.
	Bandwidth3dB float64
	// ScallopLossdB is the worst-case amplitude error for an off-bin signal.
	ScallopLossdB float64
}

// Analyze computes spectral properties of the given window coefficients
// using numerical DFT evaluation.
func Analyze(coeffs []float64) Analysis {
	n := len(coeffs)
	if n == 0 {
		return Analysis{}
	}

	dcRef := dftMagSq(coeffs, 0)
	if dcRef == 0 {
		return Analysis{}
	}

	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}
	sumSq := SumSquares(coeffs)

	scallopLoss := 0.0
	if halfBin := dftMagSq(coeffs, 0.5/float64(n)); halfBin > 0 {
		scallopLoss = 10 * math.Log10(halfBin/dcRef)
	}

	return Analysis{
		CoherentGain:  sum / float64(n),
		NoiseGain:     sumSq / float64(n),
		ENBW:          float64(n) * sumSq / (sum * sum),
		Bandwidth3dB:  searchBandwidth(coeffs, dcRef, n),
		ScallopLossdB: scallopLoss,
	}
}

// dftMagSq evaluates |DFT(freq)|^2 at a normalised frequency [0,1).
func dftMagSq(coeffs []float64, freq float64) float64 {
	re, im := 0.0, 0.0
	w := 2 * math.Pi * freq
	for i, c := range coeffs {
		re += c * math.Cos(w*float64(i))
		im -= c * math.Sin(w*float64(i))
	}
	return re*re + im*im
}

// searchBandwidth finds the full -3 dB width in bins by bisection on the
// main lobe.
func searchBandwidth(coeffs []float64, dcRef float64, n int) float64 {
	target := dcRef / 2
	lo, hi := 0.0, 4.0/float64(n)
	if dftMagSq(coeffs, hi) > target {
		return 0
	}
	for range 60 {
		mid := (lo + hi) / 2
		if dftMagSq(coeffs, mid) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) * float64(n)
}
