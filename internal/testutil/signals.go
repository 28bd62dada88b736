package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates uniform white noise in [-amplitude, amplitude]
// with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// GaussianNoise generates zero-mean Gaussian white noise with standard
// deviation sigma.
func GaussianNoise(seed int64, sigma float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = rng.NormFloat64() * sigma
	}
	return out
}

// RedNoise generates Gaussian noise shaped by a one-pole lowpass with
// coefficient pole in [0, 1). Larger poles concentrate more power at low
// frequencies.
func RedNoise(seed int64, sigma, pole float64, length int) []float64 {
	out := GaussianNoise(seed, sigma, length)
	prev := 0.0
	for i, v := range out {
		prev = pole*prev + v
		out[i] = prev
	}
	return out
}

// SeismicStrain builds a strain-like test series: red noise plus strong
// low-frequency sinusoids standing in for seismic contamination.
func SeismicStrain(seed int64, sampleRate float64, length int) []float64 {
	out := RedNoise(seed, 1, 0.9, length)
	for _, f := range []float64{1.5, 4, 9} {
		s := DeterministicSine(f, sampleRate, 50, length)
		for i := range out {
			out[i] += s[i]
		}
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// RMS returns the root-mean-square of data, or 0 for an empty slice.
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(data)))
}
