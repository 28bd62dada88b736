// Package frequency summarizes one-sided power spectral densities.
//
// The main consumer is the whitening check: a well-whitened segment has a
// flat PSD near 1 across the band above the high-pass cutoff, so its
// flatness approaches 1.
package frequency

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/kristyvitulova/Publication/dsp/core"
)

// ErrEmptyBand is returned when no bin falls inside the requested band.
var ErrEmptyBand = errors.New("frequency: no bins in band")

// Stats describes a PSD over a frequency band.
type Stats struct {
	Bins     int
	Lo, Hi   float64 // band edges actually covered (Hz)
	Mean     float64 // arithmetic mean density
	Median   float64
	Min      float64
	Max      float64
	MaxFreq  float64 // frequency of Max (Hz)
	Flatness float64 // geometric / arithmetic mean, 0..1
	Power    float64 // density integrated over the band (unit²)
	Centroid float64 // density-weighted mean frequency (Hz)
}

// MeanDB returns the mean density in dB.
func (s Stats) MeanDB() float64 { return core.LinearPowerToDB(s.Mean) }

// BandRMS returns the RMS amplitude contributed by the band.
func (s Stats) BandRMS() float64 { return math.Sqrt(math.Max(s.Power, 0)) }

// Calculate summarizes the bins of (freqs, power) with lo <= f <= hi. A
// non-positive hi means up to the last bin.
func Calculate(freqs, power []float64, lo, hi float64) (Stats, error) {
	if len(freqs) != len(power) {
		return Stats{}, fmt.Errorf("frequency: length mismatch: %d freqs, %d power values", len(freqs), len(power))
	}
	if hi <= 0 {
		hi = math.Inf(1)
	}

	first, last := -1, -1
	for i, f := range freqs {
		if f >= lo && f <= hi {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return Stats{}, fmt.Errorf("%w [%g, %g] Hz", ErrEmptyBand, lo, hi)
	}

	band := power[first : last+1]
	bf := freqs[first : last+1]
	s := Stats{
		Bins:     len(band),
		Lo:       bf[0],
		Hi:       bf[len(bf)-1],
		Min:      band[0],
		Max:      band[0],
		MaxFreq:  bf[0],
		Flatness: Flatness(band),
		Median:   median(band),
	}

	var sum, weighted float64
	for i, v := range band {
		sum += v
		weighted += v * bf[i]
		if v > s.Max {
			s.Max, s.MaxFreq = v, bf[i]
		}
		if v < s.Min {
			s.Min = v
		}
	}
	s.Mean = sum / float64(len(band))
	if sum > 0 {
		s.Centroid = weighted / sum
	}
	s.Power = integrate(bf, band)
	return s, nil
}

// Flatness returns the spectral flatness (Wiener entropy) of a density:
// exp(mean(log p)) / mean(p). Any zero bin makes it 0.
func Flatness(power []float64) float64 {
	if len(power) == 0 {
		return 0
	}

	var sumLin, sumLog float64
	for _, v := range power {
		if v <= 0 {
			return 0
		}
		sumLin += v
		sumLog += math.Log(v)
	}
	n := float64(len(power))
	return math.Exp(sumLog/n) / (sumLin / n)
}

// integrate is the trapezoidal integral of p over f. A single bin
// contributes nothing.
func integrate(f, p []float64) float64 {
	var total float64
	for i := 1; i < len(f); i++ {
		total += 0.5 * (p[i] + p[i-1]) * (f[i] - f[i-1])
	}
	return total
}

func median(x []float64) float64 {
	s := make([]float64, len(x))
	copy(s, x)
	slices.Sort(s)
	m := len(s) / 2
	if len(s)%2 == 1 {
		return s[m]
	}
	return 0.5 * (s[m-1] + s[m])
}
