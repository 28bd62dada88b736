package spectrum

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/kristyvitulova/Publication/dsp/core"
	"github.com/kristyvitulova/Publication/dsp/window"
)

const (
	// DefaultSegmentLength is the default Welch analysis window length in samples.
	DefaultSegmentLength = 4096
	// DefaultOverlap is the default fractional overlap between analysis windows.
	DefaultOverlap = 0.5
)

// WelchOption configures [Welch].
type WelchOption func(*welchConfig)

type welchConfig struct {
	segmentLength int
	overlap       float64
	window        window.Type
	detrend       bool
}

func defaultWelchConfig() welchConfig {
	return welchConfig{
		segmentLength: DefaultSegmentLength,
		overlap:       DefaultOverlap,
		window:        window.TypeHann,
		detrend:       true,
	}
}

// WithSegmentLength sets the analysis window length. It is independent of
// any downstream segmentation; inputs shorter than n use their full length.
func WithSegmentLength(n int) WelchOption {
	return func(c *welchConfig) { c.segmentLength = n }
}

// WithOverlap sets the fractional overlap between consecutive analysis
// windows, in [0, 1).
func WithOverlap(f float64) WelchOption {
	return func(c *welchConfig) { c.overlap = f }
}

// WithWindow selects the taper applied to every analysis window.
func WithWindow(t window.Type) WelchOption {
	return func(c *welchConfig) { c.window = t }
}

// WithoutDetrend disables per-window mean removal.
func WithoutDetrend() WelchOption {
	return func(c *welchConfig) { c.detrend = false }
}

// Welch estimates the one-sided power spectral density of samples using
// Welch's method: the input is split into overlapping tapered windows, the
// squared magnitude of each window's FFT is averaged, and the result is
// scaled to a density (signal²/Hz).
func Welch(samples []float64, sampleRate float64, opts ...WelchOption) (PSD, error) {
	cfg := defaultWelchConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := validateWelch(samples, sampleRate, cfg); err != nil {
		return PSD{}, err
	}

	n := min(cfg.segmentLength, len(samples))
	hop := max(n-int(math.Round(float64(n)*cfg.overlap)), 1)

	win := window.Generate(cfg.window, n, window.WithPeriodic())
	winPower := window.SumSquares(win)
	if winPower == 0 {
		return PSD{}, fmt.Errorf("%w: %s window of length %d has zero power", ErrSignalProcessing, cfg.window, n)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return PSD{}, fmt.Errorf("%w: fft plan of size %d: %w", ErrSignalProcessing, n, err)
	}

	bins := n/2 + 1
	frame := make([]float64, n)
	in := make([]complex128, n)
	out := make([]complex128, n)
	pow := make([]float64, bins)
	acc := make([]float64, bins)

	count := 0
	for start := 0; start+n <= len(samples); start += hop {
		copy(frame, samples[start:start+n])
		if cfg.detrend {
			removeMean(frame)
		}
		if err := window.ApplyCoefficientsInPlace(frame, win); err != nil {
			return PSD{}, fmt.Errorf("%w: %w", ErrSignalProcessing, err)
		}

		for i, v := range frame {
			in[i] = complex(v, 0)
		}
		if err := plan.Forward(out, in); err != nil {
			return PSD{}, fmt.Errorf("%w: forward fft: %w", ErrSignalProcessing, err)
		}

		powerInto(pow, out)
		vecmath.AddBlockInPlace(acc, pow)
		count++
	}

	power := make([]float64, bins)
	vecmath.ScaleBlock(power, acc, 1/(sampleRate*winPower*float64(count)))

	// One-sided: fold negative frequencies onto positive ones, except DC
	// and (for even n) Nyquist which have no mirror.
	for k := 1; k < bins; k++ {
		if n%2 == 0 && k == n/2 {
			continue
		}
		power[k] *= 2
	}

	freqs := make([]float64, bins)
	df := sampleRate / float64(n)
	for k := range freqs {
		freqs[k] = float64(k) * df
	}

	return PSD{Freqs: freqs, Power: power}, nil
}

func validateWelch(samples []float64, sampleRate float64, cfg welchConfig) error {
	if len(samples) == 0 {
		return fmt.Errorf("%w: empty input", ErrSignalProcessing)
	}
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: sample rate must be > 0: %v", ErrSignalProcessing, sampleRate)
	}
	if cfg.segmentLength <= 0 {
		return fmt.Errorf("%w: segment length must be > 0: %d", ErrSignalProcessing, cfg.segmentLength)
	}
	if cfg.overlap < 0 || cfg.overlap >= 1 || math.IsNaN(cfg.overlap) {
		return fmt.Errorf("%w: overlap must be in [0,1): %v", ErrSignalProcessing, cfg.overlap)
	}
	if i := core.AllFinite(samples); i >= 0 {
		return fmt.Errorf("%w: non-finite sample at index %d", ErrSignalProcessing, i)
	}
	return nil
}

func removeMean(buf []float64) {
	sum := 0.0
	for _, v := range buf {
		sum += v
	}
	mean := sum / float64(len(buf))
	for i := range buf {
		buf[i] -= mean
	}
}
