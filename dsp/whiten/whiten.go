// Package whiten flattens the spectrum of a sampled series by dividing its
// Fourier transform by the square root of a power spectral density
// estimate.
//
// Whitening a series against its own one-sided density PSD yields an
// output whose one-sided density is approximately 1 at every frequency.
package whiten

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/kristyvitulova/Publication/dsp/core"
	"github.com/kristyvitulova/Publication/dsp/spectrum"
)

// DefaultEpsilon is the absolute floor applied to interpolated PSD values
// before division, so zero bins never produce infinities. It sits far below
// any physical strain density (about 1e-46 to 1e-40 per Hz), so real bins
// are never clamped, and 1/sqrt(DefaultEpsilon) stays finite.
const DefaultEpsilon = 1e-60

// ErrWhiten is wrapped by every error returned from this package.
var ErrWhiten = errors.New("whiten: whitening failed")

// Option configures a [Whitener].
type Option func(*config)

type config struct {
	epsilon float64
}

// WithEpsilon sets the absolute PSD floor, in the PSD's own units. Choose it
// well below the smallest density that should be whitened faithfully.
// Non-positive values are ignored.
func WithEpsilon(eps float64) Option {
	return func(c *config) {
		if eps > 0 && !math.IsInf(eps, 0) {
			c.epsilon = eps
		}
	}
}

// Whitener whitens series of any length against one PSD. It caches the FFT
// plan and spectral weights of the most recent length, so whitening the
// equally sized segments of a recording designs them once. A Whitener is
// not safe for concurrent use.
type Whitener struct {
	psd        spectrum.PSD
	sampleRate float64
	epsilon    float64

	n       int
	plan    *algofft.Plan[complex128]
	weights []float64
	in      []complex128
	out     []complex128
}

// New validates psd and returns a Whitener for series sampled at
// sampleRate.
func New(psd spectrum.PSD, sampleRate float64, opts ...Option) (*Whitener, error) {
	cfg := config{epsilon: DefaultEpsilon}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: sample rate must be > 0: %v", ErrWhiten, sampleRate)
	}
	if err := psd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWhiten, err)
	}

	return &Whitener{
		psd:        psd,
		sampleRate: sampleRate,
		epsilon:    cfg.epsilon,
	}, nil
}

// Epsilon returns the PSD floor in use.
func (w *Whitener) Epsilon() float64 { return w.epsilon }

// Whiten returns the whitened copy of samples. The input is not modified.
func (w *Whitener) Whiten(samples []float64) ([]float64, error) {
	n := len(samples)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrWhiten)
	}
	if i := core.AllFinite(samples); i >= 0 {
		return nil, fmt.Errorf("%w: non-finite sample at index %d", ErrWhiten, i)
	}

	if err := w.prepare(n); err != nil {
		return nil, err
	}

	for i, v := range samples {
		w.in[i] = complex(v, 0)
	}
	if err := w.plan.Forward(w.out, w.in); err != nil {
		return nil, fmt.Errorf("%w: forward fft: %w", ErrWhiten, err)
	}

	for k, g := range w.weights {
		w.out[k] *= complex(g, 0)
	}

	if err := w.plan.Inverse(w.in, w.out); err != nil {
		return nil, fmt.Errorf("%w: inverse fft: %w", ErrWhiten, err)
	}

	// The imaginary residual is rounding noise from the symmetric weights.
	result := make([]float64, n)
	for i := range result {
		result[i] = real(w.in[i])
	}
	return result, nil
}

// Weights returns a copy of the per-bin gains 1/sqrt(max(psd(|f_k|), eps))
// used for series of length n.
func (w *Whitener) Weights(n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: length must be > 0: %d", ErrWhiten, n)
	}
	if err := w.prepare(n); err != nil {
		return nil, err
	}
	return append([]float64(nil), w.weights...), nil
}

func (w *Whitener) prepare(n int) error {
	if n == w.n && w.plan != nil {
		return nil
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return fmt.Errorf("%w: fft plan of size %d: %w", ErrWhiten, n, err)
	}

	freqs := binFrequencies(n, w.sampleRate)
	psd, err := w.psd.At(freqs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWhiten, err)
	}

	weights := make([]float64, n)
	for k, p := range psd {
		weights[k] = 1 / math.Sqrt(math.Max(p, w.epsilon))
	}

	w.n = n
	w.plan = plan
	w.weights = weights
	w.in = make([]complex128, n)
	w.out = make([]complex128, n)
	return nil
}

// binFrequencies returns |f_k| for every FFT bin of an n-point transform.
// Bins above n/2 are the negative frequencies and mirror onto the positive
// axis.
func binFrequencies(n int, sampleRate float64) []float64 {
	df := sampleRate / float64(n)
	freqs := make([]float64, n)
	for k := range freqs {
		m := k
		if k > n/2 {
			m = n - k
		}
		freqs[k] = float64(m) * df
	}
	return freqs
}

// Whiten whitens samples against psd in one call. Use [New] when whitening
// many series against the same PSD.
func Whiten(samples []float64, psd spectrum.PSD, sampleRate float64, opts ...Option) ([]float64, error) {
	w, err := New(psd, sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	return w.Whiten(samples)
}
