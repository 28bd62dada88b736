package whiten

import (
	"errors"
	"math"
	"testing"

	"github.com/kristyvitulova/Publication/dsp/spectrum"
	"github.com/kristyvitulova/Publication/internal/testutil"
)

const sampleRate = 4096.0

func flatPSD(level float64) spectrum.PSD {
	return spectrum.PSD{
		Freqs: []float64{0, sampleRate / 2},
		Power: []float64{level, level},
	}
}

// bandMean averages the PSD over [lo, hi] Hz.
func bandMean(p spectrum.PSD, lo, hi float64) float64 {
	sum, count := 0.0, 0
	for i, f := range p.Freqs {
		if f >= lo && f <= hi {
			sum += p.Power[i]
			count++
		}
	}
	return sum / float64(count)
}

func TestWhiten_OwnPSDYieldsUnitPSD(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
	}{
		{"white", testutil.GaussianNoise(1, 3, 1<<16)},
		{"red", testutil.RedNoise(2, 1, 0.95, 1<<16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			psd, err := spectrum.Welch(tt.x, sampleRate)
			if err != nil {
				t.Fatal(err)
			}

			y, err := Whiten(tt.x, psd, sampleRate)
			if err != nil {
				t.Fatal(err)
			}
			testutil.RequireFinite(t, y)

			out, err := spectrum.Welch(y, sampleRate)
			if err != nil {
				t.Fatal(err)
			}

			for _, band := range [][2]float64{{10, 200}, {200, 1000}, {1000, 2000}} {
				got := bandMean(out, band[0], band[1])
				if got < 0.85 || got > 1.2 {
					t.Errorf("band %v Hz: mean PSD=%.3f, want ~1", band, got)
				}
			}
		})
	}
}

func TestWhiten_StrainScale(t *testing.T) {
	const sigma = 1e-21
	tests := []struct {
		name string
		x    []float64
	}{
		{"white", testutil.GaussianNoise(7, sigma, 1<<15)},
		{"red", testutil.RedNoise(8, sigma, 0.95, 1<<15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			psd, err := spectrum.Welch(tt.x, sampleRate)
			if err != nil {
				t.Fatal(err)
			}

			w, err := New(psd, sampleRate)
			if err != nil {
				t.Fatal(err)
			}
			y, err := w.Whiten(tt.x)
			if err != nil {
				t.Fatal(err)
			}
			testutil.RequireFinite(t, y)

			out, err := spectrum.Welch(y, sampleRate)
			if err != nil {
				t.Fatal(err)
			}
			for _, band := range [][2]float64{{10, 200}, {200, 1000}, {1000, 2000}} {
				got := bandMean(out, band[0], band[1])
				if got < 0.85 || got > 1.2 {
					t.Errorf("band %v Hz: mean PSD=%.3g, want ~1", band, got)
				}
			}

			// Unit density over [0, fs/2] gives rms sqrt(fs/2), whatever the input scale.
			rms := testutil.RMS(y)
			if rms < 0.8*math.Sqrt(sampleRate/2) || rms > 1.2*math.Sqrt(sampleRate/2) {
				t.Errorf("rms=%.4g, want ~%.4g", rms, math.Sqrt(sampleRate/2))
			}
		})
	}
}

func TestWhitener_StrainDensityIsNotClamped(t *testing.T) {
	// Typical detector densities sit between 1e-48 and 1e-40 per Hz.
	psd := spectrum.PSD{
		Freqs: []float64{0, 1000, 2048},
		Power: []float64{1e-40, 1e-46, 1e-48},
	}
	w, err := New(psd, sampleRate)
	if err != nil {
		t.Fatal(err)
	}
	weights, err := w.Weights(4096)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireRelClose(t, "dc weight", weights[0], 1e20, 1e-9)
	testutil.RequireRelClose(t, "1 kHz weight", weights[1000], 1e23, 1e-9)
	testutil.RequireRelClose(t, "nyquist weight", weights[2048], 1e24, 1e-9)
}

func TestWhiten_FlatPSDScales(t *testing.T) {
	x := testutil.DeterministicSine(100, sampleRate, 1, 1024)
	y, err := Whiten(x, flatPSD(4), sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	want := make([]float64, len(x))
	for i, v := range x {
		want[i] = v / 2
	}
	testutil.RequireSliceNearlyEqual(t, y, want, 1e-9)
}

func TestWhiten_ZeroPSDStaysFinite(t *testing.T) {
	psd := spectrum.PSD{
		Freqs: []float64{0, 512, 1024, 2048},
		Power: []float64{0, 0, 1e-3, 0},
	}
	x := testutil.DeterministicNoise(5, 1, 2048)

	y, err := Whiten(x, psd, sampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if len(y) != len(x) {
		t.Fatalf("length=%d, want %d", len(y), len(x))
	}
	testutil.RequireFinite(t, y)

	w, err := New(psd, sampleRate)
	if err != nil {
		t.Fatal(err)
	}
	weights, err := w.Weights(len(x))
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireFinite(t, weights)
	testutil.RequireRelClose(t, "zero-bin weight", weights[0], 1/math.Sqrt(DefaultEpsilon), 1e-12)
}

func TestWhiten_PreservesLength(t *testing.T) {
	for _, n := range []int{8, 64, 16384} {
		y, err := Whiten(testutil.DeterministicNoise(1, 1, n), flatPSD(1), sampleRate)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(y) != n {
			t.Fatalf("n=%d: got %d", n, len(y))
		}
	}
}

func TestWhitener_WeightsAreSymmetric(t *testing.T) {
	psd := spectrum.PSD{
		Freqs: []float64{0, 100, 2048},
		Power: []float64{1, 4, 100},
	}
	w, err := New(psd, sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	const n = 256
	weights, err := w.Weights(n)
	if err != nil {
		t.Fatal(err)
	}
	for k := 1; k < n/2; k++ {
		if weights[k] != weights[n-k] {
			t.Fatalf("bin %d weight %v != bin %d weight %v", k, weights[k], n-k, weights[n-k])
		}
	}
	if got, want := weights[0], 1.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("DC weight=%v, want %v", got, want)
	}
	if got, want := weights[n/2], 0.1; math.Abs(got-want) > 1e-12 {
		t.Fatalf("Nyquist weight=%v, want %v", got, want)
	}
}

func TestWhitener_EpsilonFloor(t *testing.T) {
	w, err := New(flatPSD(0), sampleRate, WithEpsilon(1e-4))
	if err != nil {
		t.Fatal(err)
	}
	if w.Epsilon() != 1e-4 {
		t.Fatalf("epsilon=%v", w.Epsilon())
	}
	weights, err := w.Weights(8)
	if err != nil {
		t.Fatal(err)
	}
	for k, g := range weights {
		if math.Abs(g-100) > 1e-9 {
			t.Fatalf("bin %d weight=%v, want 100", k, g)
		}
	}

	def, _ := New(flatPSD(1), sampleRate, WithEpsilon(-1))
	if def.Epsilon() != DefaultEpsilon {
		t.Fatalf("non-positive epsilon should be ignored, got %v", def.Epsilon())
	}
}

func TestWhitener_ReuseAcrossLengths(t *testing.T) {
	psd := spectrum.PSD{
		Freqs: []float64{0, 1000, 2048},
		Power: []float64{1, 2, 3},
	}
	w, err := New(psd, sampleRate)
	if err != nil {
		t.Fatal(err)
	}

	a := testutil.DeterministicNoise(1, 1, 512)
	b := testutil.DeterministicNoise(2, 1, 128)

	first, err := w.Whiten(a)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Whiten(b); err != nil {
		t.Fatal(err)
	}
	again, err := w.Whiten(a)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, again, first, 1e-12)

	oneShot, err := Whiten(a, psd, sampleRate)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, oneShot, first, 1e-12)
}

func TestWhiten_Errors(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		psd  spectrum.PSD
		sr   float64
	}{
		{"empty input", nil, flatPSD(1), sampleRate},
		{"nan input", []float64{1, math.NaN(), 0, 0}, flatPSD(1), sampleRate},
		{"empty psd", []float64{1, 2}, spectrum.PSD{}, sampleRate},
		{"negative psd", []float64{1, 2}, spectrum.PSD{Freqs: []float64{0, 1}, Power: []float64{1, -1}}, sampleRate},
		{"unsorted psd", []float64{1, 2}, spectrum.PSD{Freqs: []float64{1, 0}, Power: []float64{1, 1}}, sampleRate},
		{"zero sample rate", []float64{1, 2}, flatPSD(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Whiten(tt.x, tt.psd, tt.sr); !errors.Is(err, ErrWhiten) {
				t.Fatalf("err=%v, want ErrWhiten", err)
			}
		})
	}
}
