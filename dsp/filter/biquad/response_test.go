package biquad_test

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/kristyvitulova/Publication/dsp/filter/biquad"
	"github.com/kristyvitulova/Publication/dsp/filter/design/pass"
)

const (
	strainRate = 4096.0
	cutoff     = 20.0
)

func TestChainResponse_ButterworthHighpass(t *testing.T) {
	for _, order := range []int{2, 4, 5, 6, 8} {
		chain := biquad.NewChain(pass.ButterworthHP(cutoff, order, strainRate))

		if got, want := chain.MagnitudeDB(cutoff, strainRate), -10*math.Log10(2); math.Abs(got-want) > 1e-6 {
			t.Errorf("order %d: %.6f dB at cutoff, want %.6f", order, got, want)
		}
		if got := chain.MagnitudeDB(strainRate/2, strainRate); math.Abs(got) > 1e-6 {
			t.Errorf("order %d: %.6f dB at Nyquist, want 0", order, got)
		}
		if got := cmplx.Abs(chain.Response(0, strainRate)); got > 1e-12 {
			t.Errorf("order %d: |H(0)|=%g, want 0", order, got)
		}
	}
}

func TestChainResponse_RollOff(t *testing.T) {
	// An order-n Butterworth falls about 6n dB per octave below cutoff.
	chain := biquad.NewChain(pass.ButterworthHP(cutoff, 6, strainRate))
	drop := chain.MagnitudeDB(cutoff/2, strainRate) - chain.MagnitudeDB(cutoff/4, strainRate)
	if drop < 33 || drop > 39 {
		t.Fatalf("octave drop=%.2f dB, want ~36", drop)
	}
}

func TestChainResponse_ProductOfSections(t *testing.T) {
	coeffs := pass.ButterworthHP(cutoff, 5, strainRate)
	chain := biquad.NewChain(coeffs)

	for _, f := range []float64{5, 20, 60, 500, 2000} {
		want := complex(1, 0)
		for i := range coeffs {
			want *= coeffs[i].Response(f, strainRate)
		}
		if got := chain.Response(f, strainRate); cmplx.Abs(got-want) > 1e-12 {
			t.Fatalf("%v Hz: chain=%v, product=%v", f, got, want)
		}
	}
}

func TestChainResponse_MatchesFilteredSine(t *testing.T) {
	// The steady-state gain of a filtered sine equals |H(f)|.
	const (
		f = 30.0
		n = 1 << 15
	)
	chain := biquad.NewChain(pass.ButterworthHP(cutoff, 4, strainRate))

	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * f * float64(i) / strainRate)
	}
	y := append([]float64(nil), x...)
	chain.ProcessBlock(y)

	var peak float64
	for _, v := range y[n/2:] {
		peak = math.Max(peak, math.Abs(v))
	}
	want := cmplx.Abs(chain.Response(f, strainRate))
	if math.Abs(peak-want) > 1e-3 {
		t.Fatalf("steady-state amplitude=%.5f, want %.5f", peak, want)
	}
}
