package spectrum

import (
	"math"
	"testing"
)

func TestMagnitudePower(t *testing.T) {
	bins := []complex128{3 + 4i, -1 - 1i, 0}

	mag := Magnitude(bins)
	if len(mag) != len(bins) {
		t.Fatalf("Magnitude length mismatch: got=%d want=%d", len(mag), len(bins))
	}

	if math.Abs(mag[0]-5) > 1e-12 {
		t.Fatalf("Magnitude[0]=%f want=5", mag[0])
	}

	pow := Power(bins)
	if math.Abs(pow[0]-25) > 1e-12 {
		t.Fatalf("Power[0]=%f want=25", pow[0])
	}

	if math.Abs(pow[1]-2) > 1e-12 {
		t.Fatalf("Power[1]=%f want=2", pow[1])
	}

	if Power(nil) != nil || Magnitude(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestPowerFromParts(t *testing.T) {
	re := []float64{3, -1, 0}
	im := []float64{4, -1, 0}
	dst := make([]float64, 3)
	PowerFromParts(dst, re, im)

	if math.Abs(dst[0]-25) > 1e-12 {
		t.Fatalf("PowerFromParts[0]=%f want=25", dst[0])
	}

	if math.Abs(dst[1]-2) > 1e-12 {
		t.Fatalf("PowerFromParts[1]=%f want=2", dst[1])
	}

	if math.Abs(dst[2]-0) > 1e-12 {
		t.Fatalf("PowerFromParts[2]=%f want=0", dst[2])
	}
}

func TestInterpolateLinear(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{0, 10, 20}
	q := []float64{-1, 0.5, 1, 2, 3}

	out, err := InterpolateLinear(x, y, q)
	if err != nil {
		t.Fatalf("InterpolateLinear error: %v", err)
	}

	want := []float64{0, 5, 10, 20, 20}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-12 {
			t.Fatalf("out[%d]=%f want=%f", i, out[i], want[i])
		}
	}
}

func TestInterpolateLinearErrors(t *testing.T) {
	if _, err := InterpolateLinear(nil, nil, []float64{1}); err == nil {
		t.Fatalf("expected error for empty x/y")
	}

	if _, err := InterpolateLinear([]float64{0, 1}, []float64{1}, []float64{1}); err == nil {
		t.Fatalf("expected error for mismatch")
	}

	if _, err := InterpolateLinear([]float64{0, 0}, []float64{1, 2}, []float64{1}); err == nil {
		t.Fatalf("expected error for non-monotonic x")
	}
}
