package biquad

// PadLength returns the number of samples FiltFilt extends each edge of
// the input by: three times the cascade's effective impulse-response
// length, 3*(2*sections + 1), less one per first-order section.
func (c *Chain) PadLength() int {
	firstOrder := 0
	for i := range c.sections {
		if c.sections[i].firstOrder() {
			firstOrder++
		}
	}
	return 3 * (2*len(c.sections) + 1 - firstOrder)
}

// FiltFilt filters x forward and then backward through the cascade and
// returns a new slice of the same length. The result has zero phase and
// the squared magnitude response of the chain.
//
// Both edges are extended by an odd reflection of PadLength samples
// (capped at len(x)-1) and each pass starts from the steady state of its
// first sample, which suppresses edge transients. The chain state is reset
// on return.
func (c *Chain) FiltFilt(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return []float64{}
	}

	pad := min(c.PadLength(), n-1)

	ext := make([]float64, n+2*pad)
	for i := range pad {
		ext[i] = 2*x[0] - x[pad-i]
		ext[n+pad+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[pad:], x)

	c.Reset()
	c.Prime(ext[0])
	c.ProcessBlock(ext)

	reverse(ext)
	c.Reset()
	c.Prime(ext[0])
	c.ProcessBlock(ext)
	reverse(ext)

	c.Reset()

	out := make([]float64, n)
	copy(out, ext[pad:pad+n])
	return out
}

func reverse(buf []float64) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}
