package biquad

// Chain is an ordered cascade of biquad sections processed in series.
// Higher-order designs such as the Butterworth high-pass are realized as
// a chain of second-order sections plus at most one first-order section.
type Chain struct {
	sections []Section
}

// NewChain creates a cascade from one or more coefficient sets.
// Each Coefficients value becomes one Section in the cascade.
func NewChain(coeffs []Coefficients) *Chain {
	c := &Chain{sections: make([]Section, len(coeffs))}
	for i := range coeffs {
		c.sections[i].Coefficients = coeffs[i]
	}
	return c
}

// ProcessBlock filters a block in-place through the full cascade.
func (c *Chain) ProcessBlock(buf []float64) {
	for i := range c.sections {
		c.sections[i].ProcessBlock(buf)
	}
}

// Reset clears all section states.
func (c *Chain) Reset() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// Order returns the total filter order: 2 per second-order section and 1
// per first-order section (B2 = A2 = 0).
func (c *Chain) Order() int {
	order := 0
	for i := range c.sections {
		if c.sections[i].firstOrder() {
			order++
		} else {
			order += 2
		}
	}
	return order
}

// NumSections returns the number of biquad sections.
func (c *Chain) NumSections() int {
	return len(c.sections)
}

// Prime sets every section to the state it would reach after an infinitely
// long constant input x, so that a block starting at x produces no start-up
// transient.
func (c *Chain) Prime(x float64) {
	for i := range c.sections {
		s := &c.sections[i]
		s.SetState(s.SteadyState(x))
		x *= s.DCGain()
	}
}
