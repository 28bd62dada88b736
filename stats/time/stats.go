// Package time computes time-domain statistics of strain segments.
//
// Whitened segments should look like zero-mean unit-variance noise, so
// the interesting numbers are the RMS, the crest factor and the excess
// kurtosis, which flags glitches.
package time

import "math"

// Sample is the element type of a segment: float64 while conditioning,
// float32 once written to an artifact.
type Sample interface {
	~float32 | ~float64
}

// Stats holds time-domain statistics of one segment.
type Stats struct {
	Length      int
	NonFinite   int // NaN or Inf samples, excluded from everything below
	Mean        float64
	RMS         float64
	Peak        float64 // largest |x|
	PeakPos     int
	CrestFactor float64 // Peak / RMS
	Variance    float64
	Skewness    float64
	Kurtosis    float64 // excess; 0 for Gaussian noise
}

// Calculate computes all statistics in one pass.
func Calculate[T Sample](signal []T) Stats {
	var acc Streaming
	Update(&acc, signal)
	return acc.Result()
}

// RMS returns the root-mean-square of the finite samples.
func RMS[T Sample](signal []T) float64 {
	var sumSq float64
	var n int
	for _, v := range signal {
		x := float64(v)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		sumSq += x * x
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sumSq / float64(n))
}

// Streaming accumulates statistics across several blocks, e.g. every row of
// a batch artifact. The zero value is ready to use.
type Streaming struct {
	n         int // finite samples
	seen      int // all samples
	nonFinite int

	// Welford moments.
	mean, m2, m3, m4 float64

	sumSq   float64
	peak    float64
	peakPos int
}

// Update folds samples into the running statistics.
func Update[T Sample](s *Streaming, samples []T) {
	for _, x := range samples {
		s.add(float64(x))
	}
}

func (s *Streaming) add(x float64) {
	pos := s.seen
	s.seen++
	if math.IsNaN(x) || math.IsInf(x, 0) {
		s.nonFinite++
		return
	}

	// M4 before M3 before M2.
	prev := float64(s.n)
	s.n++
	ni := float64(s.n)
	delta := x - s.mean
	deltaN := delta / ni
	deltaN2 := deltaN * deltaN
	term1 := delta * deltaN * prev

	s.m4 += term1*deltaN2*(ni*ni-3*ni+3) + 6*deltaN2*s.m2 - 4*deltaN*s.m3
	s.m3 += term1*deltaN*(ni-2) - 3*deltaN*s.m2
	s.m2 += term1
	s.mean += deltaN

	s.sumSq += x * x
	if a := math.Abs(x); a > s.peak || s.n == 1 {
		s.peak = a
		s.peakPos = pos
	}
}

// Result returns the statistics of everything seen so far.
func (s *Streaming) Result() Stats {
	st := Stats{Length: s.seen, NonFinite: s.nonFinite}
	if s.n == 0 {
		return st
	}

	nf := float64(s.n)
	st.Mean = s.mean
	st.RMS = math.Sqrt(s.sumSq / nf)
	st.Peak = s.peak
	st.PeakPos = s.peakPos
	if st.RMS > 0 {
		st.CrestFactor = st.Peak / st.RMS
	}
	st.Variance = s.m2 / nf
	if st.Variance > 0 {
		st.Skewness = (s.m3 / nf) / (st.Variance * math.Sqrt(st.Variance))
		st.Kurtosis = (s.m4/nf)/(st.Variance*st.Variance) - 3
	}
	return st
}

// Reset clears the accumulator.
func (s *Streaming) Reset() {
	*s = Streaming{}
}
