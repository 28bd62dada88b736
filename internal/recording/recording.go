// Package recording models a uniformly sampled strain time series and
// reads it from the on-disk container format.
package recording

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrRead is wrapped by every error returned from a Reader.
var ErrRead = errors.New("recording: read failed")

// Recording is one channel of a source file. It is treated as immutable
// once read.
type Recording struct {
	Source     string    // path the recording was read from
	Channel    string    // channel name within the source
	SampleRate float64   // Hz
	Start      float64   // GPS seconds of the first sample
	Samples    []float64 // uniformly spaced strain values
}

// Duration returns the covered time span in seconds.
func (r *Recording) Duration() float64 {
	if r.SampleRate <= 0 {
		return 0
	}
	return float64(len(r.Samples)) / r.SampleRate
}

// End returns the GPS time one sample period past the last sample.
func (r *Recording) End() float64 {
	return r.Start + r.Duration()
}

// Validate checks that the recording is usable for processing.
func (r *Recording) Validate() error {
	if !(r.SampleRate > 0) || math.IsInf(r.SampleRate, 0) {
		return fmt.Errorf("sample rate must be > 0: %v", r.SampleRate)
	}
	if math.IsNaN(r.Start) || math.IsInf(r.Start, 0) {
		return fmt.Errorf("start time must be finite: %v", r.Start)
	}
	if len(r.Samples) == 0 {
		return fmt.Errorf("channel %q has no samples", r.Channel)
	}
	return nil
}

// Reader loads one channel of a recording file.
type Reader interface {
	Read(ctx context.Context, path, channel string) (*Recording, error)
}
