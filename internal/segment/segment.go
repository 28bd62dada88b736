// Package segment cuts a recording into contiguous, non-overlapping
// fixed-duration windows.
package segment

import (
	"iter"
	"math"

	"github.com/kristyvitulova/Publication/internal/recording"
)

// Segment is one fixed-length window of a recording. Samples is owned by
// the segment and may be transformed in place until the segment is handed
// to a batch.
type Segment struct {
	Source  string    // recording source path
	Index   int       // position within the recording, from 0
	Start   float64   // GPS seconds of the first sample
	Offset  int       // sample offset within the recording
	Samples []float64 // length round(sampleRate*duration)
}

// Window locates a planned segment without copying samples.
type Window struct {
	Index  int
	Start  float64
	Offset int
	Length int
}

// Length returns the number of samples per segment: round(sampleRate*duration).
func Length(sampleRate, duration float64) int {
	return int(math.Round(sampleRate * duration))
}

// Count returns floor((end-start)/duration), the number of whole segments
// the recording can hold. It returns 0 for a non-positive duration.
func Count(rec *recording.Recording, duration float64) int {
	if !(duration > 0) || rec == nil || rec.SampleRate <= 0 {
		return 0
	}
	return int(math.Floor((rec.End() - rec.Start) / duration))
}

// Plan returns the windows Split produces, in order. Windows whose end would
// pass the recording end or the sample buffer are dropped, so len(result)
// may be less than Count when rounding pushes the last window over.
func Plan(rec *recording.Recording, duration float64) []Window {
	num := Count(rec, duration)
	if num == 0 {
		return nil
	}

	length := Length(rec.SampleRate, duration)
	end := rec.End()

	windows := make([]Window, 0, num)
	for i := range num {
		start := rec.Start + float64(i)*duration
		offset := int(math.Round(float64(i) * duration * rec.SampleRate))
		if start+duration > end+halfSample(rec) || offset+length > len(rec.Samples) {
			break
		}
		windows = append(windows, Window{
			Index:  i,
			Start:  start,
			Offset: offset,
			Length: length,
		})
	}
	return windows
}

// halfSample absorbs floating-point error when comparing segment and
// recording end times.
func halfSample(rec *recording.Recording) float64 {
	return 0.5 / rec.SampleRate
}

// Split lazily yields the segments of rec in temporal order. Each segment
// holds a fresh copy of its samples. The trailing remainder shorter than
// duration is discarded.
func Split(rec *recording.Recording, duration float64) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		for _, w := range Plan(rec, duration) {
			samples := make([]float64, w.Length)
			copy(samples, rec.Samples[w.Offset:w.Offset+w.Length])

			seg := Segment{
				Source:  rec.Source,
				Index:   w.Index,
				Start:   w.Start,
				Offset:  w.Offset,
				Samples: samples,
			}
			if !yield(seg) {
				return
			}
		}
	}
}

// Remainder returns the number of trailing samples not covered by any
// planned window.
func Remainder(rec *recording.Recording, duration float64) int {
	windows := Plan(rec, duration)
	if len(windows) == 0 {
		return len(rec.Samples)
	}
	last := windows[len(windows)-1]
	return len(rec.Samples) - (last.Offset + last.Length)
}
