// Package batch groups processed segments into fixed-size batches and
// persists each batch as one artifact.
package batch

import (
	"fmt"

	"github.com/kristyvitulova/Publication/internal/segment"
)

// Batch is an ordered group of segments. Index is zero-based and unique
// within a run. A batch is immutable once emitted.
type Batch struct {
	Index    int
	Segments []segment.Segment
}

// Len returns the number of segments in the batch.
func (b Batch) Len() int { return len(b.Segments) }

// Accumulator buffers segments in arrival order and emits a Batch every
// time the buffer reaches its size. It is not safe for concurrent use.
type Accumulator struct {
	size   int
	next   int
	buffer []segment.Segment
}

// NewAccumulator returns an Accumulator emitting batches of size segments.
func NewAccumulator(size int) (*Accumulator, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be > 0: %d", size)
	}
	return &Accumulator{
		size:   size,
		buffer: make([]segment.Segment, 0, size),
	}, nil
}

// Append adds seg. When the buffer becomes full it returns the completed
// batch and true, and the buffer starts empty again.
func (a *Accumulator) Append(seg segment.Segment) (Batch, bool) {
	a.buffer = append(a.buffer, seg)
	if len(a.buffer) < a.size {
		return Batch{}, false
	}
	return a.emit(), true
}

// Flush emits the buffered remainder, if any, as a final short batch.
func (a *Accumulator) Flush() (Batch, bool) {
	if len(a.buffer) == 0 {
		return Batch{}, false
	}
	return a.emit(), true
}

// Len returns the number of buffered segments.
func (a *Accumulator) Len() int { return len(a.buffer) }

// Size returns the configured batch size.
func (a *Accumulator) Size() int { return a.size }

// Next returns the index the next emitted batch will carry.
func (a *Accumulator) Next() int { return a.next }

func (a *Accumulator) emit() Batch {
	b := Batch{Index: a.next, Segments: a.buffer}
	a.next++
	a.buffer = make([]segment.Segment, 0, a.size)
	return b
}
