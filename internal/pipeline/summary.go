package pipeline

import (
	"time"

	"github.com/kristyvitulova/Publication/internal/batch"
)

// Summary reports the outcome of a run.
type Summary struct {
	RunID      string
	FilesFound int
	Succeeded  []string
	Failures   []FileError
	Segments   int
	Batches    []batch.Record
	Duration   time.Duration
}

// Failed returns the number of failed files.
func (s *Summary) Failed() int { return len(s.Failures) }

// BatchSizes returns the segment count of every written batch in order.
func (s *Summary) BatchSizes() []int {
	sizes := make([]int, len(s.Batches))
	for i, b := range s.Batches {
		sizes[i] = b.Count
	}
	return sizes
}
