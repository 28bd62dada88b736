package time_test

import (
	"fmt"

	timestats "github.com/kristyvitulova/Publication/stats/time"
)

func ExampleCalculate() {
	s := timestats.Calculate([]float64{1, -1, 1, -1})
	fmt.Printf("rms=%.1f crest=%.1f\n", s.RMS, s.CrestFactor)

	// Output:
	// rms=1.0 crest=1.0
}

func ExampleStreaming() {
	var acc timestats.Streaming
	timestats.Update(&acc, []float32{1, -1})
	timestats.Update(&acc, []float32{3, -3})
	s := acc.Result()
	fmt.Printf("len=%d peak=%.0f at %d\n", s.Length, s.Peak, s.PeakPos)

	// Output:
	// len=4 peak=3 at 2
}
