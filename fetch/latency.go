package fetch

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aybabtme/uniplot/histogram"
)

const maxLatencySamples = 1024

// LatencyTracker records fetch durations for diagnostics. Old samples are
// discarded once maxLatencySamples is reached.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []float64 // milliseconds
}

func (t *LatencyTracker) Record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) >= maxLatencySamples {
		t.samples = t.samples[1:]
	}
	t.samples = append(t.samples, float64(d.Microseconds())/1000.0)
}

func (t *LatencyTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// WriteHistogram renders an ASCII histogram of recorded fetch latencies in
// milliseconds.
func (t *LatencyTracker) WriteHistogram(w io.Writer) error {
	t.mu.Lock()
	samples := make([]float64, len(t.samples))
	copy(samples, t.samples)
	t.mu.Unlock()

	if len(samples) == 0 {
		_, err := fmt.Fprintln(w, "no fetches recorded")
		return err
	}

	bins := 9
	if len(samples) < bins {
		bins = len(samples)
	}

	hist := histogram.Hist(bins, samples)
	return histogram.Fprint(w, hist, histogram.Linear(40))
}
