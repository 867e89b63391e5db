package fetch

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLatencyTracker_WriteHistogram(t *testing.T) {
	tr := &LatencyTracker{}
	tr.Record(5 * time.Millisecond)
	tr.Record(12 * time.Millisecond)
	tr.Record(7 * time.Millisecond)

	if tr.Count() != 3 {
		t.Fatalf("expected 3 samples, got %d", tr.Count())
	}

	var buf bytes.Buffer
	if err := tr.WriteHistogram(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected histogram output")
	}
}

func TestLatencyTracker_Empty(t *testing.T) {
	tr := &LatencyTracker{}

	var buf bytes.Buffer
	if err := tr.WriteHistogram(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no fetches recorded") {
		t.Fatalf("unexpected output for empty tracker: %q", buf.String())
	}
}

func TestLatencyTracker_DiscardsOldSamples(t *testing.T) {
	tr := &LatencyTracker{}
	for i := 0; i < maxLatencySamples+10; i++ {
		tr.Record(time.Millisecond)
	}

	if tr.Count() != maxLatencySamples {
		t.Fatalf("expected %d samples after overflow, got %d", maxLatencySamples, tr.Count())
	}
}
