package stats

import (
	"math"
	"testing"
	"time"
)

func TestWordCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"  ", 0},
		{"a b  c", 3},
		{"hello, world ", 2},
		{"line one\nline two", 4},
	}
	for _, tt := range tests {
		if got := WordCount(tt.in); got != tt.want {
			t.Errorf("WordCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCharCount(t *testing.T) {
	if got := CharCount("héllo "); got != 6 {
		t.Errorf("CharCount = %d, want 6", got)
	}
}

func TestAverageConfidence(t *testing.T) {
	var a Aggregate
	if _, ok := a.Average(); ok {
		t.Fatal("average should be undefined before any observation")
	}

	a.Observe(0.6, true)
	a.Observe(0.8, true)

	avg, ok := a.Average()
	if !ok {
		t.Fatal("average should be defined")
	}
	if pct := math.Round(avg * 100); pct != 70 {
		t.Errorf("average = %v%%, want 70%%", pct)
	}
}

func TestObserveDefaultsMissingConfidence(t *testing.T) {
	var a Aggregate
	a.Observe(0, false)
	avg, _ := a.Average()
	if avg != DefaultConfidence {
		t.Errorf("average = %v, want %v", avg, DefaultConfidence)
	}
}

func TestReset(t *testing.T) {
	a := Aggregate{Words: 3, Chars: 10}
	a.Observe(0.9, true)
	a.Reset()
	if a.ConfidenceCount != 0 || a.ConfidenceSum != 0 || a.Words != 0 {
		t.Errorf("after reset = %+v, want zero", a)
	}
}

func TestRecount(t *testing.T) {
	var a Aggregate
	a.Observe(0.5, true)
	a.Recount("one two three")
	if a.Words != 3 || a.Chars != 13 {
		t.Errorf("recount = %d words %d chars, want 3/13", a.Words, a.Chars)
	}
	if a.ConfidenceCount != 1 {
		t.Error("recount must not touch confidence")
	}
}

func TestWPM(t *testing.T) {
	if got := WPM(120, 2*time.Minute); got != 60 {
		t.Errorf("WPM = %d, want 60", got)
	}
	if got := WPM(10, 0); got != 0 {
		t.Errorf("WPM with zero elapsed = %d, want 0", got)
	}
}

func TestTimeSaved(t *testing.T) {
	if got := TimeSaved(80); got != 2*time.Minute {
		t.Errorf("TimeSaved(80) = %v, want 2m", got)
	}
}

func TestBandFor(t *testing.T) {
	if BandFor(0.95) != BandGood || BandFor(0.75) != BandFair || BandFor(0.5) != BandPoor {
		t.Error("unexpected confidence bands")
	}
}
