package timer

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func TestFormat(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{9 * time.Second, "00:09"},
		{61*time.Second + 900*time.Millisecond, "01:01"},
		{75 * time.Minute, "75:00"},
		{-time.Second, "00:00"},
	}
	for _, tt := range tests {
		if got := Format(tt.d); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestElapsedIncludesPausedTimeByDefault(t *testing.T) {
	tm := New(false)
	tm.Start(t0)
	tm.Pause(t0.Add(10 * time.Second))

	if got := tm.Elapsed(t0.Add(30 * time.Second)); got != 10*time.Second {
		t.Errorf("elapsed while paused = %v, want 10s (frozen)", got)
	}

	tm.Resume(t0.Add(30 * time.Second))
	if got := tm.Elapsed(t0.Add(40 * time.Second)); got != 40*time.Second {
		t.Errorf("elapsed after resume = %v, want 40s", got)
	}
	if !tm.StartedAt.Equal(t0) {
		t.Error("resume must not move StartedAt by default")
	}
}

func TestElapsedExcludesPausedTime(t *testing.T) {
	tm := New(true)
	tm.Start(t0)
	tm.Pause(t0.Add(10 * time.Second))
	tm.Resume(t0.Add(30 * time.Second))

	if got := tm.Elapsed(t0.Add(40 * time.Second)); got != 20*time.Second {
		t.Errorf("elapsed = %v, want 20s", got)
	}
}

func TestStopFreezes(t *testing.T) {
	tm := New(false)
	tm.Start(t0)
	tm.Stop(t0.Add(5 * time.Second))

	if tm.Running() {
		t.Error("stopped timer should not be running")
	}
	if got := tm.Elapsed(t0.Add(time.Hour)); got != 5*time.Second {
		t.Errorf("elapsed after stop = %v, want 5s", got)
	}
}

func TestStopWhilePausedCountsPause(t *testing.T) {
	tm := New(false)
	tm.Start(t0)
	tm.Pause(t0.Add(60 * time.Second))
	tm.Stop(t0.Add(120 * time.Second))

	if got := tm.Elapsed(t0.Add(time.Hour)); got != 120*time.Second {
		t.Errorf("elapsed = %v, want 2m0s", got)
	}
}

func TestStopWhilePausedExcludesPause(t *testing.T) {
	tm := New(true)
	tm.Start(t0)
	tm.Pause(t0.Add(60 * time.Second))
	tm.Stop(t0.Add(120 * time.Second))

	if got := tm.Elapsed(t0.Add(time.Hour)); got != 60*time.Second {
		t.Errorf("elapsed = %v, want 1m0s", got)
	}
}

func TestZeroTimer(t *testing.T) {
	var tm Timer
	if got := tm.Elapsed(t0); got != 0 {
		t.Errorf("elapsed = %v, want 0", got)
	}
	tm.Resume(t0)
	if tm.Running() {
		t.Error("resume of an unstarted timer should be a no-op")
	}
}
