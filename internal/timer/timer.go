// Package timer tracks elapsed recording time for a dictation session.
package timer

import (
	"fmt"
	"time"
)

// Timer measures time since a session started. By default a pause stops the
// display from ticking but the paused interval still counts toward Elapsed;
// with ExcludePaused the baseline is shifted forward on Resume instead.
type Timer struct {
	StartedAt     time.Time
	ExcludePaused bool

	running  bool
	pausedAt time.Time
	stopped  time.Duration
}

// New returns a Timer with the given paused-time policy.
func New(excludePaused bool) Timer {
	return Timer{ExcludePaused: excludePaused}
}

// Start resets the timer and starts counting from now.
func (t *Timer) Start(now time.Time) {
	t.StartedAt = now
	t.running = true
	t.pausedAt = time.Time{}
	t.stopped = 0
}

// Pause stops ticking without resetting StartedAt.
func (t *Timer) Pause(now time.Time) {
	if !t.running {
		return
	}
	t.running = false
	t.pausedAt = now
}

// Resume continues ticking after a pause.
func (t *Timer) Resume(now time.Time) {
	if t.running || t.StartedAt.IsZero() {
		return
	}
	if t.ExcludePaused && !t.pausedAt.IsZero() {
		t.StartedAt = t.StartedAt.Add(now.Sub(t.pausedAt))
	}
	t.running = true
	t.pausedAt = time.Time{}
}

// Stop freezes the elapsed value at now. A pause still in progress counts
// unless ExcludePaused is set.
func (t *Timer) Stop(now time.Time) {
	if t.StartedAt.IsZero() {
		return
	}
	if t.ExcludePaused || t.running || t.pausedAt.IsZero() {
		t.stopped = t.Elapsed(now)
	} else {
		t.stopped = now.Sub(t.StartedAt)
	}
	t.running = false
	t.pausedAt = time.Time{}
}

// Running reports whether the timer is ticking.
func (t Timer) Running() bool {
	return t.running
}

// Elapsed returns the time counted at now. While paused the display value is
// frozen at the moment of the pause.
func (t Timer) Elapsed(now time.Time) time.Duration {
	switch {
	case t.StartedAt.IsZero():
		return 0
	case t.running:
		return now.Sub(t.StartedAt)
	case !t.pausedAt.IsZero():
		return t.pausedAt.Sub(t.StartedAt)
	default:
		return t.stopped
	}
}

// Format renders d as MM:SS. Minutes keep counting past 59.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
