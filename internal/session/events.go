package session

import (
	"time"

	"github.com/jwulff/voicetext/internal/engine"
)

// Event is an input to Reduce. User actions, engine callbacks and host
// notifications are all events; each carries the time it happened so the
// reducer never reads a clock.
type Event interface{ isEvent() }

// Start begins a session. Seed is the current editable buffer, which becomes
// the start of the transcript. Supported is the engine capability check.
type Start struct {
	At        time.Time
	ID        string
	Seed      string
	Supported bool
}

// Stop ends the session on user request.
type Stop struct{ At time.Time }

// Pause suspends listening; the engine is torn down.
type Pause struct{ At time.Time }

// Resume restarts listening with a fresh engine instance.
type Resume struct{ At time.Time }

// Results is a batch pushed by the engine with the given generation.
type Results struct {
	Generation uint64
	Index      int
	Results    []engine.Result
	At         time.Time
}

// EngineStarted reports that the engine began capturing audio.
type EngineStarted struct{ Generation uint64 }

// EngineError reports an engine failure with its raw code.
type EngineError struct {
	Generation uint64
	Code       string
	At         time.Time
}

// EngineEnded reports that the engine finished on its own or after Stop.
type EngineEnded struct {
	Generation uint64
	At         time.Time
}

// Clear empties the transcript and confidence statistics.
type Clear struct{}

// Edit replaces the transcript with text typed by the user.
type Edit struct{ Text string }

// Restore loads previously auto-saved text into the transcript.
type Restore struct{ Text string }

// Tidy runs the text formatter over the transcript.
type Tidy struct{}

// Visibility reports the host surface being hidden or shown again.
type Visibility struct {
	Hidden bool
	At     time.Time
}

// SetLanguage selects the language tag for the next engine instance. Name is
// the display name used in the status line.
type SetLanguage struct {
	Tag  string
	Name string
}

// SetNormalize toggles spoken-command normalization.
type SetNormalize struct{ Enabled bool }

func (Start) isEvent()         {}
func (Stop) isEvent()          {}
func (Pause) isEvent()         {}
func (Resume) isEvent()        {}
func (Results) isEvent()       {}
func (EngineStarted) isEvent() {}
func (EngineError) isEvent()   {}
func (EngineEnded) isEvent()   {}
func (Clear) isEvent()         {}
func (Edit) isEvent()          {}
func (Restore) isEvent()       {}
func (Tidy) isEvent()          {}
func (Visibility) isEvent()    {}
func (SetLanguage) isEvent()   {}
func (SetNormalize) isEvent()  {}

// Effect is work Reduce asks the caller to perform.
type Effect interface{ isEffect() }

// SpawnEngine asks for a new engine instance tagged with Generation.
type SpawnEngine struct {
	Generation uint64
	Options    engine.Options
}

// StopEngine asks the engine with Generation to shut down.
type StopEngine struct{ Generation uint64 }

// StartClock asks for once-a-second ticks while listening.
type StartClock struct{}

// StartLevels opens the microphone analyser for the visualizer.
type StartLevels struct{}

// StopLevels releases the microphone analyser.
type StopLevels struct{}

// SessionStarted records the start of a session.
type SessionStarted struct {
	ID       string
	Language string
	At       time.Time
}

// SessionEnded records how a session finished. WPM is only set after an
// explicit stop.
type SessionEnded struct {
	ID            string
	State         State
	Err           ErrorKind
	At            time.Time
	Words         int
	WPM           int
	AvgConfidence float64
}

// SegmentFinalized records one finalized utterance.
type SegmentFinalized struct {
	SessionID  string
	Index      int
	Text       string
	Confidence float64
	At         time.Time
}

// AutoSave asks for the transcript to be persisted if autosave is enabled.
type AutoSave struct{ Text string }

func (SpawnEngine) isEffect()      {}
func (StopEngine) isEffect()       {}
func (StartClock) isEffect()       {}
func (StartLevels) isEffect()      {}
func (StopLevels) isEffect()       {}
func (SessionStarted) isEffect()   {}
func (SessionEnded) isEffect()     {}
func (SegmentFinalized) isEffect() {}
func (AutoSave) isEffect()         {}
