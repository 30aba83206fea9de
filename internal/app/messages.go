package app

import (
	"time"

	"github.com/jwulff/voicetext/internal/engine"
	"github.com/jwulff/voicetext/internal/session"
	"github.com/jwulff/voicetext/internal/settings"
)

// SettingsLoadedMsg carries stored preferences and the last autosaved
// transcript (empty when there is none).
type SettingsLoadedMsg struct {
	Settings settings.Settings
	Autosave string
}

// EngineSpawnedMsg is sent when an engine instance started capturing.
type EngineSpawnedMsg struct {
	Generation uint64
	Engine     engine.Engine
}

// EngineSpawnErrorMsg is sent when an engine instance could not be created
// or started.
type EngineSpawnErrorMsg struct {
	Generation uint64
	Code       string
	Err        error
	At         time.Time
}

// EngineEventMsg wraps one event read from an engine instance.
type EngineEventMsg struct {
	Generation uint64
	Event      engine.Event
	At         time.Time

	events <-chan engine.Event
}

// ClockTickMsg refreshes the elapsed-time display once a second.
type ClockTickMsg struct {
	Seq int
	At  time.Time
}

// LevelTickMsg refreshes the visualizer at frame cadence.
type LevelTickMsg struct {
	Seq int
}

// LevelsStoppedMsg is sent once the level sampler released the microphone.
type LevelsStoppedMsg struct{}

// NoticeMsg shows an application message on the status line until the
// session status changes.
type NoticeMsg struct {
	Text string
	Tone session.Tone
	// Err is logged when set.
	Err error
}
