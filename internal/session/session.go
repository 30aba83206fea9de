// Package session coordinates one continuous speech-recognition session.
//
// The coordinator is a pure reducer: Reduce takes the current Session and an
// Event and returns the next Session plus the Effects the caller must carry
// out (spawning or stopping engines, persisting segments, ...). It never
// performs I/O or reads a clock, so every transition is testable in isolation.
package session

import (
	"strings"
	"time"

	"github.com/jwulff/voicetext/internal/command"
	"github.com/jwulff/voicetext/internal/engine"
	"github.com/jwulff/voicetext/internal/stats"
	"github.com/jwulff/voicetext/internal/timer"
)

// State is the lifecycle state of a session.
type State int

const (
	Idle State = iota
	Listening
	Paused
	Stopped
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Tone tells the UI how to color the status line.
type Tone int

const (
	ToneIdle Tone = iota
	ToneRecording
	TonePaused
	ToneError
	ToneInfo
	ToneSuccess
)

// Session is the authoritative state of the dictation session. The visible
// transcript is always Final + Interim.
type Session struct {
	ID       string
	State    State
	Final    string
	Interim  string
	Language string

	// Normalize enables spoken-command normalization of results.
	Normalize bool

	// Generation identifies the current engine instance. Events from older
	// instances are dropped.
	Generation uint64
	// NextIndex is the first result index of the current engine instance
	// that has not been finalized yet.
	NextIndex int

	Stats stats.Aggregate
	Timer timer.Timer

	Err           ErrorKind
	ErrCode       string
	Status        string
	Tone          Tone
	StartDisabled bool
	AutoPaused    bool

	// WPM is the throughput recorded by the last explicit stop.
	WPM int
}

// Controls describes which session actions are currently available.
type Controls struct {
	Start  bool
	Stop   bool
	Pause  bool
	Resume bool
}

// New returns an idle session.
func New(language string, normalize, excludePaused bool) Session {
	return Session{
		State:     Idle,
		Language:  language,
		Normalize: normalize,
		Timer:     timer.New(excludePaused),
		Status:    "Ready. Press ctrl+s to start dictating.",
		Tone:      ToneIdle,
	}
}

// Visible returns the transcript as displayed.
func (s Session) Visible() string {
	return s.Final + s.Interim
}

// StartedAt returns when the current session started, or the zero time.
func (s Session) StartedAt() time.Time {
	return s.Timer.StartedAt
}

// Controls projects the session state onto the action affordances.
func (s Session) Controls() Controls {
	switch s.State {
	case Listening:
		return Controls{Stop: true, Pause: true}
	case Paused:
		return Controls{Stop: true, Resume: true}
	default:
		return Controls{Start: !s.StartDisabled}
	}
}

// Reduce applies ev to s.
func Reduce(s Session, ev Event) (Session, []Effect) {
	switch ev := ev.(type) {
	case Start:
		return s.start(ev)
	case Stop:
		return s.stop(ev.At)
	case Pause:
		s, effects := s.pause(ev.At)
		if s.State == Paused {
			s.AutoPaused = false
		}
		return s, effects
	case Resume:
		return s.resume(ev.At)
	case Results:
		return s.results(ev)
	case EngineStarted:
		if ev.Generation == s.Generation && s.State == Listening {
			s.setStatus("Listening... Speak now!", ToneRecording)
		}
		return s, nil
	case EngineError:
		return s.engineError(ev)
	case EngineEnded:
		return s.engineEnded(ev)
	case Clear:
		s.Final = ""
		s.Interim = ""
		s.Stats.Reset()
		s.setStatus("Transcript cleared.", ToneInfo)
		return s, nil
	case Edit:
		if s.State == Listening {
			return s, nil
		}
		s.Final = ev.Text
		s.Interim = ""
		s.Stats.Recount(s.Visible())
		return s, nil
	case Restore:
		if s.State == Listening || ev.Text == "" {
			return s, nil
		}
		s.Final = ev.Text
		s.Interim = ""
		s.Stats.Recount(s.Visible())
		s.setStatus("Auto-saved content loaded.", ToneInfo)
		return s, nil
	case Tidy:
		return s.tidy()
	case Visibility:
		return s.visibility(ev)
	case SetLanguage:
		s.Language = ev.Tag
		name := ev.Name
		if name == "" {
			name = ev.Tag
		}
		s.setStatus("Language changed to "+name, ToneInfo)
		return s, nil
	case SetNormalize:
		s.Normalize = ev.Enabled
		if ev.Enabled {
			s.setStatus("Voice punctuation: enabled", ToneInfo)
		} else {
			s.setStatus("Voice punctuation: disabled", ToneInfo)
		}
		return s, nil
	}
	return s, nil
}

func (s Session) start(ev Start) (Session, []Effect) {
	if s.StartDisabled || s.State == Listening || s.State == Paused {
		return s, nil
	}
	if !ev.Supported {
		s.State = Error
		s.Err = CapabilityUnavailable
		s.StartDisabled = true
		s.setStatus(message(CapabilityUnavailable, ""), ToneError)
		return s, nil
	}

	s.ID = ev.ID
	s.State = Listening
	s.Final = ev.Seed
	s.Interim = ""
	s.Generation++
	s.NextIndex = 0
	s.Err = ErrNone
	s.ErrCode = ""
	s.WPM = 0
	s.AutoPaused = false
	s.Timer.Start(ev.At)
	s.Stats.Recount(s.Visible())
	s.setStatus("Starting recognition...", ToneRecording)

	return s, []Effect{
		s.spawn(),
		StartClock{},
		StartLevels{},
		SessionStarted{ID: s.ID, Language: s.Language, At: ev.At},
	}
}

func (s Session) stop(at time.Time) (Session, []Effect) {
	if s.State != Listening && s.State != Paused {
		return s, nil
	}
	var effects []Effect
	if s.State == Listening {
		effects = append(effects, StopEngine{Generation: s.Generation}, StopLevels{})
	}

	s.Timer.Stop(at)
	s.WPM = stats.WPM(s.Stats.Words, s.Timer.Elapsed(at))
	s.State = Stopped
	s.AutoPaused = false
	s.setStatus("Recognition stopped.", ToneIdle)

	return s, append(effects, s.ended(at))
}

func (s Session) pause(at time.Time) (Session, []Effect) {
	if s.State != Listening {
		return s, nil
	}
	s.State = Paused
	s.Interim = ""
	s.Stats.Recount(s.Visible())
	s.Timer.Pause(at)
	s.setStatus("Paused. Press ctrl+p to resume.", TonePaused)
	return s, []Effect{StopEngine{Generation: s.Generation}, StopLevels{}}
}

func (s Session) resume(at time.Time) (Session, []Effect) {
	if s.State != Paused {
		return s, nil
	}
	s.State = Listening
	s.Generation++
	s.NextIndex = 0
	s.Interim = ""
	s.AutoPaused = false
	s.Timer.Resume(at)
	s.setStatus("Resuming...", ToneRecording)
	return s, []Effect{s.spawn(), StartClock{}, StartLevels{}}
}

func (s Session) results(ev Results) (Session, []Effect) {
	if ev.Generation != s.Generation {
		return s, nil
	}
	listening := s.State == Listening
	// An engine asked to pause or stop may still flush its last finals.
	if !listening && s.State != Paused && s.State != Stopped {
		return s, nil
	}

	var (
		effects  []Effect
		interim  strings.Builder
		appended bool
	)
	for k, r := range ev.Results {
		i := ev.Index + k
		if i < s.NextIndex {
			continue
		}
		text := command.Normalize(r.Text, s.Normalize)
		if !r.Final {
			if listening {
				interim.WriteString(text)
			}
			continue
		}
		s.Final += text + " "
		s.Stats.Observe(r.Confidence, r.HasConfidence)
		s.NextIndex = i + 1
		appended = true

		conf := r.Confidence
		if !r.HasConfidence {
			conf = stats.DefaultConfidence
		}
		effects = append(effects, SegmentFinalized{
			SessionID:  s.ID,
			Index:      i,
			Text:       text,
			Confidence: conf,
			At:         ev.At,
		})
	}

	if listening || appended {
		s.Interim = interim.String()
	}
	s.Stats.Recount(s.Visible())
	if appended {
		effects = append(effects, AutoSave{Text: s.Visible()})
	}
	return s, effects
}

func (s Session) engineError(ev EngineError) (Session, []Effect) {
	// Errors from an engine that is being torn down for a pause or stop are
	// teardown noise.
	if ev.Generation != s.Generation || s.State != Listening {
		return s, nil
	}
	kind := KindFromCode(ev.Code)
	s.State = Error
	s.Err = kind
	s.ErrCode = ev.Code
	s.AutoPaused = false
	s.Timer.Stop(ev.At)
	s.setStatus(message(kind, ev.Code), ToneError)
	return s, []Effect{StopEngine{Generation: s.Generation}, StopLevels{}, s.ended(ev.At)}
}

func (s Session) engineEnded(ev EngineEnded) (Session, []Effect) {
	if ev.Generation != s.Generation || s.State != Listening {
		return s, nil
	}
	s.State = Idle
	s.Timer.Stop(ev.At)
	s.setStatus("Recognition stopped.", ToneIdle)
	return s, []Effect{StopLevels{}, s.ended(ev.At)}
}

func (s Session) tidy() (Session, []Effect) {
	text := command.Tidy(s.Visible())
	if text == "" {
		s.setStatus("No text to format.", ToneError)
		return s, nil
	}
	if s.State == Listening {
		text += " "
	}
	s.Final = text
	s.Interim = ""
	s.Stats.Recount(s.Visible())
	s.setStatus("Text formatted.", ToneSuccess)
	return s, []Effect{AutoSave{Text: s.Visible()}}
}

// visibility pauses when the host surface is hidden and resumes when it is
// shown again, but only if the pause was automatic.
func (s Session) visibility(ev Visibility) (Session, []Effect) {
	if ev.Hidden {
		if s.State != Listening {
			return s, nil
		}
		next, effects := s.pause(ev.At)
		next.AutoPaused = true
		return next, effects
	}
	if s.State == Paused && s.AutoPaused {
		return s.resume(ev.At)
	}
	return s, nil
}

func (s Session) spawn() SpawnEngine {
	return SpawnEngine{
		Generation: s.Generation,
		Options: engine.Options{
			Language:        s.Language,
			Interim:         true,
			Continuous:      true,
			MaxAlternatives: 1,
			SessionID:       s.ID,
		},
	}
}

func (s Session) ended(at time.Time) SessionEnded {
	avg, _ := s.Stats.Average()
	return SessionEnded{
		ID:            s.ID,
		State:         s.State,
		Err:           s.Err,
		At:            at,
		Words:         s.Stats.Words,
		WPM:           s.WPM,
		AvgConfidence: avg,
	}
}

func (s *Session) setStatus(msg string, tone Tone) {
	s.Status = msg
	s.Tone = tone
}
