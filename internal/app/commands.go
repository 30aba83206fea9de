package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwulff/voicetext/internal/engine"
	"github.com/jwulff/voicetext/internal/export"
	"github.com/jwulff/voicetext/internal/session"
	"github.com/jwulff/voicetext/internal/settings"
)

const (
	clockInterval = time.Second
	levelInterval = 33 * time.Millisecond
)

// loadSettingsCmd reads preferences and, when autosave is on, the last
// autosaved transcript.
func loadSettingsCmd(ctx context.Context, store *settings.Store) tea.Cmd {
	return func() tea.Msg {
		st, _ := store.Load(ctx)
		msg := SettingsLoadedMsg{Settings: st}
		if st.AutoSave {
			if text, ok, _ := store.LoadAutosave(ctx); ok {
				msg.Autosave = text
			}
		}
		return msg
	}
}

// spawnCmd creates and starts one engine instance tagged with gen.
func spawnCmd(ctx context.Context, f engine.Factory, gen uint64, opts engine.Options, now func() time.Time) tea.Cmd {
	return func() tea.Msg {
		e, err := f.New(opts)
		if err == nil {
			err = e.Start(ctx)
		}
		if err != nil {
			code := engine.CodeOf(err)
			if code == "" && errors.Is(err, engine.ErrUnsupported) {
				code = engine.CodeServiceNotAllowed
			}
			if code == "" {
				code = err.Error()
			}
			return EngineSpawnErrorMsg{Generation: gen, Code: code, Err: err, At: now()}
		}
		return EngineSpawnedMsg{Generation: gen, Engine: e}
	}
}

// readEngineCmd reads the next event of an engine instance. It returns nil
// once the channel is closed.
func readEngineCmd(gen uint64, events <-chan engine.Event, now func() time.Time) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return EngineEventMsg{Generation: gen, Event: ev, At: now(), events: events}
	}
}

// stopEngineCmd stops an engine off the UI goroutine; Stop may talk to a
// remote service.
func stopEngineCmd(e engine.Engine) tea.Cmd {
	return func() tea.Msg {
		e.Stop()
		return nil
	}
}

func stopLevelsCmd(l Levels) tea.Cmd {
	return func() tea.Msg {
		l.Stop()
		return LevelsStoppedMsg{}
	}
}

func clockTickCmd(seq int) tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return ClockTickMsg{Seq: seq, At: t}
	})
}

func levelTickCmd(seq int) tea.Cmd {
	return tea.Tick(levelInterval, func(time.Time) tea.Msg {
		return LevelTickMsg{Seq: seq}
	})
}

// copyCmd puts text on the clipboard and reports the outcome.
func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		switch err := export.Copy(text); {
		case err == nil:
			return NoticeMsg{Text: "Copied to clipboard!", Tone: session.ToneSuccess}
		case errors.Is(err, export.ErrNothingToExport):
			return NoticeMsg{Text: "No text to copy.", Tone: session.ToneError}
		case errors.Is(err, export.ErrExportUnavailable):
			return NoticeMsg{Text: "Clipboard not available.", Tone: session.ToneError, Err: err}
		default:
			return NoticeMsg{Text: "Copy failed.", Tone: session.ToneError, Err: err}
		}
	}
}

// saveTextCmd writes text to a new file in dir and reports the outcome.
func saveTextCmd(dir, text string, now time.Time) tea.Cmd {
	return func() tea.Msg {
		path, err := export.SaveText(dir, text, now)
		switch {
		case err == nil:
			return NoticeMsg{Text: "Saved as " + path, Tone: session.ToneSuccess}
		case errors.Is(err, export.ErrNothingToExport):
			return NoticeMsg{Text: "No text to save.", Tone: session.ToneError}
		default:
			return NoticeMsg{Text: "Save failed.", Tone: session.ToneError, Err: err}
		}
	}
}
