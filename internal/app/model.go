// Package app is the bubbletea front-end of VoiceText. Update is the single
// event pump: key presses, engine events and ticks become session events, and
// the effects returned by the session reducer become tea.Cmds.
package app

import (
	"context"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwulff/voicetext/internal/config"
	"github.com/jwulff/voicetext/internal/db"
	"github.com/jwulff/voicetext/internal/engine"
	"github.com/jwulff/voicetext/internal/log"
	"github.com/jwulff/voicetext/internal/session"
	"github.com/jwulff/voicetext/internal/settings"
	"github.com/jwulff/voicetext/internal/ui"
)

// Model is the root bubbletea model for the VoiceText TUI.
type Model struct {
	deps    Deps
	caps    Capabilities
	journal *journal

	// Session state, mutated only through session.Reduce.
	session session.Session
	prefs   settings.Settings

	// Engine instances that have not reported KindEnded yet, by generation.
	live map[uint64]engine.Engine

	// Tick loops. A loop only continues while its sequence is current.
	clockSeq int
	levelSeq int
	now      time.Time
	levels   []uint8

	// Notice overrides the session status until the session status changes.
	notice     string
	noticeTone session.Tone

	theme  ui.Theme
	width  int
	height int
}

// New creates the model. Capabilities are detected here, once; when no
// engine is usable the session starts in the Error state with start disabled.
func New(deps Deps) Model {
	deps.defaults()
	prefs := settings.Defaults()
	m := Model{
		deps:    deps,
		caps:    Detect(deps),
		journal: newJournal(deps.Context, deps.Log),
		session: session.New(prefs.Language, prefs.AutoPunctuation, deps.ExcludePaused),
		prefs:   prefs,
		live:    make(map[uint64]engine.Engine),
		now:     deps.Now(),
		theme:   ui.NewTheme(prefs.DarkMode),
	}
	if !m.caps.Recognition {
		m.session, _ = session.Reduce(m.session, session.Start{At: m.now})
	}
	return m
}

// Capabilities returns what was detected at startup.
func (m Model) Capabilities() Capabilities {
	return m.caps
}

// Session returns the current session state.
func (m Model) Session() session.Session {
	return m.session
}

// Init loads stored settings.
func (m Model) Init() tea.Cmd {
	if m.deps.Settings == nil {
		return nil
	}
	return loadSettingsCmd(m.deps.Context, m.deps.Settings)
}

// Close stops every running engine and the level sampler and waits for
// queued persistence to finish. Call it with the final model after the
// program exits.
func (m Model) Close() {
	if m.session.State == session.Listening || m.session.State == session.Paused {
		m, _ = m.dispatch(session.Stop{At: m.deps.Now()})
	}
	for gen, e := range m.live {
		e.Stop()
		delete(m.live, gen)
	}
	if m.deps.Levels != nil {
		m.deps.Levels.Stop()
	}
	m.journal.close()
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.BlurMsg:
		return m.dispatch(session.Visibility{Hidden: true, At: m.deps.Now()})

	case tea.FocusMsg:
		return m.dispatch(session.Visibility{Hidden: false, At: m.deps.Now()})

	case SettingsLoadedMsg:
		return m.applySettings(msg)

	case EngineSpawnedMsg:
		m.live[msg.Generation] = msg.Engine
		read := readEngineCmd(msg.Generation, msg.Engine.Events(), m.deps.Now)
		if msg.Generation != m.session.Generation || m.session.State != session.Listening {
			// Paused, stopped or superseded while the engine was starting.
			return m, tea.Batch(stopEngineCmd(msg.Engine), read)
		}
		return m, read

	case EngineSpawnErrorMsg:
		m.deps.Log.Warn().Err(msg.Err).Uint64("generation", msg.Generation).Msg("engine start failed")
		return m.dispatch(session.EngineError{Generation: msg.Generation, Code: msg.Code, At: msg.At})

	case EngineEventMsg:
		return m.handleEngineEvent(msg)

	case ClockTickMsg:
		if msg.Seq != m.clockSeq {
			return m, nil
		}
		m.now = msg.At
		if m.session.State != session.Listening {
			return m, nil
		}
		return m, clockTickCmd(m.clockSeq)

	case LevelTickMsg:
		if msg.Seq != m.levelSeq || m.deps.Levels == nil {
			return m, nil
		}
		m.levels = m.deps.Levels.Frame()
		return m, levelTickCmd(m.levelSeq)

	case LevelsStoppedMsg:
		m.levels = nil
		return m, nil

	case NoticeMsg:
		if msg.Err != nil {
			m.deps.Log.Warn().Err(msg.Err).Msg(msg.Text)
		}
		m.setNotice(msg.Text, msg.Tone)
		return m, nil
	}

	return m, nil
}

func (m Model) handleEngineEvent(msg EngineEventMsg) (tea.Model, tea.Cmd) {
	gen := msg.Generation
	var ev session.Event
	switch msg.Event.Kind {
	case engine.KindStarted:
		ev = session.EngineStarted{Generation: gen}
	case engine.KindResults:
		ev = session.Results{Generation: gen, Index: msg.Event.Index, Results: msg.Event.Results, At: msg.At}
	case engine.KindError:
		m.deps.Log.Warn().
			Uint64("generation", gen).
			Str("code", msg.Event.Code).
			Str("message", msg.Event.Message).
			Msg("engine error")
		ev = session.EngineError{Generation: gen, Code: msg.Event.Code, At: msg.At}
	case engine.KindEnded:
		delete(m.live, gen)
		ev = session.EngineEnded{Generation: gen, At: msg.At}
	}

	m, cmd := m.dispatch(ev)
	if msg.Event.Kind == engine.KindEnded {
		return m, cmd
	}
	return m, tea.Batch(cmd, readEngineCmd(gen, msg.events, m.deps.Now))
}

// dispatch runs ev through the session reducer and turns the effects into
// commands.
func (m Model) dispatch(ev session.Event) (Model, tea.Cmd) {
	next, effects := session.Reduce(m.session, ev)
	if next.Status != m.session.Status || next.Tone != m.session.Tone {
		m.notice = ""
	}
	m.session = next
	return m, m.apply(effects)
}

func (m *Model) apply(effects []session.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, eff := range effects {
		switch eff := eff.(type) {
		case session.SpawnEngine:
			if m.deps.Engine != nil {
				cmds = append(cmds, spawnCmd(m.deps.Context, m.deps.Engine, eff.Generation, eff.Options, m.deps.Now))
			}

		case session.StopEngine:
			if e, ok := m.live[eff.Generation]; ok {
				cmds = append(cmds, stopEngineCmd(e))
			}

		case session.StartClock:
			m.clockSeq++
			m.now = m.deps.Now()
			cmds = append(cmds, clockTickCmd(m.clockSeq))

		case session.StartLevels:
			if m.deps.Levels != nil {
				m.deps.Levels.Start()
				m.levelSeq++
				cmds = append(cmds, levelTickCmd(m.levelSeq))
			}

		case session.StopLevels:
			if m.deps.Levels != nil {
				m.levelSeq++
				cmds = append(cmds, stopLevelsCmd(m.deps.Levels))
			}

		case session.SessionStarted:
			m.recordStart(eff)

		case session.SessionEnded:
			m.recordEnd(eff)

		case session.SegmentFinalized:
			m.recordSegment(eff)

		case session.AutoSave:
			if m.prefs.AutoSave {
				m.autosave(eff.Text)
			}
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) engineName() string {
	if m.deps.Engine == nil {
		return config.DriverNone
	}
	return m.deps.Engine.Name()
}

func (m *Model) recordStart(eff session.SessionStarted) {
	name := m.engineName()
	log.SessionStart(eff.ID, name, eff.Language)
	if m.deps.Recorder != nil {
		m.deps.Recorder.SessionStarted(m.deps.Context, eff.ID, eff.Language, name, eff.At)
	}
	if h := m.deps.History; h != nil {
		m.journal.submit("begin session", func(ctx context.Context) error {
			return h.BeginSession(ctx, eff.ID, eff.Language, name, eff.At)
		})
	}
}

func (m *Model) recordEnd(eff session.SessionEnded) {
	var errKind string
	if eff.Err != session.ErrNone {
		errKind = eff.Err.String()
	}
	log.SessionEnd(eff.ID, eff.State.String(), eff.Words, eff.WPM, eff.AvgConfidence)
	if m.deps.Recorder != nil {
		m.deps.Recorder.SessionEnded(m.deps.Context, eff.ID, eff.State.String(), errKind, eff.Words, eff.WPM, eff.At)
	}
	if h := m.deps.History; h != nil {
		end := db.SessionEnd{
			At:        eff.At,
			Status:    historyStatus(eff.State),
			ErrorKind: errKind,
			Words:     eff.Words,
			WPM:       eff.WPM,
		}
		if avg, ok := m.session.Stats.Average(); ok {
			end.AvgConfidence = &avg
		}
		m.journal.submit("end session", func(ctx context.Context) error {
			return h.EndSession(ctx, eff.ID, end)
		})
	}
}

func historyStatus(s session.State) string {
	switch s {
	case session.Stopped:
		return db.StatusStopped
	case session.Error:
		return db.StatusError
	default:
		return db.StatusEnded
	}
}

func (m *Model) recordSegment(eff session.SegmentFinalized) {
	log.TranscriptText(eff.SessionID, eff.Text)
	if m.deps.Recorder != nil {
		m.deps.Recorder.SegmentFinalized(m.deps.Context, eff.SessionID, eff.Index, eff.Confidence, eff.At)
	}
	if h := m.deps.History; h != nil {
		m.journal.submit("append segment", func(ctx context.Context) error {
			_, err := h.AppendSegment(ctx, eff.SessionID, eff.Text, eff.Confidence, eff.At)
			return err
		})
	}
}

func (m *Model) autosave(text string) {
	if s := m.deps.Settings; s != nil {
		m.journal.submit("autosave", func(ctx context.Context) error {
			return s.SaveAutosave(ctx, text)
		})
	}
}

func (m *Model) saveSettings() {
	if s := m.deps.Settings; s != nil {
		prefs := m.prefs
		m.journal.submit("save settings", func(ctx context.Context) error {
			return s.Save(ctx, prefs)
		})
	}
}

func (m *Model) setNotice(text string, tone session.Tone) {
	m.notice = text
	m.noticeTone = tone
}

// applySettings adopts stored preferences. The autosaved transcript is only
// restored into an empty buffer.
func (m Model) applySettings(msg SettingsLoadedMsg) (tea.Model, tea.Cmd) {
	m.prefs = msg.Settings
	m.session.Language = msg.Settings.Language
	m.session.Normalize = msg.Settings.AutoPunctuation
	m.theme = ui.NewTheme(msg.Settings.DarkMode)
	if m.deps.Levels != nil {
		m.deps.Levels.SetNoiseGate(msg.Settings.NoiseReduction)
	}
	if msg.Autosave != "" && m.session.Visible() == "" {
		return m.dispatch(session.Restore{Text: msg.Autosave})
	}
	return m, nil
}

func (m Model) nextLanguage() string {
	langs := m.deps.Languages
	i := slices.Index(langs, m.session.Language)
	return langs[(i+1)%len(langs)]
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := m.deps.Now()
	state := m.session.State

	switch msg.String() {
	case KeyCtrlC, KeyEsc:
		return m, tea.Quit

	case KeyStartStop:
		if state == session.Listening || state == session.Paused {
			return m.dispatch(session.Stop{At: now})
		}
		return m.dispatch(session.Start{
			At:        now,
			ID:        m.deps.NewID(),
			Seed:      m.session.Visible(),
			Supported: m.caps.Recognition,
		})

	case KeyPauseResume:
		switch state {
		case session.Listening:
			return m.dispatch(session.Pause{At: now})
		case session.Paused:
			return m.dispatch(session.Resume{At: now})
		}
		return m, nil

	case KeyClear:
		return m.dispatch(session.Clear{})

	case KeyTidy:
		return m.dispatch(session.Tidy{})

	case KeyCopy:
		if !m.caps.Clipboard {
			m.setNotice("Clipboard not available.", session.ToneError)
			return m, nil
		}
		return m, copyCmd(m.session.Visible())

	case KeySave:
		return m, saveTextCmd(m.deps.ExportDir, m.session.Visible(), now)

	case KeyLanguage:
		tag := m.nextLanguage()
		m.prefs.Language = tag
		m.saveSettings()
		return m.dispatch(session.SetLanguage{Tag: tag, Name: config.LanguageName(tag)})

	case KeyNormalize:
		m.prefs.AutoPunctuation = !m.prefs.AutoPunctuation
		m.saveSettings()
		return m.dispatch(session.SetNormalize{Enabled: m.prefs.AutoPunctuation})

	case KeyNoise:
		m.prefs.NoiseReduction = !m.prefs.NoiseReduction
		if m.deps.Levels != nil {
			m.deps.Levels.SetNoiseGate(m.prefs.NoiseReduction)
		}
		m.saveSettings()
		m.setNotice("Noise reduction: "+onOff(m.prefs.NoiseReduction), session.ToneInfo)
		return m, nil

	case KeyAutoSave:
		m.prefs.AutoSave = !m.prefs.AutoSave
		m.saveSettings()
		if m.prefs.AutoSave {
			m.autosave(m.session.Visible())
		}
		m.setNotice("Auto save: "+onOff(m.prefs.AutoSave), session.ToneInfo)
		return m, nil

	case KeyDarkMode:
		m.prefs.DarkMode = !m.prefs.DarkMode
		m.theme = ui.NewTheme(m.prefs.DarkMode)
		m.saveSettings()
		if m.prefs.DarkMode {
			m.setNotice("Dark mode enabled", session.ToneInfo)
		} else {
			m.setNotice("Light mode enabled", session.ToneInfo)
		}
		return m, nil

	case KeyEnter:
		return m.edit(m.session.Visible() + "\n")

	case KeyBackspace, KeyBackspaceAlt:
		text := []rune(m.session.Visible())
		if len(text) == 0 {
			return m, nil
		}
		return m.edit(string(text[:len(text)-1]))
	}

	switch msg.Type {
	case tea.KeyRunes:
		if msg.Paste {
			return m.edit(m.session.Visible() + strings.ReplaceAll(string(msg.Runes), "\r", ""))
		}
		return m.edit(m.session.Visible() + string(msg.Runes))
	case tea.KeySpace:
		return m.edit(m.session.Visible() + " ")
	case tea.KeyTab:
		return m.edit(m.session.Visible() + "\t")
	}
	return m, nil
}

// edit replaces the buffer with text typed by the user. Typing is ignored
// while listening.
func (m Model) edit(text string) (tea.Model, tea.Cmd) {
	if m.session.State == session.Listening {
		return m, nil
	}
	next, cmd := m.dispatch(session.Edit{Text: text})
	if next.prefs.AutoSave {
		next.autosave(text)
	}
	return next, cmd
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
