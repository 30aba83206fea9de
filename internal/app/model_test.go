package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwulff/voicetext/internal/db"
	"github.com/jwulff/voicetext/internal/engine"
	"github.com/jwulff/voicetext/internal/session"
	"github.com/jwulff/voicetext/internal/settings"
	"github.com/rs/zerolog"
)

type fakeEngine struct {
	events chan engine.Event
	mu     sync.Mutex
	stops  int
}

func (e *fakeEngine) Start(context.Context) error { return nil }
func (e *fakeEngine) Events() <-chan engine.Event { return e.events }

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
}

func (e *fakeEngine) stopCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}

type fakeFactory struct {
	supported bool
	newErr    error
	created   []*fakeEngine
}

func (f *fakeFactory) Name() string    { return "fake" }
func (f *fakeFactory) Supported() bool { return f.supported }

func (f *fakeFactory) New(engine.Options) (engine.Engine, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	e := &fakeEngine{events: make(chan engine.Event, 8)}
	f.created = append(f.created, e)
	return e, nil
}

type fakeHistory struct {
	mu       sync.Mutex
	begun    []string
	ended    map[string]db.SessionEnd
	segments []string
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{ended: make(map[string]db.SessionEnd)}
}

func (h *fakeHistory) BeginSession(_ context.Context, id, _, _ string, _ time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.begun = append(h.begun, id)
	return nil
}

func (h *fakeHistory) EndSession(_ context.Context, id string, end db.SessionEnd) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ended[id] = end
	return nil
}

func (h *fakeHistory) AppendSegment(_ context.Context, sessionID, text string, confidence float64, at time.Time) (db.Segment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.segments = append(h.segments, text)
	return db.Segment{SessionID: sessionID, Text: text, Confidence: confidence, CreatedAt: at}, nil
}

var testStart = time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

type testEnv struct {
	factory *fakeFactory
	history *fakeHistory
	kv      *settings.Memory
	clock   time.Time
}

func newTestModel(t *testing.T, supported bool) (Model, *testEnv) {
	t.Helper()
	env := &testEnv{
		factory: &fakeFactory{supported: supported},
		history: newFakeHistory(),
		kv:      settings.NewMemory(),
		clock:   testStart,
	}
	ids := 0
	m := New(Deps{
		Engine:    env.factory,
		Settings:  settings.New(env.kv, zerolog.Nop()),
		History:   env.history,
		Log:       zerolog.Nop(),
		ExportDir: t.TempDir(),
		Languages: []string{"hi-IN", "en-US", "fr-FR"},
		Now:       func() time.Time { return env.clock },
		NewID: func() string {
			ids++
			return "sess-" + string(rune('0'+ids))
		},
		Clipboard: func() bool { return true },
	})
	m.width = 80
	m.height = 24
	return m, env
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case KeyStartStop:
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case KeyPauseResume:
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	case KeyClear:
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	case KeyLanguage:
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case KeyNormalize:
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case KeyAutoSave:
		return tea.KeyMsg{Type: tea.KeyCtrlA}
	case KeyDarkMode:
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case KeyCopy:
		return tea.KeyMsg{Type: tea.KeyCtrlY}
	case KeyEnter:
		return tea.KeyMsg{Type: tea.KeyEnter}
	case KeyBackspace:
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// startListening presses start and delivers the spawned engine.
func startListening(t *testing.T, m Model, env *testEnv) (Model, *fakeEngine) {
	t.Helper()
	m, _ = applyUpdate(m, key(KeyStartStop))
	if m.session.State != session.Listening {
		t.Fatalf("state after start = %v, want listening", m.session.State)
	}
	e := &fakeEngine{events: make(chan engine.Event, 8)}
	m, _ = applyUpdate(m, EngineSpawnedMsg{Generation: m.session.Generation, Engine: e})
	return m, e
}

func engineEvent(m Model, e *fakeEngine, ev engine.Event, at time.Time) EngineEventMsg {
	return EngineEventMsg{Generation: m.session.Generation, Event: ev, At: at, events: e.events}
}

func finalResult(index int, text string, conf float64) engine.Event {
	return engine.Event{
		Kind:    engine.KindResults,
		Index:   index,
		Results: []engine.Result{{Text: text, Final: true, Confidence: conf, HasConfidence: true}},
	}
}

func TestNewWithoutEngine(t *testing.T) {
	m := New(Deps{Log: zerolog.Nop(), Clipboard: func() bool { return false }})
	m.width = 80
	m.height = 24

	if m.Capabilities().Recognition {
		t.Error("recognition should be unavailable without an engine")
	}
	if m.session.State != session.Error || !m.session.StartDisabled {
		t.Errorf("state = %v, startDisabled = %v; want error, true", m.session.State, m.session.StartDisabled)
	}

	m, cmd := applyUpdate(m, key(KeyStartStop))
	if cmd != nil {
		t.Error("start should do nothing when disabled")
	}
	if !strings.Contains(m.View(), "not supported") {
		t.Errorf("view should explain that recognition is unsupported:\n%s", m.View())
	}
	m.Close()
}

func TestDetect(t *testing.T) {
	caps := Detect(Deps{
		Engine:    &fakeFactory{supported: true},
		Clipboard: func() bool { return true },
	})
	want := Capabilities{Recognition: true, Clipboard: true}
	if caps != want {
		t.Errorf("Detect = %+v, want %+v", caps, want)
	}
}

func TestDictationFlow(t *testing.T) {
	m, env := newTestModel(t, true)
	m.session.Normalize = true

	m, e := startListening(t, m, env)
	m, _ = applyUpdate(m, engineEvent(m, e, engine.Event{Kind: engine.KindStarted}, testStart))
	if m.session.Status != "Listening... Speak now!" {
		t.Errorf("status = %q", m.session.Status)
	}

	m, _ = applyUpdate(m, engineEvent(m, e, finalResult(0, "hello comma world", 0.9), testStart.Add(time.Second)))
	if m.session.Final != "hello, world " {
		t.Errorf("final = %q, want %q", m.session.Final, "hello, world ")
	}
	if m.session.Stats.Words != 2 {
		t.Errorf("words = %d, want 2", m.session.Stats.Words)
	}

	env.clock = testStart.Add(30 * time.Second)
	m, cmd := applyUpdate(m, key(KeyStartStop))
	if m.session.State != session.Stopped {
		t.Fatalf("state = %v, want stopped", m.session.State)
	}
	if cmd == nil {
		t.Error("stop should return commands")
	}
	m.Close()

	env.history.mu.Lock()
	defer env.history.mu.Unlock()
	if len(env.history.begun) != 1 || env.history.begun[0] != "sess-1" {
		t.Errorf("begun = %v, want [sess-1]", env.history.begun)
	}
	if len(env.history.segments) != 1 || env.history.segments[0] != "hello, world" {
		t.Errorf("segments = %q, want [hello, world]", env.history.segments)
	}
	end, ok := env.history.ended["sess-1"]
	if !ok {
		t.Fatal("session end not recorded")
	}
	if end.Status != db.StatusStopped || end.WPM != 4 {
		t.Errorf("end = %+v, want stopped with 4 wpm", end)
	}
	if end.AvgConfidence == nil || *end.AvgConfidence != 0.9 {
		t.Errorf("avg confidence = %v, want 0.9", end.AvgConfidence)
	}
}

func TestEngineErrorEndsSession(t *testing.T) {
	m, env := newTestModel(t, true)
	m, e := startListening(t, m, env)

	m, _ = applyUpdate(m, engineEvent(m, e, engine.Event{Kind: engine.KindError, Code: engine.CodeNotAllowed}, testStart))
	if m.session.State != session.Error {
		t.Fatalf("state = %v, want error", m.session.State)
	}
	c := m.session.Controls()
	if !c.Start || c.Stop || c.Pause || c.Resume {
		t.Errorf("controls = %+v, want only start", c)
	}
	m.Close()

	env.history.mu.Lock()
	defer env.history.mu.Unlock()
	if end := env.history.ended["sess-1"]; end.Status != db.StatusError || end.ErrorKind != "permission-denied" {
		t.Errorf("end = %+v, want error/permission-denied", end)
	}
}

func TestEngineEndedRemovesLiveEngine(t *testing.T) {
	m, env := newTestModel(t, true)
	m, e := startListening(t, m, env)
	gen := m.session.Generation

	m, _ = applyUpdate(m, engineEvent(m, e, engine.Event{Kind: engine.KindEnded}, testStart))
	if m.session.State != session.Idle {
		t.Errorf("state = %v, want idle", m.session.State)
	}
	if _, ok := m.live[gen]; ok {
		t.Error("ended engine should be forgotten")
	}
	m.Close()
}

func TestSpawnErrorBecomesEngineError(t *testing.T) {
	m, _ := newTestModel(t, true)
	m, _ = applyUpdate(m, key(KeyStartStop))

	m, _ = applyUpdate(m, EngineSpawnErrorMsg{
		Generation: m.session.Generation,
		Code:       engine.CodeNetwork,
		Err:        errors.New("dial failed"),
		At:         testStart,
	})
	if m.session.State != session.Error || m.session.Err != session.NetworkFailure {
		t.Errorf("state = %v/%v, want error/network", m.session.State, m.session.Err)
	}
	m.Close()
}

func TestSpawnCmd(t *testing.T) {
	f := &fakeFactory{supported: true}
	msg := spawnCmd(context.Background(), f, 3, engine.Options{}, time.Now)()
	spawned, ok := msg.(EngineSpawnedMsg)
	if !ok {
		t.Fatalf("msg = %T, want EngineSpawnedMsg", msg)
	}
	if spawned.Generation != 3 || spawned.Engine == nil {
		t.Errorf("spawned = %+v", spawned)
	}

	f.newErr = &engine.Error{Code: engine.CodeServiceNotAllowed, Err: errors.New("refused")}
	msg = spawnCmd(context.Background(), f, 4, engine.Options{}, time.Now)()
	failed, ok := msg.(EngineSpawnErrorMsg)
	if !ok {
		t.Fatalf("msg = %T, want EngineSpawnErrorMsg", msg)
	}
	if failed.Code != engine.CodeServiceNotAllowed {
		t.Errorf("code = %q, want %q", failed.Code, engine.CodeServiceNotAllowed)
	}
}

func TestReadEngineCmdClosed(t *testing.T) {
	ch := make(chan engine.Event)
	close(ch)
	if msg := readEngineCmd(1, ch, time.Now)(); msg != nil {
		t.Errorf("msg = %v, want nil for a closed channel", msg)
	}
}

func TestStaleSpawnIsStopped(t *testing.T) {
	m, _ := newTestModel(t, true)
	m, _ = applyUpdate(m, key(KeyStartStop))
	gen := m.session.Generation
	m, _ = applyUpdate(m, key(KeyPauseResume))
	if m.session.State != session.Paused {
		t.Fatalf("state = %v, want paused", m.session.State)
	}

	e := &fakeEngine{events: make(chan engine.Event, 1)}
	m, _ = applyUpdate(m, EngineSpawnedMsg{Generation: gen, Engine: e})
	if _, ok := m.live[gen]; !ok {
		t.Error("stale engine should be tracked until it ends")
	}

	m.Close()
	if e.stopCount() == 0 {
		t.Error("stale engine was never stopped")
	}
}

func TestPauseResumeAppends(t *testing.T) {
	m, env := newTestModel(t, true)
	m, e := startListening(t, m, env)
	m, _ = applyUpdate(m, engineEvent(m, e, finalResult(0, "before", 0.8), testStart))

	m, _ = applyUpdate(m, key(KeyPauseResume))
	m, _ = applyUpdate(m, key(KeyPauseResume))
	if m.session.State != session.Listening {
		t.Fatalf("state = %v, want listening", m.session.State)
	}
	e2 := &fakeEngine{events: make(chan engine.Event, 8)}
	m, _ = applyUpdate(m, EngineSpawnedMsg{Generation: m.session.Generation, Engine: e2})
	m, _ = applyUpdate(m, engineEvent(m, e2, finalResult(0, "after", 0.8), testStart))

	if m.session.Final != "before after " {
		t.Errorf("final = %q, want %q", m.session.Final, "before after ")
	}
	m.Close()
}

func TestFocusBlurAutoPause(t *testing.T) {
	m, env := newTestModel(t, true)
	m, _ = startListening(t, m, env)

	m, _ = applyUpdate(m, tea.BlurMsg{})
	if m.session.State != session.Paused || !m.session.AutoPaused {
		t.Fatalf("after blur state = %v autoPaused = %v", m.session.State, m.session.AutoPaused)
	}
	m, _ = applyUpdate(m, tea.FocusMsg{})
	if m.session.State != session.Listening {
		t.Errorf("after focus state = %v, want listening", m.session.State)
	}
	m.Close()
}

func TestTyping(t *testing.T) {
	m, _ := newTestModel(t, true)

	m, _ = applyUpdate(m, key("hi"))
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeySpace})
	m, _ = applyUpdate(m, key("there"))
	m, _ = applyUpdate(m, key(KeyBackspace))
	m, _ = applyUpdate(m, key(KeyEnter))
	if m.session.Final != "hi ther\n" {
		t.Errorf("final = %q, want %q", m.session.Final, "hi ther\n")
	}
	m.Close()
}

func TestTypingIgnoredWhileListening(t *testing.T) {
	m, env := newTestModel(t, true)
	m, _ = applyUpdate(m, key("seed "))
	m, _ = startListening(t, m, env)

	m, _ = applyUpdate(m, key("x"))
	if m.session.Final != "seed " {
		t.Errorf("final = %q, want %q", m.session.Final, "seed ")
	}
	m.Close()
}

func TestLanguageCycleSavesSettings(t *testing.T) {
	m, env := newTestModel(t, true)

	m, _ = applyUpdate(m, key(KeyLanguage))
	if m.session.Language != "en-US" {
		t.Errorf("language = %q, want en-US", m.session.Language)
	}
	if !strings.Contains(m.session.Status, "Language changed to") {
		t.Errorf("status = %q", m.session.Status)
	}
	m, _ = applyUpdate(m, key(KeyNormalize))
	if !m.session.Normalize {
		t.Error("normalize should be on after toggle")
	}
	m.Close()

	got, err := settings.New(env.kv, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Language != "en-US" || !got.AutoPunctuation {
		t.Errorf("stored settings = %+v", got)
	}
}

func TestSettingsLoadedRestoresAutosave(t *testing.T) {
	m, _ := newTestModel(t, true)

	m, _ = applyUpdate(m, SettingsLoadedMsg{
		Settings: settings.Settings{Language: "fr-FR", AutoSave: true, DarkMode: true},
		Autosave: "saved text ",
	})
	if m.session.Final != "saved text " {
		t.Errorf("final = %q, want restored text", m.session.Final)
	}
	if m.session.Language != "fr-FR" || !m.theme.Dark {
		t.Errorf("language = %q dark = %v", m.session.Language, m.theme.Dark)
	}
	if m.session.Status != "Auto-saved content loaded." {
		t.Errorf("status = %q", m.session.Status)
	}
	m.Close()
}

func TestAutoSaveOnFinal(t *testing.T) {
	m, env := newTestModel(t, true)
	m, _ = applyUpdate(m, key(KeyAutoSave))
	m, e := startListening(t, m, env)
	m, _ = applyUpdate(m, engineEvent(m, e, finalResult(0, "keep me", 0.8), testStart))
	m.Close()

	text, ok, err := settings.New(env.kv, zerolog.Nop()).LoadAutosave(context.Background())
	if err != nil || !ok {
		t.Fatalf("LoadAutosave = %v, %v", ok, err)
	}
	if text != "keep me " {
		t.Errorf("autosave = %q, want %q", text, "keep me ")
	}
}

func TestCopyUnavailable(t *testing.T) {
	m := New(Deps{
		Engine:    &fakeFactory{supported: true},
		Log:       zerolog.Nop(),
		Clipboard: func() bool { return false },
	})
	m, cmd := applyUpdate(m, key(KeyCopy))
	if cmd != nil {
		t.Error("copy should not run without a clipboard")
	}
	if m.notice != "Clipboard not available." {
		t.Errorf("notice = %q", m.notice)
	}
	m.Close()
}

func TestNoticeClearedByStatusChange(t *testing.T) {
	m, _ := newTestModel(t, true)
	m, _ = applyUpdate(m, NoticeMsg{Text: "Copied to clipboard!", Tone: session.ToneSuccess})
	if m.notice == "" {
		t.Fatal("notice should be set")
	}
	m, _ = applyUpdate(m, key(KeyClear))
	if m.notice != "" {
		t.Errorf("notice = %q, want cleared", m.notice)
	}
	m.Close()
}

func TestSaveTextCmd(t *testing.T) {
	dir := t.TempDir()

	msg := saveTextCmd(dir, "some text", testStart)().(NoticeMsg)
	if msg.Tone != session.ToneSuccess {
		t.Fatalf("notice = %+v, want success", msg)
	}
	if _, err := os.Stat(filepath.Join(dir, "VoiceText_2024-03-09_14-00.txt")); err != nil {
		t.Errorf("saved file missing: %v", err)
	}

	msg = saveTextCmd(dir, "", testStart)().(NoticeMsg)
	if msg.Text != "No text to save." {
		t.Errorf("notice = %q, want %q", msg.Text, "No text to save.")
	}
}

func TestClockTickIgnoresStaleSequence(t *testing.T) {
	m, env := newTestModel(t, true)
	m, _ = startListening(t, m, env)

	later := testStart.Add(5 * time.Second)
	m, cmd := applyUpdate(m, ClockTickMsg{Seq: m.clockSeq - 1, At: later})
	if cmd != nil || m.now.Equal(later) {
		t.Error("stale clock tick should be ignored")
	}
	m, cmd = applyUpdate(m, ClockTickMsg{Seq: m.clockSeq, At: later})
	if cmd == nil || !m.now.Equal(later) {
		t.Error("current clock tick should advance and reschedule")
	}
	m.Close()
}

func TestViewRendersWithSize(t *testing.T) {
	m, _ := newTestModel(t, true)
	m, _ = applyUpdate(m, key("dictated words"))

	view := m.View()
	for _, want := range []string{"VOICETEXT", "Hindi", "dictated words", "Words"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	m.Close()
}

func TestViewWithoutSize(t *testing.T) {
	m, _ := newTestModel(t, true)
	m.width = 0
	if view := m.View(); view != "Initializing..." {
		t.Errorf("view without size = %q, want 'Initializing...'", view)
	}
	m.Close()
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three\n\nfour", 7)
	want := []string{"one two", "three", "", "four"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("wrapText = %q, want %q", got, want)
	}
}
