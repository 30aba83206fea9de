package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const demoScript = `
end: true
steps:
  - after: 1ms
    text: hello
  - after: 1ms
    text: hello comma world
    final: true
    confidence: 0.9
  - after: 1ms
    text: second
    final: true
`

func TestParseScript(t *testing.T) {
	s, err := ParseScript([]byte(demoScript))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(s.Steps) != 3 || !s.End {
		t.Fatalf("script = %+v", s)
	}
	if s.Steps[0].After != time.Millisecond {
		t.Errorf("after = %v, want 1ms", s.Steps[0].After)
	}
	if s.Steps[1].Confidence == nil || *s.Steps[1].Confidence != 0.9 {
		t.Errorf("confidence = %v", s.Steps[1].Confidence)
	}
}

func TestParseScriptErrors(t *testing.T) {
	tests := map[string]string{
		"empty":      `steps: []`,
		"bad yaml":   `steps: [`,
		"confidence": "steps:\n  - text: x\n    confidence: 1.5\n",
		"negative":   "steps:\n  - after: -1s\n    text: x\n",
	}
	for name, data := range tests {
		if _, err := ParseScript([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	if err := os.WriteFile(path, []byte(demoScript), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScript(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := LoadScript(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func newScriptEngine(t *testing.T, data string, opts Options) Engine {
	t.Helper()
	s, err := ParseScript([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f := NewScriptFactory(s)
	if !f.Supported() {
		t.Fatal("factory should be supported")
	}
	e, err := f.New(opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return e
}

func TestScriptEngineReplays(t *testing.T) {
	e := newScriptEngine(t, demoScript, Options{Interim: true, Continuous: true})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Start(context.Background()); err == nil {
		t.Error("second start should fail")
	}

	events := collect(t, e.Events(), 2*time.Second)
	if events[0].Kind != KindStarted {
		t.Errorf("first event = %v, want started", events[0].Kind)
	}
	if last := events[len(events)-1]; last.Kind != KindEnded {
		t.Errorf("last event = %v, want ended", last.Kind)
	}

	if got := strings.Join(finals(events), "|"); got != "hello comma world|second" {
		t.Errorf("finals = %q", got)
	}
	// The interim and the first final share index 0; the second final is 1.
	var indices []int
	for _, ev := range events {
		if ev.Kind == KindResults {
			indices = append(indices, ev.Index)
		}
	}
	if len(indices) != 3 || indices[0] != 0 || indices[1] != 0 || indices[2] != 1 {
		t.Errorf("indices = %v, want [0 0 1]", indices)
	}
	if r := events[2].Results[0]; !r.HasConfidence || r.Confidence != 0.9 {
		t.Errorf("first final = %+v", r)
	}
	if r := events[3].Results[0]; r.HasConfidence {
		t.Error("second final should carry no confidence")
	}
}

func TestScriptEngineSkipsInterimWhenDisabled(t *testing.T) {
	e := newScriptEngine(t, demoScript, Options{Interim: false, Continuous: true})
	e.Start(context.Background())
	for _, ev := range collect(t, e.Events(), 2*time.Second) {
		for _, r := range ev.Results {
			if !r.Final {
				t.Errorf("unexpected interim %q", r.Text)
			}
		}
	}
}

func TestScriptEngineError(t *testing.T) {
	data := "steps:\n  - after: 1ms\n    error: not-allowed\n  - text: never\n    final: true\n"
	e := newScriptEngine(t, data, Options{Continuous: true})
	e.Start(context.Background())

	events := collect(t, e.Events(), 2*time.Second)
	if len(events) != 3 {
		t.Fatalf("events = %+v", events)
	}
	if events[1].Kind != KindError || events[1].Code != CodeNotAllowed {
		t.Errorf("event = %+v, want not-allowed error", events[1])
	}
}

func TestScriptEngineStopEndsContinuousRun(t *testing.T) {
	data := "steps:\n  - text: one\n    final: true\n"
	e := newScriptEngine(t, data, Options{Continuous: true})
	e.Start(context.Background())

	waitFor(t, e.Events(), time.Second, func(ev Event) bool { return ev.Kind == KindResults })
	e.Stop()
	e.Stop()

	events := collect(t, e.Events(), time.Second)
	if len(events) != 1 || events[0].Kind != KindEnded {
		t.Errorf("events after stop = %+v", events)
	}
}

func TestScriptEngineContextCancel(t *testing.T) {
	data := "steps:\n  - after: 1h\n    text: never\n    final: true\n"
	e := newScriptEngine(t, data, Options{Continuous: true})
	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx)
	cancel()

	events := collect(t, e.Events(), time.Second)
	if got := finals(events); len(got) != 0 {
		t.Errorf("finals = %v", got)
	}
}

func TestScriptFactoryUnsupported(t *testing.T) {
	f := NewScriptFactory(nil)
	if f.Supported() {
		t.Error("nil script should be unsupported")
	}
	if _, err := f.New(Options{}); err != ErrUnsupported {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}
