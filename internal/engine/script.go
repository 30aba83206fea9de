package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Step is one scripted engine event. A step with Error set reports that code
// and ends the run.
type Step struct {
	After      time.Duration `yaml:"after"`
	Text       string        `yaml:"text"`
	Final      bool          `yaml:"final"`
	Confidence *float64      `yaml:"confidence"`
	Error      string        `yaml:"error"`
}

// Script is a recorded recognition run replayed by the script engine. With
// End set the engine ends after the last step; otherwise it keeps listening
// until stopped, like a continuous recognizer.
type Script struct {
	Steps []Step `yaml:"steps"`
	End   bool   `yaml:"end"`
}

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("script has no steps")
	}
	for i, st := range s.Steps {
		if st.After < 0 {
			return nil, fmt.Errorf("step %d: negative delay", i)
		}
		if st.Confidence != nil && (*st.Confidence < 0 || *st.Confidence > 1) {
			return nil, fmt.Errorf("step %d: confidence out of range", i)
		}
	}
	return &s, nil
}

// LoadScript reads and parses a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(data)
}

// ScriptFactory creates engines that replay a Script.
type ScriptFactory struct {
	script *Script
}

func NewScriptFactory(s *Script) *ScriptFactory {
	return &ScriptFactory{script: s}
}

func (f *ScriptFactory) Name() string { return "script" }

func (f *ScriptFactory) Supported() bool {
	return f.script != nil && len(f.script.Steps) > 0
}

func (f *ScriptFactory) New(opts Options) (Engine, error) {
	if !f.Supported() {
		return nil, ErrUnsupported
	}
	return &scriptEngine{
		script: f.script,
		opts:   opts,
		out:    newEmitter(),
		stop:   make(chan struct{}),
	}, nil
}

type scriptEngine struct {
	script *Script
	opts   Options
	out    *emitter

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
}

func (e *scriptEngine) Events() <-chan Event { return e.out.ch }

func (e *scriptEngine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func (e *scriptEngine) Start(ctx context.Context) error {
	started := false
	e.startOnce.Do(func() {
		started = true
		go e.run(ctx)
	})
	if !started {
		return errors.New("script engine already started")
	}
	return nil
}

func (e *scriptEngine) run(ctx context.Context) {
	defer e.out.end()
	e.out.started()

	index := 0
	for _, st := range e.script.Steps {
		if !e.wait(ctx, st.After) {
			return
		}
		if st.Error != "" {
			e.out.fail(st.Error, "scripted error")
			return
		}
		if !st.Final && !e.opts.Interim {
			continue
		}
		r := Result{Text: st.Text, Final: st.Final}
		if st.Confidence != nil {
			r.Confidence = *st.Confidence
			r.HasConfidence = true
		}
		e.out.results(index, r)
		if st.Final {
			index++
		}
	}

	if e.script.End || !e.opts.Continuous {
		return
	}
	select {
	case <-ctx.Done():
	case <-e.stop:
	}
}

func (e *scriptEngine) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-e.stop:
		return false
	}
}
