package level

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sampler feeds an Analyser from a Source while the session is listening.
// Opening the source may fail (no microphone, permission denied); that is
// logged and the visualizer simply stays flat.
type Sampler struct {
	analyser *Analyser
	source   Source
	log      zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSampler(a *Analyser, src Source, log zerolog.Logger) *Sampler {
	return &Sampler{analyser: a, source: src, log: log}
}

// Start begins streaming. Calling Start while running is a no-op.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.source == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		err := s.source.Stream(ctx, s.analyser.Write)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn().Err(err).Msg("audio level source failed")
		}
	}()
}

// Stop ends streaming and clears the analyser.
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.log.Warn().Msg("audio level source did not stop in time")
	}
	s.analyser.Reset()
}

// SetNoiseGate turns the analyser's noise gate on or off.
func (s *Sampler) SetNoiseGate(on bool) {
	s.analyser.SetNoiseGate(on)
}

// Running reports whether the sampler is streaming.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Frame returns the latest bins, or nil while stopped.
func (s *Sampler) Frame() []uint8 {
	if !s.Running() {
		return nil
	}
	return s.analyser.Frame()
}
