package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jwulff/voicetext/internal/daemon"
	"github.com/rs/zerolog"
)

// DaemonFactory creates engines backed by a local speech daemon.
type DaemonFactory struct {
	socket string
	flush  time.Duration
	log    zerolog.Logger
}

// NewDaemonFactory returns a factory for the daemon listening on socket. After
// a stop request the engine waits up to flush for trailing segments.
func NewDaemonFactory(socket string, flush time.Duration, log zerolog.Logger) *DaemonFactory {
	return &DaemonFactory{socket: socket, flush: flush, log: log}
}

func (f *DaemonFactory) Name() string { return "daemon" }

// Supported probes the daemon with a status command.
func (f *DaemonFactory) Supported() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := daemon.Connect(ctx, f.socket)
	if err != nil {
		f.log.Info().Err(err).Str("socket", f.socket).Msg("speech daemon unavailable")
		return false
	}
	defer c.Close()

	resp, err := c.SendCommand(daemon.Command{Cmd: daemon.CmdStatus})
	if err != nil || !resp.OK {
		f.log.Warn().Err(err).Str("error", resp.Error).Msg("speech daemon status failed")
		return false
	}
	return true
}

func (f *DaemonFactory) New(opts Options) (Engine, error) {
	return &daemonEngine{
		socket: f.socket,
		flush:  f.flush,
		opts:   opts,
		log:    f.log.With().Str("engine", "daemon").Str("session", opts.SessionID).Logger(),
		out:    newEmitter(),
	}, nil
}

type daemonEngine struct {
	socket string
	flush  time.Duration
	opts   Options
	log    zerolog.Logger
	out    *emitter

	mu       sync.Mutex
	started  bool
	stopping bool
	cmd      *daemon.Client
	ev       *daemon.Client
	remoteID string
	next     int
}

func (e *daemonEngine) Events() <-chan Event { return e.out.ch }

func (e *daemonEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("daemon engine already started")
	}
	e.started = true
	e.mu.Unlock()

	cmd, err := daemon.Connect(ctx, e.socket)
	if err != nil {
		return &Error{Code: CodeNetwork, Err: err}
	}
	ev, err := daemon.Connect(ctx, e.socket)
	if err != nil {
		cmd.Close()
		return &Error{Code: CodeNetwork, Err: err}
	}
	if err := ev.Subscribe(daemon.EventPartial, daemon.EventSegment, daemon.EventError, daemon.EventStatus); err != nil {
		cmd.Close()
		ev.Close()
		return &Error{Code: CodeNetwork, Err: err}
	}

	resp, err := cmd.SendCommand(daemon.Command{
		Cmd:        daemon.CmdStart,
		Locale:     e.opts.Language,
		SessionID:  e.opts.SessionID,
		Interim:    daemon.BoolPtr(e.opts.Interim),
		Continuous: daemon.BoolPtr(e.opts.Continuous),
	})
	if err == nil && !resp.OK {
		code := resp.Code
		if code == "" {
			code = CodeServiceNotAllowed
		}
		err = &Error{Code: code, Err: fmt.Errorf("daemon refused start: %s", resp.Error)}
	}
	if err != nil {
		cmd.Close()
		ev.Close()
		if CodeOf(err) == "" {
			err = &Error{Code: CodeNetwork, Err: err}
		}
		return err
	}

	e.mu.Lock()
	e.cmd, e.ev, e.remoteID = cmd, ev, resp.SessionID
	stopped := e.stopping
	e.mu.Unlock()

	e.log.Info().Str("remote_session", resp.SessionID).Str("locale", e.opts.Language).Msg("daemon recognition started")
	e.out.started()
	go e.read()
	context.AfterFunc(ctx, e.Stop)
	if stopped {
		e.Stop()
	}
	return nil
}

// Stop asks the daemon to stop. Trailing segments are still delivered until
// the daemon reports it stopped recording or the flush window closes.
func (e *daemonEngine) Stop() {
	e.mu.Lock()
	e.stopping = true
	cmd, ev := e.cmd, e.ev
	e.cmd = nil
	e.mu.Unlock()

	// Not connected yet (Start finishes the stop) or already stopped.
	if cmd == nil {
		return
	}

	if resp, err := cmd.SendCommand(daemon.Command{Cmd: daemon.CmdStop}); err != nil {
		e.log.Warn().Err(err).Msg("daemon stop failed")
	} else if !resp.OK {
		e.log.Warn().Str("error", resp.Error).Msg("daemon refused stop")
	}
	cmd.Close()
	time.AfterFunc(e.flush, func() { ev.Close() })
}

func (e *daemonEngine) isStopping() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopping
}

func (e *daemonEngine) read() {
	defer e.out.end()
	e.mu.Lock()
	ev := e.ev
	e.mu.Unlock()
	defer ev.Close()

	for {
		msg, err := ev.ReadEvent()
		if err != nil {
			if !e.isStopping() {
				e.log.Warn().Err(err).Msg("daemon event stream lost")
				e.out.fail(CodeNetwork, err.Error())
			}
			return
		}
		if msg.SessionID != "" && e.remoteID != "" && msg.SessionID != e.remoteID {
			continue
		}
		if done := e.handle(msg); done {
			return
		}
	}
}

// handle translates one daemon event and reports whether the run is over.
func (e *daemonEngine) handle(msg daemon.Event) bool {
	switch msg.Event {
	case daemon.EventPartial:
		if e.opts.Interim {
			e.out.results(e.next, Result{Text: msg.Text})
		}
	case daemon.EventSegment:
		index := e.next
		if msg.SequenceNumber != nil {
			index = *msg.SequenceNumber
		}
		r := Result{Text: msg.Text, Final: true}
		if msg.Confidence != nil {
			r.Confidence = *msg.Confidence
			r.HasConfidence = true
		}
		e.out.results(index, r)
		if index+1 > e.next {
			e.next = index + 1
		}
	case daemon.EventError:
		e.log.Warn().Str("code", msg.Code).Str("message", msg.Message).Msg("daemon reported error")
		e.out.fail(msg.Code, msg.Message)
		go e.Stop()
		return true
	case daemon.EventStatus:
		if msg.Recording != nil && !*msg.Recording {
			return true
		}
	}
	return false
}
