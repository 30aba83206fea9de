package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwulff/voicetext/internal/bus"
	"github.com/jwulff/voicetext/internal/level"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSConfig tunes how microphone audio is cut into utterances.
type NATSConfig struct {
	SampleRate    int
	Channels      int
	FrameDuration time.Duration
	// An utterance ends after Silence of audio below SilenceLevel (RMS).
	Silence      time.Duration
	SilenceLevel float64
	// FlushTimeout bounds the wait for outstanding transcripts after Stop.
	FlushTimeout time.Duration
}

// NATSFactory creates engines that stream audio frames over the bus to a
// speech service and read its transcripts back.
type NATSFactory struct {
	bus     *bus.Client
	capture level.Source
	cfg     NATSConfig
	log     zerolog.Logger
}

func NewNATSFactory(b *bus.Client, capture level.Source, cfg NATSConfig, log zerolog.Logger) *NATSFactory {
	return &NATSFactory{bus: b, capture: capture, cfg: cfg, log: log}
}

func (f *NATSFactory) Name() string { return "nats" }

func (f *NATSFactory) Supported() bool {
	return f.bus.Healthy() && f.capture != nil
}

func (f *NATSFactory) New(opts Options) (Engine, error) {
	if !f.Supported() {
		return nil, ErrUnsupported
	}
	// Utterance IDs must not collide with a previous engine of the same
	// session whose transcripts may still be in flight.
	prefix := opts.SessionID + "-" + uuid.NewString()[:8]
	frameBytes := f.cfg.SampleRate * f.cfg.Channels * 2 * int(f.cfg.FrameDuration/time.Millisecond) / 1000
	if frameBytes <= 0 {
		frameBytes = 640
	}
	return &natsEngine{
		conn:       f.bus.Conn(),
		capture:    f.capture,
		cfg:        f.cfg,
		opts:       opts,
		prefix:     prefix,
		frameBytes: frameBytes,
		log:        f.log.With().Str("engine", "nats").Str("utterances", prefix).Logger(),
		out:        newEmitter(),
	}, nil
}

type natsEngine struct {
	conn       *nats.Conn
	capture    level.Source
	cfg        NATSConfig
	opts       Options
	prefix     string
	frameBytes int
	log        zerolog.Logger
	out        *emitter

	mu       sync.Mutex
	started  bool
	stopping bool
	cancel   context.CancelFunc
	subs     []*nats.Subscription
	pending  map[int]bool
	flushed  chan struct{}
	// finals counts delivered final results. Utterances are transcribed
	// concurrently, so results are indexed by arrival, not utterance number.
	finals int

	// Capture state, touched only from the capture callback.
	buf       []byte
	utterance int
	seq       int
	voiced    bool
	quiet     time.Duration
}

func (e *natsEngine) Events() <-chan Event { return e.out.ch }

func (e *natsEngine) utteranceID(n int) string {
	return e.prefix + "-" + strconv.Itoa(n)
}

func (e *natsEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("nats engine already started")
	}
	e.started = true
	e.pending = make(map[int]bool)
	e.flushed = make(chan struct{})
	e.mu.Unlock()

	for _, subject := range []string{bus.SubjectTranscriptPartial, bus.SubjectTranscriptFinal} {
		sub, err := e.conn.Subscribe(subject, e.handleTranscript)
		if err != nil {
			e.unsubscribe()
			return &Error{Code: CodeNetwork, Err: fmt.Errorf("subscribe %s: %w", subject, err)}
		}
		e.subs = append(e.subs, sub)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	e.out.started()
	e.log.Info().Str("locale", e.opts.Language).Msg("bus recognition started")

	go func() {
		err := e.capture.Stream(runCtx, e.onPCM)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			e.log.Warn().Err(err).Msg("audio capture failed")
			e.out.fail(CodeNotAllowed, err.Error())
		}
		e.finish()
	}()
	return nil
}

// Stop ends capture. The current utterance is flushed and its transcript is
// still delivered if it arrives within the flush timeout.
func (e *natsEngine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.stopping = true
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *natsEngine) onPCM(pcm []byte) {
	e.buf = append(e.buf, pcm...)
	frameDur := e.cfg.FrameDuration
	for len(e.buf) >= e.frameBytes {
		frame := e.buf[:e.frameBytes]
		e.publishFrame(frame, false)
		e.buf = e.buf[e.frameBytes:]

		if level.RMS(frame) >= e.cfg.SilenceLevel {
			e.voiced = true
			e.quiet = 0
			continue
		}
		e.quiet += frameDur
		if e.voiced && e.quiet >= e.cfg.Silence {
			e.endUtterance()
		}
	}
}

func (e *natsEngine) publishFrame(pcm []byte, final bool) {
	msg := bus.AudioFrame{
		SessionID:  e.utteranceID(e.utterance),
		Sequence:   e.seq,
		SampleRate: e.cfg.SampleRate,
		Channels:   e.cfg.Channels,
		PCM:        pcm,
		Final:      final,
	}
	e.seq++
	data, err := json.Marshal(msg)
	if err != nil {
		e.log.Warn().Err(err).Msg("marshal audio frame")
		return
	}
	if err := e.conn.Publish(bus.AudioSubject(msg.SessionID), data); err != nil {
		e.log.Warn().Err(err).Msg("publish audio frame")
	}
}

func (e *natsEngine) endUtterance() {
	e.mu.Lock()
	e.pending[e.utterance] = true
	e.mu.Unlock()
	e.publishFrame(nil, true)
	e.utterance++
	e.seq = 0
	e.voiced = false
	e.quiet = 0
}

// finish runs once capture has returned: flush the open utterance, wait for
// outstanding transcripts, then end.
func (e *natsEngine) finish() {
	if e.voiced {
		e.endUtterance()
	}

	e.mu.Lock()
	e.stopping = true
	waiting := len(e.pending) > 0
	e.mu.Unlock()

	if waiting {
		select {
		case <-e.flushed:
		case <-time.After(e.cfg.FlushTimeout):
			e.log.Warn().Msg("gave up waiting for final transcripts")
		}
	}
	e.unsubscribe()
	e.out.end()
}

func (e *natsEngine) unsubscribe() {
	for _, sub := range e.subs {
		_ = sub.Unsubscribe()
	}
}

func (e *natsEngine) handleTranscript(msg *nats.Msg) {
	var tr bus.Transcript
	if err := json.Unmarshal(msg.Data, &tr); err != nil {
		e.log.Warn().Err(err).Msg("decode transcript")
		return
	}
	rest, ok := strings.CutPrefix(tr.SessionID, e.prefix+"-")
	if !ok {
		return
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if tr.Partial {
		if e.opts.Interim {
			e.out.results(e.finals, Result{Text: tr.Text})
		}
		return
	}

	r := Result{Text: tr.Text, Final: true}
	if tr.Confidence > 0 {
		r.Confidence = tr.Confidence
		r.HasConfidence = true
	}
	e.out.results(e.finals, r)
	e.finals++

	delete(e.pending, n)
	if e.stopping && len(e.pending) == 0 {
		select {
		case <-e.flushed:
		default:
			close(e.flushed)
		}
	}
}
