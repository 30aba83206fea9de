package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/jwulff/voicetext"

// Recorder turns session lifecycle notifications into spans and metrics. One
// span covers a session from start to its terminal state. Safe for concurrent
// use.
type Recorder struct {
	tracer trace.Tracer

	started    metric.Int64Counter
	ended      metric.Int64Counter
	segments   metric.Int64Counter
	confidence metric.Float64Histogram
	errors     metric.Int64Counter
	wpm        metric.Int64Histogram

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewRecorder uses the global providers installed by Setup.
func NewRecorder() *Recorder {
	return NewRecorderWith(otel.GetMeterProvider(), otel.GetTracerProvider())
}

// NewRecorderWith builds a recorder over explicit providers. Instrument
// creation errors leave a no-op instrument in place.
func NewRecorderWith(mp metric.MeterProvider, tp trace.TracerProvider) *Recorder {
	meter := mp.Meter(instrumentation)
	r := &Recorder{
		tracer: tp.Tracer(instrumentation),
		spans:  make(map[string]trace.Span),
	}
	r.started, _ = meter.Int64Counter("voicetext.sessions.started",
		metric.WithDescription("Dictation sessions started"))
	r.ended, _ = meter.Int64Counter("voicetext.sessions.ended",
		metric.WithDescription("Dictation sessions ended, by final state"))
	r.segments, _ = meter.Int64Counter("voicetext.segments.finalized",
		metric.WithDescription("Finalized utterances appended to the transcript"))
	r.confidence, _ = meter.Float64Histogram("voicetext.segment.confidence",
		metric.WithDescription("Recognition confidence of finalized utterances"))
	r.errors, _ = meter.Int64Counter("voicetext.engine.errors",
		metric.WithDescription("Engine failures, by error kind"))
	r.wpm, _ = meter.Int64Histogram("voicetext.session.wpm",
		metric.WithDescription("Words per minute at explicit stop"),
		metric.WithUnit("{word}/min"))
	return r
}

// SessionStarted opens the span for session id.
func (r *Recorder) SessionStarted(ctx context.Context, id, language, engine string, at time.Time) {
	attrs := []attribute.KeyValue{
		attribute.String("language", language),
		attribute.String("engine", engine),
	}
	r.started.Add(ctx, 1, metric.WithAttributes(attrs...))

	_, span := r.tracer.Start(ctx, "dictation.session",
		trace.WithTimestamp(at),
		trace.WithAttributes(append(attrs, attribute.String("session.id", id))...),
	)
	r.mu.Lock()
	if old, ok := r.spans[id]; ok {
		old.End()
	}
	r.spans[id] = span
	r.mu.Unlock()
}

// SegmentFinalized records one finalized utterance.
func (r *Recorder) SegmentFinalized(ctx context.Context, id string, index int, confidence float64, at time.Time) {
	r.segments.Add(ctx, 1)
	r.confidence.Record(ctx, confidence)

	r.mu.Lock()
	span := r.spans[id]
	r.mu.Unlock()
	if span != nil {
		span.AddEvent("segment", trace.WithTimestamp(at), trace.WithAttributes(
			attribute.Int("index", index),
			attribute.Float64("confidence", confidence),
		))
	}
}

// SessionEnded closes the span for session id. errKind is empty unless the
// session failed; wpm is zero unless it was stopped explicitly.
func (r *Recorder) SessionEnded(ctx context.Context, id, state, errKind string, words, wpm int, at time.Time) {
	r.ended.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
	if errKind != "" {
		r.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", errKind)))
	}
	if wpm > 0 {
		r.wpm.Record(ctx, int64(wpm))
	}

	r.mu.Lock()
	span := r.spans[id]
	delete(r.spans, id)
	r.mu.Unlock()
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.String("state", state),
		attribute.Int("words", words),
		attribute.Int("wpm", wpm),
	)
	if errKind != "" {
		span.SetStatus(codes.Error, errKind)
	}
	span.End(trace.WithTimestamp(at))
}
