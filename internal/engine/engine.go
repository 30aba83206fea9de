// Package engine defines the speech-recognition engine contract consumed by
// the session coordinator, and the backends that implement it.
package engine

import (
	"context"
	"errors"
)

// Error codes reported by engines. Backends translate their native failures
// into one of these strings; anything else is treated as unknown.
const (
	CodeNotAllowed        = "not-allowed"
	CodeNoSpeech          = "no-speech"
	CodeNetwork           = "network"
	CodeServiceNotAllowed = "service-not-allowed"
	CodeBadGrammar        = "bad-grammar"
	CodeAborted           = "aborted"
)

// ErrUnsupported is returned by New when the backend is not available.
var ErrUnsupported = errors.New("speech recognition not supported")

// Error is a start failure tagged with an engine error code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string { return e.Code + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the engine error code carried by err, or "" when none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Options configures one engine instance.
type Options struct {
	Language        string
	Interim         bool
	Continuous      bool
	MaxAlternatives int
	SessionID       string
}

// Result is one recognized utterance. Interim results may be revised by a
// later batch; final results never change.
type Result struct {
	Text          string
	Final         bool
	Confidence    float64
	HasConfidence bool
}

// Kind identifies an engine event.
type Kind int

const (
	KindStarted Kind = iota
	KindResults
	KindError
	KindEnded
)

func (k Kind) String() string {
	switch k {
	case KindStarted:
		return "started"
	case KindResults:
		return "results"
	case KindError:
		return "error"
	case KindEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is pushed by an engine. For KindResults, Results[k] has the absolute
// index Index+k; a window may overlap indices seen in earlier events.
type Event struct {
	Kind    Kind
	Index   int
	Results []Result
	Code    string
	Message string
}

// Engine is one recognition run. Once stopped it cannot be restarted; create a
// new one from the Factory. Events is closed after the KindEnded event.
// Canceling the context passed to Start stops the engine.
type Engine interface {
	Start(ctx context.Context) error
	Stop()
	Events() <-chan Event
}

// Factory creates engines. Supported is checked once at startup.
type Factory interface {
	Name() string
	Supported() bool
	New(opts Options) (Engine, error)
}
