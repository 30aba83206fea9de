package session

import "github.com/jwulff/voicetext/internal/engine"

// ErrorKind classifies why a session ended in the Error state.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	CapabilityUnavailable
	PermissionDenied
	NoSpeechDetected
	NetworkFailure
	ServiceUnavailable
	GrammarError
	UnknownEngineError
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case CapabilityUnavailable:
		return "capability-unavailable"
	case PermissionDenied:
		return "permission-denied"
	case NoSpeechDetected:
		return "no-speech"
	case NetworkFailure:
		return "network"
	case ServiceUnavailable:
		return "service-unavailable"
	case GrammarError:
		return "grammar"
	default:
		return "unknown"
	}
}

// KindFromCode maps an engine error code to the session taxonomy.
func KindFromCode(code string) ErrorKind {
	switch code {
	case engine.CodeNotAllowed:
		return PermissionDenied
	case engine.CodeNoSpeech:
		return NoSpeechDetected
	case engine.CodeNetwork:
		return NetworkFailure
	case engine.CodeServiceNotAllowed:
		return ServiceUnavailable
	case engine.CodeBadGrammar:
		return GrammarError
	default:
		return UnknownEngineError
	}
}

// message returns the status line shown for an error.
func message(k ErrorKind, code string) string {
	switch k {
	case CapabilityUnavailable:
		return "Speech recognition not supported. Configure an engine."
	case PermissionDenied:
		return "Microphone access denied. Please allow microphone access."
	case NoSpeechDetected:
		return "No speech detected. Please try speaking clearly."
	case NetworkFailure:
		return "Network error. Please check your connection."
	case ServiceUnavailable:
		return "Speech recognition service not allowed."
	case GrammarError:
		return "Grammar error in recognition."
	default:
		return "Recognition error: " + code
	}
}
