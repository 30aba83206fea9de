// Package daemon provides the client and protocol types for talking to a
// local speech-recognition daemon over a Unix socket using NDJSON.
package daemon

// Commands understood by the daemon.
const (
	CmdStart     = "start"
	CmdStop      = "stop"
	CmdStatus    = "status"
	CmdSubscribe = "subscribe"
)

// Event names streamed to subscribers.
const (
	EventPartial = "partial"
	EventSegment = "segment"
	EventError   = "error"
	EventStatus  = "status"
	EventLevel   = "level"
)

// Command is sent from a client to the daemon.
type Command struct {
	Cmd        string   `json:"cmd"`
	Locale     string   `json:"locale,omitempty"`
	SessionID  string   `json:"sessionId,omitempty"`
	Interim    *bool    `json:"interim,omitempty"`
	Continuous *bool    `json:"continuous,omitempty"`
	Events     []string `json:"events,omitempty"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"sessionId,omitempty"`
	Recording *bool  `json:"recording,omitempty"`
	Locale    string `json:"locale,omitempty"`
	Segments  *int   `json:"segments,omitempty"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Event is streamed from the daemon to subscribed clients.
type Event struct {
	Event          string   `json:"event"`
	SessionID      string   `json:"sessionId,omitempty"`
	Text           string   `json:"text,omitempty"`
	SequenceNumber *int     `json:"sequenceNumber,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Level          *float32 `json:"level,omitempty"`
	Recording      *bool    `json:"recording,omitempty"`
	Code           string   `json:"code,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// BoolPtr returns a pointer to a bool value. Convenience for building commands.
func BoolPtr(b bool) *bool { return &b }
