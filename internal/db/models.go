// Package db stores dictation history and small key-value records in SQLite.
package db

import "time"

// Session statuses.
const (
	StatusActive  = "active"
	StatusStopped = "stopped"
	StatusEnded   = "ended"
	StatusError   = "error"
)

// Session is one dictation session from start to its terminal state.
type Session struct {
	ID            string
	Locale        string
	Engine        string
	StartedAt     time.Time
	EndedAt       *time.Time
	Status        string
	ErrorKind     string
	Words         int
	WPM           int
	AvgConfidence *float64
	CreatedAt     time.Time
}

// Segment is one finalized utterance.
type Segment struct {
	ID             string
	SessionID      string
	Text           string
	Confidence     float64
	SequenceNumber int
	CreatedAt      time.Time
}

// SessionEnd carries the outcome recorded by EndSession.
type SessionEnd struct {
	At            time.Time
	Status        string
	ErrorKind     string
	Words         int
	WPM           int
	AvgConfidence *float64
}
