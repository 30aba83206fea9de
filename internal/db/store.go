package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("not found")

// Store provides access to the VoiceText SQLite database.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	locale TEXT NOT NULL,
	engine TEXT NOT NULL DEFAULT '',
	startedAt REAL NOT NULL,
	endedAt REAL,
	status TEXT NOT NULL DEFAULT 'active',
	errorKind TEXT NOT NULL DEFAULT '',
	words INTEGER NOT NULL DEFAULT 0,
	wpm INTEGER NOT NULL DEFAULT 0,
	avgConfidence REAL,
	createdAt REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS segments (
	id TEXT PRIMARY KEY,
	sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	confidence REAL NOT NULL,
	sequenceNumber INTEGER NOT NULL,
	createdAt REAL NOT NULL,
	UNIQUE(sessionId, sequenceNumber)
);

CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updatedAt REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(startedAt);
`

// Open opens (creating if needed) the database at path. Use ":memory:" for a
// private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	}

	s, err := open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// OpenReadOnly opens an existing database without write access, for readers
// running next to the dictation app.
func OpenReadOnly(ctx context.Context, path string) (*Store, error) {
	return open(ctx, fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path))
}

func open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, clock: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSession records a newly started session.
func (s *Store) BeginSession(ctx context.Context, id, locale, engine string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, locale, engine, startedAt, status, createdAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, locale, engine, unixFromTime(startedAt), StatusActive, unixFromTime(s.clock()))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession records how a session finished.
func (s *Store) EndSession(ctx context.Context, id string, end SessionEnd) error {
	var avg any
	if end.AvgConfidence != nil {
		avg = *end.AvgConfidence
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET endedAt = ?, status = ?, errorKind = ?, words = ?, wpm = ?, avgConfidence = ?
		WHERE id = ?
	`, unixFromTime(end.At), end.Status, end.ErrorKind, end.Words, end.WPM, avg, id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrNotFound)
	}
	return nil
}

// AppendSegment stores a finalized utterance as the next segment of the
// session and returns it.
func (s *Store) AppendSegment(ctx context.Context, sessionID, text string, confidence float64, at time.Time) (Segment, error) {
	seg := Segment{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Text:       text,
		Confidence: confidence,
		CreatedAt:  at,
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO segments (id, sessionId, text, confidence, sequenceNumber, createdAt)
		SELECT ?, ?, ?, ?, COALESCE(MAX(sequenceNumber), 0) + 1, ?
		FROM segments WHERE sessionId = ?
		RETURNING sequenceNumber
	`, seg.ID, sessionID, text, confidence, unixFromTime(at), sessionID)
	if err := row.Scan(&seg.SequenceNumber); err != nil {
		return Segment{}, fmt.Errorf("insert segment: %w", err)
	}
	return seg, nil
}

const sessionColumns = `id, locale, engine, startedAt, endedAt, status, errorKind, words, wpm, avgConfidence, createdAt`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	var startedAt, createdAt float64
	var endedAt, avg sql.NullFloat64

	if err := row.Scan(&sess.ID, &sess.Locale, &sess.Engine, &startedAt, &endedAt,
		&sess.Status, &sess.ErrorKind, &sess.Words, &sess.WPM, &avg, &createdAt); err != nil {
		return Session{}, err
	}

	sess.StartedAt = timeFromUnix(startedAt)
	sess.CreatedAt = timeFromUnix(createdAt)
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Float64)
		sess.EndedAt = &t
	}
	if avg.Valid {
		v := avg.Float64
		sess.AvgConfidence = &v
	}
	return sess, nil
}

// LatestSession returns the most recent session regardless of status, or nil.
func (s *Store) LatestSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY startedAt DESC
		LIMIT 1
	`)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &sess, nil
}

// GetSession returns the session with id, or nil.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &sess, nil
}

// Sessions returns up to limit sessions, newest first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY startedAt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SegmentsForSession returns all segments of a session in order.
func (s *Store) SegmentsForSession(ctx context.Context, sessionID string) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sessionId, text, confidence, sequenceNumber, createdAt
		FROM segments
		WHERE sessionId = ?
		ORDER BY sequenceNumber ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var seg Segment
		var createdAt float64
		if err := rows.Scan(&seg.ID, &seg.SessionID, &seg.Text, &seg.Confidence,
			&seg.SequenceNumber, &createdAt); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.CreatedAt = timeFromUnix(createdAt)
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updatedAt) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = excluded.updatedAt
	`, key, value, unixFromTime(s.clock()))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
