// Package log writes the diagnostics log. A terminal UI owns stdout, so every
// log line goes to a file in the resolved log directory.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	diagName       = "diagnostics_log.txt"
	transcriptName = "transcript_log.txt"
)

var (
	diagLog        = zerolog.Nop()
	diagFile       *os.File
	transcriptFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

// ResolveDir picks the log directory: the -logpath flag, then
// VOICETEXT_LOG_PATH, then the OS default. Relative paths resolve against the
// working directory.
func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return absolute(flagPath)
	}
	if envPath := os.Getenv("VOICETEXT_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}
	return defaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	return nil
}

// Init opens the log files in Dir. Until Init succeeds every helper is a
// no-op and Logger returns a disabled logger.
func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, diagName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	transcriptFile, err = os.OpenFile(filepath.Join(dir, transcriptName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		diagFile.Close()
		return err
	}

	diagLog = New(diagFile).With().Int("pid", pid).Logger()
	logReady = true
	return nil
}

// New returns a plain-text zerolog logger writing to w.
func New(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	return zerolog.New(cw).With().Timestamp().Logger()
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcriptFile != nil {
		transcriptFile.Close()
		transcriptFile = nil
	}
	diagLog = zerolog.Nop()
	logReady = false
}

// Logger returns the diagnostics logger for components that take one.
func Logger() zerolog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	return diagLog
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

// SessionStart records the start of a dictation session.
func SessionStart(id, engine, language string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Str("engine", engine).
		Str("language", language).
		Msg("session_start")
}

// SessionEnd records how a dictation session finished.
func SessionEnd(id, state string, words, wpm int, confidence float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", id).
		Str("state", state).
		Int("words", words).
		Int("wpm", wpm).
		Float64("confidence", confidence).
		Msg("session_end")
}

// TranscriptText appends one finalized utterance to the transcript log.
func TranscriptText(sessionID, text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, sessionID, text)
	transcriptFile.WriteString(line)
}
