// Package export writes the transcript out of the application: a plain-text
// file or the system clipboard.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
)

var (
	// ErrNothingToExport is returned for an empty transcript.
	ErrNothingToExport = errors.New("nothing to export")
	// ErrExportUnavailable is returned when the clipboard is not usable on
	// this system.
	ErrExportUnavailable = errors.New("export unavailable")
)

// Seams for tests.
var (
	writeAll    = clipboard.WriteAll
	unsupported = func() bool { return clipboard.Unsupported }
)

// FileName returns the name used for a transcript saved at now.
func FileName(now time.Time) string {
	return "VoiceText_" + now.UTC().Format("2006-01-02_15-04") + ".txt"
}

// SaveText writes text to a new file in dir and returns its path. A second
// save within the same minute gets a numeric suffix instead of overwriting.
func SaveText(dir, text string, now time.Time) (string, error) {
	if text == "" {
		return "", ErrNothingToExport
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	name := FileName(now)
	base := name[:len(name)-len(".txt")]
	for n := 1; ; n++ {
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			name = fmt.Sprintf("%s_%d.txt", base, n+1)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
		if _, err := f.WriteString(text); err != nil {
			f.Close()
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", path, err)
		}
		return path, nil
	}
}

// Available reports whether the system clipboard can be used.
func Available() bool {
	return !unsupported()
}

// Copy places text on the system clipboard.
func Copy(text string) error {
	if text == "" {
		return ErrNothingToExport
	}
	if unsupported() {
		return ErrExportUnavailable
	}
	if err := writeAll(text); err != nil {
		return fmt.Errorf("%w: %w", ErrExportUnavailable, err)
	}
	return nil
}
