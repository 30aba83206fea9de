package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 59, 0, time.UTC)
	if got, want := FileName(now), "VoiceText_2024-03-09_14-05.txt"; got != want {
		t.Errorf("FileName = %q, want %q", got, want)
	}
}

func TestSaveText(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	now := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

	path, err := SaveText(dir, "hello, world ", now)
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	if filepath.Base(path) != "VoiceText_2024-03-09_14-05.txt" {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello, world " {
		t.Errorf("content = %q, want %q", data, "hello, world ")
	}

	second, err := SaveText(dir, "again", now)
	if err != nil {
		t.Fatalf("second SaveText: %v", err)
	}
	if filepath.Base(second) != "VoiceText_2024-03-09_14-05_2.txt" {
		t.Errorf("second path = %q", second)
	}
	if data, _ := os.ReadFile(path); string(data) != "hello, world " {
		t.Errorf("first file overwritten: %q", data)
	}
}

func TestSaveTextEmpty(t *testing.T) {
	if _, err := SaveText(t.TempDir(), "", time.Now()); !errors.Is(err, ErrNothingToExport) {
		t.Errorf("err = %v, want ErrNothingToExport", err)
	}
}

func stubClipboard(t *testing.T, isUnsupported bool, fn func(string) error) {
	t.Helper()
	origWrite, origUnsupported := writeAll, unsupported
	writeAll = fn
	unsupported = func() bool { return isUnsupported }
	t.Cleanup(func() {
		writeAll, unsupported = origWrite, origUnsupported
	})
}

func TestCopy(t *testing.T) {
	var got string
	stubClipboard(t, false, func(s string) error { got = s; return nil })

	if err := Copy("dictated text"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if got != "dictated text" {
		t.Errorf("clipboard = %q, want %q", got, "dictated text")
	}
}

func TestCopyFailures(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		unsupported bool
		writeErr    error
		want        error
	}{
		{"empty", "", false, nil, ErrNothingToExport},
		{"unsupported", "text", true, nil, ErrExportUnavailable},
		{"write fails", "text", false, errors.New("no xclip"), ErrExportUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubClipboard(t, tt.unsupported, func(string) error { return tt.writeErr })
			if err := Copy(tt.text); !errors.Is(err, tt.want) {
				t.Errorf("Copy err = %v, want %v", err, tt.want)
			}
		})
	}
}
