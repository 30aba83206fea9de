// Package settings persists user preferences and the autosaved transcript in
// a key-value backend. Persistence is best effort: failures are logged and
// reported as ErrPersistence, never fatal.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jwulff/voicetext/internal/db"
	"github.com/rs/zerolog"
)

// Keys in the backend.
const (
	SettingsKey = "voicetext_settings"
	AutosaveKey = "voicetext_autosave"
)

// DefaultLanguage is used until the user picks another one.
const DefaultLanguage = "hi-IN"

// ErrPersistence wraps every backend read or write failure.
var ErrPersistence = errors.New("persistence failure")

// ErrNotFound is returned by backends for a missing key.
var ErrNotFound = db.ErrNotFound

// KV is a string key-value backend.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Settings are the user preferences.
type Settings struct {
	Language        string `json:"language"`
	NoiseReduction  bool   `json:"noiseReduction"`
	AutoSave        bool   `json:"autoSave"`
	DarkMode        bool   `json:"darkMode"`
	AutoPunctuation bool   `json:"autoPunctuation"`
}

// Defaults returns the settings used when nothing is stored.
func Defaults() Settings {
	return Settings{Language: DefaultLanguage}
}

// Store reads and writes settings through a KV backend.
type Store struct {
	kv  KV
	log zerolog.Logger
}

func New(kv KV, log zerolog.Logger) *Store {
	return &Store{kv: kv, log: log.With().Str("component", "settings").Logger()}
}

// Load returns the stored settings, or Defaults when none are stored or they
// cannot be read. A stored empty language keeps the default.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	out := Defaults()
	raw, err := s.kv.Get(ctx, SettingsKey)
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, s.fail("settings load", err)
	}

	var stored Settings
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return out, s.fail("settings load", err)
	}
	if stored.Language == "" {
		stored.Language = out.Language
	}
	return stored, nil
}

// Save writes the settings.
func (s *Store) Save(ctx context.Context, st Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return s.fail("settings save", err)
	}
	if err := s.kv.Set(ctx, SettingsKey, string(data)); err != nil {
		return s.fail("settings save", err)
	}
	return nil
}

// SaveAutosave stores the raw transcript. Empty or whitespace-only text is
// not saved, so a cleared buffer never overwrites the last snapshot.
func (s *Store) SaveAutosave(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := s.kv.Set(ctx, AutosaveKey, text); err != nil {
		return s.fail("autosave", err)
	}
	return nil
}

// LoadAutosave returns the last autosaved transcript and whether there was one.
func (s *Store) LoadAutosave(ctx context.Context) (string, bool, error) {
	text, err := s.kv.Get(ctx, AutosaveKey)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.fail("autoload", err)
	}
	return text, text != "", nil
}

func (s *Store) fail(op string, err error) error {
	s.log.Warn().Err(err).Str("op", op).Msg("persistence failed")
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
