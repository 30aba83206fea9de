package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.Driver != DriverDaemon {
		t.Errorf("engine.driver = %q, want %q", cfg.Engine.Driver, DriverDaemon)
	}
	if cfg.Store.Driver != StoreSQLite {
		t.Errorf("store.driver = %q, want %q", cfg.Store.Driver, StoreSQLite)
	}
	if cfg.Languages[0] != "hi-IN" {
		t.Errorf("languages[0] = %q, want hi-IN", cfg.Languages[0])
	}
	if cfg.Timer.ExcludePaused {
		t.Error("paused time should count by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicetext.yaml")
	data := `
engine:
  driver: script
  script: ./demo.yaml
store:
  driver: badger
  badger_dir: /tmp/vt-badger
timer:
  exclude_paused: true
languages: [en-US, fr-FR]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.Driver != DriverScript || cfg.Engine.Script != "./demo.yaml" {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Store.Driver != StoreBadger || cfg.Store.BadgerDir != "/tmp/vt-badger" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if !cfg.Timer.ExcludePaused {
		t.Error("timer.exclude_paused not applied")
	}
	if len(cfg.Languages) != 2 || cfg.Languages[1] != "fr-FR" {
		t.Errorf("languages = %v", cfg.Languages)
	}
	// Unset keys keep their defaults.
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("audio.sample_rate = %d, want 16000", cfg.Audio.SampleRate)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VOICETEXT_ENGINE_DRIVER", "nats")
	t.Setenv("VOICETEXT_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("VOICETEXT_BUS_USERNAME", "alice")
	t.Setenv("VOICETEXT_BUS_TLS_INSECURE", "true")
	t.Setenv("VOICETEXT_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("VOICETEXT_AUDIO_SILENCE_LEVEL", "0.05")
	t.Setenv("VOICETEXT_STORE_DRIVER", "memory")
	t.Setenv("VOICETEXT_TIMER_EXCLUDE_PAUSED", "1")
	t.Setenv("VOICETEXT_TELEMETRY_PROMETHEUS_BIND", ":9464")
	t.Setenv("VOICETEXT_LANGUAGES", "en-US,,de-DE")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.Driver != DriverNATS {
		t.Errorf("engine.driver = %q", cfg.Engine.Driver)
	}
	if len(cfg.Bus.Servers) != 2 || cfg.Bus.Servers[1] != "nats://two:4222" {
		t.Errorf("servers = %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || !cfg.Bus.TLSInsecure {
		t.Error("expected bus credential overrides")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Errorf("connect timeout = %d, want 5000", cfg.Bus.ConnectTimeout)
	}
	if cfg.Audio.SilenceLevel != 0.05 {
		t.Errorf("silence level = %v", cfg.Audio.SilenceLevel)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Errorf("store.driver = %q", cfg.Store.Driver)
	}
	if !cfg.Timer.ExcludePaused {
		t.Error("expected exclude_paused override")
	}
	if cfg.Telemetry.PrometheusBind != ":9464" {
		t.Errorf("prometheus bind = %q", cfg.Telemetry.PrometheusBind)
	}
	if len(cfg.Languages) != 2 || cfg.Languages[1] != "de-DE" {
		t.Errorf("languages = %v", cfg.Languages)
	}
}

func TestInvalidOverridesIgnored(t *testing.T) {
	t.Setenv("VOICETEXT_AUDIO_SAMPLE_RATE", "fast")
	t.Setenv("VOICETEXT_TIMER_EXCLUDE_PAUSED", "maybe")
	t.Setenv("VOICETEXT_ENGINE_DRIVER", "  ")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Timer.ExcludePaused || cfg.Engine.Driver != DriverDaemon {
		t.Errorf("invalid overrides applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Engine.Driver = "browser" }, "engine.driver"},
		{"script without path", func(c *Config) { c.Engine.Driver = DriverScript }, "engine.script"},
		{"daemon without socket", func(c *Config) { c.Daemon.Socket = "" }, "daemon.socket"},
		{"nats without servers", func(c *Config) { c.Engine.Driver = DriverNATS; c.Bus.Servers = nil }, "bus.servers"},
		{"embedded bad port", func(c *Config) { c.Engine.Driver = DriverNATS; c.Bus.Embedded = true; c.Bus.Port = 0 }, "bus.port"},
		{"unknown store", func(c *Config) { c.Store.Driver = "redis" }, "store.driver"},
		{"badger without dir", func(c *Config) { c.Store.Driver = StoreBadger; c.Store.BadgerDir = "" }, "store.badger_dir"},
		{"noise floor", func(c *Config) { c.Audio.NoiseFloor = 300 }, "audio.noise_floor"},
		{"no languages", func(c *Config) { c.Languages = nil }, "languages"},
		{"bad language tag", func(c *Config) { c.Languages = []string{"en-US", "not a tag"} }, "invalid tag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestLanguageName(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"en-US", "American English"},
		{"de-DE", "German (Germany)"},
		{"###", "###"},
	}
	for _, tt := range tests {
		if got := LanguageName(tt.tag); got != tt.want {
			t.Errorf("LanguageName(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
