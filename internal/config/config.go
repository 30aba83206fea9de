// Package config loads the VoiceText configuration from YAML with
// VOICETEXT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

// Engine drivers.
const (
	DriverDaemon = "daemon"
	DriverNATS   = "nats"
	DriverScript = "script"
	DriverNone   = "none"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
	StoreMemory = "memory"
)

type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Bus       BusConfig       `yaml:"bus"`
	Audio     AudioConfig     `yaml:"audio"`
	Store     StoreConfig     `yaml:"store"`
	Timer     TimerConfig     `yaml:"timer"`
	Export    ExportConfig    `yaml:"export"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Languages []string        `yaml:"languages"`
}

type EngineConfig struct {
	Driver string `yaml:"driver"`
	Script string `yaml:"script"`
}

type DaemonConfig struct {
	Socket string `yaml:"socket"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	FlushTimeout   int      `yaml:"flush_timeout_ms"`
}

type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	Channels        int     `yaml:"channels"`
	FrameDurationMS int     `yaml:"frame_duration_ms"`
	SilenceMS       int     `yaml:"silence_ms"`
	SilenceLevel    float64 `yaml:"silence_level"`
	NoiseFloor      int     `yaml:"noise_floor"`
}

type StoreConfig struct {
	Driver    string `yaml:"driver"`
	Path      string `yaml:"path"`
	BadgerDir string `yaml:"badger_dir"`
}

type TimerConfig struct {
	ExcludePaused bool `yaml:"exclude_paused"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
	TraceFile      bool   `yaml:"trace_file"`
}

// DefaultLanguages is the language cycle offered by the UI. The first entry is
// only a fallback; the stored settings choose the active language.
var DefaultLanguages = []string{
	"hi-IN", "en-US", "en-GB", "en-IN", "es-ES", "fr-FR", "de-DE",
	"it-IT", "pt-BR", "ja-JP", "ko-KR", "zh-CN", "ar-SA", "ru-RU",
}

func dataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "VoiceText")
}

func Default() Config {
	data := dataDir()
	home, _ := os.UserHomeDir()
	return Config{
		Engine: EngineConfig{Driver: DriverDaemon},
		Daemon: DaemonConfig{Socket: filepath.Join(data, "voicetext.sock")},
		Bus: BusConfig{
			Embedded:       false,
			Host:           "127.0.0.1",
			Port:           4222,
			StoreDir:       filepath.Join(data, "nats"),
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			FlushTimeout:   2000,
		},
		Audio: AudioConfig{
			SampleRate:      16000,
			Channels:        1,
			FrameDurationMS: 20,
			SilenceMS:       800,
			SilenceLevel:    0.02,
			NoiseFloor:      40,
		},
		Store: StoreConfig{
			Driver:    StoreSQLite,
			Path:      filepath.Join(data, "voicetext.db"),
			BadgerDir: filepath.Join(data, "badger"),
		},
		Export: ExportConfig{Dir: home},
		Telemetry: TelemetryConfig{
			ServiceName:  "voicetext",
			LogLevel:     "info",
			OTLPInsecure: true,
		},
		Languages: append([]string(nil), DefaultLanguages...),
	}
}

// Load reads path (if set) over the defaults, applies environment overrides
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Engine.Driver, "VOICETEXT_ENGINE_DRIVER")
	overrideString(&cfg.Engine.Script, "VOICETEXT_ENGINE_SCRIPT")
	overrideString(&cfg.Daemon.Socket, "VOICETEXT_DAEMON_SOCKET")
	overrideBool(&cfg.Bus.Embedded, "VOICETEXT_BUS_EMBEDDED")
	overrideString(&cfg.Bus.Host, "VOICETEXT_BUS_HOST")
	overrideInt(&cfg.Bus.Port, "VOICETEXT_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "VOICETEXT_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "VOICETEXT_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VOICETEXT_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VOICETEXT_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VOICETEXT_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VOICETEXT_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VOICETEXT_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Bus.FlushTimeout, "VOICETEXT_BUS_FLUSH_TIMEOUT_MS")
	overrideInt(&cfg.Audio.SampleRate, "VOICETEXT_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "VOICETEXT_AUDIO_CHANNELS")
	overrideInt(&cfg.Audio.FrameDurationMS, "VOICETEXT_AUDIO_FRAME_DURATION_MS")
	overrideInt(&cfg.Audio.SilenceMS, "VOICETEXT_AUDIO_SILENCE_MS")
	overrideFloat(&cfg.Audio.SilenceLevel, "VOICETEXT_AUDIO_SILENCE_LEVEL")
	overrideInt(&cfg.Audio.NoiseFloor, "VOICETEXT_AUDIO_NOISE_FLOOR")
	overrideString(&cfg.Store.Driver, "VOICETEXT_STORE_DRIVER")
	overrideString(&cfg.Store.Path, "VOICETEXT_STORE_PATH")
	overrideString(&cfg.Store.BadgerDir, "VOICETEXT_STORE_BADGER_DIR")
	overrideBool(&cfg.Timer.ExcludePaused, "VOICETEXT_TIMER_EXCLUDE_PAUSED")
	overrideString(&cfg.Export.Dir, "VOICETEXT_EXPORT_DIR")
	overrideString(&cfg.Telemetry.ServiceName, "VOICETEXT_TELEMETRY_SERVICE_NAME")
	overrideString(&cfg.Telemetry.LogLevel, "VOICETEXT_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VOICETEXT_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VOICETEXT_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "VOICETEXT_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Telemetry.TraceFile, "VOICETEXT_TELEMETRY_TRACE_FILE")
	overrideStringSlice(&cfg.Languages, "VOICETEXT_LANGUAGES")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	switch cfg.Engine.Driver {
	case DriverDaemon:
		if cfg.Daemon.Socket == "" {
			return errors.New("daemon.socket must be set when engine.driver=daemon")
		}
	case DriverNATS:
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	case DriverScript:
		if cfg.Engine.Script == "" {
			return errors.New("engine.script must be set when engine.driver=script")
		}
	case DriverNone:
	default:
		return errors.New("engine.driver must be one of daemon|nats|script|none")
	}

	switch cfg.Store.Driver {
	case StoreSQLite:
		if cfg.Store.Path == "" {
			return errors.New("store.path must be set when store.driver=sqlite")
		}
	case StoreBadger:
		if cfg.Store.BadgerDir == "" {
			return errors.New("store.badger_dir must be set when store.driver=badger")
		}
	case StoreMemory:
	default:
		return errors.New("store.driver must be one of sqlite|badger|memory")
	}

	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	if cfg.Audio.FrameDurationMS <= 0 {
		return errors.New("audio.frame_duration_ms must be positive")
	}
	if cfg.Audio.NoiseFloor < 0 || cfg.Audio.NoiseFloor > 255 {
		return errors.New("audio.noise_floor must be between 0 and 255")
	}
	if len(cfg.Languages) == 0 {
		return errors.New("languages must not be empty")
	}
	for _, l := range cfg.Languages {
		if _, err := language.Parse(l); err != nil {
			return fmt.Errorf("languages: invalid tag %q: %w", l, err)
		}
	}
	if cfg.Telemetry.ServiceName == "" {
		return errors.New("telemetry.service_name must not be empty")
	}
	return nil
}

// LanguageName returns the English display name of a BCP 47 tag, e.g.
// "Hindi (India)" for hi-IN. Unparseable tags are returned unchanged.
func LanguageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	name := display.English.Tags().Name(t)
	if name == "" {
		return tag
	}
	return name
}
