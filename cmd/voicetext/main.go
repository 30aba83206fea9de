package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwulff/voicetext/internal/app"
	"github.com/jwulff/voicetext/internal/audio"
	"github.com/jwulff/voicetext/internal/bus"
	"github.com/jwulff/voicetext/internal/config"
	"github.com/jwulff/voicetext/internal/db"
	"github.com/jwulff/voicetext/internal/engine"
	"github.com/jwulff/voicetext/internal/level"
	"github.com/jwulff/voicetext/internal/log"
	"github.com/jwulff/voicetext/internal/natsserver"
	"github.com/jwulff/voicetext/internal/settings"
	"github.com/jwulff/voicetext/internal/telemetry"
	"github.com/rs/zerolog"
)

var version = "dev"

func main() {
	var (
		configPath  string
		logPath     string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&logPath, "logpath", "", "Directory for log files")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	if err := run(configPath, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logPath string) error {
	dir, err := log.ResolveDir(logPath)
	if err != nil {
		return fmt.Errorf("resolve log directory: %w", err)
	}
	log.SetDir(dir)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer log.Close()
	logger := log.Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.Telemetry.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	logger.Info().Str("version", version).Str("engine", cfg.Engine.Driver).Str("store", cfg.Store.Driver).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, log.Dir(), logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()
	if addr := tel.MetricsAddr(); addr != "" {
		logger.Info().Str("addr", addr).Msg("serving metrics")
	}

	deps := app.Deps{
		Context:       ctx,
		Recorder:      telemetry.NewRecorder(),
		Log:           logger,
		ExportDir:     cfg.Export.Dir,
		Languages:     cfg.Languages,
		ExcludePaused: cfg.Timer.ExcludePaused,
	}

	closeStore, err := openStore(ctx, cfg.Store, logger, &deps)
	if err != nil {
		return err
	}
	defer closeStore()

	mic := audio.NewMicrophone(audio.Config{
		SampleRate: uint32(cfg.Audio.SampleRate),
		Channels:   uint32(cfg.Audio.Channels),
	})
	defer mic.Close()
	if mic.Available() {
		deps.Levels = level.NewSampler(level.NewAnalyser(uint8(cfg.Audio.NoiseFloor)), mic, logger)
	} else {
		logger.Warn().Msg("no capture device; level visualizer disabled")
	}

	factory, closeEngine, err := newFactory(cfg, mic, logger)
	if err != nil {
		// The UI still runs for editing and export; start stays disabled.
		logger.Error().Err(err).Str("driver", cfg.Engine.Driver).Msg("engine unavailable")
	}
	defer closeEngine()
	if factory != nil {
		deps.Engine = factory
	}

	model := app.New(deps)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		m.Close()
	} else {
		model.Close()
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("run: %w", err)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}

// openStore wires settings and history according to the store driver and
// returns the function that closes it.
func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger, deps *app.Deps) (func(), error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		store, err := db.Open(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		deps.Settings = settings.New(store, logger)
		deps.History = store
		return func() { store.Close() }, nil

	case config.StoreBadger:
		kv, err := settings.OpenBadger(cfg.BadgerDir, logger)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		deps.Settings = settings.New(kv, logger)
		return func() { kv.Close() }, nil

	default:
		deps.Settings = settings.New(settings.NewMemory(), logger)
		return func() {}, nil
	}
}

// newFactory builds the recognition backend named by the engine driver. The
// returned close function is always safe to call.
func newFactory(cfg config.Config, mic *audio.Microphone, logger zerolog.Logger) (engine.Factory, func(), error) {
	noop := func() {}
	flush := time.Duration(cfg.Bus.FlushTimeout) * time.Millisecond

	switch cfg.Engine.Driver {
	case config.DriverDaemon:
		return engine.NewDaemonFactory(cfg.Daemon.Socket, flush, logger), noop, nil

	case config.DriverScript:
		script, err := engine.LoadScript(cfg.Engine.Script)
		if err != nil {
			return nil, noop, fmt.Errorf("load script: %w", err)
		}
		return engine.NewScriptFactory(script), noop, nil

	case config.DriverNATS:
		busCfg := cfg.Bus
		var srv *natsserver.EmbeddedServer
		if busCfg.Embedded {
			var err error
			srv, err = natsserver.Start(busCfg, logger)
			if err != nil {
				return nil, noop, fmt.Errorf("start embedded nats: %w", err)
			}
			busCfg.Servers = []string{srv.ClientURL()}
		}
		client, err := bus.Connect(busCfg, logger)
		if err != nil {
			if srv != nil {
				srv.Shutdown()
			}
			return nil, noop, fmt.Errorf("connect bus: %w", err)
		}
		closeAll := func() {
			client.Close()
			if srv != nil {
				srv.Shutdown()
			}
		}
		f := engine.NewNATSFactory(client, mic, engine.NATSConfig{
			SampleRate:    cfg.Audio.SampleRate,
			Channels:      cfg.Audio.Channels,
			FrameDuration: time.Duration(cfg.Audio.FrameDurationMS) * time.Millisecond,
			Silence:       time.Duration(cfg.Audio.SilenceMS) * time.Millisecond,
			SilenceLevel:  cfg.Audio.SilenceLevel,
			FlushTimeout:  flush,
		}, logger)
		return f, closeAll, nil

	default:
		return nil, noop, nil
	}
}
