// Package natsserver runs an in-process NATS server so the bus needs no
// external deployment.
package natsserver

import (
	"fmt"
	"time"

	"github.com/jwulff/voicetext/internal/config"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"
)

// EmbeddedServer wraps a NATS server instance.
type EmbeddedServer struct {
	ns  *server.Server
	log zerolog.Logger
}

// Start creates and starts an embedded NATS server. It returns nil, nil when
// the bus is not configured as embedded.
func Start(cfg config.BusConfig, log zerolog.Logger) (*EmbeddedServer, error) {
	if !cfg.Embedded {
		return nil, nil
	}

	opts := &server.Options{
		Host:     cfg.Host,
		Port:     cfg.Port,
		StoreDir: cfg.StoreDir,
		NoLog:    true,
		NoSigs:   true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within 5 seconds")
	}

	log.Info().
		Str("url", ns.ClientURL()).
		Str("store_dir", cfg.StoreDir).
		Msg("embedded NATS server started")

	return &EmbeddedServer{ns: ns, log: log}, nil
}

// ClientURL returns the URL clients should dial.
func (e *EmbeddedServer) ClientURL() string {
	return e.ns.ClientURL()
}

// Shutdown gracefully shuts down the embedded NATS server.
func (e *EmbeddedServer) Shutdown() {
	if e == nil || e.ns == nil {
		return
	}
	e.log.Info().Msg("shutting down embedded NATS server")
	e.ns.Shutdown()
	e.ns.WaitForShutdown()
}
