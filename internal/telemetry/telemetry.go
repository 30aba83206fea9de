// Package telemetry sets up OpenTelemetry tracing and metrics for VoiceText
// and records dictation sessions against them.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwulff/voicetext/internal/config"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TraceFileName is the span log written to the log directory when
// telemetry.trace_file is enabled.
const TraceFileName = "traces.json"

// Telemetry owns the installed providers and the optional /metrics server.
type Telemetry struct {
	shutdowns []func(context.Context) error
	server    *http.Server
	addr      string
	log       zerolog.Logger
}

// Setup installs global tracer and meter providers. Spans go to OTLP when an
// endpoint is configured, else to a file in logDir when TraceFile is set, else
// nowhere. Metrics are served on PrometheusBind when set.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logDir string, log zerolog.Logger) (*Telemetry, error) {
	log = log.With().Str("component", "telemetry").Logger()
	t := &Telemetry{log: log}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp, err := t.initTracer(ctx, cfg, logDir, res)
	if err != nil {
		return nil, err
	}
	if tp != nil {
		otel.SetTracerProvider(tp)
	}

	if err := t.initMetrics(cfg, res); err != nil {
		t.Shutdown(ctx)
		return nil, err
	}
	return t, nil
}

func (t *Telemetry) initTracer(ctx context.Context, cfg config.TelemetryConfig, logDir string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		t.shutdowns = append(t.shutdowns, tp.Shutdown)
		t.log.Info().Str("exporter", "otlp").Str("endpoint", endpoint).Msg("telemetry initialized")
		return tp, nil
	}

	if !cfg.TraceFile {
		return nil, nil
	}
	f, err := os.OpenFile(filepath.Join(logDir, TraceFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stdout exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	t.shutdowns = append(t.shutdowns, tp.Shutdown, func(context.Context) error { return f.Close() })
	t.log.Info().Str("exporter", "file").Str("path", f.Name()).Msg("telemetry initialized")
	return tp, nil
}

func (t *Telemetry) initMetrics(cfg config.TelemetryConfig, res *resource.Resource) error {
	bind := strings.TrimSpace(cfg.PrometheusBind)
	if bind == "" {
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
		otel.SetMeterProvider(mp)
		t.shutdowns = append(t.shutdowns, mp.Shutdown)
		return nil
	}

	reg := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return fmt.Errorf("prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	t.shutdowns = append(t.shutdowns, mp.Shutdown)

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", bind, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	t.addr = ln.Addr().String()

	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Warn().Err(err).Msg("metrics server stopped")
		}
	}()
	t.log.Info().Str("addr", t.addr).Msg("serving /metrics")
	return nil
}

// MetricsAddr returns the address the /metrics server listens on, or "".
func (t *Telemetry) MetricsAddr() string {
	return t.addr
}

// Shutdown flushes exporters and stops the metrics server.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, fn := range t.shutdowns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
