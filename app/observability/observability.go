// Package observability sets up logging, tracing and Prometheus metrics for the service.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the settings needed to build the observability stack.
type Config struct {
	ServiceName    string
	Environment    string
	LogLevel       string
	MetricsAddress string
}

// Observability bundles the logger, tracer and metrics registry shared by all modules.
type Observability struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Registry *prometheus.Registry

	metricsServer *http.Server
}

// New builds the observability stack. It does not start the metrics server.
func New(cfg Config) *Observability {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "arena"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Observability{
		Logger:   NewLogger(cfg),
		Tracer:   otel.Tracer(cfg.ServiceName),
		Registry: registry,
	}
}

// NewLogger returns a JSON logger in production and a text logger elsewhere.
func NewLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Environment, "production") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	if cfg.ServiceName != "" {
		logger = logger.With(slog.String("service", cfg.ServiceName))
	}
	if cfg.Environment != "" {
		logger = logger.With(slog.String("env", cfg.Environment))
	}
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StartMetricsServer serves /metrics on addr in the background. An empty
// address disables the server.
func (o *Observability) StartMetricsServer(addr string) {
	if addr == "" {
		o.Logger.Info("Metrics server disabled")
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(o.Registry, promhttp.HandlerOpts{Registry: o.Registry}))

	o.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		o.Logger.Info("Starting metrics server", slog.String("address", addr))
		if err := o.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.Logger.Error("Metrics server failed", slog.Any("error", err))
		}
	}()
}

// Shutdown stops the metrics server if it is running.
func (o *Observability) Shutdown(ctx context.Context) error {
	if o.metricsServer == nil {
		return nil
	}
	if err := o.metricsServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	return nil
}
