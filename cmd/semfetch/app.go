package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/semfetch/config"
	webfetcher "github.com/c360studio/semfetch/processor/web-fetcher"
)

const shutdownTimeout = 30 * time.Second

// App wires the fetch handler to NATS and the metrics endpoint.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *webfetcher.Metrics

	mu        sync.Mutex
	handler   *webfetcher.Handler
	natsConn  *nats.Conn
	responder *webfetcher.Responder

	metricsServer *http.Server
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := webfetcher.NewMetrics(registry)

	handler, policy, err := buildHandler(cfg.Fetch, metrics, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("Fetch policy loaded", "blocked_hosts", policy.Patterns())

	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		handler:  handler,
	}, nil
}

// Handler returns the current fetch handler.
func (a *App) Handler() *webfetcher.Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handler
}

// Start connects to NATS, starts the responder and the metrics listener.
func (a *App) Start(ctx context.Context) error {
	if err := a.startMetrics(); err != nil {
		return fmt.Errorf("start metrics: %w", err)
	}

	conn, err := a.connectNATS()
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.natsConn = conn
	a.responder = webfetcher.NewResponder(conn, a.handler, a.cfg.ResponderConfig(), a.logger)
	responder := a.responder
	a.mu.Unlock()

	if err := responder.Start(ctx); err != nil {
		return fmt.Errorf("start responder: %w", err)
	}
	return nil
}

func (a *App) connectNATS() (*nats.Conn, error) {
	url := a.cfg.NATS.URL
	a.logger.Info("Connecting to NATS", "url", url)

	conn, err := nats.Connect(url,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				a.logger.Warn("Disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			a.logger.Info("Reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, wrapNATSError(err, url)
	}

	a.logger.Info("Connected to NATS", "url", url)
	return conn, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	// Check for common connection errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker run -p 4222:4222 nats

Or set nats.url in semfetch.yaml to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

// metricsHandler serves the application registry in the Prometheus text format.
func (a *App) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return mux
}

func (a *App) startMetrics() error {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	a.metricsServer = &http.Server{
		Handler:           a.metricsHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := a.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", "error", err)
		}
	}()

	a.logger.Info("Metrics endpoint listening", "addr", ln.Addr().String())
	return nil
}

// Reload rebuilds the fetch handler from cfg and swaps it into the
// responder. NATS and metrics settings require a restart.
func (a *App) Reload(cfg *config.Config) error {
	handler, policy, err := buildHandler(cfg.Fetch, a.metrics, a.logger)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if cfg.NATS != a.cfg.NATS || cfg.Metrics != a.cfg.Metrics {
		a.logger.Info("NATS and metrics changes take effect after restart")
	}

	a.handler = handler
	if a.responder != nil {
		a.responder.SetHandler(handler)
	}

	a.logger.Info("Fetch configuration reloaded",
		"blocked_hosts", policy.Patterns(),
		"strict_dial", cfg.Fetch.StrictDial)
	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown(timeout time.Duration) {
	a.mu.Lock()
	responder, conn := a.responder, a.natsConn
	a.mu.Unlock()

	if responder != nil {
		if err := responder.Stop(timeout); err != nil {
			a.logger.Warn("Responder stop incomplete", "error", err)
		}
	}

	// Close NATS connection
	if conn != nil {
		if err := conn.Drain(); err != nil {
			a.logger.Debug("NATS drain failed", "error", err)
		}
		conn.Close()
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}
}
