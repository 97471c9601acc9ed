// Package bootstrap holds the process wiring shared by the civicpulse
// binaries: environment loading, logger construction, ordered resource
// teardown and the prometheus side port.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

// Load reads an optional .env file, parses the configuration and returns a
// logger configured from it. The returned logger is usable even when err is
// non-nil.
func Load(service string) (*config.Config, *logger.Logger, error) {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), "no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, logg, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	}), nil
}

type closer struct {
	name string
	fn   func() error
}

// Closers releases resources in reverse order of acquisition.
type Closers struct {
	items []closer
}

func (c *Closers) Add(name string, fn func() error) {
	c.items = append(c.items, closer{name: name, fn: fn})
}

// Close runs every registered closer once, newest first, and joins failures.
func (c *Closers) Close() error {
	var err error
	for i := len(c.items) - 1; i >= 0; i-- {
		if cerr := c.items[i].fn(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", c.items[i].name, cerr))
		}
	}
	c.items = nil
	return err
}

// MetricsServer exposes a prometheus gatherer on its own listener.
type MetricsServer struct {
	srv  *http.Server
	logg *logger.Logger
}

func NewMetricsServer(addr string, gatherer prometheus.Gatherer, logg *logger.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &MetricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logg: logg,
	}
}

// Start binds the listener synchronously so a bad address fails fast, then
// serves in the background.
func (m *MetricsServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.srv.Addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", m.srv.Addr, err)
	}
	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	return nil
}

func (m *MetricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.srv.Shutdown(ctx)
}
