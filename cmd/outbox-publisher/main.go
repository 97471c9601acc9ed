package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/civicpulse-backend/internal/bootstrap"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/db"
	"github.com/angelmondragon/civicpulse-backend/pkg/instance"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/angelmondragon/civicpulse-backend/pkg/metrics"
	"github.com/angelmondragon/civicpulse-backend/pkg/migrate"
	"github.com/angelmondragon/civicpulse-backend/pkg/outbox"
	"github.com/angelmondragon/civicpulse-backend/pkg/pubsub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "outbox-publisher"

func main() {
	cfg, logg, err := bootstrap.Load(serviceName)
	if err != nil {
		logg.Error(context.Background(), "startup failed", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.GetID(),
		"serviceKind": serviceName,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher exited", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	if !cfg.PubSub.Enabled() {
		return fmt.Errorf("%s is empty; nothing to publish to", config.EnvPubSubReportEventsTopic)
	}

	var closers bootstrap.Closers
	defer func() {
		if cerr := closers.Close(); cerr != nil {
			logg.Error(context.Background(), "releasing resources", cerr)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	closers.Add("database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	closers.Add("pubsub", psClient.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service, err := NewService(ServiceParams{
		Config:        cfg.Outbox,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        psClient,
		Publisher:     topicPublisher{p: psClient.ReportEventsPublisher()},
		Repository:    outbox.NewRepository(dbClient.DB()),
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(registry),
	})
	if err != nil {
		return err
	}

	metricsServer := bootstrap.NewMetricsServer(cfg.Outbox.MetricsAddr, registry, logg)
	if err := metricsServer.Start(ctx); err != nil {
		return err
	}
	closers.Add("metrics server", metricsServer.Close)

	logg.Info(ctx, "outbox publisher running")
	return service.Run(ctx)
}
