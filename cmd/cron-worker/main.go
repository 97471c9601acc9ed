package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/civicpulse-backend/internal/bootstrap"
	"github.com/angelmondragon/civicpulse-backend/internal/cron"
	"github.com/angelmondragon/civicpulse-backend/internal/reports"
	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/angelmondragon/civicpulse-backend/pkg/db"
	"github.com/angelmondragon/civicpulse-backend/pkg/instance"
	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/angelmondragon/civicpulse-backend/pkg/metrics"
	"github.com/angelmondragon/civicpulse-backend/pkg/migrate"
	"github.com/angelmondragon/civicpulse-backend/pkg/outbox"
	"github.com/angelmondragon/civicpulse-backend/pkg/redis"
	"github.com/angelmondragon/civicpulse-backend/pkg/storage/gcs"
	"github.com/prometheus/client_golang/prometheus"
)

const serviceName = "cron-worker"

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
		logg.Error(ctx, "cron worker exited", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
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

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	closers.Add("redis", redisClient.Close)

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return fmt.Errorf("gcs: %w", err)
	}
	closers.Add("gcs", gcsClient.Close)

	jobs, err := buildJobs(cfg, logg, dbClient, gcsClient)
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron:"+lockEnv(cfg.App.Env)), 0)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(registry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	metricsServer := bootstrap.NewMetricsServer(cfg.Cron.MetricsAddr, registry, logg)
	if err := metricsServer.Start(ctx); err != nil {
		return err
	}
	closers.Add("metrics server", metricsServer.Close)

	logg.Info(ctx, "cron worker running")
	return service.Run(ctx)
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, store *gcs.Client) (*cron.Registry, error) {
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:           logg,
		DB:               dbClient,
		Outbox:           outbox.NewRepository(dbClient.DB()),
		DLQ:              outbox.NewDLQRepository(dbClient.DB()),
		RetentionDays:    cfg.Cron.OutboxRetentionDays,
		DLQRetentionDays: cfg.Cron.DLQRetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	orphans, err := cron.NewOrphanImageCleanupJob(cron.OrphanImageCleanupJobParams{
		Logger:     logg,
		Store:      store,
		References: reports.NewRepository(dbClient.DB()),
		Prefix:     cfg.Media.ObjectPrefix,
		MinAge:     cfg.Cron.OrphanImageMinAge,
	})
	if err != nil {
		return nil, fmt.Errorf("orphan image job: %w", err)
	}

	return cron.NewRegistry(retention, orphans)
}

// lockEnv keeps deployments that share a redis from contending for the same
// lock.
func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
