package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/civicpulse-backend/api/controllers"
	"github.com/angelmondragon/civicpulse-backend/api/routes"
	"github.com/angelmondragon/civicpulse-backend/internal/analytics"
	"github.com/angelmondragon/civicpulse-backend/internal/auth"
	"github.com/angelmondragon/civicpulse-backend/internal/bootstrap"
	"github.com/angelmondragon/civicpulse-backend/internal/media"
	"github.com/angelmondragon/civicpulse-backend/internal/reports"
	"github.com/angelmondragon/civicpulse-backend/internal/users"
	"github.com/angelmondragon/civicpulse-backend/pkg/db"
	"github.com/angelmondragon/civicpulse-backend/pkg/metrics"
	"github.com/angelmondragon/civicpulse-backend/pkg/migrate"
	"github.com/angelmondragon/civicpulse-backend/pkg/outbox"
	"github.com/angelmondragon/civicpulse-backend/pkg/pubsub"
	"github.com/angelmondragon/civicpulse-backend/pkg/redis"
	"github.com/angelmondragon/civicpulse-backend/pkg/security"
	"github.com/angelmondragon/civicpulse-backend/pkg/storage/gcs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, logg, err := bootstrap.Load("api")
	if err != nil {
		logg.Error(context.Background(), "startup failed", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers bootstrap.Closers
	fail := func(msg string, err error) {
		logg.Error(context.Background(), msg, err)
		if cerr := closers.Close(); cerr != nil {
			logg.Error(context.Background(), "error releasing resources", cerr)
		}
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail("failed to bootstrap database", err)
	}
	closers.Add("database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		fail("failed to run dev migrations", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		fail("failed to bootstrap redis", err)
	}
	closers.Add("redis", redisClient.Close)

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		fail("failed to bootstrap gcs", err)
	}
	closers.Add("gcs", gcsClient.Close)

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
		"gcs":      gcsClient,
	}

	var events pubsub.EventPublisher = pubsub.NoopPublisher{}
	switch {
	case cfg.Outbox.Enabled:
		logg.Info(ctx, "report events are written to the outbox")
	case cfg.PubSub.Enabled():
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			fail("failed to bootstrap pubsub", err)
		}
		closers.Add("pubsub", psClient.Close)
		publisher, err := pubsub.NewTopicPublisher(psClient.ReportEventsPublisher())
		if err != nil {
			fail("failed to create report events publisher", err)
		}
		events = publisher
		readiness["pubsub"] = psClient
	default:
		logg.Warn(ctx, "report events topic not configured, events are dropped")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(registry)
	reportMetrics := metrics.NewReportMetrics(registry)

	hasher, err := security.NewHasher(cfg.Password)
	if err != nil {
		fail("failed to create password hasher", err)
	}

	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  userRepo,
		Hasher:    hasher,
		JWTConfig: cfg.JWT,
		Logger:    logg,
	})
	if err != nil {
		fail("failed to create auth service", err)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		UserRepo:         userRepo,
		Hasher:           hasher,
		JWTConfig:        cfg.JWT,
		AllowAdminSignup: cfg.FeatureFlags.AllowAdminSignup,
	})
	if err != nil {
		fail("failed to create register service", err)
	}

	profileService, err := auth.NewProfileService(userRepo, hasher)
	if err != nil {
		fail("failed to create profile service", err)
	}

	reportParams := reports.ServiceParams{
		Repo:    reports.NewRepository(dbClient.DB()),
		DB:      dbClient,
		Users:   userRepo,
		Events:  events,
		Metrics: reportMetrics,
		Logger:  logg,
	}
	if cfg.Outbox.Enabled {
		reportParams.Outbox = outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	}
	reportService, err := reports.NewService(reportParams)
	if err != nil {
		fail("failed to create report service", err)
	}

	analyticsService, err := analytics.NewService(analytics.NewRepository(dbClient.DB()), nil)
	if err != nil {
		fail("failed to create analytics service", err)
	}

	mediaService, err := media.NewService(gcsClient, cfg.Media, logg)
	if err != nil {
		fail("failed to create media service", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:    cfg,
			Logger:    logg,
			Users:     userRepo,
			Limiter:   redisClient,
			Metrics:   httpMetrics,
			Gatherer:  registry,
			Readiness: readiness,
			Auth:      authService,
			Register:  registerService,
			Profile:   profileService,
			Reports:   reportService,
			Analytics: analyticsService,
			Media:     mediaService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = multierr.Append(server.Shutdown(shutdownCtx), closers.Close())
	if err != nil {
		logg.Error(serverCtx, "unclean shutdown", err)
		os.Exit(1)
	}
	logg.Info(serverCtx, "api server stopped")
}
