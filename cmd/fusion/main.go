package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/hazard-fusion-service/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/hazard-fusion-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-fusion-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-fusion-service/internal/adapter/mapbox"
	"github.com/couchcryptid/hazard-fusion-service/internal/adapter/postgres"
	"github.com/couchcryptid/hazard-fusion-service/internal/config"
	"github.com/couchcryptid/hazard-fusion-service/internal/dashboard"
	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
	"github.com/couchcryptid/hazard-fusion-service/internal/fusion"
	"github.com/couchcryptid/hazard-fusion-service/internal/observability"
)

const geocodeCacheTTL = 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	repo := postgres.NewRepository(pool)

	store := cache.NewMemoryStore(cfg.CacheMaxEntries, nil)
	invalidator := cache.NewInvalidator(store, logger)

	// Region enrichment is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, store, geocodeCacheTTL, metrics)
		logger.Info("mapbox region enrichment enabled", "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox region enrichment disabled")
	}

	var publisher fusion.AlertPublisher
	var broadcaster *kafkaadapter.Broadcaster
	if cfg.KafkaEnabled {
		broadcaster = kafkaadapter.NewBroadcaster(cfg, logger)
		publisher = broadcaster
		logger.Info("alert broadcast enabled", "topic", cfg.KafkaAlertTopic, "brokers", cfg.KafkaBrokers)
	}

	orch, err := fusion.NewOrchestrator(repo, invalidator, geocoder, cfg.Settings(), cfg.FetchLimit, logger, metrics)
	if err != nil {
		logger.Error("invalid fusion settings", "error", err)
		os.Exit(1)
	}
	runner := fusion.NewRunner(orch, publisher, logger, metrics)

	sched, err := fusion.NewScheduler(ctx, cfg.FusionSchedule, runner, logger)
	if err != nil {
		logger.Error("invalid fusion schedule", "schedule", cfg.FusionSchedule, "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, &readiness{db: repo, runner: runner}, httpadapter.API{
		Fusion:      runner,
		Alerts:      repo,
		Dashboard:   dashboard.NewService(repo, store, cfg.CacheTTL, logger, metrics),
		Invalidator: invalidator,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	sched.Start()
	logger.Info("fusion scheduler started", "schedule", cfg.FusionSchedule)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Wait for an in-flight cycle before closing the pool it writes through.
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("fusion cycle still running at shutdown deadline")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if broadcaster != nil {
		if err := broadcaster.Close(); err != nil {
			logger.Error("kafka broadcaster close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

type pinger interface {
	Ping(ctx context.Context) error
}

// readiness requires a reachable database and at least one completed cycle.
type readiness struct {
	db     pinger
	runner *fusion.Runner
}

func (r *readiness) CheckReadiness(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return err
	}
	return r.runner.CheckReadiness(ctx)
}
