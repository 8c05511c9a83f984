package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/internal/cartstore"
	"github.com/angelmondragon/cartd/internal/cron"
	"github.com/angelmondragon/cartd/pkg/config"
	"github.com/angelmondragon/cartd/pkg/db"
	"github.com/angelmondragon/cartd/pkg/logger"
	"github.com/angelmondragon/cartd/pkg/metrics"
	"github.com/angelmondragon/cartd/pkg/migrate"
	"github.com/angelmondragon/cartd/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cartstore.NewRedisLock(redisClient, redisClient.LockKey("janitor:"+envName(cfg.App.Env)), cfg.Janitor.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create janitor lock", err)
		os.Exit(1)
	}

	purgeJob, err := cron.NewSnapshotPurgeJob(logg, func(ctx context.Context, now time.Time) (int64, error) {
		return cartstore.PurgeExpired(ctx, dbClient.DB(), now)
	}, jobMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot purge job", err)
		os.Exit(1)
	}
	rowsJob, err := cron.NewAbandonedRowsJob(logg, cart.NewItemRepository(dbClient.DB()), cfg.Janitor.GuestRetention(), jobMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create abandoned rows job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(purgeJob, rowsJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register janitor jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Janitor.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create janitor service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Janitor.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func envName(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
