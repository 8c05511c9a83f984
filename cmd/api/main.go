package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/cartd/api/routes"
	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/internal/cartstore"
	"github.com/angelmondragon/cartd/internal/catalog"
	"github.com/angelmondragon/cartd/internal/session"
	"github.com/angelmondragon/cartd/pkg/config"
	"github.com/angelmondragon/cartd/pkg/db"
	"github.com/angelmondragon/cartd/pkg/logger"
	"github.com/angelmondragon/cartd/pkg/metrics"
	"github.com/angelmondragon/cartd/pkg/migrate"
	"github.com/angelmondragon/cartd/pkg/promotion"
	"github.com/angelmondragon/cartd/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(registry)
	metricsListener := cart.MetricsListener(cartMetrics)

	sessions, err := session.NewStore(redisClient, cfg.Cart.SessionTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create session store", err)
		os.Exit(1)
	}

	var promotions cart.CouponPricer
	if cfg.Promotion.BaseURL != "" {
		client, err := promotion.NewClient(cfg.Promotion.BaseURL,
			promotion.WithAPIKey(cfg.Promotion.APIKey),
			promotion.WithTimeout(cfg.Promotion.Timeout),
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create promotion client", err)
			os.Exit(1)
		}
		promotions = client
	} else {
		logg.Warn(context.Background(), "promotion base url not set; coupons will be rejected")
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cart.NewItemRepository(dbClient.DB()), dbClient, catalogRepo, promotions, metricsListener)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	locker, err := cartstore.NewRedisLocker(redisClient, cfg.Cart.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart locker", err)
		os.Exit(1)
	}
	factory := cartstore.NewFactory(cfg.Cart, redisClient, dbClient.DB(), cartMetrics, metricsListener)
	managers := cartstore.NewManagers(factory, cartstore.NewReconciler(locker, cartMetrics, logg))

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"default_driver": cfg.Cart.DefaultStoreDriver,
		"authed_driver":  cfg.Cart.AuthedStoreDriver,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, sessions, managers, cartService, catalogRepo),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
