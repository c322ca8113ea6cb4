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

	"github.com/angelmondragon/catalog-backend/api/controllers"
	"github.com/angelmondragon/catalog-backend/api/routes"
	"github.com/angelmondragon/catalog-backend/internal/cache"
	"github.com/angelmondragon/catalog-backend/internal/media"
	productsvc "github.com/angelmondragon/catalog-backend/internal/products"
	"github.com/angelmondragon/catalog-backend/pkg/config"
	"github.com/angelmondragon/catalog-backend/pkg/db"
	"github.com/angelmondragon/catalog-backend/pkg/env"
	"github.com/angelmondragon/catalog-backend/pkg/instance"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/metrics"
	"github.com/angelmondragon/catalog-backend/pkg/migrate"
	"github.com/angelmondragon/catalog-backend/pkg/redis"
	"github.com/angelmondragon/catalog-backend/pkg/storage/driver"
)

const shutdownTimeout = 20 * time.Second

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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	store, err := driver.Open(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object store", err)
		os.Exit(1)
	}

	responseCache := cache.New(redisClient, cfg.Cache, logg, metrics.NewCacheMetrics(prometheus.DefaultRegisterer))

	writer, err := media.NewWriter(store)
	if err != nil {
		logg.Error(context.Background(), "failed to create media writer", err)
		os.Exit(1)
	}

	productService, err := productsvc.NewService(
		productsvc.NewRepository(dbClient.DB()),
		dbClient,
		writer,
		media.NewValidator(cfg.Media.MaxUploadBytes()),
		responseCache,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"storage":  cfg.Storage.Driver,
		"cache":    responseCache.Enabled(),
		"admin":    cfg.Admin.Enabled(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			Products:       productService,
			Images:         store,
			Cache:          responseCache,
			RateLimitStore: redisClient,
			HTTPMetrics:    metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
			Gatherer:       prometheus.DefaultGatherer,
			ReadinessChecks: []controllers.ReadinessCheck{
				{Name: "database", Ping: dbClient.Ping},
				{Name: "redis", Ping: redisClient.Ping},
				{Name: "storage", Ping: store.Ping},
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
		return
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
	}
	logg.Info(ctx, "api server stopped")
}
