package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/catalog-backend/internal/cache"
	"github.com/angelmondragon/catalog-backend/internal/cron"
	productsvc "github.com/angelmondragon/catalog-backend/internal/products"
	"github.com/angelmondragon/catalog-backend/pkg/config"
	"github.com/angelmondragon/catalog-backend/pkg/db"
	"github.com/angelmondragon/catalog-backend/pkg/instance"
	"github.com/angelmondragon/catalog-backend/pkg/logger"
	"github.com/angelmondragon/catalog-backend/pkg/metrics"
	"github.com/angelmondragon/catalog-backend/pkg/migrate"
	"github.com/angelmondragon/catalog-backend/pkg/redis"
	"github.com/angelmondragon/catalog-backend/pkg/storage"
	"github.com/angelmondragon/catalog-backend/pkg/storage/driver"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	reconciler, err := productsvc.NewReconciler(productsvc.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}
	invalidator := cache.New(redisClient, cfg.Cache, logg, nil)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, store, reconciler, invalidator, metricsCollector)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metricsCollector,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"dry_run":     cfg.Cron.DryRun,
	})

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func buildRegistry(
	cfg *config.Config,
	logg *logger.Logger,
	store storage.ObjectStore,
	reconciler *productsvc.Reconciler,
	invalidator cron.Invalidator,
	m *metrics.CronJobMetrics,
) (*cron.Registry, error) {
	orphans, err := cron.NewOrphanBlobSweepJob(cron.OrphanBlobSweepJobParams{
		Logger:      logg,
		Store:       store,
		Images:      reconciler,
		Metrics:     m,
		GracePeriod: cfg.Cron.OrphanGracePeriod,
		DryRun:      cfg.Cron.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("orphan blob sweep: %w", err)
	}
	dangling, err := cron.NewDanglingImageSweepJob(cron.DanglingImageSweepJobParams{
		Logger:      logg,
		Store:       store,
		Gallery:     reconciler,
		Invalidator: invalidator,
		Metrics:     m,
		DryRun:      cfg.Cron.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("dangling image sweep: %w", err)
	}
	audit, err := cron.NewPrimaryImageAuditJob(cron.PrimaryImageAuditJobParams{
		Logger:      logg,
		Products:    reconciler,
		Invalidator: invalidator,
		Metrics:     m,
		DryRun:      cfg.Cron.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("primary image audit: %w", err)
	}
	// dangling rows go first so the audit sees the repaired galleries
	return cron.NewRegistry(dangling, audit, orphans)
}
