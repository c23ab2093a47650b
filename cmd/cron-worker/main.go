package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agrolease/agrolease-backend/internal/bootstrap"
	"github.com/agrolease/agrolease-backend/internal/cron"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/metrics"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
	"github.com/agrolease/agrolease-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	cfg, logg, err := bootstrap.Load(serviceKind)
	if err != nil {
		bootstrap.Fatal(logg, "failed to load config", err)
	}
	if !cfg.Store.NeedsSQL() {
		logg.Warn(context.Background(), "housekeeping only prunes the SQL outbox; nothing to do")
		return
	}

	ctx, stop := bootstrap.SignalContext()
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceKind})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		stop()
		bootstrap.Fatal(logg, "cron worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := bootstrap.OpenSQL(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer bootstrap.Close(logg, "database", dbClient.Close)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer bootstrap.Close(logg, "redis", redisClient.Close)

	// The lock outlives a normal cycle but frees up before the next tick.
	interval := time.Duration(cfg.Housekeeping.IntervalMinutes) * time.Minute
	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), interval-time.Minute)
	if err != nil {
		return err
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:          logg,
		DB:              dbClient,
		Outbox:          outbox.NewRepository(dbClient.DB()),
		DLQ:             outbox.NewDLQRepository(dbClient.DB()),
		OutboxRetention: days(cfg.Housekeeping.OutboxRetentionDays),
		DLQRetention:    days(cfg.Housekeeping.DLQRetentionDays),
	})
	if err != nil {
		return err
	}
	jobs, err := cron.NewRegistry(retention)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: interval,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

// lockName scopes the lock by environment so staging and production can
// share one Redis.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return serviceKind + ":" + env
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
