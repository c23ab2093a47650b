package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agrolease/agrolease-backend/internal/activity"
	"github.com/agrolease/agrolease-backend/internal/bootstrap"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/metrics"
	"github.com/agrolease/agrolease-backend/pkg/outbox/idempotency"
	"github.com/agrolease/agrolease-backend/pkg/outbox/registry"
	"github.com/agrolease/agrolease-backend/pkg/pubsub"
	"github.com/agrolease/agrolease-backend/pkg/redis"
)

const (
	serviceKind = "worker"
	// Pub/Sub keeps unacked messages for seven days; a claim must outlive
	// any redelivery.
	processedWindow = 7 * 24 * time.Hour
)

func main() {
	cfg, logg, err := bootstrap.Load(serviceKind)
	if err != nil {
		bootstrap.Fatal(logg, "failed to load config", err)
	}

	ctx, stop := bootstrap.SignalContext()
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  serviceKind,
		"subscription": cfg.PubSub.LeaseSubscription,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		stop()
		bootstrap.Fatal(logg, "worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer bootstrap.Close(logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg, pubsub.WithSubscriptionCheck())
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer bootstrap.Close(logg, "pubsub client", pubsubClient.Close)

	processed, err := idempotency.NewManager(redisClient, processedWindow)
	if err != nil {
		return err
	}
	consumer, err := activity.NewConsumer(
		pubsubClient.LeaseSubscription(),
		processed,
		registry.NewLeaseDecoderRegistry(),
		metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Logger:   logg,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
	})
	if err != nil {
		return err
	}
	logg.Info(ctx, "starting worker")
	return service.Run(ctx)
}
