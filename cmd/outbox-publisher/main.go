package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrolease/agrolease-backend/internal/bootstrap"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/metrics"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
	"github.com/agrolease/agrolease-backend/pkg/outbox/registry"
	"github.com/agrolease/agrolease-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	cfg, logg, err := bootstrap.Load(serviceKind)
	if err != nil {
		bootstrap.Fatal(logg, "failed to load config", err)
	}
	if !cfg.Store.NeedsSQL() {
		logg.Warn(context.Background(), "outbox publisher needs a SQL document store; nothing to publish")
		return
	}

	ctx, stop := bootstrap.SignalContext()
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceKind})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		stop()
		bootstrap.Fatal(logg, "outbox publisher stopped unexpectedly", err)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := bootstrap.OpenSQL(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer bootstrap.Close(logg, "database", dbClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer bootstrap.Close(logg, "pubsub client", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewJobMetrics(reg),
	})
	if err != nil {
		return err
	}

	if port := os.Getenv("PORT"); port != "" {
		srv := serveMetrics(ctx, logg, ":"+port, reg)
		defer bootstrap.Close(logg, "metrics server", srv.Close)
	}

	logg.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}

// serveMetrics exposes the job counters when the platform assigns a port.
func serveMetrics(ctx context.Context, logg *logger.Logger, addr string, reg *prometheus.Registry) *http.Server {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	return srv
}
