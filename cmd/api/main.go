package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/agrolease/agrolease-backend/api/routes"
	"github.com/agrolease/agrolease-backend/internal/agreements"
	"github.com/agrolease/agrolease-backend/internal/auth"
	"github.com/agrolease/agrolease-backend/internal/bootstrap"
	"github.com/agrolease/agrolease-backend/internal/leases"
	"github.com/agrolease/agrolease-backend/internal/listings"
	"github.com/agrolease/agrolease-backend/internal/matching"
	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/internal/users"
	authsession "github.com/agrolease/agrolease-backend/pkg/auth/session"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/metrics"
	"github.com/agrolease/agrolease-backend/pkg/outbox"
	"github.com/agrolease/agrolease-backend/pkg/redis"
	"github.com/agrolease/agrolease-backend/pkg/security"
)

func main() {
	cfg, logg, err := bootstrap.Load("api")
	if err != nil {
		bootstrap.Fatal(logg, "failed to load config", err)
	}

	ctx, stop := bootstrap.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		stop()
		bootstrap.Fatal(logg, "api server stopped unexpectedly", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	stores, err := openBackends(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.shutdown(context.Background()); err != nil {
			logg.Error(context.Background(), "error closing stores", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer bootstrap.Close(logg, "redis", redisClient.Close)
	stores.ready["redis"] = redisClient

	sessionManager, err := authsession.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	var events outbox.Emitter = outbox.NewLogEmitter(logg)
	if stores.sql != nil && cfg.FeatureFlags.Outbox {
		events = outbox.NewService(outbox.NewRepository(stores.sql.DB()), logg)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	profiles := users.NewRepository(stores.docs)
	resolver, err := session.NewController(profiles, logg)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Credentials: auth.NewCredentialRepository(stores.docs),
		Profiles:    profiles,
		Sessions:    sessionManager,
		Hasher:      security.NewHasher(cfg.Password),
		Publisher:   resolver,
		Events:      events,
		JWTConfig:   cfg.JWT,
		Logger:      logg,
	})
	if err != nil {
		return err
	}

	leaseRepo := leases.NewRepository(stores.docs)
	landRepo := listings.NewRepository(stores.docs)
	listingService, err := listings.NewService(listings.ServiceParams{
		Store:    landRepo,
		Blobs:    stores.blobs,
		Profiles: profiles,
		Requests: leaseRepo,
		Events:   events,
		Config:   cfg.Listings,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	leaseService, err := leases.NewService(leases.ServiceParams{
		Store:    leaseRepo,
		Listings: landRepo,
		Profiles: profiles,
		Events:   events,
		Metrics:  metrics.NewLeaseMetrics(reg),
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	agreementService, err := agreements.NewService(leaseService, listingService, profiles, logg)
	if err != nil {
		return err
	}
	userService, err := users.NewService(profiles)
	if err != nil {
		return err
	}
	matchService, err := matching.NewService(listingService, userService)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:          cfg,
		Logger:          logg,
		Redis:           redisClient,
		Sessions:        sessionManager,
		Resolver:        resolver,
		Ready:           stores.ready,
		Blobs:           stores.reader,
		Auth:            authService,
		Listings:        listingService,
		Leases:          leaseService,
		Agreements:      agreementService,
		Users:           userService,
		Recommendations: matchService,
		HTTPMetrics:     metrics.NewHTTPMetrics(reg),
		Gatherer:        reg,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"instance":  id,
		"documents": cfg.Store.DocumentDriver,
		"blobs":     cfg.Store.BlobDriver,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logg.Info(logCtx, "api server stopped")
	return nil
}
