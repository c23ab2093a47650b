package main

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/agrolease/agrolease-backend/api/controllers"
	"github.com/agrolease/agrolease-backend/internal/bootstrap"
	"github.com/agrolease/agrolease-backend/internal/gateway"
	"github.com/agrolease/agrolease-backend/internal/gateway/memstore"
	"github.com/agrolease/agrolease-backend/internal/gateway/mongostore"
	"github.com/agrolease/agrolease-backend/internal/gateway/sqlstore"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/db"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/mongo"
	"github.com/agrolease/agrolease-backend/pkg/storage/gcs"
)

const blobRoute = "/api/v1/blobs/"

// backends holds the adapters chosen by the store drivers plus whatever
// needs closing on shutdown.
type backends struct {
	docs   gateway.Documents
	blobs  gateway.Blobs
	reader gateway.BlobReader
	sql    *db.Client
	ready  map[string]controllers.Pinger
	close  []func(context.Context) error
}

// shutdown closes adapters in reverse open order.
func (b *backends) shutdown(ctx context.Context) error {
	var errs error
	for i := len(b.close) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, b.close[i](ctx))
	}
	return errs
}

func openBackends(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*backends, error) {
	b := &backends{ready: map[string]controllers.Pinger{}}
	var mem *memstore.Store
	var mongoClient *mongo.Client

	if cfg.Store.NeedsMongo() {
		client, err := mongo.New(ctx, cfg.Mongo, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap mongo: %w", err)
		}
		mongoClient = client
		b.close = append(b.close, client.Close)
		b.ready["mongo"] = client
	}

	switch cfg.Store.DocumentDriver {
	case config.DocumentDriverPostgres, config.DocumentDriverSQLite:
		client, err := bootstrap.OpenSQL(ctx, cfg, logg)
		if err != nil {
			_ = b.shutdown(ctx)
			return nil, err
		}
		b.sql = client
		b.close = append(b.close, func(context.Context) error { return client.Close() })
		store := sqlstore.New(client.DB())
		if client.Driver() == db.DriverSQLite && cfg.FeatureFlags.AutoMigrate {
			if err := store.AutoMigrate(ctx); err != nil {
				_ = b.shutdown(ctx)
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
		}
		b.docs = store
		b.ready["database"] = store
	case config.DocumentDriverMongo:
		store := mongostore.New(mongoClient.Database())
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = b.shutdown(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		b.docs = store
	default:
		mem = memstore.New(memstore.WithBlobURLPrefix(blobRoute))
		b.docs = mem
		logg.Warn(ctx, "using in-memory document store; data is lost on restart")
	}

	switch cfg.Store.BlobDriver {
	case config.BlobDriverGCS:
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			_ = b.shutdown(ctx)
			return nil, fmt.Errorf("bootstrap gcs: %w", err)
		}
		b.blobs = client
		b.ready["gcs"] = client
	case config.BlobDriverGridFS:
		blobs := mongostore.NewBlobs(mongoClient.Database(), cfg.Mongo.BlobBucket, blobRoute)
		b.blobs = blobs
		b.reader = blobs
	default:
		if mem == nil {
			mem = memstore.New(memstore.WithBlobURLPrefix(blobRoute))
		}
		b.blobs = mem
		b.reader = mem
	}
	if mem != nil {
		b.ready["memory"] = mem
	}
	return b, nil
}
