// Package bootstrap holds the start-up steps every command shares: env and
// config loading, the service logger, the SQL connection and shutdown.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/db"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/migrate"
)

// Load reads an optional .env file and the AGROLEASE_ environment, then
// builds the logger for serviceKind at the configured level. The returned
// logger is usable even when err is non-nil.
func Load(serviceKind string) (*config.Config, *logger.Logger, error) {
	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), "no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, logg, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceKind

	return cfg, logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	}), nil
}

// SQLConfig is cfg.DB with the driver switched to SQLite when either the
// document driver or the feature flag asks for it.
func SQLConfig(cfg *config.Config) config.DBConfig {
	dbCfg := cfg.DB
	if cfg.Store.DocumentDriver == config.DocumentDriverSQLite || cfg.FeatureFlags.UseSQLite {
		dbCfg.Driver = db.DriverSQLite
	}
	return dbCfg
}

// OpenSQL connects to the SQL store and, on Postgres in dev, applies pending
// migrations. SQLite schemas are the caller's concern.
func OpenSQL(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
	client, err := db.New(ctx, SQLConfig(cfg), logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	if client.Driver() == db.DriverPostgres {
		if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("dev migrations: %w", err)
		}
	}
	return client, nil
}

// SignalContext ends on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Close runs closeFn and logs a failure instead of returning it; for defers.
func Close(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}

// Fatal logs err and exits with status 1.
func Fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
