package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agrolease/agrolease-backend/internal/bootstrap"
	"github.com/agrolease/agrolease-backend/internal/gateway/sqlstore"
	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/db"
	"github.com/agrolease/agrolease-backend/pkg/logger"
	"github.com/agrolease/agrolease-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory; the default uses the compiled-in set")
	name := flag.String("name", "", "description for -cmd=create")
	version := flag.String("version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	cfg, logg, err := bootstrap.Load("migrate")
	mustWork(context.Background(), logg, "config", err)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	switch *cmd {
	case "create":
		path, err := migrate.Create(*dir, *name, time.Now())
		mustWork(ctx, logg, "create migration", err)
		fmt.Println("created", path)
		return
	case "validate":
		source, err := migrate.Source(*dir)
		mustWork(ctx, logg, "migration source", err)
		mustWork(ctx, logg, "validate migrations", migrate.Validate(source))
		fmt.Println("migrations valid")
		return
	}

	if !cfg.Store.NeedsSQL() {
		fmt.Fprintf(os.Stderr, "%s=%s has no SQL schema to migrate\n", config.EnvDocumentDriver, cfg.Store.DocumentDriver)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, bootstrap.SQLConfig(cfg), logg)
	mustWork(ctx, logg, "database", err)
	defer dbClient.Close()

	// goose files are Postgres DDL; SQLite gets its tables from the models.
	if dbClient.Driver() == db.DriverSQLite {
		if *cmd != "up" {
			fmt.Fprintln(os.Stderr, "sqlite only supports -cmd=up")
			os.Exit(1)
		}
		mustWork(ctx, logg, "sqlite auto migrate", sqlstore.New(dbClient.DB()).AutoMigrate(ctx))
		fmt.Println("sqlite schema migrated")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	mustWork(ctx, logg, "sql handle", err)
	source, err := migrate.Source(*dir)
	mustWork(ctx, logg, "migration source", err)
	runner, err := migrate.NewRunner(sqlDB, source, logg)
	mustWork(ctx, logg, "goose provider", err)

	switch *cmd {
	case "up":
		mustWork(ctx, logg, "goose up", runner.Up(ctx))
	case "down":
		mustWork(ctx, logg, "goose down", runner.Down(ctx))
	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version")
			os.Exit(1)
		}
		mustWork(ctx, logg, "goose version", runner.To(ctx, *version))
	case "status":
		statuses, err := runner.Status(ctx)
		mustWork(ctx, logg, "goose status", err)
		for _, st := range statuses {
			applied := "pending"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-14d %-10s %s\n", st.Source.Version, applied, filepath.Base(st.Source.Path))
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd:", *cmd)
		os.Exit(1)
	}
}

func mustWork(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
