package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolease/agrolease-backend/pkg/config"
	"github.com/agrolease/agrolease-backend/pkg/db"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

func TestSQLConfigSwitchesToSQLite(t *testing.T) {
	cfg := &config.Config{DB: config.DBConfig{DSN: "postgres://x", Driver: db.DriverPostgres}}
	assert.Equal(t, db.DriverPostgres, SQLConfig(cfg).Driver)

	cfg.Store.DocumentDriver = config.DocumentDriverSQLite
	assert.Equal(t, db.DriverSQLite, SQLConfig(cfg).Driver)

	cfg.Store.DocumentDriver = config.DocumentDriverPostgres
	cfg.FeatureFlags.UseSQLite = true
	assert.Equal(t, db.DriverSQLite, SQLConfig(cfg).Driver)
	assert.Equal(t, "postgres://x", SQLConfig(cfg).DSN)
}

func TestOpenSQLWithSQLite(t *testing.T) {
	cfg := &config.Config{
		DB:    config.DBConfig{DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())},
		Store: config.StoreConfig{DocumentDriver: config.DocumentDriverSQLite},
	}
	client, err := OpenSQL(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, db.DriverSQLite, client.Driver())
}

func TestCloseSwallowsErrors(t *testing.T) {
	called := false
	Close(logger.Nop(), "thing", func() error {
		called = true
		return errors.New("already closed")
	})
	assert.True(t, called)
}
