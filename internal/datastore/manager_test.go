package datastore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexknuckles/ultrasuite/internal/conf"
	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/logger"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func TestSQLiteManagerLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "data", "ultrasuite.db")
	m, err := NewSQLiteManager(Config{Path: path, Logger: quietLogger()})
	require.NoError(t, err)

	require.NoError(t, m.Initialize(ctx))
	// idempotent
	require.NoError(t, m.Initialize(ctx))

	assert.Equal(t, path, m.Path())
	assert.False(t, m.IsMySQL())
	assert.FileExists(t, path)

	for _, table := range []string{"sku_aliases", "shopify_transactions", "qbo_transactions", "resolution_ledger", "settings", "source_loads"} {
		assert.True(t, m.DB().Migrator().HasTable(table), table)
	}

	require.NoError(t, m.Delete())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestInitializeMigratesLegacyCategory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, err := NewSQLiteManager(Config{Path: filepath.Join(t.TempDir(), "legacy.db"), Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Initialize(ctx))

	_, err = m.Store().Aliases.InsertIfAbsent(ctx, []entities.AliasEntry{
		{Alias: "pump", CanonicalID: "pump", Category: entities.CategoryLegacyMaintenance, LastChanged: time.Now().UTC()},
		{Alias: "pump-kit", CanonicalID: "pump", Category: entities.CategoryLegacyMaintenance, LastChanged: time.Now().UTC()},
	})
	require.NoError(t, err)

	require.NoError(t, m.Initialize(ctx))

	group, err := m.Store().Aliases.GetGroup(ctx, "pump")
	require.NoError(t, err)
	require.Len(t, group, 2)
	for _, row := range group {
		assert.Equal(t, entities.CategoryParts, row.Category)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		settings := &conf.DatabaseSettings{Type: conf.DatabaseSQLite}
		settings.SQLite.Path = filepath.Join(t.TempDir(), "open.db")

		m, err := Open(ctx, settings, quietLogger())
		require.NoError(t, err)
		t.Cleanup(func() { _ = m.Close() })
		assert.NotNil(t, m.Store())
	})

	t.Run("unsupported type", func(t *testing.T) {
		t.Parallel()
		_, err := Open(ctx, &conf.DatabaseSettings{Type: "postgres"}, quietLogger())
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})

	t.Run("empty sqlite path", func(t *testing.T) {
		t.Parallel()
		_, err := NewSQLiteManager(Config{})
		require.Error(t, err)
	})
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	cfg := &MySQLConfig{Host: "db", Port: "3306", Username: "app", Password: "secret", Database: "ultrasuite"}
	assert.Equal(t, "app:secret@tcp(db:3306)/ultrasuite?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())
}
