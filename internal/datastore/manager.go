// Package datastore opens and migrates the database behind the reconciliation engine.
package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/alexknuckles/ultrasuite/internal/conf"
	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/logger"
)

// Manager defines the interface for database lifecycle operations.
type Manager interface {
	// Initialize creates or migrates the schema and applies data fixups.
	Initialize(ctx context.Context) error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Store returns the repositories bound to the database.
	Store() *repository.Store
	// Path returns the database location (file path for SQLite, host:port/db for MySQL).
	Path() string
	// Close closes the database connection.
	Close() error
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// Config holds database configuration for the SQLite manager.
type Config struct {
	// Path is the database file path.
	Path string
	// SlowQueryThreshold logs slower statements at warn level. Zero disables.
	SlowQueryThreshold time.Duration
	// Logger receives gorm output. Nil uses the global datastore logger.
	Logger logger.Logger
}

// models lists every entity migrated at Initialize.
func models() []any {
	return []any{
		&entities.AliasEntry{},
		&entities.SourceATransaction{},
		&entities.SourceBTransaction{},
		&entities.LedgerEntry{},
		&entities.Setting{},
		&entities.SourceLoad{},
	}
}

// SQLiteManager handles the embedded SQLite database.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
	store  *repository.Store
	log    logger.Logger
}

// NewSQLiteManager opens (creating if needed) the SQLite database at cfg.Path.
func NewSQLiteManager(cfg Config) (*SQLiteManager, error) {
	if cfg.Path == "" {
		return nil, configError("sqlite database path is empty", "database.sqlite.path", cfg.Path)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Global().Module("datastore")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, dbError(err, "create_data_dir", errors.PriorityCritical, "path", dir)
		}
	}

	// WAL lets readers proceed while the single writer holds the lock.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, cfg.SlowQueryThreshold),
	})
	if err != nil {
		return nil, dbError(err, "open_sqlite", errors.PriorityCritical, "path", cfg.Path)
	}

	return &SQLiteManager{
		db:     db,
		dbPath: cfg.Path,
		store:  repository.NewStore(db),
		log:    log,
	}, nil
}

// Initialize creates the schema and applies data fixups.
func (m *SQLiteManager) Initialize(ctx context.Context) error {
	return initializeSchema(ctx, m.db, m.store, m.log)
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Store returns the repositories bound to the database.
func (m *SQLiteManager) Store() *repository.Store {
	return m.store
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return dbError(err, "close", "")
	}
	return sqlDB.Close()
}

// Delete closes and removes the database file with its WAL and SHM companions.
func (m *SQLiteManager) Delete() error {
	if err := m.Close(); err != nil {
		return fmt.Errorf("failed to close database before deletion: %w", err)
	}

	if err := os.Remove(m.dbPath); err != nil && !os.IsNotExist(err) {
		return dbError(err, "delete_database", errors.PriorityHigh, "path", m.dbPath)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(m.dbPath + suffix)
	}
	return nil
}

// IsMySQL returns false for SQLite manager.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}

// initializeSchema migrates every entity and rewrites legacy category values.
func initializeSchema(ctx context.Context, db *gorm.DB, store *repository.Store, log logger.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(models()...); err != nil {
		return dbError(err, "migrate_schema", errors.PriorityCritical)
	}

	renamed, err := store.Aliases.RenameCategory(ctx, entities.CategoryLegacyMaintenance, entities.CategoryParts)
	if err != nil {
		return err
	}
	if renamed > 0 {
		log.Info("migrated legacy category",
			logger.String("from", string(entities.CategoryLegacyMaintenance)),
			logger.String("to", string(entities.CategoryParts)),
			logger.Int64("rows", renamed))
	}

	return nil
}

// Open creates the manager selected by settings and initializes the schema.
func Open(ctx context.Context, settings *conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	var (
		manager Manager
		err     error
	)

	switch settings.Type {
	case conf.DatabaseSQLite:
		manager, err = NewSQLiteManager(Config{
			Path:               settings.SQLite.Path,
			SlowQueryThreshold: settings.SlowQueryThreshold,
			Logger:             log,
		})
	case conf.DatabaseMySQL:
		manager, err = NewMySQLManager(&MySQLConfig{
			Host:               settings.MySQL.Host,
			Port:               settings.MySQL.Port,
			Username:           settings.MySQL.Username,
			Password:           settings.MySQL.Password,
			Database:           settings.MySQL.Database,
			SlowQueryThreshold: settings.SlowQueryThreshold,
			Logger:             log,
		})
	default:
		return nil, configError("unsupported database type", "database.type", settings.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := manager.Initialize(ctx); err != nil {
		_ = manager.Close()
		return nil, err
	}
	return manager, nil
}
