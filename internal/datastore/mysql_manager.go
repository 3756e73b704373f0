package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/logger"
)

// MySQLConfig holds MySQL-specific configuration.
type MySQLConfig struct {
	Host               string
	Port               string
	Username           string
	Password           string
	Database           string
	SlowQueryThreshold time.Duration
	Logger             logger.Logger
}

// DSN returns the go-sql-driver connection string.
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// MySQLManager handles a shared MySQL database.
type MySQLManager struct {
	db       *gorm.DB
	store    *repository.Store
	location string
	log      logger.Logger
}

// NewMySQLManager opens a MySQL database and configures the connection pool.
func NewMySQLManager(cfg *MySQLConfig) (*MySQLManager, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Global().Module("datastore")
	}

	location := fmt.Sprintf("%s:%s/%s", cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, cfg.SlowQueryThreshold),
	})
	if err != nil {
		return nil, dbError(err, "open_mysql", errors.PriorityCritical, "location", location)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(err, "get_sql_db", errors.PriorityCritical)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{
		db:       db,
		store:    repository.NewStore(db),
		location: location,
		log:      log,
	}, nil
}

// Initialize creates the schema and applies data fixups.
func (m *MySQLManager) Initialize(ctx context.Context) error {
	return initializeSchema(ctx, m.db, m.store, m.log)
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Store returns the repositories bound to the database.
func (m *MySQLManager) Store() *repository.Store {
	return m.store
}

// Path returns the database location (host:port/database).
func (m *MySQLManager) Path() string {
	return m.location
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return dbError(err, "close", "")
	}
	return sqlDB.Close()
}

// IsMySQL returns true for MySQL manager.
func (m *MySQLManager) IsMySQL() bool {
	return true
}
