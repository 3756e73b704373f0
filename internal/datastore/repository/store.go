package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/alexknuckles/ultrasuite/internal/errors"
)

// Store bundles every repository over one *gorm.DB.
type Store struct {
	db *gorm.DB

	Aliases      AliasRepository
	Transactions TransactionRepository
	Ledger       LedgerRepository
	Settings     SettingsRepository
	SourceLoads  SourceLoadRepository
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Aliases:      NewAliasRepository(db),
		Transactions: NewTransactionRepository(db),
		Ledger:       NewLedgerRepository(db),
		Settings:     NewSettingsRepository(db),
		SourceLoads:  NewSourceLoadRepository(db),
	}
}

// DB returns the underlying database handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn against a Store bound to a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
// Errors returned by fn are passed through unchanged.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
	if err == nil {
		return nil
	}

	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		return err
	}
	return dbError(err, "transaction")
}
