// Package testutil provides shared test utilities for the ultrasuite packages.
// These helpers reduce duplication across test files and keep database
// fixtures consistent.
package testutil

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/alexknuckles/ultrasuite/internal/datastore"
	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/logger"
)

// DefaultTestTimeout is the standard timeout for test operations.
const DefaultTestTimeout = 5 * time.Second

// Logger returns a logger that discards everything below error level.
func Logger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

// NewStore opens a migrated SQLite database in a temporary directory. The
// database is closed when the test ends.
func NewStore(t *testing.T) *repository.Store {
	t.Helper()

	m, err := datastore.NewSQLiteManager(datastore.Config{
		Path:   filepath.Join(t.TempDir(), "test.db"),
		Logger: Logger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Initialize(context.Background()))
	return m.Store()
}

// Dec parses a decimal literal and panics on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Time parses an RFC 3339 timestamp and fails the test on malformed input.
func Time(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

// Row builds a transaction row with price derived from total and quantity.
func Row(at time.Time, code, qty, total string) entities.TransactionRow {
	q, tot := Dec(qty), Dec(total)
	price := tot
	if !q.IsZero() {
		price = tot.Div(q)
	}
	return entities.TransactionRow{
		OccurredAt:  at,
		Code:        code,
		Description: code + " sale",
		Quantity:    q,
		Price:       price,
		Total:       tot,
	}
}

// InsertRows stores rows for a source and returns them with ids assigned.
func InsertRows(t *testing.T, store *repository.Store, source entities.Source, rows ...entities.TransactionRow) []entities.TransactionRow {
	t.Helper()
	require.NoError(t, store.Transactions.Insert(context.Background(), source, rows))
	for _, row := range rows {
		require.NotZero(t, row.ID)
	}
	return rows
}
