package repository

import (
	"context"
	"time"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
)

// TransactionFilter narrows a transaction listing. Bounds are inclusive;
// nil means unbounded.
type TransactionFilter struct {
	Start *time.Time
	End   *time.Time
}

// TransactionRepository stores the ingested rows of both sources.
type TransactionRepository interface {
	// Insert appends rows to a source table and fills in their ids.
	Insert(ctx context.Context, source entities.Source, rows []entities.TransactionRow) error
	// Replace deletes every row of a source and inserts rows in their place.
	Replace(ctx context.Context, source entities.Source, rows []entities.TransactionRow) error
	// Get returns one row, or ErrTransactionNotFound.
	Get(ctx context.Context, source entities.Source, id uint) (*entities.TransactionRow, error)
	// Delete removes one row and reports whether it existed.
	Delete(ctx context.Context, source entities.Source, id uint) (bool, error)
	// List returns the rows of a source ordered by time then id.
	List(ctx context.Context, source entities.Source, filter TransactionFilter) ([]entities.TransactionRow, error)
	// Count returns the number of rows of a source.
	Count(ctx context.Context, source entities.Source) (int64, error)
}
