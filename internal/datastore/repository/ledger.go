package repository

import (
	"context"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
)

// LedgerRepository stores the append-only resolution ledger. Entries are
// never updated or deleted.
type LedgerRepository interface {
	// Append stores a new entry, assigning Ref and ResolvedAt when unset.
	Append(ctx context.Context, entry *entities.LedgerEntry) error
	// Latest returns the authoritative entry of a pair, or ErrLedgerEntryNotFound.
	Latest(ctx context.Context, key entities.PairKey) (*entities.LedgerEntry, error)
	// LatestForPairs returns the authoritative entry of each pair that has one.
	LatestForPairs(ctx context.Context, keys []entities.PairKey) (map[entities.PairKey]*entities.LedgerEntry, error)
	// LatestAll returns the authoritative entry of every pair, newest first.
	LatestAll(ctx context.Context) ([]entities.LedgerEntry, error)
	// History returns every entry of a pair, oldest first.
	History(ctx context.Context, key entities.PairKey) ([]entities.LedgerEntry, error)
	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)
}
