package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
)

// ledgerRepository implements LedgerRepository.
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(tableLedger)
}

// newerThan orders entries by resolved_at, then id.
func newerThan(a, b *entities.LedgerEntry) bool {
	if !a.ResolvedAt.Equal(b.ResolvedAt) {
		return a.ResolvedAt.After(b.ResolvedAt)
	}
	return a.ID > b.ID
}

func (r *ledgerRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	if entry.ID != 0 {
		return validationError(fmt.Errorf("ledger entries are append-only"), "id", entry.ID)
	}
	if entry.Ref == "" {
		entry.Ref = uuid.NewString()
	}
	if entry.ResolvedAt.IsZero() {
		entry.ResolvedAt = time.Now()
	}
	entry.ResolvedAt = entry.ResolvedAt.UTC()
	entry.TimestampA = entry.TimestampA.UTC()
	entry.TimestampB = entry.TimestampB.UTC()

	if err := r.table(ctx).Create(entry).Error; err != nil {
		return dbError(err, "append_ledger_entry",
			"source_a_row_id", entry.SourceARowID,
			"source_b_row_id", entry.SourceBRowID,
			"action", string(entry.Action))
	}
	return nil
}

func (r *ledgerRepository) Latest(ctx context.Context, key entities.PairKey) (*entities.LedgerEntry, error) {
	var entry entities.LedgerEntry
	err := r.table(ctx).
		Where("source_a_row_id = ? AND source_b_row_id = ?", key.SourceARowID, key.SourceBRowID).
		Order("resolved_at DESC, id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrLedgerEntryNotFound, key)
	}
	if err != nil {
		return nil, dbError(err, "latest_ledger_entry", "pair", key)
	}
	return &entry, nil
}

// LatestForPairs loads entries in chunks of source A ids to stay under
// SQLite's bound parameter limit, then keeps the newest entry per pair.
func (r *ledgerRepository) LatestForPairs(ctx context.Context, keys []entities.PairKey) (map[entities.PairKey]*entities.LedgerEntry, error) {
	result := make(map[entities.PairKey]*entities.LedgerEntry)
	if len(keys) == 0 {
		return result, nil
	}

	wanted := make(map[entities.PairKey]struct{}, len(keys))
	aIDs := make([]uint, 0, len(keys))
	for _, key := range keys {
		if _, seen := wanted[key]; seen {
			continue
		}
		wanted[key] = struct{}{}
		aIDs = append(aIDs, key.SourceARowID)
	}
	slices.Sort(aIDs)
	aIDs = slices.Compact(aIDs)

	for start := 0; start < len(aIDs); start += pairChunkSize {
		end := min(start+pairChunkSize, len(aIDs))

		var rows []entities.LedgerEntry
		if err := r.table(ctx).Where("source_a_row_id IN ?", aIDs[start:end]).Find(&rows).Error; err != nil {
			return nil, dbError(err, "latest_ledger_entries", "pairs", len(keys))
		}

		for i := range rows {
			key := rows[i].Key()
			if _, ok := wanted[key]; !ok {
				continue
			}
			if current, ok := result[key]; !ok || newerThan(&rows[i], current) {
				result[key] = &rows[i]
			}
		}
	}

	return result, nil
}

func (r *ledgerRepository) LatestAll(ctx context.Context) ([]entities.LedgerEntry, error) {
	var rows []entities.LedgerEntry
	if err := r.table(ctx).Order("resolved_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, dbError(err, "list_ledger_entries")
	}

	seen := make(map[entities.PairKey]struct{}, len(rows))
	latest := make([]entities.LedgerEntry, 0, len(rows))
	for i := range rows {
		key := rows[i].Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		latest = append(latest, rows[i])
	}
	return latest, nil
}

func (r *ledgerRepository) History(ctx context.Context, key entities.PairKey) ([]entities.LedgerEntry, error) {
	var rows []entities.LedgerEntry
	err := r.table(ctx).
		Where("source_a_row_id = ? AND source_b_row_id = ?", key.SourceARowID, key.SourceBRowID).
		Order("resolved_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, "ledger_history", "pair", key)
	}
	return rows, nil
}

func (r *ledgerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.table(ctx).Count(&count).Error; err != nil {
		return 0, dbError(err, "count_ledger_entries")
	}
	return count, nil
}
