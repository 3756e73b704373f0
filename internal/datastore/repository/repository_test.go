package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/errors"
)

// setupTestStore creates a migrated SQLite store in a temp directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entities.AliasEntry{},
		&entities.SourceATransaction{},
		&entities.SourceBTransaction{},
		&entities.LedgerEntry{},
		&entities.Setting{},
		&entities.SourceLoad{},
	))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return NewStore(db)
}

func alias(a, canonical string, category entities.Category) entities.AliasEntry {
	return entities.AliasEntry{Alias: a, CanonicalID: canonical, Category: category, LastChanged: time.Now().UTC()}
}

func TestAliasRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("insert if absent is idempotent", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		n, err := store.Aliases.InsertIfAbsent(ctx, []entities.AliasEntry{
			alias("a", "a", entities.CategoryUnmapped),
			alias("b", "b", entities.CategoryUnmapped),
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		n, err = store.Aliases.InsertIfAbsent(ctx, []entities.AliasEntry{
			alias("a", "a", entities.CategoryMachine),
			alias("c", "c", entities.CategoryUnmapped),
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		got, err := store.Aliases.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, entities.CategoryUnmapped, got.Category, "existing rows are never overwritten")
	})

	t.Run("get missing alias", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		_, err := store.Aliases.Get(ctx, "nope")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.ErrorIs(t, err, ErrAliasNotFound)
	})

	t.Run("reassign and category counts", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		require.NoError(t, store.Aliases.Upsert(ctx, []entities.AliasEntry{
			alias("x", "x", entities.CategoryDetergent),
			alias("x-1", "x", entities.CategoryDetergent),
			alias("y", "y", entities.CategoryFilters),
			alias("z", "z", entities.CategoryFilters),
		}))

		moved, err := store.Aliases.Reassign(ctx, "x", "y", entities.CategoryFilters, time.Now())
		require.NoError(t, err)
		assert.EqualValues(t, 2, moved)

		group, err := store.Aliases.GetGroup(ctx, "y")
		require.NoError(t, err)
		require.Len(t, group, 3)
		for _, row := range group {
			assert.Equal(t, entities.CategoryFilters, row.Category)
		}

		counts, err := store.Aliases.CategoryCounts(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, counts[entities.CategoryFilters])
		assert.Zero(t, counts[entities.CategoryDetergent])

		ids, err := store.Aliases.CanonicalIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"y", "z"}, ids)
	})

	t.Run("get many spans chunks", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		var entries []entities.AliasEntry
		var codes []string
		for i := range pairChunkSize + 10 {
			code := fmt.Sprintf("code-%03d", i)
			codes = append(codes, code)
			entries = append(entries, alias(code, code, entities.CategoryUnmapped))
		}
		_, err := store.Aliases.InsertIfAbsent(ctx, entries)
		require.NoError(t, err)

		got, err := store.Aliases.GetMany(ctx, append(codes, "missing"))
		require.NoError(t, err)
		assert.Len(t, got, pairChunkSize+10)
	})
}

func TestTransactionRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := setupTestStore(t)

	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rows := []entities.TransactionRow{
		{OccurredAt: day, Code: "det-a", Quantity: decimal.NewFromInt(2), Price: decimal.RequireFromString("12.50"), Total: decimal.RequireFromString("25.00")},
		{OccurredAt: day.Add(24 * time.Hour), Code: "det-b", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(5), Total: decimal.NewFromInt(5)},
	}
	require.NoError(t, store.Transactions.Insert(ctx, entities.SourceA, rows))
	require.NotZero(t, rows[0].ID)
	require.NotZero(t, rows[1].ID)

	got, err := store.Transactions.Get(ctx, entities.SourceA, rows[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(25)))
	assert.True(t, got.OccurredAt.Equal(day))

	end := day.Add(time.Hour)
	listed, err := store.Transactions.List(ctx, entities.SourceA, TransactionFilter{Start: &day, End: &end})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "det-a", listed[0].Code)

	other, err := store.Transactions.List(ctx, entities.SourceB, TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)

	deleted, err := store.Transactions.Delete(ctx, entities.SourceA, rows[1].ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// ids are not reused after the highest row is deleted
	next := []entities.TransactionRow{{OccurredAt: day, Code: "det-c", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(1), Total: decimal.NewFromInt(1)}}
	require.NoError(t, store.Transactions.Insert(ctx, entities.SourceA, next))
	assert.Greater(t, next[0].ID, rows[1].ID)

	_, err = store.Transactions.Get(ctx, entities.SourceA, rows[1].ID)
	assert.True(t, errors.IsNotFound(err))

	_, err = store.Transactions.Count(ctx, entities.Source("csv"))
	assert.True(t, errors.IsInvalidInput(err))
}

func TestLedgerRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := setupTestStore(t)

	key := entities.PairKey{SourceARowID: 1, SourceBRowID: 7}
	at := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	first := &entities.LedgerEntry{SourceARowID: 1, SourceBRowID: 7, Action: entities.ActionKeepA, ResolvedAt: at}
	require.NoError(t, store.Ledger.Append(ctx, first))
	assert.NotEmpty(t, first.Ref)

	// same timestamp: the later id wins
	second := &entities.LedgerEntry{SourceARowID: 1, SourceBRowID: 7, Action: entities.ActionKeepA, Ignored: true, ResolvedAt: at}
	require.NoError(t, store.Ledger.Append(ctx, second))

	other := &entities.LedgerEntry{SourceARowID: 1, SourceBRowID: 8, Action: entities.ActionKeepBoth, ResolvedAt: at.Add(time.Minute)}
	require.NoError(t, store.Ledger.Append(ctx, other))

	latest, err := store.Ledger.Latest(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.True(t, latest.Ignored)

	byPair, err := store.Ledger.LatestForPairs(ctx, []entities.PairKey{key, {SourceARowID: 1, SourceBRowID: 8}, {SourceARowID: 2, SourceBRowID: 7}})
	require.NoError(t, err)
	require.Len(t, byPair, 2)
	assert.Equal(t, second.ID, byPair[key].ID)

	all, err := store.Ledger.LatestAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, other.ID, all[0].ID)

	history, err := store.Ledger.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)

	err = store.Ledger.Append(ctx, first)
	assert.True(t, errors.IsInvalidInput(err), "entries cannot be re-appended")

	_, err = store.Ledger.Latest(ctx, entities.PairKey{SourceARowID: 9, SourceBRowID: 9})
	assert.ErrorIs(t, err, ErrLedgerEntryNotFound)
}

func TestSettingsAndLoads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.Settings.Get(ctx, entities.SettingKeyDuplicatePolicy)
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, store.Settings.Set(ctx, entities.SettingKeyDuplicatePolicy, "keep_both"))
	require.NoError(t, store.Settings.Set(ctx, entities.SettingKeyDuplicatePolicy, "review"))

	value, err := store.Settings.Get(ctx, entities.SettingKeyDuplicatePolicy)
	require.NoError(t, err)
	assert.Equal(t, "review", value)

	now := time.Now()
	require.NoError(t, store.SourceLoads.Record(ctx, &entities.SourceLoad{Source: entities.SourceB, LastUpdated: now, RowCount: 3}))
	require.NoError(t, store.SourceLoads.Record(ctx, &entities.SourceLoad{Source: entities.SourceB, LastUpdated: now, RowCount: 5, NewAliases: 2}))

	loads, err := store.SourceLoads.List(ctx)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, 5, loads[0].RowCount)
	assert.Equal(t, 2, loads[0].NewAliases)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := setupTestStore(t)

	err := store.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.Aliases.InsertIfAbsent(ctx, []entities.AliasEntry{alias("a", "a", entities.CategoryUnmapped)}); err != nil {
			return err
		}
		return errors.Conflict("abort").Build()
	})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	_, err = store.Aliases.Get(ctx, "a")
	assert.True(t, errors.IsNotFound(err), "insert must be rolled back")
}
