package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/duplicates"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/resolution"
	"github.com/alexknuckles/ultrasuite/internal/skumap"
	"github.com/alexknuckles/ultrasuite/internal/testutil"
)

type fixture struct {
	store    *repository.Store
	registry *skumap.Registry
	policies *resolution.PolicyStore
	loader   *Loader
}

func setupLoader(t *testing.T) *fixture {
	t.Helper()
	log := testutil.Logger()
	store := testutil.NewStore(t)
	registry := skumap.NewRegistry(store, skumap.Options{Logger: log})
	detector := duplicates.NewDetector(store, registry, duplicates.Options{Logger: log})
	service := resolution.NewService(store, detector, resolution.Options{Logger: log})
	policies := resolution.NewPolicyStore(store.Settings, resolution.PolicyReview)
	hook := NewHook(registry, service, policies, store.SourceLoads, Options{Logger: log})

	return &fixture{
		store:    store,
		registry: registry,
		policies: policies,
		loader:   NewLoader(store.Transactions, hook),
	}
}

func TestOnIngestedRegistersCodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setupLoader(t)
	day := testutil.Time(t, "2024-05-01T09:00:00Z")

	res, err := f.loader.Load(ctx, Batch{
		Source: entities.SourceA,
		Rows: []entities.TransactionRow{
			testutil.Row(day, "Pump ", "1", "10"),
			testutil.Row(day, "pump", "1", "10"),
			testutil.Row(day, "", "1", "10"),
			testutil.Row(day, "Filter", "1", "10"),
		},
	}, ModeAppend)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 2, res.NewAliases)
	assert.Equal(t, resolution.PolicyReview, res.Policy)
	assert.Nil(t, res.Applied)

	row, err := f.store.Aliases.Get(ctx, "pump")
	require.NoError(t, err)
	assert.Equal(t, "shopify", row.Provenance)
	assert.Equal(t, entities.CategoryUnmapped, row.Category)

	loads, err := f.store.SourceLoads.List(ctx)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, entities.SourceA, loads[0].Source)
	assert.Equal(t, 4, loads[0].RowCount)
	assert.Equal(t, 2, loads[0].NewAliases)
}

func TestOnIngestedAppliesStoredPolicy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setupLoader(t)
	day := testutil.Time(t, "2024-05-01T09:00:00Z")

	_, err := f.loader.Load(ctx, Batch{
		Source: entities.SourceA,
		Rows:   []entities.TransactionRow{testutil.Row(day, "X", "2", "19.98")},
	}, ModeAppend)
	require.NoError(t, err)

	require.NoError(t, f.policies.Set(ctx, resolution.PolicyKeepA))

	res, err := f.loader.Load(ctx, Batch{
		Source: entities.SourceB,
		Rows:   []entities.TransactionRow{testutil.Row(day.Add(5*time.Hour), "x ", "2", "19.98")},
	}, ModeAppend)
	require.NoError(t, err)

	require.NotNil(t, res.Applied)
	assert.Equal(t, 1, res.Applied.Resolved)

	n, err := f.store.Transactions.Count(ctx, entities.SourceB)
	require.NoError(t, err)
	assert.Zero(t, n)

	// an explicit review policy overrides the store
	res, err = f.loader.Load(ctx, Batch{
		Source: entities.SourceB,
		Rows:   []entities.TransactionRow{testutil.Row(day, "x", "2", "19.98")},
		Policy: resolution.PolicyReview,
	}, ModeAppend)
	require.NoError(t, err)
	assert.Nil(t, res.Applied)
	n, err = f.store.Transactions.Count(ctx, entities.SourceB)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLoadReplace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setupLoader(t)
	day := testutil.Time(t, "2024-05-01T09:00:00Z")

	for range 2 {
		_, err := f.loader.Load(ctx, Batch{
			Source: entities.SourceB,
			Rows:   []entities.TransactionRow{testutil.Row(day, "a", "1", "1"), testutil.Row(day, "b", "1", "1")},
		}, ModeReplace)
		require.NoError(t, err)
	}

	n, err := f.store.Transactions.Count(ctx, entities.SourceB)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = f.loader.Load(ctx, Batch{Source: entities.SourceB}, "merge")
	assert.True(t, errors.IsInvalidInput(err))

	_, err = f.loader.Load(ctx, Batch{Source: "hubspot"}, ModeAppend)
	assert.Error(t, err)
}

const batchYAML = `
source: qbo
mode: append
policy: keep_b_source
rows:
  - occurred_at: 2024-05-01T14:00:00Z
    code: "X "
    description: Detergent
    quantity: 2
    total: 19.98
  - occurred_at: 2024-05-02T10:00:00Z
    code: filter
    quantity: 0
    price: 5
    total: 5.00
`

func TestDecodeBatch(t *testing.T) {
	t.Parallel()

	b, mode, err := DecodeBatch(strings.NewReader(batchYAML))
	require.NoError(t, err)

	assert.Equal(t, ModeAppend, mode)
	assert.Equal(t, entities.SourceB, b.Source)
	assert.Equal(t, resolution.PolicyKeepB, b.Policy)
	require.Len(t, b.Rows, 2)

	assert.Equal(t, "X ", b.Rows[0].Code)
	assert.True(t, testutil.Dec("9.99").Equal(b.Rows[0].Price))
	assert.True(t, b.Rows[0].OccurredAt.Equal(testutil.Time(t, "2024-05-01T14:00:00Z")))
	assert.True(t, testutil.Dec("5").Equal(b.Rows[1].Price))

	tests := []struct {
		name string
		doc  string
	}{
		{"bad source", "source: hubspot\n"},
		{"bad policy", "source: qbo\npolicy: maybe\n"},
		{"unknown field", "source: qbo\ncolour: red\n"},
		{"missing time", "source: qbo\nrows:\n  - code: a\n    quantity: 1\n    total: 1\n"},
		{"bad decimal", "source: qbo\nrows:\n  - occurred_at: 2024-05-01T00:00:00Z\n    quantity: lots\n    total: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := DecodeBatch(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setupLoader(t)

	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(batchYAML), 0o600))

	res, err := f.loader.LoadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 2, res.NewAliases)

	_, err = f.loader.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}
