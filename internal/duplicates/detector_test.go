package duplicates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/skumap"
	"github.com/alexknuckles/ultrasuite/internal/testutil"
)

type fixture struct {
	store    *repository.Store
	registry *skumap.Registry
	detector *Detector
}

func setupDetector(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	registry := skumap.NewRegistry(store, skumap.Options{Logger: testutil.Logger()})
	return &fixture{
		store:    store,
		registry: registry,
		detector: NewDetector(store, registry, Options{Location: loc, Logger: testutil.Logger()}),
	}
}

func (f *fixture) find(t *testing.T, q Query) []Candidate {
	t.Helper()
	got, err := f.detector.FindDuplicates(context.Background(), q)
	require.NoError(t, err)
	return got
}

func TestFindDuplicatesSameDayDifferentTime(t *testing.T) {
	t.Parallel()
	f := setupDetector(t, nil)

	a := testutil.InsertRows(t, f.store, entities.SourceA, testutil.Row(testutil.Time(t, "2024-05-01T09:00:00Z"), "X", "2", "19.98"))
	b := testutil.InsertRows(t, f.store, entities.SourceB, testutil.Row(testutil.Time(t, "2024-05-01T14:00:00Z"), "x ", "2", "19.98"))

	got := f.find(t, Query{})
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, entities.PairKey{SourceARowID: a[0].ID, SourceBRowID: b[0].ID}, c.PairKey)
	assert.Equal(t, "x", c.CanonicalID)
	assert.True(t, testutil.Dec("19.98").Equal(c.Total))
	assert.True(t, testutil.Dec("2").Equal(c.Quantity))
	assert.True(t, c.NominalTime.Equal(testutil.Time(t, "2024-05-01T09:00:00Z")))
	assert.Equal(t, "X", c.A.Code)
	assert.Equal(t, "x ", c.B.Code)
	assert.True(t, c.NeedsAttention())
	assert.False(t, c.HasDecision())
}

func TestFindDuplicatesExactAmounts(t *testing.T) {
	t.Parallel()
	f := setupDetector(t, nil)
	day := testutil.Time(t, "2024-05-01T10:00:00Z")

	testutil.InsertRows(t, f.store, entities.SourceA,
		testutil.Row(day, "sku", "2", "19.98"),
		testutil.Row(day, "other", "1", "5.00"),
	)
	testutil.InsertRows(t, f.store, entities.SourceB,
		testutil.Row(day, "sku", "2", "19.99"),
		testutil.Row(day, "other", "1", "5"),
		testutil.Row(day.AddDate(0, 0, 1), "other", "1", "5.00"),
	)

	got := f.find(t, Query{})
	require.Len(t, got, 1)
	assert.Equal(t, "other", got[0].CanonicalID)
}

func TestFindDuplicatesUsesRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setupDetector(t, nil)
	day := testutil.Time(t, "2024-05-01T10:00:00Z")

	testutil.InsertRows(t, f.store, entities.SourceA, testutil.Row(day, "DET-5GAL", "1", "40"))
	testutil.InsertRows(t, f.store, entities.SourceB, testutil.Row(day, "detergent 5 gallon", "1", "40"))
	assert.Empty(t, f.find(t, Query{}))

	_, err := f.registry.RegisterUnseen(ctx, []string{"det-5gal", "detergent 5 gallon"}, "")
	require.NoError(t, err)
	require.NoError(t, f.registry.Merge(ctx, "detergent 5 gallon", "det-5gal"))

	got := f.find(t, Query{})
	require.Len(t, got, 1)
	assert.Equal(t, "det-5gal", got[0].CanonicalID)

	assert.Len(t, f.find(t, Query{Canonical: " DET-5GAL"}), 1)
	assert.Empty(t, f.find(t, Query{Canonical: "something-else"}))
}

func TestFindDuplicatesCrossPairsAndOrder(t *testing.T) {
	t.Parallel()
	f := setupDetector(t, nil)

	a := testutil.InsertRows(t, f.store, entities.SourceA,
		testutil.Row(testutil.Time(t, "2024-05-02T15:00:00Z"), "k", "1", "10"),
		testutil.Row(testutil.Time(t, "2024-05-02T08:00:00Z"), "k", "1", "10"),
		testutil.Row(testutil.Time(t, "2024-05-01T12:00:00Z"), "j", "3", "3"),
	)
	b := testutil.InsertRows(t, f.store, entities.SourceB,
		testutil.Row(testutil.Time(t, "2024-05-02T09:00:00Z"), "k", "1", "10"),
		testutil.Row(testutil.Time(t, "2024-05-01T12:30:00Z"), "j", "3", "3"),
	)

	got := f.find(t, Query{})
	require.Len(t, got, 3)

	assert.Equal(t, entities.PairKey{SourceARowID: a[2].ID, SourceBRowID: b[1].ID}, got[0].PairKey)
	assert.Equal(t, entities.PairKey{SourceARowID: a[1].ID, SourceBRowID: b[0].ID}, got[1].PairKey)
	assert.Equal(t, entities.PairKey{SourceARowID: a[0].ID, SourceBRowID: b[0].ID}, got[2].PairKey)
	// nominal time is the earlier side
	assert.True(t, got[2].NominalTime.Equal(testutil.Time(t, "2024-05-02T09:00:00Z")))
}

func TestFindDuplicatesTimeRange(t *testing.T) {
	t.Parallel()
	f := setupDetector(t, nil)

	for _, ts := range []string{"2024-05-01T10:00:00Z", "2024-05-03T10:00:00Z"} {
		at := testutil.Time(t, ts)
		testutil.InsertRows(t, f.store, entities.SourceA, testutil.Row(at, "r", "1", "1"))
		testutil.InsertRows(t, f.store, entities.SourceB, testutil.Row(at, "r", "1", "1"))
	}

	start := testutil.Time(t, "2024-05-03T10:00:00Z")
	end := testutil.Time(t, "2024-05-04T00:00:00Z")
	got := f.find(t, Query{Start: &start, End: &end})
	require.Len(t, got, 1)
	assert.True(t, got[0].NominalTime.Equal(start))

	_, err := f.detector.FindDuplicates(context.Background(), Query{Start: &end, End: &start})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestFindDuplicatesCalendarDateInLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-7", -7*60*60)
	f := setupDetector(t, loc)

	// 05:00Z on the 2nd is still the 1st at UTC-7
	testutil.InsertRows(t, f.store, entities.SourceA, testutil.Row(testutil.Time(t, "2024-05-01T20:00:00Z"), "tz", "1", "9"))
	testutil.InsertRows(t, f.store, entities.SourceB, testutil.Row(testutil.Time(t, "2024-05-02T05:00:00Z"), "tz", "1", "9"))

	assert.Len(t, f.find(t, Query{}), 1)

	utc := setupDetector(t, nil)
	testutil.InsertRows(t, utc.store, entities.SourceA, testutil.Row(testutil.Time(t, "2024-05-01T20:00:00Z"), "tz", "1", "9"))
	testutil.InsertRows(t, utc.store, entities.SourceB, testutil.Row(testutil.Time(t, "2024-05-02T05:00:00Z"), "tz", "1", "9"))
	assert.Empty(t, utc.find(t, Query{}))
}

func TestFindDuplicatesViews(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setupDetector(t, nil)
	day := testutil.Time(t, "2024-05-01T10:00:00Z")

	a := testutil.InsertRows(t, f.store, entities.SourceA,
		testutil.Row(day, "fresh", "1", "1"),
		testutil.Row(day, "ign", "1", "1"),
		testutil.Row(day, "unm", "1", "1"),
		testutil.Row(day, "both", "1", "1"),
	)
	b := testutil.InsertRows(t, f.store, entities.SourceB,
		testutil.Row(day, "fresh", "1", "1"),
		testutil.Row(day, "ign", "1", "1"),
		testutil.Row(day, "unm", "1", "1"),
		testutil.Row(day, "both", "1", "1"),
	)
	key := func(i int) entities.PairKey {
		return entities.PairKey{SourceARowID: a[i].ID, SourceBRowID: b[i].ID}
	}
	appendEntry := func(k entities.PairKey, action entities.Action, ignored bool) {
		require.NoError(t, f.store.Ledger.Append(ctx, &entities.LedgerEntry{
			SourceARowID: k.SourceARowID,
			SourceBRowID: k.SourceBRowID,
			Action:       action,
			Ignored:      ignored,
		}))
	}
	appendEntry(key(1), entities.ActionNone, true)
	appendEntry(key(2), entities.ActionUnmatched, false)
	appendEntry(key(3), entities.ActionKeepBoth, false)

	codes := func(cs []Candidate) []string {
		out := make([]string, len(cs))
		for i := range cs {
			out[i] = cs[i].CanonicalID
		}
		return out
	}

	assert.ElementsMatch(t, []string{"fresh", "unm", "both"}, codes(f.find(t, Query{})))
	assert.ElementsMatch(t, []string{"fresh"}, codes(f.find(t, Query{View: ViewAttention})))
	assert.ElementsMatch(t, []string{"ign"}, codes(f.find(t, Query{View: ViewIgnored})))
	assert.Len(t, f.find(t, Query{View: ViewAll}), 4)

	unm := f.find(t, Query{Canonical: "unm"})
	require.Len(t, unm, 1)
	assert.True(t, unm[0].Unmatched)

	both := f.find(t, Query{Canonical: "both"})
	require.Len(t, both, 1)
	assert.True(t, both[0].Resolved())

	_, err := f.detector.FindDuplicates(ctx, Query{View: "sideways"})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestFindPair(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setupDetector(t, nil)
	day := testutil.Time(t, "2024-05-01T10:00:00Z")

	a := testutil.InsertRows(t, f.store, entities.SourceA,
		testutil.Row(day, "p", "1", "7"),
		testutil.Row(day, "p", "1", "8"),
	)
	b := testutil.InsertRows(t, f.store, entities.SourceB, testutil.Row(day, "P", "1", "7"))

	c, err := f.detector.FindPair(ctx, entities.PairKey{SourceARowID: a[0].ID, SourceBRowID: b[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "p", c.CanonicalID)

	_, err = f.detector.FindPair(ctx, entities.PairKey{SourceARowID: a[1].ID, SourceBRowID: b[0].ID})
	assert.True(t, errors.IsNotFound(err))

	_, err = f.detector.FindPair(ctx, entities.PairKey{SourceARowID: 999, SourceBRowID: b[0].ID})
	assert.True(t, errors.IsNotFound(err))
}
