package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexknuckles/ultrasuite/internal/conf"
	"github.com/alexknuckles/ultrasuite/internal/resolution"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	s := &conf.Settings{}
	s.Database.Type = conf.DatabaseSQLite
	s.Database.SQLite.Path = filepath.Join(t.TempDir(), "app.db")
	s.Reconcile.Timezone = "UTC"
	s.Reconcile.DefaultPolicy = conf.PolicyKeepBoth
	s.Reconcile.ApplyBatchSize = 10
	s.Reconcile.LookupCacheTTL = time.Minute
	s.Reconcile.Suggest.Threshold = 0.9
	return s
}

func TestNewWiresServices(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a, err := New(ctx, testSettings(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	policy, err := a.Policies.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, resolution.PolicyKeepBoth, policy)
	assert.Equal(t, 0.9, a.Strategy.Threshold())

	services := a.Services()
	assert.Same(t, a.Registry, services.Registry)
	assert.NotNil(t, services.Loader)
	assert.NotNil(t, services.Location)
}

func TestNewRejectsBadPolicy(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	s.Reconcile.DefaultPolicy = "maybe"
	_, err := New(context.Background(), s)
	assert.Error(t, err)
}
