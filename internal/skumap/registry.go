// Package skumap maintains the canonical product identity of every product
// code seen in either source.
//
// Every code is stored as an alias row pointing at a canonical id. The
// canonical id of a group always has its own self-record, which holds the
// authoritative category and provenance of the group. Mutations rewrite every
// row of the affected group inside one database transaction.
package skumap

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/logger"
	"github.com/alexknuckles/ultrasuite/internal/observability/metrics"
)

// DefaultCacheTTL bounds how long a lookup snapshot is reused when no local
// mutation has invalidated it.
const DefaultCacheTTL = 5 * time.Minute

const snapshotKey = "snapshot"

// Options configures a Registry.
type Options struct {
	// CacheTTL is the lifetime of the lookup snapshot. Zero uses DefaultCacheTTL.
	CacheTTL time.Duration
	// Logger defaults to the global "skumap" module logger.
	Logger logger.Logger
	// Metrics defaults to a no-op recorder.
	Metrics metrics.Recorder
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Registry is the alias registry service.
type Registry struct {
	store   *repository.Store
	log     logger.Logger
	metrics metrics.Recorder
	now     func() time.Time

	// mu serializes mutations within the process.
	mu sync.Mutex

	cache      *cache.Cache
	fill       singleflight.Group
	generation atomic.Uint64
}

// NewRegistry creates a Registry over store.
func NewRegistry(store *repository.Store, opts Options) *Registry {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	r := &Registry{
		store:   store,
		log:     opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Clock,
		cache:   cache.New(ttl, ttl*2),
	}
	if r.log == nil {
		r.log = logger.Global().Module("skumap")
	}
	if r.metrics == nil {
		r.metrics = metrics.NoopRecorder{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Invalidate drops the cached lookup snapshot. Mutations call it on commit;
// callers that write the alias table directly must call it themselves.
func (r *Registry) Invalidate() {
	r.generation.Add(1)
	r.cache.Delete(snapshotKey)
}

// mutate runs fn in a transaction under the registry lock, invalidates the
// snapshot and records the outcome.
func (r *Registry) mutate(ctx context.Context, op string, fn func(tx *repository.Store) error) error {
	start := time.Now()

	r.mu.Lock()
	err := r.store.WithTx(ctx, fn)
	r.Invalidate()
	r.mu.Unlock()

	metrics.Observe(r.metrics, op, start, err)
	return err
}
