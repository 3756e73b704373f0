package skumap

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/logger"
	"github.com/alexknuckles/ultrasuite/internal/observability/metrics"
)

// Resolution is the identity a product code resolves to.
type Resolution struct {
	Code        string            `json:"code"`
	CanonicalID string            `json:"canonical_id"`
	Category    entities.Category `json:"category"`
	// Known is false when the code has no alias row and resolved to itself.
	Known bool `json:"known"`
}

// Mapping is an immutable snapshot of the alias table.
type Mapping struct {
	entries map[string]entities.AliasEntry
}

// NewMapping builds a snapshot from alias rows.
func NewMapping(rows []entities.AliasEntry) *Mapping {
	m := &Mapping{entries: make(map[string]entities.AliasEntry, len(rows))}
	for _, row := range rows {
		m.entries[row.Alias] = row
	}
	return m
}

// Resolve maps a code to its identity. Unknown codes resolve to their own
// normalized form with the unmapped category.
func (m *Mapping) Resolve(code string) Resolution {
	key := Normalize(code)
	if row, ok := m.entries[key]; ok {
		return Resolution{Code: key, CanonicalID: row.CanonicalID, Category: row.Category, Known: true}
	}
	return Resolution{Code: key, CanonicalID: key, Category: entities.CategoryUnmapped}
}

// Len returns the number of aliases in the snapshot.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Lookup resolves one code. It only fails when the alias table cannot be read.
func (r *Registry) Lookup(ctx context.Context, code string) (Resolution, error) {
	m, err := r.Mapping(ctx)
	if err != nil {
		return Resolution{}, err
	}
	return m.Resolve(code), nil
}

// Mapping returns the current alias snapshot. Concurrent callers share one
// load, and the snapshot is reused until a mutation or the cache TTL expires.
func (r *Registry) Mapping(ctx context.Context) (*Mapping, error) {
	if cached, found := r.cache.Get(snapshotKey); found {
		return cached.(*Mapping), nil
	}

	v, err, _ := r.fill.Do(snapshotKey, func() (any, error) {
		start := time.Now()
		gen := r.generation.Load()

		rows, err := r.store.Aliases.GetAll(ctx)
		metrics.Observe(r.metrics, metrics.OpLookupFill, start, err)
		if err != nil {
			return nil, err
		}

		m := NewMapping(rows)
		// a mutation committed during the load makes this snapshot stale
		if r.generation.Load() == gen {
			r.cache.Set(snapshotKey, m, cache.DefaultExpiration)
		}
		r.log.Trace("loaded alias snapshot",
			logger.Int("aliases", m.Len()),
			logger.Duration("elapsed", time.Since(start)))
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Mapping), nil
}
