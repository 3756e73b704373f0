// Package ingest runs the post-load steps for newly stored transaction rows:
// it registers unseen product codes and applies the automatic duplicate
// resolution policy.
package ingest

import (
	"context"
	"time"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/logger"
	"github.com/alexknuckles/ultrasuite/internal/observability/metrics"
	"github.com/alexknuckles/ultrasuite/internal/resolution"
	"github.com/alexknuckles/ultrasuite/internal/skumap"
)

// Batch is a set of rows that has been durably stored for one source.
type Batch struct {
	Source entities.Source
	Rows   []entities.TransactionRow
	// Policy overrides the stored policy when set.
	Policy resolution.Policy
}

// Result summarizes one OnIngested call.
type Result struct {
	Source     entities.Source         `json:"source"`
	Rows       int                     `json:"rows"`
	NewAliases int                     `json:"new_aliases"`
	Policy     resolution.Policy       `json:"policy"`
	Applied    *resolution.ApplyResult `json:"applied,omitempty"`
}

// Options configures a Hook.
type Options struct {
	Logger  logger.Logger
	Metrics metrics.Recorder
	Clock   func() time.Time
}

// Hook is invoked after each data load.
type Hook struct {
	registry *skumap.Registry
	resolver *resolution.Service
	policies *resolution.PolicyStore
	loads    repository.SourceLoadRepository
	log      logger.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewHook creates a Hook.
func NewHook(registry *skumap.Registry, resolver *resolution.Service, policies *resolution.PolicyStore, loads repository.SourceLoadRepository, opts Options) *Hook {
	h := &Hook{
		registry: registry,
		resolver: resolver,
		policies: policies,
		loads:    loads,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Clock,
	}
	if h.log == nil {
		h.log = logger.Global().Module("ingest")
	}
	if h.metrics == nil {
		h.metrics = metrics.NoopRecorder{}
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// OnIngested registers the distinct codes of b with the source as
// provenance, records the load and applies the policy unless it is review.
// The rows must already be stored.
func (h *Hook) OnIngested(ctx context.Context, b Batch) (result Result, err error) {
	start := time.Now()
	defer func() { metrics.Observe(h.metrics, metrics.OpIngest, start, err) }()

	if !b.Source.Valid() {
		return Result{}, errors.InvalidInput("unknown source %q", b.Source).
			Component("ingest").
			Context("source", string(b.Source)).
			Build()
	}
	result = Result{Source: b.Source, Rows: len(b.Rows)}

	codes := make([]string, len(b.Rows))
	for i := range b.Rows {
		codes[i] = b.Rows[i].Code
	}
	added, err := h.registry.RegisterUnseen(ctx, codes, string(b.Source))
	if err != nil {
		return result, err
	}
	result.NewAliases = added

	if err := h.loads.Record(ctx, &entities.SourceLoad{
		Source:      b.Source,
		LastUpdated: h.now().UTC(),
		RowCount:    len(b.Rows),
		NewAliases:  added,
	}); err != nil {
		return result, err
	}

	policy := b.Policy
	if policy == "" {
		if policy, err = h.policies.Get(ctx); err != nil {
			return result, err
		}
	}
	if _, err := resolution.ParsePolicy(string(policy)); err != nil {
		return result, err
	}
	result.Policy = policy

	if _, auto := policy.Action(); auto {
		applied, err := h.resolver.ApplyPolicy(ctx, policy)
		if err != nil {
			return result, err
		}
		result.Applied = &applied
	}

	h.log.Info("processed ingested rows",
		logger.String("source", string(b.Source)),
		logger.Int("rows", result.Rows),
		logger.Int("new_aliases", added),
		logger.String("policy", string(policy)))
	return result, nil
}
