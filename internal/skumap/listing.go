package skumap

import (
	"context"
	"slices"
	"time"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/logger"
	"github.com/alexknuckles/ultrasuite/internal/suggest"
)

// GroupView selects which groups Groups returns.
type GroupView string

const (
	// ViewAll lists every group.
	ViewAll GroupView = "all"
	// ViewMapped lists groups with a category other than unmapped.
	ViewMapped GroupView = "mapped"
	// ViewMerged lists mapped groups that have at least one alias besides the self-record.
	ViewMerged GroupView = "merged"
)

// Group is one canonical identity with its aliases.
type Group struct {
	CanonicalID string            `json:"canonical_id"`
	Category    entities.Category `json:"category"`
	Provenance  string            `json:"provenance"`
	// Aliases excludes the self-record and is sorted.
	Aliases     []string  `json:"aliases"`
	AliasCount  int       `json:"alias_count"`
	LastChanged time.Time `json:"last_changed"`
}

// Groups lists the registry grouped by canonical id, ordered by canonical id.
func (r *Registry) Groups(ctx context.Context, view GroupView) ([]Group, error) {
	if view == "" {
		view = ViewAll
	}
	if view != ViewAll && view != ViewMapped && view != ViewMerged {
		return nil, errors.InvalidInput("unknown group view %q", view).
			Component("skumap").
			Build()
	}

	rows, err := r.store.Aliases.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var groups []Group
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.CanonicalID]
		if !ok {
			i = len(groups)
			index[row.CanonicalID] = i
			groups = append(groups, Group{
				CanonicalID: row.CanonicalID,
				Category:    row.Category,
				Provenance:  row.Provenance,
				Aliases:     []string{},
			})
		}
		g := &groups[i]
		if row.IsCanonical() {
			g.Category = row.Category
			g.Provenance = row.Provenance
		} else {
			g.Aliases = append(g.Aliases, row.Alias)
		}
		if row.LastChanged.After(g.LastChanged) {
			g.LastChanged = row.LastChanged
		}
	}

	out := groups[:0]
	for _, g := range groups {
		slices.Sort(g.Aliases)
		g.AliasCount = len(g.Aliases)
		switch view {
		case ViewMapped:
			if g.Category == entities.CategoryUnmapped {
				continue
			}
		case ViewMerged:
			if g.Category == entities.CategoryUnmapped || g.AliasCount == 0 {
				continue
			}
		}
		out = append(out, g)
	}
	return out, nil
}

// CategoryStats returns the number of groups per category.
func (r *Registry) CategoryStats(ctx context.Context) (map[entities.Category]int64, error) {
	return r.store.Aliases.CategoryCounts(ctx)
}

// Canonicals returns every canonical id, sorted.
func (r *Registry) Canonicals(ctx context.Context) ([]string, error) {
	return r.store.Aliases.CanonicalIDs(ctx)
}

// Suggestions runs the merge suggestion engine over the current canonical ids.
func (r *Registry) Suggestions(ctx context.Context, strategy suggest.Strategy) ([]suggest.Suggestion, error) {
	ids, err := r.Canonicals(ctx)
	if err != nil {
		return nil, err
	}
	suggestions := suggest.SuggestMerges(ids, strategy)
	r.log.Debug("computed merge suggestions",
		logger.Int("canonicals", len(ids)),
		logger.Int("suggestions", len(suggestions)),
		logger.Float64("threshold", strategy.Threshold()))
	return suggestions, nil
}
