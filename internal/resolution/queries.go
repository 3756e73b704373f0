package resolution

import (
	"context"
	"slices"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/errors"
)

// LedgerView selects latest entries for the review screen.
type LedgerView string

const (
	LedgerResolved  LedgerView = "resolved"
	LedgerIgnored   LedgerView = "ignored"
	LedgerUnmatched LedgerView = "unmatched"
	LedgerAll       LedgerView = "all"
)

// maxPriorHops bounds how far History follows unmatch re-addressing.
const maxPriorHops = 64

// State returns the current state of a pair. A pair with no entry is
// unresolved if it is a current candidate and not found otherwise.
func (s *Service) State(ctx context.Context, key entities.PairKey) (PairState, error) {
	latest, err := s.store.Ledger.Latest(ctx, key)
	if err != nil {
		if !errors.IsNotFound(err) {
			return PairState{}, err
		}
		if _, err := s.detector.FindPair(ctx, key); err != nil {
			return PairState{}, err
		}
		return PairState{Key: key, State: StateUnresolved}, nil
	}

	state := StateUnresolved
	switch {
	case latest.Ignored:
		state = StateIgnored
	case latest.Action.IsResolution():
		state = StateResolved
	}
	return PairState{Key: key, State: state, Action: latest.Action, Latest: latest}, nil
}

// History returns every entry of a pair, oldest first. When the pair was
// created by an unmatch that re-inserted a row, the history of the pair it
// replaced comes first, without the entry that retired it.
func (s *Service) History(ctx context.Context, key entities.PairKey) ([]entities.LedgerEntry, error) {
	var chain [][]entities.LedgerEntry
	seen := make(map[entities.PairKey]bool)
	var from *entities.PairKey

	for hop := 0; hop < maxPriorHops && !seen[key]; hop++ {
		seen[key] = true
		entries, err := s.store.Ledger.History(ctx, key)
		if err != nil {
			return nil, err
		}
		if from != nil {
			next := *from
			entries = slices.DeleteFunc(entries, func(e entities.LedgerEntry) bool {
				k, ok := e.NextKey()
				return ok && k == next
			})
		}
		chain = append(chain, entries)

		prior, ok := priorOf(entries)
		if !ok {
			break
		}
		current := key
		from = &current
		key = prior
	}

	var out []entities.LedgerEntry
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i]...)
	}
	return out, nil
}

func priorOf(entries []entities.LedgerEntry) (entities.PairKey, bool) {
	for i := range entries {
		if prior, ok := entries[i].PriorKey(); ok {
			return prior, true
		}
	}
	return entities.PairKey{}, false
}

// Entries lists the latest entry of every pair in the view, newest first.
func (s *Service) Entries(ctx context.Context, view LedgerView) ([]entities.LedgerEntry, error) {
	if view == "" {
		view = LedgerAll
	}

	var keep func(e *entities.LedgerEntry) bool
	switch view {
	case LedgerAll:
		keep = func(*entities.LedgerEntry) bool { return true }
	case LedgerResolved:
		keep = func(e *entities.LedgerEntry) bool { return !e.Ignored && e.Action.IsResolution() }
	case LedgerIgnored:
		keep = func(e *entities.LedgerEntry) bool { return e.Ignored }
	case LedgerUnmatched:
		keep = func(e *entities.LedgerEntry) bool {
			_, moved := e.NextKey()
			return !e.Ignored && e.Action == entities.ActionUnmatched && !moved
		}
	default:
		return nil, errors.InvalidInput("unknown ledger view %q", view).
			Component("resolution").
			Build()
	}

	latest, err := s.store.Ledger.LatestAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]entities.LedgerEntry, 0, len(latest))
	for i := range latest {
		if keep(&latest[i]) {
			out = append(out, latest[i])
		}
	}
	return out, nil
}
