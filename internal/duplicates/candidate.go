// Package duplicates finds sales recorded by both sources.
//
// Two rows are a candidate when they fall on the same calendar date, resolve
// to the same canonical id and carry exactly the same quantity and total.
// Candidates are recomputed on every call from the current rows and alias
// registry; they are never stored.
package duplicates

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
)

// View selects candidates by ledger state.
type View string

const (
	// ViewDefault returns every candidate except ignored ones.
	ViewDefault View = "default"
	// ViewAttention returns candidates with no decision yet. Ignored and
	// unmatched pairs are excluded.
	ViewAttention View = "attention"
	// ViewIgnored returns only ignored candidates.
	ViewIgnored View = "ignored"
	// ViewAll returns every candidate.
	ViewAll View = "all"
)

// Valid reports whether v is a known view. The empty view means ViewDefault.
func (v View) Valid() bool {
	switch v {
	case "", ViewDefault, ViewAttention, ViewIgnored, ViewAll:
		return true
	}
	return false
}

// Side is one row of a candidate pair.
type Side struct {
	RowID       uint            `json:"row_id"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Candidate is a pair of rows, one per source, that look like the same sale.
type Candidate struct {
	entities.PairKey

	CanonicalID string          `json:"canonical_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
	A           Side            `json:"a"`
	B           Side            `json:"b"`
	// NominalTime is the earlier of the two timestamps.
	NominalTime time.Time `json:"nominal_time"`

	// Ledger state from the latest entry for the pair. Action is empty when
	// the pair has no entry.
	Action    entities.Action `json:"action,omitempty"`
	Ignored   bool            `json:"ignored"`
	Unmatched bool            `json:"unmatched"`
}

// HasDecision reports whether a ledger entry exists for the pair.
func (c *Candidate) HasDecision() bool {
	return c.Action != ""
}

// NeedsAttention reports whether the pair still waits for a decision: not
// ignored, and either never recorded or only seeded by an ignore that was
// later lifted.
func (c *Candidate) NeedsAttention() bool {
	if c.Ignored {
		return false
	}
	return c.Action == "" || c.Action == entities.ActionNone
}

// Resolved reports whether the latest decision is a keep_* action.
func (c *Candidate) Resolved() bool {
	return c.Action.IsResolution()
}

func (c *Candidate) matches(view View) bool {
	switch view {
	case ViewAll:
		return true
	case ViewIgnored:
		return c.Ignored
	case ViewAttention:
		return c.NeedsAttention()
	default:
		return !c.Ignored
	}
}

func (c *Candidate) attach(entry *entities.LedgerEntry) {
	if entry == nil {
		return
	}
	c.Action = entry.Action
	c.Ignored = entry.Ignored
	c.Unmatched = entry.Action == entities.ActionUnmatched
}
