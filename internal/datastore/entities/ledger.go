package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the decision recorded by a ledger entry.
type Action string

const (
	// ActionNone marks an ignore placed on a pair that was never resolved.
	ActionNone     Action = "none"
	ActionKeepA    Action = "keep_a"
	ActionKeepB    Action = "keep_b"
	ActionKeepBoth Action = "keep_both"
	// ActionUnmatched records that a resolution was reversed.
	ActionUnmatched Action = "unmatched"
)

// IsResolution reports whether a is one of the keep_* decisions.
func (a Action) IsResolution() bool {
	return a == ActionKeepA || a == ActionKeepB || a == ActionKeepBoth
}

// LedgerEntry is one append-only record of the resolution history. The
// latest entry for a pair, by ResolvedAt then ID, is authoritative.
type LedgerEntry struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Ref        string    `gorm:"size:36;not null;uniqueIndex" json:"ref"`
	ResolvedAt time.Time `gorm:"not null;index" json:"resolved_at"`

	SourceARowID uint `gorm:"not null;index:idx_ledger_pair,priority:1" json:"source_a_row_id"`
	SourceBRowID uint `gorm:"not null;index:idx_ledger_pair,priority:2" json:"source_b_row_id"`

	// PriorARowID/PriorBRowID hold the pair an unmatch entry replaced when a
	// deleted row had to be re-inserted under a new id.
	PriorARowID uint `gorm:"not null;default:0" json:"prior_a_row_id,omitempty"`
	PriorBRowID uint `gorm:"not null;default:0" json:"prior_b_row_id,omitempty"`
	// NextARowID/NextBRowID are set on the entry that retires a pair whose
	// unmatch moved it to a new key. A retired pair accepts no transitions.
	NextARowID uint `gorm:"not null;default:0" json:"next_a_row_id,omitempty"`
	NextBRowID uint `gorm:"not null;default:0" json:"next_b_row_id,omitempty"`

	Action  Action `gorm:"size:16;not null" json:"action"`
	Ignored bool   `gorm:"not null;default:false" json:"ignored"`

	// Snapshot of the pair, enough to reconstruct either side.
	CanonicalID  string          `gorm:"size:191" json:"canonical_id"`
	CodeA        string          `gorm:"size:191" json:"code_a"`
	CodeB        string          `gorm:"size:191" json:"code_b"`
	DescriptionA string          `gorm:"size:512" json:"description_a"`
	DescriptionB string          `gorm:"size:512" json:"description_b"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Total        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`
	TimestampA   time.Time       `json:"timestamp_a"`
	TimestampB   time.Time       `json:"timestamp_b"`
}

// TableName returns the table name for GORM.
func (LedgerEntry) TableName() string {
	return "resolution_ledger"
}

// PairKey identifies a duplicate candidate by its two row ids.
type PairKey struct {
	SourceARowID uint `json:"source_a_row_id"`
	SourceBRowID uint `json:"source_b_row_id"`
}

// Key returns the pair key the entry is addressed by.
func (e *LedgerEntry) Key() PairKey {
	return PairKey{SourceARowID: e.SourceARowID, SourceBRowID: e.SourceBRowID}
}

// PriorKey returns the pair the entry replaced, and false when it replaced none.
func (e *LedgerEntry) PriorKey() (PairKey, bool) {
	if e.PriorARowID == 0 && e.PriorBRowID == 0 {
		return PairKey{}, false
	}
	return PairKey{SourceARowID: e.PriorARowID, SourceBRowID: e.PriorBRowID}, true
}

// NextKey returns the pair that replaced this one, and false when the pair
// was never re-addressed.
func (e *LedgerEntry) NextKey() (PairKey, bool) {
	if e.NextARowID == 0 && e.NextBRowID == 0 {
		return PairKey{}, false
	}
	return PairKey{SourceARowID: e.NextARowID, SourceBRowID: e.NextBRowID}, true
}
