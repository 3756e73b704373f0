package entities

import (
	"slices"
	"time"
)

// Category classifies a canonical product group.
type Category string

const (
	CategoryUnmapped            Category = "unmapped"
	CategoryMachine             Category = "machine"
	CategoryDetergentFilterKits Category = "detergent_filter_kits"
	CategoryDetergent           Category = "detergent"
	CategoryFilters             Category = "filters"
	CategoryParts               Category = "parts"
	CategoryService             Category = "service"
	CategoryShopify             Category = "shopify"
	CategoryShipping            Category = "shipping"

	// CategoryLegacyMaintenance is rewritten to CategoryParts at schema init.
	CategoryLegacyMaintenance Category = "maintenance"
)

// Categories returns every valid category in display order.
func Categories() []Category {
	return []Category{
		CategoryUnmapped,
		CategoryMachine,
		CategoryDetergentFilterKits,
		CategoryDetergent,
		CategoryFilters,
		CategoryParts,
		CategoryService,
		CategoryShopify,
		CategoryShipping,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories(), c)
}

// AliasEntry maps one normalized product code to its canonical group.
// The group's own canonical id always has a row where Alias == CanonicalID.
type AliasEntry struct {
	Alias       string    `gorm:"primaryKey;size:191"`
	CanonicalID string    `gorm:"size:191;not null;index"`
	Category    Category  `gorm:"size:32;not null;default:unmapped;index"`
	Provenance  string    `gorm:"size:32"` // source that first introduced the alias
	LastChanged time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (AliasEntry) TableName() string {
	return "sku_aliases"
}

// IsCanonical reports whether this row is the group's self-record.
func (a *AliasEntry) IsCanonical() bool {
	return a.Alias == a.CanonicalID
}
