package repository

import (
	"context"
	"time"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
)

// AliasRepository stores the alias registry rows.
type AliasRepository interface {
	// Get returns the row for one alias, or ErrAliasNotFound.
	Get(ctx context.Context, alias string) (*entities.AliasEntry, error)
	// GetMany returns the rows for the given aliases keyed by alias. Unknown aliases are absent.
	GetMany(ctx context.Context, aliases []string) (map[string]entities.AliasEntry, error)
	// GetAll returns every row ordered by canonical id then alias.
	GetAll(ctx context.Context) ([]entities.AliasEntry, error)
	// GetGroup returns the rows of one canonical group. An unknown group yields an empty slice.
	GetGroup(ctx context.Context, canonicalID string) ([]entities.AliasEntry, error)
	// InsertIfAbsent inserts rows whose alias is not yet present and returns how many were inserted.
	InsertIfAbsent(ctx context.Context, entries []entities.AliasEntry) (int64, error)
	// Upsert inserts rows or overwrites canonical id, category, provenance and timestamp of existing ones.
	Upsert(ctx context.Context, entries []entities.AliasEntry) error
	// SetGroupCategory rewrites the category of every row of a group.
	SetGroupCategory(ctx context.Context, canonicalID string, category entities.Category, at time.Time) (int64, error)
	// Reassign moves every row of one group under another canonical id with the given category.
	Reassign(ctx context.Context, fromCanonical, toCanonical string, category entities.Category, at time.Time) (int64, error)
	// DeleteGroup removes every row of a group.
	DeleteGroup(ctx context.Context, canonicalID string) (int64, error)
	// RenameCategory rewrites one category value to another across all groups.
	RenameCategory(ctx context.Context, from, to entities.Category) (int64, error)
	// CanonicalIDs returns the distinct canonical ids, sorted.
	CanonicalIDs(ctx context.Context) ([]string, error)
	// CategoryCounts returns the number of distinct canonical ids per category.
	CategoryCounts(ctx context.Context) (map[entities.Category]int64, error)
}
