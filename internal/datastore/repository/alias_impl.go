package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
)

// aliasRepository implements AliasRepository.
type aliasRepository struct {
	db *gorm.DB
}

// NewAliasRepository creates a new AliasRepository.
func NewAliasRepository(db *gorm.DB) AliasRepository {
	return &aliasRepository{db: db}
}

func (r *aliasRepository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(tableAliases)
}

func (r *aliasRepository) Get(ctx context.Context, alias string) (*entities.AliasEntry, error) {
	var entry entities.AliasEntry
	err := r.table(ctx).Where("alias = ?", alias).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrAliasNotFound, alias)
	}
	if err != nil {
		return nil, dbError(err, "get_alias", "alias", alias)
	}
	return &entry, nil
}

func (r *aliasRepository) GetMany(ctx context.Context, aliases []string) (map[string]entities.AliasEntry, error) {
	result := make(map[string]entities.AliasEntry, len(aliases))

	for start := 0; start < len(aliases); start += pairChunkSize {
		end := min(start+pairChunkSize, len(aliases))

		var rows []entities.AliasEntry
		if err := r.table(ctx).Where("alias IN ?", aliases[start:end]).Find(&rows).Error; err != nil {
			return nil, dbError(err, "get_aliases", "count", len(aliases))
		}
		for i := range rows {
			result[rows[i].Alias] = rows[i]
		}
	}

	return result, nil
}

func (r *aliasRepository) GetAll(ctx context.Context) ([]entities.AliasEntry, error) {
	var rows []entities.AliasEntry
	if err := r.table(ctx).Order("canonical_id ASC, alias ASC").Find(&rows).Error; err != nil {
		return nil, dbError(err, "list_aliases")
	}
	return rows, nil
}

func (r *aliasRepository) GetGroup(ctx context.Context, canonicalID string) ([]entities.AliasEntry, error) {
	var rows []entities.AliasEntry
	err := r.table(ctx).
		Where("canonical_id = ?", canonicalID).
		Order("alias ASC").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, "get_group", "canonical_id", canonicalID)
	}
	return rows, nil
}

func (r *aliasRepository) InsertIfAbsent(ctx context.Context, entries []entities.AliasEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	result := r.table(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "alias"}}, DoNothing: true}).
		CreateInBatches(&entries, insertBatchSize)
	if result.Error != nil {
		return 0, dbError(result.Error, "insert_aliases", "count", len(entries))
	}
	return result.RowsAffected, nil
}

func (r *aliasRepository) Upsert(ctx context.Context, entries []entities.AliasEntry) error {
	if len(entries) == 0 {
		return nil
	}

	err := r.table(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "alias"}},
			DoUpdates: clause.AssignmentColumns([]string{"canonical_id", "category", "provenance", "last_changed"}),
		}).
		CreateInBatches(&entries, insertBatchSize).Error
	if err != nil {
		return dbError(err, "upsert_aliases", "count", len(entries))
	}
	return nil
}

func (r *aliasRepository) SetGroupCategory(ctx context.Context, canonicalID string, category entities.Category, at time.Time) (int64, error) {
	result := r.table(ctx).
		Where("canonical_id = ?", canonicalID).
		Updates(map[string]any{"category": category, "last_changed": at.UTC()})
	if result.Error != nil {
		return 0, dbError(result.Error, "set_group_category", "canonical_id", canonicalID, "category", string(category))
	}
	return result.RowsAffected, nil
}

func (r *aliasRepository) Reassign(ctx context.Context, fromCanonical, toCanonical string, category entities.Category, at time.Time) (int64, error) {
	result := r.table(ctx).
		Where("canonical_id = ?", fromCanonical).
		Updates(map[string]any{
			"canonical_id": toCanonical,
			"category":     category,
			"last_changed": at.UTC(),
		})
	if result.Error != nil {
		return 0, dbError(result.Error, "reassign_group", "from", fromCanonical, "to", toCanonical)
	}
	return result.RowsAffected, nil
}

func (r *aliasRepository) DeleteGroup(ctx context.Context, canonicalID string) (int64, error) {
	result := r.table(ctx).Where("canonical_id = ?", canonicalID).Delete(&entities.AliasEntry{})
	if result.Error != nil {
		return 0, dbError(result.Error, "delete_group", "canonical_id", canonicalID)
	}
	return result.RowsAffected, nil
}

func (r *aliasRepository) RenameCategory(ctx context.Context, from, to entities.Category) (int64, error) {
	result := r.table(ctx).Where("category = ?", from).Update("category", to)
	if result.Error != nil {
		return 0, dbError(result.Error, "rename_category", "from", string(from), "to", string(to))
	}
	return result.RowsAffected, nil
}

func (r *aliasRepository) CanonicalIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.table(ctx).
		Distinct("canonical_id").
		Order("canonical_id ASC").
		Pluck("canonical_id", &ids).Error
	if err != nil {
		return nil, dbError(err, "list_canonical_ids")
	}
	return ids, nil
}

func (r *aliasRepository) CategoryCounts(ctx context.Context) (map[entities.Category]int64, error) {
	var rows []struct {
		Category entities.Category
		Total    int64
	}
	err := r.table(ctx).
		Select("category, COUNT(DISTINCT canonical_id) AS total").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "category_counts")
	}

	counts := make(map[entities.Category]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Total
	}
	return counts, nil
}
