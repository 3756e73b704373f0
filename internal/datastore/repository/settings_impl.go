package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
)

// settingsRepository implements SettingsRepository.
type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (string, error) {
	var setting entities.Setting
	err := r.db.WithContext(ctx).Table(tableSettings).Where("name = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", notFoundError(ErrSettingNotFound, key)
	}
	if err != nil {
		return "", dbError(err, "get_setting", "key", key)
	}
	return setting.Value, nil
}

func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	setting := entities.Setting{Key: key, Value: value}
	err := r.db.WithContext(ctx).Table(tableSettings).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
	if err != nil {
		return dbError(err, "set_setting", "key", key)
	}
	return nil
}

// sourceLoadRepository implements SourceLoadRepository.
type sourceLoadRepository struct {
	db *gorm.DB
}

// NewSourceLoadRepository creates a new SourceLoadRepository.
func NewSourceLoadRepository(db *gorm.DB) SourceLoadRepository {
	return &sourceLoadRepository{db: db}
}

func (r *sourceLoadRepository) Record(ctx context.Context, load *entities.SourceLoad) error {
	if !load.Source.Valid() {
		return validationError(ErrInvalidSource, "source", load.Source)
	}
	load.LastUpdated = load.LastUpdated.UTC()

	err := r.db.WithContext(ctx).Table(tableSourceLoads).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_updated", "row_count", "new_aliases"}),
		}).
		Create(load).Error
	if err != nil {
		return dbError(err, "record_source_load", "source", string(load.Source))
	}
	return nil
}

func (r *sourceLoadRepository) List(ctx context.Context) ([]entities.SourceLoad, error) {
	var loads []entities.SourceLoad
	if err := r.db.WithContext(ctx).Table(tableSourceLoads).Order("source ASC").Find(&loads).Error; err != nil {
		return nil, dbError(err, "list_source_loads")
	}
	return loads, nil
}
