package repository

import (
	"context"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
)

// SettingsRepository is the key/value settings store.
type SettingsRepository interface {
	// Get returns the value of a key, or ErrSettingNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores a value, replacing any previous one.
	Set(ctx context.Context, key, value string) error
}

// SourceLoadRepository records when each source was last loaded.
type SourceLoadRepository interface {
	// Record upserts the load record of a source.
	Record(ctx context.Context, load *entities.SourceLoad) error
	// List returns the load record of every source that has one.
	List(ctx context.Context) ([]entities.SourceLoad, error)
}
