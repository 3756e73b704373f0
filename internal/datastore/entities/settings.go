package entities

import "time"

// SettingKeyDuplicatePolicy stores the duplicate resolution policy.
const SettingKeyDuplicatePolicy = "duplicate_resolution_policy"

// Setting is a key/value entry of the settings store.
type Setting struct {
	Key       string    `gorm:"primaryKey;column:name;size:64"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Setting) TableName() string {
	return "settings"
}

// SourceLoad records the most recent ingestion for a source.
type SourceLoad struct {
	Source      Source    `gorm:"primaryKey;size:32"`
	LastUpdated time.Time `gorm:"not null"`
	RowCount    int       `gorm:"not null;default:0"`
	NewAliases  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM.
func (SourceLoad) TableName() string {
	return "source_loads"
}
