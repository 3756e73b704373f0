// config.go: settings struct for ultrasuite and the functions to load and save it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/alexknuckles/ultrasuite/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Database backends
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// Duplicate resolution policies, applied automatically after ingestion.
const (
	PolicyReview      = "review"
	PolicyKeepASource = "keep_a_source"
	PolicyKeepBSource = "keep_b_source"
	PolicyKeepBoth    = "keep_both"
)

// SQLiteSettings configures the embedded store.
type SQLiteSettings struct {
	Path string // database file path
}

// MySQLSettings configures a shared MySQL store.
type MySQLSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DatabaseSettings selects and configures the store backend.
type DatabaseSettings struct {
	Type               string         // sqlite or mysql
	SQLite             SQLiteSettings // sqlite settings
	MySQL              MySQLSettings  // mysql settings
	SlowQueryThreshold time.Duration  // queries slower than this are logged at warn, 0 disables
}

// SuggestSettings tunes the merge suggestion heuristic.
type SuggestSettings struct {
	Threshold         float64  // minimum similarity score, 0..1
	StripTokens       []string // literal tokens removed before comparison
	BucketByFirstChar bool     // only compare ids sharing a first character
}

// ReconcileSettings holds the duplicate detection and resolution options.
type ReconcileSettings struct {
	Timezone       string        // calendar dates for matching are taken in this zone
	DefaultPolicy  string        // policy used when the settings store has none
	ApplyBatchSize int           // candidates resolved per transaction by ApplyPolicy
	LookupCacheTTL time.Duration // lifetime of the cached alias snapshot
	Suggest        SuggestSettings
}

// WebServerSettings configures the JSON API.
type WebServerSettings struct {
	Enabled bool
	Listen  string // host:port
}

// Settings contains all configuration options for ultrasuite.
type Settings struct {
	Debug bool // true to enable debug mode

	Main struct {
		Name string // name of this ultrasuite instance
	}

	Database  DatabaseSettings
	Logging   logger.LoggingConfig
	Reconcile ReconcileSettings
	WebServer WebServerSettings
}

// Location returns the reconciliation timezone. Validation guarantees it loads.
func (r *ReconcileSettings) Location() *time.Location {
	if r.Timezone == "" || r.Timezone == "UTC" {
		return time.UTC
	}
	if r.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	configFileUsed   string
)

// Load reads the configuration from the default search paths.
func Load() (*Settings, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from configFile, or from the default search
// paths when configFile is empty. A missing default config is created.
func LoadFrom(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	configFileUsed = viper.ConfigFileUsed()
	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, binds the environment and reads the config file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml into dir and reads it.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	logger.Global().Module("conf").Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default config.yaml.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the path of the config file read by the last Load.
func ConfigFileUsed() string {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return configFileUsed
}

// SaveYAMLConfig writes settings to configPath atomically. Comments and
// ordering of an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempName := tempFile.Name()
	defer os.Remove(tempName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
