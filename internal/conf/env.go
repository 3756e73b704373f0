// env.go - environment variable overrides for ultrasuite settings
package conf

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "ULTRASUITE_DEBUG", validateEnvBool},

		// Database
		{"database.type", "ULTRASUITE_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "ULTRASUITE_SQLITE_PATH", validateEnvPath},
		{"database.mysql.host", "ULTRASUITE_MYSQL_HOST", nil},
		{"database.mysql.port", "ULTRASUITE_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "ULTRASUITE_MYSQL_USERNAME", nil},
		{"database.mysql.password", "ULTRASUITE_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "ULTRASUITE_MYSQL_DATABASE", nil},

		// Reconciliation
		{"reconcile.timezone", "ULTRASUITE_TIMEZONE", validateEnvTimezone},
		{"reconcile.defaultpolicy", "ULTRASUITE_POLICY", validateEnvPolicy},
		{"reconcile.applybatchsize", "ULTRASUITE_APPLY_BATCH_SIZE", validateEnvPositiveInt},
		{"reconcile.suggest.threshold", "ULTRASUITE_SUGGEST_THRESHOLD", validateEnvThreshold},

		{"webserver.listen", "ULTRASUITE_LISTEN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	if value != DatabaseSQLite && value != DatabaseMySQL {
		return fmt.Errorf("must be %q or %q", DatabaseSQLite, DatabaseMySQL)
	}
	return nil
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a null byte")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvTimezone(value string) error {
	if _, err := time.LoadLocation(value); err != nil {
		return fmt.Errorf("unknown timezone")
	}
	return nil
}

func validateEnvPolicy(value string) error {
	if !slices.Contains(ValidPolicies(), value) {
		return fmt.Errorf("must be one of %s", strings.Join(ValidPolicies(), ", "))
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvThreshold(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 || f > 1 {
		return fmt.Errorf("must be a number between 0 and 1")
	}
	return nil
}
