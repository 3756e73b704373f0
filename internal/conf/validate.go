// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"time"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateReconcileSettings(&settings.Reconcile); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	switch settings.Type {
	case DatabaseSQLite:
		if strings.TrimSpace(settings.SQLite.Path) == "" {
			return fmt.Errorf("database.sqlite.path is required when database.type is sqlite")
		}
	case DatabaseMySQL:
		var missing []string
		if settings.MySQL.Host == "" {
			missing = append(missing, "host")
		}
		if settings.MySQL.Username == "" {
			missing = append(missing, "username")
		}
		if settings.MySQL.Database == "" {
			missing = append(missing, "database")
		}
		if len(missing) > 0 {
			return fmt.Errorf("database.mysql is missing: %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("database.type must be %q or %q, got %q", DatabaseSQLite, DatabaseMySQL, settings.Type)
	}

	if settings.SlowQueryThreshold < 0 {
		return fmt.Errorf("database.slowquerythreshold must not be negative")
	}
	return nil
}

func validateReconcileSettings(settings *ReconcileSettings) error {
	var errs []string

	if _, err := time.LoadLocation(settings.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("reconcile.timezone %q is not a known timezone", settings.Timezone))
	}

	if !slices.Contains(ValidPolicies(), settings.DefaultPolicy) {
		errs = append(errs, fmt.Sprintf("reconcile.defaultpolicy must be one of %s, got %q",
			strings.Join(ValidPolicies(), ", "), settings.DefaultPolicy))
	}

	if settings.ApplyBatchSize < 1 {
		errs = append(errs, "reconcile.applybatchsize must be at least 1")
	}

	if settings.LookupCacheTTL < 0 {
		errs = append(errs, "reconcile.lookupcachettl must not be negative")
	}

	if settings.Suggest.Threshold < 0 || settings.Suggest.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("reconcile.suggest.threshold must be between 0 and 1, got %g", settings.Suggest.Threshold))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("webserver.listen %q must be host:port: %w", settings.Listen, err)
	}
	return nil
}
