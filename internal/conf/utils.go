package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/alexknuckles/ultrasuite/internal/errors"
)

const appDirName = "ultrasuite"

// GetDefaultConfigPaths returns the directories searched for config.yaml, in
// priority order. The first entry is where a default config is created.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryConfiguration).
				Context("operation", "get-executable-path").
				Build()
		}
		return []string{
			filepath.Join(homeDir, "AppData", "Roaming", appDirName),
			filepath.Dir(exePath),
		}, nil
	}

	return []string{
		filepath.Join(homeDir, ".config", appDirName),
		"/etc/" + appDirName,
		".",
	}, nil
}

// ValidPolicies lists the accepted duplicate resolution policies.
func ValidPolicies() []string {
	return []string{PolicyReview, PolicyKeepASource, PolicyKeepBSource, PolicyKeepBoth}
}
