package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexknuckles/ultrasuite/cmd/duplicates"
	"github.com/alexknuckles/ultrasuite/cmd/ingest"
	"github.com/alexknuckles/ultrasuite/cmd/policy"
	"github.com/alexknuckles/ultrasuite/cmd/serve"
	"github.com/alexknuckles/ultrasuite/cmd/skumap"
	"github.com/alexknuckles/ultrasuite/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ultrasuite",
		Short:         "Sales reconciliation for the Shopify and QuickBooks exports",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		skumap.Command(settings),
		duplicates.Command(settings),
		ingest.Command(settings),
		policy.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// flags take precedence over the loaded config
		if err := viper.Unmarshal(settings); err != nil {
			return fmt.Errorf("error applying flags: %w", err)
		}
		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.String("db", viper.GetString("database.sqlite.path"), "SQLite database path")
	flags.String("timezone", viper.GetString("reconcile.timezone"), "Time zone calendar dates are matched in")

	bindings := map[string]string{
		"debug":                "debug",
		"database.sqlite.path": "db",
		"reconcile.timezone":   "timezone",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}

	return nil
}
