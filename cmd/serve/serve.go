package serve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexknuckles/ultrasuite/internal/api"
	"github.com/alexknuckles/ultrasuite/internal/app"
	"github.com/alexknuckles/ultrasuite/internal/conf"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/logger"
)

// Command creates the serve command, which runs the JSON API.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long:  "Serve the SKU mapping and duplicate review API together with /metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		panic(err)
	}
	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings) error {
	if !settings.WebServer.Enabled {
		return fmt.Errorf("webserver is disabled in the configuration")
	}

	a, err := app.New(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer a.Close()

	errors.AddErrorHook(a.Metrics.Reconcile.RecordBuiltError)
	defer errors.ClearErrorHooks()

	server, err := api.New(settings, a.Services(),
		api.WithLogger(logger.Global().Module("api")),
		api.WithMetrics(a.Metrics))
	if err != nil {
		return err
	}
	return server.Run(cmd.Context())
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Listen, "listen", viper.GetString("webserver.listen"), "Listen address and port of the API")

	if err := viper.BindPFlag("webserver.listen", cmd.Flags().Lookup("listen")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
