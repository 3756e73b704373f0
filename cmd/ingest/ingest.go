package ingest

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexknuckles/ultrasuite/internal/app"
	"github.com/alexknuckles/ultrasuite/internal/conf"
)

// Command creates the ingest command, which loads batch files.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Load transaction batch files",
		Long: `Load YAML batch files of Shopify or QuickBooks rows. After each file the
new product codes are registered and the duplicate policy is applied.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				for _, path := range args {
					result, err := a.Loader.LoadFile(ctx, path)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s rows, %d new codes, policy %s\n",
						path, result.Rows, result.Source, result.NewAliases, result.Policy)
					if result.Applied != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "  resolved %d of %d open pairs\n",
							result.Applied.Resolved, result.Applied.Considered)
					}
				}
				return nil
			})
		},
	}
}
