package policy

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexknuckles/ultrasuite/internal/app"
	"github.com/alexknuckles/ultrasuite/internal/conf"
	"github.com/alexknuckles/ultrasuite/internal/resolution"
)

// Command creates the policy command for the stored duplicate policy.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Show or change the duplicate resolution policy",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the stored policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				p, err := a.Policies.Get(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}, &cobra.Command{
		Use:       "set POLICY",
		Short:     "Store the policy applied after each load",
		Args:      cobra.ExactArgs(1),
		ValidArgs: policyNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				return a.Policies.Set(ctx, resolution.Policy(args[0]))
			})
		},
	})
	return cmd
}

func policyNames() []string {
	policies := resolution.Policies()
	names := make([]string, len(policies))
	for i, p := range policies {
		names[i] = string(p)
	}
	return names
}
