// Package skumap implements the skumap command group.
package skumap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexknuckles/ultrasuite/internal/app"
	"github.com/alexknuckles/ultrasuite/internal/conf"
	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/skumap"
	"github.com/alexknuckles/ultrasuite/internal/suggest"
)

// Command creates the skumap command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skumap",
		Short: "Manage canonical product identities",
	}

	cmd.AddCommand(
		listCommand(settings),
		lookupCommand(settings),
		statsCommand(settings),
		categoryCommand(settings),
		mergeCommand(settings),
		rebindCommand(settings),
		replaceCommand(settings),
		clearCommand(settings),
		suggestCommand(settings),
		acceptCommand(settings),
	)
	return cmd
}

// run opens the services for one subcommand.
func run(cmd *cobra.Command, settings *conf.Settings, fn func(ctx context.Context, a *app.App) error) error {
	return app.Run(cmd.Context(), settings, fn)
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var view string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List groups with their aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, func(ctx context.Context, a *app.App) error {
				groups, err := a.Registry.Groups(ctx, skumap.GroupView(view))
				if err != nil {
					return err
				}
				if asJSON {
					return app.WriteJSON(cmd.OutOrStdout(), groups)
				}
				return printGroups(cmd.OutOrStdout(), groups)
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", string(skumap.ViewAll), "Groups to list: all, mapped or merged")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printGroups(w io.Writer, groups []skumap.Group) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CANONICAL\tCATEGORY\tPROVENANCE\tALIASES")
	for i := range groups {
		g := &groups[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.CanonicalID, g.Category, g.Provenance, strings.Join(g.Aliases, ", "))
	}
	return tw.Flush()
}

func lookupCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup CODE...",
		Short: "Resolve product codes to their canonical id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, func(ctx context.Context, a *app.App) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tCANONICAL\tCATEGORY\tKNOWN")
				for _, code := range args {
					res, err := a.Registry.Lookup(ctx, code)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", code, res.CanonicalID, res.Category, res.Known)
				}
				return tw.Flush()
			})
		},
	}
}

func statsCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count groups per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, func(ctx context.Context, a *app.App) error {
				stats, err := a.Registry.CategoryStats(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tGROUPS")
				for _, c := range entities.Categories() {
					fmt.Fprintf(tw, "%s\t%d\n", c, stats[c])
				}
				return tw.Flush()
			})
		},
	}
}

func categoryCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "category CANONICAL CATEGORY",
		Short: "Set the category of a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, func(ctx context.Context, a *app.App) error {
				return a.Registry.SetCategory(ctx, args[0], entities.Category(args[1]))
			})
		},
	}
}

func mergeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "merge TARGET SOURCE...",
		Short: "Merge groups into a target group",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, func(ctx context.Context, a *app.App) error {
				if len(args) == 2 {
					return a.Registry.Merge(ctx, args[1], args[0])
				}
				merged, err := a.Registry.MergeMany(ctx, args[0], args[1:])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "merged %d groups into %s\n", merged, args[0])
				return nil
			})
		},
	}
}

func rebindCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "rebind OLD NEW",
		Short: "Move a group to a new canonical id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, func(ctx context.Context, a *app.App) error {
				return a.Registry.Rebind(ctx, args[0], args[1])
			})
		},
	}
}

func replaceCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "replace CANONICAL CATEGORY [ALIAS...]",
		Short: "Rewrite a group's category and alias list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, func(ctx context.Context, a *app.App) error {
				return a.Registry.Replace(ctx, args[0], entities.Category(args[1]), args[2:])
			})
		},
	}
}

func clearCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "clear CANONICAL",
		Short: "Delete a group and all its aliases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, func(ctx context.Context, a *app.App) error {
				return a.Registry.Clear(ctx, args[0])
			})
		},
	}
}

func suggestCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Propose merges of near-identical canonical ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, func(ctx context.Context, a *app.App) error {
				suggestions, err := a.Registry.Suggestions(ctx, a.Strategy)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEEP\tMERGE\tSCORE")
				for _, s := range suggestions {
					fmt.Fprintf(tw, "%s\t%s\t%.3f\n", s.A, s.B, s.Score)
				}
				return tw.Flush()
			})
		},
	}
}

func acceptCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "accept KEEP MERGE",
		Short: "Accept a suggestion, merging MERGE into KEEP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, func(ctx context.Context, a *app.App) error {
				return a.Registry.AcceptSuggestion(ctx, suggest.Suggestion{A: args[0], B: args[1]})
			})
		},
	}
}
