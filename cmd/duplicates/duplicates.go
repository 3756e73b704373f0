// Package duplicates implements the duplicates command group.
package duplicates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexknuckles/ultrasuite/internal/app"
	"github.com/alexknuckles/ultrasuite/internal/conf"
	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/duplicates"
	"github.com/alexknuckles/ultrasuite/internal/resolution"
)

// Command creates the duplicates command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Review sales recorded by both sources",
	}

	cmd.AddCommand(
		listCommand(settings),
		resolveCommand(settings),
		transitionCommand(settings, "unmatch", "Reopen a resolved pair, restoring the deleted row",
			func(s *resolution.Service) transitionFunc { return s.Unmatch }),
		transitionCommand(settings, "ignore", "Hide a pair from the review lists",
			func(s *resolution.Service) transitionFunc { return s.Ignore }),
		transitionCommand(settings, "unignore", "Return an ignored pair to review",
			func(s *resolution.Service) transitionFunc { return s.Unignore }),
		applyCommand(settings),
		ledgerCommand(settings),
		historyCommand(settings),
	)
	return cmd
}

type transitionFunc func(ctx context.Context, key entities.PairKey) (*entities.LedgerEntry, error)

func listCommand(settings *conf.Settings) *cobra.Command {
	var (
		q          duplicates.Query
		view       string
		start, end string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List duplicate candidates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := settings.Reconcile.Location()
			var err error
			if q.Start, err = parseDate(start, loc, false); err != nil {
				return err
			}
			if q.End, err = parseDate(end, loc, true); err != nil {
				return err
			}
			q.View = duplicates.View(view)

			return app.Run(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				candidates, err := a.Detector.FindDuplicates(ctx, q)
				if err != nil {
					return err
				}
				if asJSON {
					return app.WriteJSON(cmd.OutOrStdout(), candidates)
				}
				return printCandidates(cmd.OutOrStdout(), candidates, loc)
			})
		},
	}
	cmd.Flags().StringVar(&q.Canonical, "canonical", "", "Only pairs resolving to this canonical id")
	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&view, "view", string(duplicates.ViewDefault), "default, attention, ignored or all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printCandidates(w io.Writer, candidates []duplicates.Candidate, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "A\tB\tDATE\tCANONICAL\tQTY\tTOTAL\tSTATE")
	for i := range candidates {
		c := &candidates[i]
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			c.SourceARowID, c.SourceBRowID,
			c.NominalTime.In(loc).Format("2006-01-02 15:04"),
			c.CanonicalID, c.Quantity, c.Total, state(c))
	}
	return tw.Flush()
}

func state(c *duplicates.Candidate) string {
	switch {
	case c.Ignored:
		return "ignored"
	case c.Unmatched:
		return "unmatched"
	case c.Resolved():
		return string(c.Action)
	default:
		return "open"
	}
}

func resolveCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve A B ACTION",
		Short: "Resolve a pair with keep_a, keep_b or keep_both",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0], args[1])
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				entry, err := a.Resolution.Resolve(ctx, key, entities.Action(args[2]))
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), []entities.LedgerEntry{*entry})
			})
		},
	}
}

func transitionCommand(settings *conf.Settings, use, short string, pick func(*resolution.Service) transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " A B",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0], args[1])
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				entry, err := pick(a.Resolution)(ctx, key)
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), []entities.LedgerEntry{*entry})
			})
		},
	}
}

func applyCommand(settings *conf.Settings) *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Resolve every open pair with a policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				p := resolution.Policy(policy)
				if p == "" {
					var err error
					if p, err = a.Policies.Get(ctx); err != nil {
						return err
					}
				}
				result, err := a.Resolution.ApplyPolicy(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "policy %s: %d considered, %d resolved, %d skipped in %d batches\n",
					result.Policy, result.Considered, result.Resolved, result.Skipped, result.Batches)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "Policy to apply, defaults to the stored policy")
	return cmd
}

func ledgerCommand(settings *conf.Settings) *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List the latest decision per pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				entries, err := a.Resolution.Entries(ctx, resolution.LedgerView(view))
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", string(resolution.LedgerAll), "resolved, ignored, unmatched or all")
	return cmd
}

func historyCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "history A B",
		Short: "Show every ledger entry of a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0], args[1])
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), settings, func(ctx context.Context, a *app.App) error {
				entries, err := a.Resolution.History(ctx, key)
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), entries)
			})
		},
	}
}

func printEntries(w io.Writer, entries []entities.LedgerEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tA\tB\tACTION\tIGNORED\tCANONICAL\tQTY\tTOTAL")
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%t\t%s\t%s\t%s\n",
			e.ResolvedAt.Format(time.RFC3339), e.SourceARowID, e.SourceBRowID,
			e.Action, e.Ignored, e.CanonicalID, e.Quantity, e.Total)
	}
	return tw.Flush()
}

func parseKey(a, b string) (entities.PairKey, error) {
	ida, err := strconv.ParseUint(a, 10, 64)
	if err != nil {
		return entities.PairKey{}, fmt.Errorf("invalid row id %q: %w", a, err)
	}
	idb, err := strconv.ParseUint(b, 10, 64)
	if err != nil {
		return entities.PairKey{}, fmt.Errorf("invalid row id %q: %w", b, err)
	}
	return entities.PairKey{SourceARowID: uint(ida), SourceBRowID: uint(idb)}, nil
}

// parseDate reads a YYYY-MM-DD bound in loc. An end bound covers the whole day.
func parseDate(s string, loc *time.Location, end bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if end {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}
