package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/postclean/internal/store"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs stored in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printRuns(cmd.OutOrStdout(), runs)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultHistoryLimit, "number of runs to show")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Delete every stored run and its posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			return a.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Stored runs deleted")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

// withStore opens the configured database for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(*store.Store) error) error {
	if !a.cfg.Database.Enabled() {
		return errNoDatabase
	}
	st, err := store.Open(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}
	return fn(st)
}

func printRuns(w io.Writer, runs []store.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tROWS\tBYTES\tFALLBACKS (#/@)\tDURATION\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d/%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.RowCount, r.BytesRead,
			r.HashtagFallbacks, r.MentionFallbacks, r.Duration().Round(time.Millisecond), r.OutputPath)
	}
	return tw.Flush()
}
