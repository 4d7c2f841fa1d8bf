package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/postclean/internal/core"
	"github.com/JonMunkholm/postclean/internal/store"
)

func newCleanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean a CSV file and write the result",
		Long: `Clean reads the input CSV, derives the post columns and writes the
result to the output path. The output file is only replaced when every
step succeeds. When DATABASE_URL is set the cleaned rows are also stored
in Postgres under a new run ID.`,
		Args: cobra.NoArgs,
		RunE: a.runClean,
	}
	addPathFlags(cmd, a)
	return cmd
}

func (a *app) runClean(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := a.cfg

	var opts []core.Option
	if cfg.Database.Enabled() {
		st, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.EnsureSchema(ctx); err != nil {
			return err
		}
		opts = append(opts, core.WithSink(st))
	}

	svc, err := core.NewService(core.EntityParser(cfg.Pipeline.EntityParser), opts...)
	if err != nil {
		return err
	}

	run, err := svc.Run(ctx, core.RunOptions{
		InputPath:  cfg.Pipeline.InputPath,
		OutputPath: cfg.Pipeline.OutputPath,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Data cleaned and saved to '%s'\n", run.OutputPath)
	return nil
}
