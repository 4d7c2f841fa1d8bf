package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/postclean/internal/config"
	"github.com/JonMunkholm/postclean/internal/core"
	"github.com/JonMunkholm/postclean/internal/logging"
)

// app carries flag values and the loaded configuration between commands.
type app struct {
	envFile string
	input   string
	output  string
	parser  string

	cfg *config.Config
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(&app{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Debug("command failed", "error", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(stderr, "Error:", core.FormatUserError(err))
		} else {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "postclean",
		Short: "Derive dates, lengths, hashtags and mentions for a CSV of posts",
		Long: `postclean reads a CSV of social-media posts with created_at, text and
entities columns, parses created_at, and appends date, tweet_length,
hashtags, hashtag_count, mentions and mentions_count.

Run without a subcommand it behaves like 'postclean clean'.`,
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              a.runClean,
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&a.parser, "parser", "", "entities parser: replace or literal (overrides ENTITY_PARSER)")
	addPathFlags(root, a)

	root.AddCommand(newCleanCmd(a), newServeCmd(a), newHistoryCmd(a), newResetCmd(a))
	return root
}

func addPathFlags(cmd *cobra.Command, a *app) {
	cmd.Flags().StringVarP(&a.input, "input", "i", "", "input CSV path (overrides INPUT_PATH)")
	cmd.Flags().StringVarP(&a.output, "output", "o", "", "output CSV path (overrides OUTPUT_PATH)")
}

// setup loads the dotenv file and configuration, applies flag overrides and
// installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Overload(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", a.envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.input != "" {
		cfg.Pipeline.InputPath = a.input
	}
	if a.output != "" {
		cfg.Pipeline.OutputPath = a.output
	}
	if a.parser != "" {
		cfg.Pipeline.EntityParser = a.parser
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	slog.Debug("configuration loaded", "config", cfg.String())
	return nil
}
