package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/mediatrack/internal/model"
	"github.com/nao1215/mediatrack/internal/report"
	"github.com/nao1215/mediatrack/internal/votedb"
	"github.com/nao1215/mediatrack/internal/votes"
)

// NewVotesCmd creates the votes command and its subcommands.
func NewVotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "votes",
		Short: "Inspect stored votes",
	}
	cmd.AddCommand(newVotesListCmd())
	cmd.AddCommand(newVotesShowCmd())
	return cmd
}

func newVotesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every voted image",
		Long: `List prints every image with at least one vote, most votes first.

Examples:
  # Table from the vote store service
  mediatrack votes list

  # Markdown report from the local votes
  mediatrack votes list --local-votes --markdown -o votes.md

  # Read a vote store database directly
  mediatrack votes list --db ~/.local/share/mediatrack`,
		Args: cobra.NoArgs,
		RunE: runVotesListCmd,
	}

	addStoreFlags(cmd)
	cmd.Flags().String("db", "", "Read the SQLite database in this directory instead of a vote store")
	cmd.Flags().BoolP("json", "j", false, "Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "", "Write the report to this file")
	cmd.Flags().IntP("limit", "n", 0, "Show at most this many rows in the table (0 = all)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// runVotesListCmd executes the votes list command.
func runVotesListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyStoreFlags(cmd, cfg); err != nil {
		return err
	}
	logger := newLogger(cfg)

	dbDir, err := cmd.Flags().GetString("db")
	if err != nil {
		return err
	}

	var store votes.Store
	if dbDir != "" {
		opts := votedb.DefaultOptions()
		opts.CreateIfNotExists = false
		db, err := votedb.Open(dbDir, opts)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
	} else if store, err = newStore(cfg, logger); err != nil {
		return err
	}

	tallies, err := store.All(cmd.Context())
	if err != nil {
		if errors.Is(err, votes.ErrUnavailable) {
			return fmt.Errorf("%w (start one with \"mediatrack serve\" or use --local-votes)", err)
		}
		return err
	}
	summary := model.NewVoteSummary(tallies, time.Now())

	w, closeOutput, err := newReportWriter(cmd)
	if err != nil {
		return err
	}
	defer closeOutput()

	_, err = w.Write(summary)
	return err
}

// newReportWriter picks the report format and destination from flags.
func newReportWriter(cmd *cobra.Command) (report.Writer, func(), error) {
	flags := cmd.Flags()
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return nil, nil, err
	}
	asMarkdown, err := flags.GetBool("markdown")
	if err != nil {
		return nil, nil, err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return nil, nil, err
	}
	output, err := flags.GetString("output")
	if err != nil {
		return nil, nil, err
	}

	out := cmd.OutOrStdout()
	closeOutput := func() {}
	toTerminal := output == "" && isTerminal()
	if output != "" {
		if dir := filepath.Dir(output); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		f, err := os.Create(output) //nolint:gosec // User-provided output path is intentional
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create report file: %w", err)
		}
		out = f
		closeOutput = func() { _ = f.Close() }
	}

	switch {
	case asJSON:
		return report.NewJSONWriter(out, report.WithPrettyPrint()), closeOutput, nil
	case asMarkdown:
		return report.NewMarkdownWriter(out), closeOutput, nil
	default:
		return report.NewTableWriter(out, report.WithColor(toTerminal), report.WithLimit(limit)), closeOutput, nil
	}
}

func newVotesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <image-url>",
		Short: "Show the tally of one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyStoreFlags(cmd, cfg); err != nil {
				return err
			}
			store, err := newStore(cfg, newLogger(cfg))
			if err != nil {
				return err
			}

			tally, err := store.Tally(cmd.Context(), model.Identity(args[0]))
			if err != nil {
				return err
			}
			verdict := "leans real"
			if tally.LeansFake() {
				verdict = "leans fake"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %d fake, %d real (%s)\n", args[0], tally.FakeVotes, tally.RealVotes, verdict)
			return nil
		},
	}
	addStoreFlags(cmd)
	return cmd
}
