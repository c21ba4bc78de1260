package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/mediatrack/internal/config"
	"github.com/nao1215/mediatrack/internal/server"
	"github.com/nao1215/mediatrack/internal/votedb"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the vote store service",
		Long: `Serve runs the vote store HTTP API backed by a SQLite database.

Endpoints:
  GET  /api/votes/{imageUrl}   counters for one image (zeros if absent)
  POST /api/votes              {"imageUrl": "...", "isFake": true}
  GET  /api/votes              every tally
  GET  /health                 service status

Examples:
  # Serve on the default address (:3000)
  mediatrack serve

  # Serve on another port with the database in ./data
  mediatrack serve --addr :8080 --db-dir ./data`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", config.DefaultServeAddr, "Listen address")
	cmd.Flags().String("db-dir", "", "Directory of the SQLite database (default: XDG data directory)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		if cfg.ServeAddr, err = cmd.Flags().GetString("addr"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return err
		}
	}

	logger := newLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	db, err := votedb.Open(cfg.DBDir, votedb.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "path", db.Path())

	fmt.Fprintf(cmd.OutOrStdout(), "Vote store listening on %s (database: %s)\n", cfg.ServeAddr, db.Path())
	return server.New(db, server.WithLogger(logger)).ListenAndServe(ctx, cfg.ServeAddr)
}
