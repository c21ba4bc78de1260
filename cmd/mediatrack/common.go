package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nao1215/mediatrack/internal/classifier"
	"github.com/nao1215/mediatrack/internal/config"
	"github.com/nao1215/mediatrack/internal/log"
	"github.com/nao1215/mediatrack/internal/votes"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config flag from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// loadConfig builds the configuration from defaults and the config file.
// Commands apply their own flags on top.
// If the user explicitly names a config file, a missing file is an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	explicit := getConfigFlag(cmd)
	cfg.ConfigFilePath = explicit

	path := config.FindConfigFile(explicit)
	switch {
	case path != "":
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		file.Apply(cfg)
	case explicit != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicit)
	}
	return cfg, nil
}

// applyStoreFlags copies the vote store flags that were set onto cfg.
func applyStoreFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("votes-url") {
		v, err := flags.GetString("votes-url")
		if err != nil {
			return err
		}
		cfg.VoteStoreURL = v
	}
	if flags.Changed("local-votes") {
		v, err := flags.GetBool("local-votes")
		if err != nil {
			return err
		}
		cfg.UseLocalVotes = v
	}
	if flags.Changed("local-dir") {
		v, err := flags.GetString("local-dir")
		if err != nil {
			return err
		}
		cfg.LocalStoreDir = v
	}
	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.RequestTimeout = v
	}
	return nil
}

// addStoreFlags registers the flags read by applyStoreFlags.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("votes-url", config.DefaultVoteStoreURL, "Base URL of the vote store service")
	cmd.Flags().Bool("local-votes", false, "Store votes on this machine instead of the vote store service")
	cmd.Flags().String("local-dir", "", "Directory of the local votes (default: XDG data directory)")
	cmd.Flags().Duration("timeout", config.DefaultRequestTimeout, "Per-request timeout for collaborators (0 = none)")
}

// newLogger creates the structured logger for a command.
func newLogger(cfg *config.Config) *slog.Logger {
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)
	return logger
}

// httpClient returns the client used for collaborator requests.
// A zero timeout leaves requests unbounded.
func httpClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.RequestTimeout}
}

// newStore returns the configured vote store.
func newStore(cfg *config.Config, logger *slog.Logger) (votes.Store, error) {
	if cfg.UseLocalVotes {
		store, err := votes.NewLocalStore(cfg.LocalStoreDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open local vote store: %w", err)
		}
		logger.Debug("using local votes", slog.String("dir", cfg.LocalStoreDir))
		return store, nil
	}
	return votes.NewClient(cfg.VoteStoreURL,
		votes.WithHTTPClient(httpClient(cfg)),
		votes.WithLogger(logger),
	), nil
}

// newClassifier returns the configured classifier client.
func newClassifier(cfg *config.Config, logger *slog.Logger) *classifier.Client {
	return classifier.NewClient(cfg.ClassifierURL,
		classifier.WithHTTPClient(httpClient(cfg)),
		classifier.WithLogger(logger),
	)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// isTerminal reports whether stdout is an interactive terminal.
func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// successColor, warnColor and errorColor only colour terminal output.
func successColor() *color.Color { return newColor(color.FgGreen) }
func warnColor() *color.Color    { return newColor(color.FgYellow) }
func errorColor() *color.Color   { return newColor(color.FgRed) }

func newColor(attr color.Attribute) *color.Color {
	c := color.New(attr)
	if !isTerminal() {
		c.DisableColor()
	}
	return c
}

// ignoreCanceled drops context cancellation, the normal way long-running
// commands end.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
