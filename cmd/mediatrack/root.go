package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for mediatrack.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mediatrack",
		Short: "Track page media and vote on whether it is fake",
		Long: `mediatrack finds the images and videos on a web page and frames each one
with an overlay. Images get "fake" and "real" vote buttons backed by a shared
vote store, plus an "AI Analysis" button that asks a deepfake classifier.

A tracking session is driven over a local control connection, so other
tools (or "mediatrack ctl") can start and stop detection and read images.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .mediatrack in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewTrackCmd())
	cmd.AddCommand(NewCtlCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVotesCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor().Sprint(err))
		os.Exit(1)
	}
}
