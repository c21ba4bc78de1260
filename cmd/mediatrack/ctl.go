package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/mediatrack/internal/classifier"
	"github.com/nao1215/mediatrack/internal/config"
	"github.com/nao1215/mediatrack/internal/control"
	"github.com/nao1215/mediatrack/internal/imaging"
	"github.com/nao1215/mediatrack/internal/model"
)

// NewCtlCmd creates the ctl command and its subcommands.
func NewCtlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Send control requests to a running tracking session",
		Long: `Ctl talks to a session started with "mediatrack track".

Examples:
  # Start detection and show what is tracked
  mediatrack ctl start
  mediatrack ctl status

  # Save an image from the page as JPEG
  mediatrack ctl image-data https://example.com/photo.png -o photo.jpg

  # Ask the classifier about an image on the page
  mediatrack ctl analyze https://example.com/photo.png`,
	}

	cmd.PersistentFlags().String("addr", config.DefaultControlAddr, "Control listener address")
	cmd.PersistentFlags().Duration("wait", 30*time.Second, "How long to wait for a response")

	cmd.AddCommand(newCtlStartCmd())
	cmd.AddCommand(newCtlStopCmd())
	cmd.AddCommand(newCtlStatusCmd())
	cmd.AddCommand(newCtlImageDataCmd())
	cmd.AddCommand(newCtlClipboardCmd())
	cmd.AddCommand(newCtlArticleCmd())
	cmd.AddCommand(newCtlAnalyzeCmd())
	cmd.AddCommand(newCtlVoteCmd())

	return cmd
}

// withControl dials the session and runs fn with a bounded context.
func withControl(cmd *cobra.Command, fn func(ctx context.Context, c *control.Client) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		if cfg.ControlAddr, err = cmd.Flags().GetString("addr"); err != nil {
			return err
		}
	}
	wait, err := cmd.Flags().GetDuration("wait")
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), wait)
	defer cancel()

	c, err := control.Dial(ctx, cfg.ControlAddr, control.WithClientLogger(logger))
	if err != nil {
		if control.IsNoListener(err) {
			return fmt.Errorf("%w (is \"mediatrack track\" running?)", err)
		}
		return err
	}
	defer c.Close()

	return fn(ctx, c)
}

func newCtlStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start detection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd, func(ctx context.Context, c *control.Client) error {
				count, err := c.Start(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successColor().Sprintf("Detection started: %d element(s) tracked", count))
				return nil
			})
		},
	}
}

func newCtlStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop detection and remove every overlay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd, func(ctx context.Context, c *control.Client) error {
				if err := c.Stop(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Detection stopped")
				return nil
			})
		},
	}
}

func newCtlStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether detection is active and what is tracked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd, func(ctx context.Context, c *control.Client) error {
				st, err := c.Status(ctx)
				if err != nil {
					return err
				}
				printStatus(cmd, st)
				return nil
			})
		},
	}
}

// printStatus writes a status response as a header line and a table.
func printStatus(cmd *cobra.Command, st control.StatusResponse) {
	out := cmd.OutOrStdout()
	if !st.Active {
		fmt.Fprintln(out, warnColor().Sprint("Detection is not active"))
		return
	}
	fmt.Fprintln(out, successColor().Sprintf("Detection active: %d element(s) tracked", st.Count))
	if len(st.Entries) == 0 {
		return
	}

	rows := make([][]string, len(st.Entries))
	for i, e := range st.Entries {
		rows[i] = []string{strconv.Itoa(i + 1), e.Kind.String(), e.Source}
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Kind", "Source"}, rows, []columnAlignment{alignRight}))
}

func newCtlImageDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image-data <src>",
		Short: "Read the current pixels of a page image as JPEG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withControl(cmd, func(ctx context.Context, c *control.Client) error {
				dataURL, err := c.ImageData(ctx, args[0])
				if err != nil {
					return err
				}
				return writeDataURL(cmd, dataURL)
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write the decoded image to this file instead of printing the data URL")
	return cmd
}

func newCtlClipboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clipboard",
		Short: "Read an image from the clipboard of the tracking session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd, func(ctx context.Context, c *control.Client) error {
				dataURL, err := c.ClipboardImage(ctx)
				if err != nil {
					return err
				}
				return writeDataURL(cmd, dataURL)
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write the decoded image to this file instead of printing the data URL")
	return cmd
}

// writeDataURL prints dataURL, or decodes it into the --output file.
func writeDataURL(cmd *cobra.Command, dataURL string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), dataURL)
		return nil
	}

	data, mime, err := imaging.ParseDataURL(dataURL)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d bytes)\n", output, mime, len(data))
	return nil
}

func newCtlArticleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "article",
		Short: "Print the article text of the page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withControl(cmd, func(ctx context.Context, c *control.Client) error {
				text, err := c.ArticleText(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}

func newCtlAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <src>",
		Short: "Send a page image to the deepfake classifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withControl(cmd, func(ctx context.Context, c *control.Client) error {
				dataURL, err := c.ImageData(ctx, args[0])
				if err != nil {
					return err
				}
				data, _, err := imaging.ParseDataURL(dataURL)
				if err != nil {
					return err
				}

				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("classifier-url") {
					if cfg.ClassifierURL, err = cmd.Flags().GetString("classifier-url"); err != nil {
						return err
					}
				}
				res, err := newClassifier(cfg, newLogger(cfg)).Detect(ctx, data)
				printVerdict(cmd, res, err)
				return err
			})
		},
	}
	cmd.Flags().String("classifier-url", config.DefaultClassifierURL, "Deepfake classifier detect endpoint")
	return cmd
}

// printVerdict writes the overlay text of a classifier outcome.
func printVerdict(cmd *cobra.Command, res classifier.Result, err error) {
	text := classifier.DisplayText(res, err)
	switch {
	case err != nil:
		fmt.Fprintln(cmd.OutOrStdout(), errorColor().Sprint(text))
	case res.LikelyDeepfake():
		fmt.Fprintln(cmd.OutOrStdout(), warnColor().Sprint(text))
	default:
		fmt.Fprintln(cmd.OutOrStdout(), successColor().Sprint(text))
	}
}

func newCtlVoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote <image-url>",
		Short: "Cast a fake or real vote for an image",
		Long: `Vote sends one vote for an image to the configured vote store and prints
the updated tally. Exactly one of --fake or --real is required.`,
		Args: cobra.ExactArgs(1),
		RunE: runCtlVoteCmd,
	}
	addStoreFlags(cmd)
	cmd.Flags().Bool("fake", false, "Vote the image as fake")
	cmd.Flags().Bool("real", false, "Vote the image as real")
	cmd.MarkFlagsMutuallyExclusive("fake", "real")
	cmd.MarkFlagsOneRequired("fake", "real")
	return cmd
}

func runCtlVoteCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyStoreFlags(cmd, cfg); err != nil {
		return err
	}
	isFake, err := cmd.Flags().GetBool("fake")
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}

	identity := model.Identity(args[0])
	if identity == "" {
		return errors.New("image URL must not be empty")
	}
	tally, err := store.Vote(cmd.Context(), identity, isFake)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), successColor().Sprintf("%d fake, %d real", tally.FakeVotes, tally.RealVotes))
	return nil
}
