package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/mediatrack/internal/browser"
	"github.com/nao1215/mediatrack/internal/clipboard"
	"github.com/nao1215/mediatrack/internal/config"
	"github.com/nao1215/mediatrack/internal/control"
	"github.com/nao1215/mediatrack/internal/dispatch"
	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/loop"
	"github.com/nao1215/mediatrack/internal/session"
)

// NewTrackCmd creates the track command.
func NewTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track <page-url>",
		Short: "Open a page and serve a tracking session on it",
		Long: `Track opens a page and waits for control requests.

The page is either parsed in memory (the default) or opened in a Chromium
tab with --browser, where the overlays are visible and clickable.
Detection starts when a client sends START_DETECTION, for example with
"mediatrack ctl start", or immediately with --start.

Examples:
  # Track a page and start detection right away
  mediatrack track --start https://example.com/news

  # Track a local HTML file
  mediatrack track ./page.html

  # Open a visible browser window and keep votes locally
  mediatrack track --browser --headless=false --local-votes https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runTrackCmd,
	}

	addStoreFlags(cmd)
	cmd.Flags().Bool("start", false, "Start detection as soon as the page is loaded")
	cmd.Flags().BoolP("browser", "b", false, "Drive a Chromium tab instead of the in-memory page model")
	cmd.Flags().Bool("headless", true, "Run Chromium without a window (with --browser)")
	cmd.Flags().String("control-addr", config.DefaultControlAddr, "Control listener address")
	cmd.Flags().String("classifier-url", config.DefaultClassifierURL, "Deepfake classifier detect endpoint")

	return cmd
}

// runTrackCmd executes the track command.
func runTrackCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildTrackConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	startNow, err := cmd.Flags().GetBool("start")
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	pageURL, err := dom.PageURL(args[0])
	if err != nil {
		return err
	}

	doc, closeDoc, err := openDocument(ctx, cfg, pageURL, logger)
	if err != nil {
		return err
	}
	defer closeDoc()

	store, err := newStore(cfg, logger)
	if err != nil {
		return err
	}

	l := loop.New()
	d := dispatch.New(l, store, newClassifier(cfg, logger),
		dispatch.WithLogger(logger),
		dispatch.WithMaxDimension(cfg.MaxImageDimension),
		dispatch.WithJPEGQuality(cfg.JPEGQuality),
		dispatch.WithConcurrency(cfg.TallyConcurrency),
		dispatch.WithPulse(cfg.PulseDuration),
	)
	ctl := session.New(doc, l, d,
		session.WithLogger(logger),
		session.WithClipboard(clipboard.Default(doc, cfg.JPEGQuality, clipboard.WithLogger(logger))),
		session.WithJPEGQuality(cfg.JPEGQuality),
	)
	srv := control.NewServer(ctl, control.WithServerLogger(logger))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Tracking %s\n", pageURL)
	fmt.Fprintf(out, "Control endpoint: %s\n", control.URL(cfg.ControlAddr))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(ctl.Run(gctx))
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.ControlAddr)
	})
	if startNow {
		g.Go(func() error {
			count, err := ctl.Start(gctx)
			if err != nil {
				return ignoreCanceled(err)
			}
			fmt.Fprintln(out, successColor().Sprintf("Detection started: %d element(s) tracked", count))
			return nil
		})
	}

	return g.Wait()
}

// buildTrackConfig creates a Config from the config file and track flags.
func buildTrackConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := applyStoreFlags(cmd, cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if cfg.Browser, err = flags.GetBool("browser"); err != nil {
		return nil, err
	}
	if flags.Changed("headless") {
		if cfg.Headless, err = flags.GetBool("headless"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("control-addr") {
		if cfg.ControlAddr, err = flags.GetString("control-addr"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("classifier-url") {
		if cfg.ClassifierURL, err = flags.GetString("classifier-url"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// openDocument opens pageURL in the configured backend. The returned
// function releases it.
func openDocument(ctx context.Context, cfg *config.Config, pageURL string, logger *slog.Logger) (dom.Document, func(), error) {
	loader := dom.NewFetchLoader(httpClient(cfg),
		dom.WithUserAgent(cfg.UserAgent),
		dom.WithMaxBodySize(cfg.MaxBodySize),
	)

	if cfg.Browser {
		p, err := browser.Launch(ctx, pageURL,
			browser.WithHeadless(cfg.Headless),
			browser.WithUserAgent(cfg.UserAgent),
			browser.WithLoader(loader),
			browser.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	}

	p, err := dom.Open(ctx, loader, pageURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("page loaded", slog.String("url", pageURL))
	return p, func() {}, nil
}
