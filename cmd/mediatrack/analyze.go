package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/mediatrack/internal/classifier"
	"github.com/nao1215/mediatrack/internal/clipboard"
	"github.com/nao1215/mediatrack/internal/config"
	"github.com/nao1215/mediatrack/internal/imaging"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [image-file]",
		Short: "Ask the deepfake classifier about an image file or the clipboard",
		Long: `Analyze sends an image to the deepfake classifier and prints the verdict.

The image is decoded, scaled to fit the configured bound and re-encoded
as JPEG before upload. EXIF traces of editing software are reported too.

Examples:
  # Analyze a file
  mediatrack analyze suspicious.png

  # Analyze the image currently on the clipboard
  mediatrack analyze --clipboard`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().Bool("clipboard", false, "Read the image from the clipboard")
	cmd.Flags().String("classifier-url", config.DefaultClassifierURL, "Deepfake classifier detect endpoint")
	cmd.Flags().Duration("timeout", config.DefaultRequestTimeout, "Classifier request timeout (0 = none)")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("classifier-url") {
		if cfg.ClassifierURL, err = flags.GetString("classifier-url"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.RequestTimeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	fromClipboard, err := flags.GetBool("clipboard")
	if err != nil {
		return err
	}
	if fromClipboard == (len(args) == 1) {
		return errors.New("specify either an image file or --clipboard")
	}

	logger := newLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	var data []byte
	if fromClipboard {
		dataURL, err := clipboard.Default(nil, cfg.JPEGQuality, clipboard.WithLogger(logger)).Read(ctx)
		if err != nil {
			return err
		}
		if data, _, err = imaging.ParseDataURL(dataURL); err != nil {
			return err
		}
	} else {
		if data, err = os.ReadFile(args[0]); err != nil { //nolint:gosec // User-provided path is intentional
			return fmt.Errorf("failed to read image: %w", err)
		}
	}

	if meta, ok := classifier.ReadMetadata(data); ok && meta.Edited() {
		fmt.Fprintln(cmd.OutOrStdout(), warnColor().Sprintf("EXIF names editing software: %s %s", meta.Software, meta.ProcessingSoftware))
	}

	img, _, err := imaging.Decode(data)
	if err != nil {
		return err
	}
	payload, err := imaging.EncodeJPEG(imaging.Fit(img, cfg.MaxImageDimension), cfg.JPEGQuality)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), classifier.AnalyzingText)
	res, err := newClassifier(cfg, logger).Detect(ctx, payload)
	printVerdict(cmd, res, err)
	return err
}
