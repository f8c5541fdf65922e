package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/spacapture/capture"
	"github.com/use-agent/spacapture/config"
	"github.com/use-agent/spacapture/engine"
	"github.com/use-agent/spacapture/models"
	"github.com/use-agent/spacapture/report"
	"github.com/use-agent/spacapture/storage"
)

// errChecksFailed ends a capture whose artifact was written but failed
// verification. The report already says so, so Execute prints nothing more.
var errChecksFailed = errors.New("verification checks failed")

type options struct {
	output     string
	engine     string
	configPath string
	reportPath string
	open       bool
	verbose    bool
}

// NewRootCmd creates the spacapture command.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "spacapture <url>",
		Short: "Capture a client-rendered page as static, crawler-readable HTML",
		Long: `spacapture loads a single-page application in a headless browser, waits
for it to render, inlines its stylesheets, strips its module scripts, audits
its SEO tags and writes the result as one self-contained HTML file. The file
is then read back and verified.

The exit status is 0 only when every verification check passes.

Examples:
  # Capture a local dev server
  spacapture http://localhost:5173 --open

  # Write somewhere else and keep a Markdown report
  spacapture https://example.com --output dist/seo-test/index.html --report capture.md

  # Skip the browser and capture the raw server response
  spacapture https://example.com --engine static

Configuration is read from --config, or spacapture/config.yaml in the XDG
config directories, then SPACAPTURE_* environment variables. Flags win.`,
		Args:          cobra.ExactArgs(1),
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", models.DefaultOutputPath,
		"Output file path")
	cmd.Flags().BoolVar(&opts.open, "open", false,
		"Open the result in the default viewer after capture")
	cmd.Flags().StringVarP(&opts.engine, "engine", "e", config.EngineRod,
		"Page engine: rod (headless Chromium) or static (no JavaScript)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "",
		"Configuration file path")
	cmd.Flags().StringVarP(&opts.reportPath, "report", "r", "",
		"Also write a Markdown capture report to this path")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")

	return cmd
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, errChecksFailed) {
			report.Fatal(os.Stderr, err)
		}
		return 1
	}
	return 0
}

func runCapture(cmd *cobra.Command, rawURL string, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := initLogger(cfg.Log, cmd.ErrOrStderr())

	req, err := models.NewCaptureRequest(rawURL, cfg.Output.Path, opts.open)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("engine close failed", "error", err)
		}
	}()

	fs := storage.OS{}
	res, err := capture.NewPipeline(eng, fs, cfg.Capture, logger).Run(ctx, req)
	if err != nil {
		return err
	}

	var md bytes.Buffer
	writers := []report.Writer{report.NewTextWriter(cmd.OutOrStdout())}
	if opts.reportPath != "" {
		writers = append(writers, report.NewMarkdownWriter(&md))
	}
	if _, err := report.NewMultiWriter(writers...).Write(res); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if opts.reportPath != "" {
		if err := writeReport(fs, opts.reportPath, md.Bytes()); err != nil {
			logger.Warn("capture report not written", "path", opts.reportPath, "error", err)
		}
	}

	if req.OpenAfterCapture() {
		if err := openFile(req.OutputPath()); err != nil {
			logger.Warn("could not open the result", "error", err)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "  Opened in viewer.")
		}
	}

	if !res.Verification.AllPassed {
		return errChecksFailed
	}
	return nil
}

// applyFlags overlays explicitly set flags on the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *options) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = opts.output
	}
	if flags.Changed("engine") {
		cfg.Browser.Engine = opts.engine
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
}

func writeReport(fs storage.FS, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}
	return fs.WriteFile(path, data)
}
