// Package capture turns a live client-rendered page into a static,
// crawler-readable HTML artifact: navigate, wait for content, inline
// stylesheets, strip module scripts, audit SEO tags, stamp and store the
// document, then verify what was stored.
package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/spacapture/config"
	"github.com/use-agent/spacapture/engine"
	"github.com/use-agent/spacapture/models"
	"github.com/use-agent/spacapture/storage"
)

// Result is everything one capture produced.
type Result struct {
	SourceURL  string
	OutputPath string
	Engine     string

	// NavigationStatus is the document's HTTP status, 0 when unknown.
	NavigationStatus int
	ContentFound     bool
	Stylesheets      models.StylesheetInlineResult
	ScriptsRemoved   int
	SEO              models.SEOReport
	Artifact         models.CapturedArtifact
	Verification     models.VerificationReport
	Duration         time.Duration
}

// Pipeline runs the capture stages in order against one page. Only
// navigation, serialization and storage failures abort a run; every other
// stage degrades to a warning.
type Pipeline struct {
	engine engine.Engine
	fs     storage.FS
	cfg    config.CaptureConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewPipeline wires a pipeline. A nil logger uses slog.Default().
func NewPipeline(eng engine.Engine, fs storage.FS, cfg config.CaptureConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		engine: eng,
		fs:     fs,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Run captures req.SourceURL() into req.OutputPath(). It returns a result
// whenever the artifact was written, regardless of how the checks came out.
func (p *Pipeline) Run(ctx context.Context, req *models.CaptureRequest) (*Result, error) {
	start := p.now()
	log := p.logger.With("url", req.SourceURL(), "engine", p.engine.Name())
	res := &Result{
		SourceURL:  req.SourceURL(),
		OutputPath: req.OutputPath(),
		Engine:     p.engine.Name(),
	}

	page, err := p.engine.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Debug("page close failed", "error", err)
		}
	}()

	// ── 1. Navigate ──────────────────────────────────────────────────
	log.Info("navigating", "timeout", p.cfg.NavigationTimeout)
	if err := Navigate(ctx, page, req.SourceURL(), p.cfg.NavigationTimeout, p.cfg.IdleWindow); err != nil {
		return nil, err
	}
	res.NavigationStatus = NavigationStatus(ctx, page)
	if res.NavigationStatus >= 400 {
		log.Warn("page responded with an error status", "status", res.NavigationStatus)
	}

	// ── 2. Primary content ───────────────────────────────────────────
	selector := p.cfg.ContentSelector()
	if err := WaitForContent(ctx, page, selector, p.cfg.ContentTimeout); err != nil {
		log.Warn("no primary content found, content may be empty or use unexpected markup",
			"selector", selector, "error", err)
	} else {
		res.ContentFound = true
		log.Info("primary content rendered")
	}

	// ── 3. Inline stylesheets ────────────────────────────────────────
	css, err := InlineStylesheets(ctx, page)
	switch {
	case err != nil:
		log.Warn("stylesheet inlining failed", "error", err)
	case css.Total == 0:
		log.Info("no external stylesheets found")
	case css.Failed > 0:
		log.Warn("some stylesheets could not be inlined",
			"total", css.Total, "inlined", css.Inlined, "failed", css.Failed)
	default:
		log.Info("stylesheets inlined", "count", css.Inlined)
	}
	res.Stylesheets = css

	// ── 4. Strip module scripts ──────────────────────────────────────
	removed, err := StripScripts(ctx, page, p.cfg.AssetPattern)
	if err != nil {
		log.Warn("script stripping failed", "error", err)
	} else {
		log.Info("module scripts removed", "count", removed)
	}
	res.ScriptsRemoved = removed

	// ── 5. SEO audit ─────────────────────────────────────────────────
	seo, err := ValidateSEO(ctx, page, p.cfg.H1MaxLength)
	if err != nil {
		log.Warn("SEO extraction failed", "error", err)
	}
	for _, f := range seo.Missing() {
		log.Warn("SEO tag missing", "field", f.Label())
	}
	log.Info("SEO audit complete", "passed", seo.Passed, "warnings", seo.Warned, "total", seo.Total)
	res.SEO = seo

	// ── 6. Snapshot, store, verify ───────────────────────────────────
	artifact, err := Snapshot(ctx, page, p.now())
	if err != nil {
		return nil, err
	}
	if err := Write(p.fs, req.OutputPath(), artifact); err != nil {
		return nil, err
	}
	res.Artifact = artifact
	log.Info("artifact written", "path", req.OutputPath(), "bytes", len(artifact.HTML))

	verification, err := Verify(p.fs, req.OutputPath(), p.cfg.MinArtifactBytes)
	if err != nil {
		return nil, err
	}
	for _, c := range verification.Failed() {
		log.Warn("verification check failed", "check", c.Label())
	}
	res.Verification = verification
	res.Duration = p.now().Sub(start)

	log.Info("capture complete",
		"all_passed", verification.AllPassed,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}
