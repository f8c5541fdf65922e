package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/spacapture/config"
	"github.com/use-agent/spacapture/models"
)

// Engine is the interface that all rendering engines must implement.
// An engine owns the browser process (if any) and hands out pages.
type Engine interface {
	// Name returns the engine identifier ("rod" or "static").
	Name() string

	// NewPage opens a fresh browser session.
	NewPage(ctx context.Context) (Page, error)

	// Close releases the engine and everything it launched.
	Close() error
}

// Page is the browser-control capability the capture pipeline depends on.
// A Page owns one document; it is not safe for use by more than one
// pipeline at a time.
type Page interface {
	// Navigate loads url and returns once the network has been idle for
	// the idle window, or fails when ctx expires first.
	Navigate(ctx context.Context, url string, idle time.Duration) error

	// WaitForSelector waits until at least one element matches the
	// selector group.
	WaitForSelector(ctx context.Context, selector string) error

	// Evaluate runs script inside the page with args and decodes its
	// JSON-compatible result into out (out may be nil).
	Evaluate(ctx context.Context, script Script, out any, args ...any) error

	// HTML serializes the current document, doctype included.
	HTML(ctx context.Context) (string, error)

	// Close ends the session and discards the document.
	Close() error
}

// ErrUnsupportedScript is returned by engines that cannot run a script.
var ErrUnsupportedScript = errors.New("engine: unsupported script")

// New constructs the engine selected by cfg.Browser.Engine.
func New(cfg *config.Config, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Browser.Engine {
	case config.EngineRod:
		return NewRodEngine(cfg.Browser, logger)
	case config.EngineStatic:
		return NewStaticEngine(StaticConfig{
			UserAgent:    cfg.Browser.UserAgent,
			FetchTimeout: cfg.Capture.FetchTimeout,
			Logger:       logger,
		}), nil
	default:
		return nil, models.NewCaptureError(
			models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown engine %q", cfg.Browser.Engine),
			nil,
		)
	}
}
