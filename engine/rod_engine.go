package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/spacapture/config"
	"github.com/use-agent/spacapture/models"
	"github.com/ysmood/gson"
)

// RodEngine renders pages in headless Chromium driven over CDP by go-rod.
type RodEngine struct {
	cfg      config.BrowserConfig
	browser  *rod.Browser
	launcher *launcher.Launcher // nil when connected to a remote browser
	logger   *slog.Logger
}

// NewRodEngine launches Chromium (or connects to cfg.ControlURL) and
// returns an engine ready to open pages.
func NewRodEngine(cfg config.BrowserConfig, logger *slog.Logger) (*RodEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var l *launcher.Launcher
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l = launcher.New().
			Headless(cfg.Headless).
			NoSandbox(cfg.NoSandbox)

		if cfg.BrowserBin != "" {
			l = l.Bin(cfg.BrowserBin)
		}

		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
		l.Set(flags.Flag("disable-background-timer-throttling"))
		l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
		l.Set(flags.Flag("disable-renderer-backgrounding"))
		l.Set(flags.Flag("disable-component-update"))
		l.Set(flags.Flag("disable-default-apps"))
		l.Set(flags.Flag("disable-dev-shm-usage"))
		l.Set(flags.Flag("disable-extensions"))
		l.Set(flags.Flag("no-first-run"))

		u, err := l.Launch()
		if err != nil {
			return nil, models.NewCaptureError(
				models.ErrCodeBrowserCrash,
				"failed to launch browser",
				err,
			)
		}
		controlURL = u
		logger.Debug("browser launched", "controlURL", controlURL)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, models.NewCaptureError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &RodEngine{
		cfg:      cfg,
		browser:  browser,
		launcher: l,
		logger:   logger,
	}, nil
}

func (e *RodEngine) Name() string { return config.EngineRod }

// NewPage opens a tab with the configured viewport, user agent, stealth
// script and request blocking, all in place before the first navigation.
func (e *RodEngine) NewPage(ctx context.Context) (Page, error) {
	page, err := e.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewCaptureError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}

	if e.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			e.logger.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if e.cfg.ViewportWidth > 0 && e.cfg.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             e.cfg.ViewportWidth,
			Height:            e.cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			e.logger.Warn("failed to set viewport", "error", err)
		}
	}

	if e.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: e.cfg.UserAgent}); err != nil {
			e.logger.Warn("failed to set user agent", "error", err)
		}
	}

	router := blockRequests(page, e.cfg.BlockResources, e.cfg.BlockTrackers)
	return &rodPage{page: page, router: router}, nil
}

// Close shuts the browser down. A remote browser (ControlURL) is left
// running; only the launched one is killed.
func (e *RodEngine) Close() error {
	if e.launcher == nil {
		return nil
	}
	err := e.browser.Close()
	e.launcher.Cleanup()
	return err
}

type rodPage struct {
	page   *rod.Page
	router *rod.HijackRouter // nil when nothing is blocked
}

// domStableDiff is the DOM change ratio under which the page counts as
// settled when the request-idle waiter cannot be used.
const domStableDiff = 0.1

func (p *rodPage) Navigate(ctx context.Context, url string, idle time.Duration) error {
	pg := p.page.Context(ctx)

	// WaitRequestIdle conflicts with HijackRequests on Chromium 145+, so a
	// page that blocks requests waits for a stable DOM instead.
	if p.router != nil {
		if err := pg.Navigate(url); err != nil {
			return err
		}
		if err := pg.WaitDOMStable(idle, domStableDiff); err != nil && ctx.Err() == nil {
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
		}
		return ctx.Err()
	}

	// The idle listener must be registered before navigating, otherwise the
	// requests of the initial load are missed and the wait returns at once.
	waitIdle := pg.WaitRequestIdle(idle, nil, nil, nil)

	if err := pg.Navigate(url); err != nil {
		return err
	}
	waitIdle()
	return ctx.Err()
}

func (p *rodPage) WaitForSelector(ctx context.Context, selector string) error {
	return p.page.Context(ctx).WaitElementsMoreThan(selector, 0)
}

func (p *rodPage) Evaluate(ctx context.Context, script Script, out any, args ...any) error {
	res, err := p.page.Context(ctx).Eval(script.JS, args...)
	if err != nil {
		return fmt.Errorf("rod: eval %s: %w", script.Name, err)
	}
	if out == nil {
		return nil
	}
	return decodeJSON(res.Value, out)
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(serializeJS)
	if err != nil {
		return "", fmt.Errorf("rod: serialize: %w", err)
	}
	return res.Value.Str(), nil
}

func (p *rodPage) Close() error {
	if p.router != nil {
		_ = p.router.Stop()
	}
	return p.page.Close()
}

// decodeJSON converts a CDP remote value into out via its JSON form.
func decodeJSON(v gson.JSON, out any) error {
	raw, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("rod: encode eval result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("rod: decode eval result: %w", err)
	}
	return nil
}
