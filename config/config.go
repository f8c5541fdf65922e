package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Engine names accepted in BrowserConfig.Engine.
const (
	EngineRod    = "rod"
	EngineStatic = "static"
)

// configFileName is looked up in the XDG config directories when no
// explicit file is given.
const configFileName = "spacapture/config.yaml"

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Capture CaptureConfig `yaml:"capture"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
}

// BrowserConfig controls the rendering engine.
type BrowserConfig struct {
	// Engine selects the backend: "rod" (headless Chromium) or "static"
	// (plain HTTP, no JavaScript).
	Engine string `yaml:"engine"` // default: "rod"

	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"` // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"bin"`

	// ControlURL connects to an already running Chrome (DevTools websocket)
	// instead of launching one.
	ControlURL string `yaml:"control_url"`

	// Stealth injects anti-bot-detection evasions before navigation.
	Stealth bool `yaml:"stealth"`

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string `yaml:"user_agent"`

	ViewportWidth  int `yaml:"viewport_width"`  // default: 1280
	ViewportHeight int `yaml:"viewport_height"` // default: 800

	// BlockResources lists resource types the browser refuses to load
	// during capture. Allowed: "Image", "Font", "Media".
	BlockResources []string `yaml:"block_resources"`

	// BlockTrackers refuses requests to well-known ad and analytics hosts.
	// Their beacons can keep the network from ever going idle.
	BlockTrackers bool `yaml:"block_trackers"`
}

// BlockableResources are the resource types BlockResources may name.
// Stylesheets and scripts are needed to render the page.
var BlockableResources = []string{"Image", "Font", "Media"}

// CaptureConfig controls the capture pipeline.
type CaptureConfig struct {
	// NavigationTimeout bounds loading the page until network quiescence.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"` // default: 30s

	// ContentTimeout bounds the wait for a primary-content selector.
	ContentTimeout time.Duration `yaml:"content_timeout"` // default: 10s

	// IdleWindow is how long the network must stay idle to count as quiescent.
	IdleWindow time.Duration `yaml:"idle_window"` // default: 500ms

	// FetchTimeout bounds each stylesheet fetch of the static engine.
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // default: 10s

	// ContentSelectors is the disjunctive list of primary-content selectors.
	ContentSelectors []string `yaml:"content_selectors"`

	// AssetPattern is the src substring that marks bundled asset scripts.
	AssetPattern string `yaml:"asset_pattern"` // default: "/assets/"

	// H1MaxLength truncates the reported <h1> text (in characters).
	H1MaxLength int `yaml:"h1_max_length"` // default: 80

	// MinArtifactBytes is the size the stored artifact must exceed.
	MinArtifactBytes int `yaml:"min_artifact_bytes"` // default: 1000
}

// OutputConfig controls where the artifact goes.
type OutputConfig struct {
	// Path is the default artifact path when none is given on the command line.
	Path string `yaml:"path"` // default: "public/seo-test/index.html"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "text"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Engine:         EngineRod,
			Headless:       true,
			NoSandbox:      true,
			ViewportWidth:  1280,
			ViewportHeight: 800,
		},
		Capture: CaptureConfig{
			NavigationTimeout: 30 * time.Second,
			ContentTimeout:    10 * time.Second,
			IdleWindow:        500 * time.Millisecond,
			FetchTimeout:      10 * time.Second,
			ContentSelectors:  []string{"h1", `[data-testid="home"]`, "main", `[role="main"]`},
			AssetPattern:      "/assets/",
			H1MaxLength:       80,
			MinArtifactBytes:  1000,
		},
		Output: OutputConfig{
			Path: "public/seo-test/index.html",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: built-in defaults, then the YAML file at
// path (or the first spacapture/config.yaml found in the XDG config
// directories when path is empty), then SPACAPTURE_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if found, err := xdg.SearchConfigFile(configFileName); err == nil {
			path = found
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	b := &c.Browser
	b.Engine = envOr("SPACAPTURE_ENGINE", b.Engine)
	b.Headless = envBoolOr("SPACAPTURE_HEADLESS", b.Headless)
	b.NoSandbox = envBoolOr("SPACAPTURE_NO_SANDBOX", b.NoSandbox)
	b.BrowserBin = envOr("SPACAPTURE_BROWSER_BIN", b.BrowserBin)
	b.ControlURL = envOr("SPACAPTURE_CONTROL_URL", b.ControlURL)
	b.Stealth = envBoolOr("SPACAPTURE_STEALTH", b.Stealth)
	b.UserAgent = envOr("SPACAPTURE_USER_AGENT", b.UserAgent)
	b.BlockResources = envSliceOr("SPACAPTURE_BLOCK_RESOURCES", b.BlockResources)
	b.BlockTrackers = envBoolOr("SPACAPTURE_BLOCK_TRACKERS", b.BlockTrackers)

	cp := &c.Capture
	cp.NavigationTimeout = envDurationOr("SPACAPTURE_NAV_TIMEOUT", cp.NavigationTimeout)
	cp.ContentTimeout = envDurationOr("SPACAPTURE_CONTENT_TIMEOUT", cp.ContentTimeout)
	cp.IdleWindow = envDurationOr("SPACAPTURE_IDLE_WINDOW", cp.IdleWindow)
	cp.FetchTimeout = envDurationOr("SPACAPTURE_FETCH_TIMEOUT", cp.FetchTimeout)
	cp.ContentSelectors = envSliceOr("SPACAPTURE_CONTENT_SELECTORS", cp.ContentSelectors)
	cp.AssetPattern = envOr("SPACAPTURE_ASSET_PATTERN", cp.AssetPattern)
	cp.H1MaxLength = envIntOr("SPACAPTURE_H1_MAX_LENGTH", cp.H1MaxLength)
	cp.MinArtifactBytes = envIntOr("SPACAPTURE_MIN_BYTES", cp.MinArtifactBytes)

	c.Output.Path = envOr("SPACAPTURE_OUTPUT", c.Output.Path)

	c.Log.Level = envOr("SPACAPTURE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("SPACAPTURE_LOG_FORMAT", c.Log.Format)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Browser.Engine {
	case EngineRod, EngineStatic:
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q (want %q or %q)", c.Browser.Engine, EngineRod, EngineStatic))
	}
	for _, r := range c.Browser.BlockResources {
		if !slices.Contains(BlockableResources, r) {
			errs = append(errs, fmt.Errorf("block_resources: %q cannot be blocked (allowed: %s)", r, strings.Join(BlockableResources, ", ")))
		}
	}
	if c.Capture.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation_timeout must be positive"))
	}
	if c.Capture.ContentTimeout <= 0 {
		errs = append(errs, errors.New("content_timeout must be positive"))
	}
	// The content wait runs inside the navigation budget.
	if c.Capture.NavigationTimeout > 0 && c.Capture.ContentTimeout >= c.Capture.NavigationTimeout {
		errs = append(errs, fmt.Errorf("content_timeout (%s) must be shorter than navigation_timeout (%s)",
			c.Capture.ContentTimeout, c.Capture.NavigationTimeout))
	}
	if c.Capture.IdleWindow <= 0 {
		errs = append(errs, errors.New("idle_window must be positive"))
	}
	if len(c.Capture.ContentSelectors) == 0 {
		errs = append(errs, errors.New("content_selectors must not be empty"))
	}
	if c.Capture.H1MaxLength <= 0 {
		errs = append(errs, errors.New("h1_max_length must be positive"))
	}
	if c.Capture.MinArtifactBytes < 0 {
		errs = append(errs, errors.New("min_artifact_bytes must not be negative"))
	}
	return errors.Join(errs...)
}

// ContentSelector joins ContentSelectors into one selector group.
func (c *CaptureConfig) ContentSelector() string {
	return strings.Join(c.ContentSelectors, ", ")
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
