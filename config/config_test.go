package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, EngineRod, cfg.Browser.Engine)
	assert.Equal(t, 30*time.Second, cfg.Capture.NavigationTimeout)
	assert.Equal(t, 10*time.Second, cfg.Capture.ContentTimeout)
	assert.Equal(t, "/assets/", cfg.Capture.AssetPattern)
	assert.Equal(t, 80, cfg.Capture.H1MaxLength)
	assert.Equal(t, 1000, cfg.Capture.MinArtifactBytes)
	assert.Equal(t, `h1, [data-testid="home"], main, [role="main"]`, cfg.Capture.ContentSelector())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
browser:
  engine: static
  stealth: true
capture:
  navigation_timeout: 45s
  content_selectors: ["#app h1", "article"]
  asset_pattern: /static/js/
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("SPACAPTURE_NAV_TIMEOUT", "5s")
	t.Setenv("SPACAPTURE_LOG_LEVEL", "debug")
	t.Setenv("SPACAPTURE_H1_MAX_LENGTH", "120")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EngineStatic, cfg.Browser.Engine)
	assert.True(t, cfg.Browser.Stealth)
	// Unset keys keep their defaults.
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 10*time.Second, cfg.Capture.ContentTimeout)
	// Env wins over the file.
	assert.Equal(t, 5*time.Second, cfg.Capture.NavigationTimeout)
	assert.Equal(t, []string{"#app h1", "article"}, cfg.Capture.ContentSelectors)
	assert.Equal(t, "/static/js/", cfg.Capture.AssetPattern)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 120, cfg.Capture.H1MaxLength)
	// A 5s navigation budget cannot hold the default 10s content wait.
	assert.ErrorContains(t, cfg.Validate(), "shorter than navigation_timeout")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capture: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown engine", func(c *Config) { c.Browser.Engine = "chromedp" }},
		{"zero nav timeout", func(c *Config) { c.Capture.NavigationTimeout = 0 }},
		{"negative content timeout", func(c *Config) { c.Capture.ContentTimeout = -time.Second }},
		{"content timeout equals nav timeout", func(c *Config) { c.Capture.ContentTimeout = c.Capture.NavigationTimeout }},
		{"content timeout exceeds nav timeout", func(c *Config) {
			c.Capture.NavigationTimeout = 5 * time.Second
			c.Capture.ContentTimeout = 10 * time.Second
		}},
		{"zero idle window", func(c *Config) { c.Capture.IdleWindow = 0 }},
		{"no selectors", func(c *Config) { c.Capture.ContentSelectors = nil }},
		{"zero h1 length", func(c *Config) { c.Capture.H1MaxLength = 0 }},
		{"negative min bytes", func(c *Config) { c.Capture.MinArtifactBytes = -1 }},
		{"block stylesheets", func(c *Config) { c.Browser.BlockResources = []string{"Image", "Stylesheet"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_BlockResources(t *testing.T) {
	cfg := Default()
	cfg.Browser.BlockResources = BlockableResources
	cfg.Browser.BlockTrackers = true
	assert.NoError(t, cfg.Validate())
}

func TestEnvSliceOr(t *testing.T) {
	t.Setenv("SPACAPTURE_TEST_SLICE", " main , ,h1")
	assert.Equal(t, []string{"main", "h1"}, envSliceOr("SPACAPTURE_TEST_SLICE", nil))
	assert.Equal(t, []string{"x"}, envSliceOr("SPACAPTURE_TEST_UNSET", []string{"x"}))
}
