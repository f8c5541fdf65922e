package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/spacapture/config"
	"github.com/use-agent/spacapture/engine"
	"github.com/use-agent/spacapture/models"
	"github.com/use-agent/spacapture/storage"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.UTC)

const shopPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Demo Shop</title>
<meta name="description" content="Everything for demos">
<meta property="og:title" content="Demo Shop">
<link rel="canonical" href="https://demo.example/">
<link rel="stylesheet" href="/style.css">
<script type="module" src="/assets/index-abc123.js"></script>
<script src="/analytics.js"></script>
</head>
<body><div id="root"><main><h1>Welcome</h1><p>Hello.</p></main></div></body>
</html>`

const brokenCSSPage = `<!DOCTYPE html>
<html>
<head>
<title>Broken</title>
<meta name="description" content="A page with a missing stylesheet">
<link rel="stylesheet" href="/missing.css">
</head>
<body><h1>Broken styles</h1></body>
</html>`

const emptyPage = `<html><head></head><body></body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/", serve(shopPage))
	mux.HandleFunc("/broken", serve(brokenCSSPage))
	mux.HandleFunc("/empty", serve(emptyPage))
	mux.HandleFunc("/style.css", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		fmt.Fprint(w, strings.Repeat("body{margin:0;padding:0}\n", 60))
	})
	mux.HandleFunc("/missing.css", http.NotFound)
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() config.CaptureConfig {
	cfg := config.Default().Capture
	cfg.NavigationTimeout = 5 * time.Second
	cfg.ContentTimeout = 100 * time.Millisecond
	cfg.IdleWindow = time.Millisecond
	return cfg
}

func newTestPipeline(t *testing.T, srv *httptest.Server, fs storage.FS) *Pipeline {
	t.Helper()
	eng := engine.NewStaticEngine(engine.StaticConfig{Client: srv.Client(), FetchTimeout: 2 * time.Second})
	t.Cleanup(func() { _ = eng.Close() })
	p := NewPipeline(eng, fs, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.now = func() time.Time { return fixedNow }
	return p
}

func newRequest(t *testing.T, rawURL string) *models.CaptureRequest {
	t.Helper()
	req, err := models.NewCaptureRequest(rawURL, filepath.Join(t.TempDir(), "out", "index.html"), false)
	require.NoError(t, err)
	return req
}

func TestPipeline_FullCapture(t *testing.T) {
	srv := newSite(t)
	p := newTestPipeline(t, srv, storage.OS{})
	req := newRequest(t, srv.URL+"/")

	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.NavigationStatus)
	assert.True(t, res.ContentFound)
	assert.Equal(t, models.StylesheetInlineResult{Total: 1, Inlined: 1, Failed: 0}, res.Stylesheets)
	assert.Equal(t, 1, res.ScriptsRemoved)
	assert.GreaterOrEqual(t, res.SEO.Passed, 4)
	assert.Equal(t, res.SEO.Total, res.SEO.Passed+res.SEO.Warned)
	assert.True(t, res.Verification.AllPassed, "failed checks: %v", res.Verification.Failed())

	stored, err := os.ReadFile(req.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, res.Artifact.HTML, string(stored))
	assert.Equal(t, len(stored), res.Verification.Size)
	assert.Contains(t, string(stored), `<meta name="capture-status" content="captured"`)
	assert.Contains(t, string(stored), `content="2026-03-04T05:06:07.890Z"`)
	assert.Contains(t, string(stored), "body{margin:0;padding:0}")
	assert.Contains(t, string(stored), `src="/analytics.js"`)
	assert.NotContains(t, string(stored), "index-abc123.js")
}

func TestPipeline_FailedStylesheetIsAdvisory(t *testing.T) {
	srv := newSite(t)
	p := newTestPipeline(t, srv, storage.OS{})
	req := newRequest(t, srv.URL+"/broken")

	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, models.StylesheetInlineResult{Total: 1, Inlined: 0, Failed: 1}, res.Stylesheets)
	assert.False(t, res.Verification.Checks[models.CheckNoExternalCSS])
	assert.False(t, res.Verification.AllPassed)

	stored, err := os.ReadFile(req.OutputPath())
	require.NoError(t, err)
	assert.Contains(t, string(stored), `href="/missing.css"`)
}

func TestPipeline_EmptyDocument(t *testing.T) {
	srv := newSite(t)
	p := newTestPipeline(t, srv, storage.OS{})
	req := newRequest(t, srv.URL+"/empty")

	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, res.ContentFound)
	assert.Equal(t, 0, res.SEO.Passed)
	assert.Equal(t, len(models.SEOFields), res.SEO.Warned)
	assert.True(t, res.Verification.Checks[models.CheckHasMarker])
	assert.False(t, res.Verification.AllPassed)
	assert.FileExists(t, req.OutputPath())
}

func TestPipeline_NavigationFailure(t *testing.T) {
	srv := newSite(t)
	p := newTestPipeline(t, srv, storage.OS{})

	dead := httptest.NewServer(http.NotFoundHandler())
	addr := dead.URL
	dead.Close()

	req := newRequest(t, addr+"/")
	res, err := p.Run(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, models.IsNavigationError(err))
	assert.Equal(t, models.ErrCodeNavigation, models.ErrorCode(err))
	assert.NoFileExists(t, req.OutputPath())
}

func TestPipeline_NavigationTimeout(t *testing.T) {
	srv := newSite(t)
	p := newTestPipeline(t, srv, storage.OS{})
	p.cfg.NavigationTimeout = 50 * time.Millisecond

	req := newRequest(t, srv.URL+"/slow")
	_, err := p.Run(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeNavigationTimeout, models.ErrorCode(err))
	assert.NoFileExists(t, req.OutputPath())
}

type failingFS struct {
	storage.OS
	writeErr error
	readErr  error
}

func (f failingFS) WriteFile(path string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.OS.WriteFile(path, data)
}

func (f failingFS) ReadFile(path string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.OS.ReadFile(path)
}

func TestPipeline_StorageFailure(t *testing.T) {
	srv := newSite(t)
	diskFull := errors.New("disk full")

	p := newTestPipeline(t, srv, failingFS{writeErr: diskFull})
	_, err := p.Run(context.Background(), newRequest(t, srv.URL+"/"))
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeStorage, models.ErrorCode(err))
	assert.ErrorIs(t, err, diskFull)

	p = newTestPipeline(t, srv, failingFS{readErr: os.ErrPermission})
	_, err = p.Run(context.Background(), newRequest(t, srv.URL+"/"))
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeStorage, models.ErrorCode(err))
}

func TestPipeline_AdvisoryStageFailures(t *testing.T) {
	page := &stubPage{
		html:    "<html><head><title>x</title></head><body><h1>x</h1></body></html>",
		evalErr: errors.New("evaluation failed"),
	}
	p := NewPipeline(&stubEngine{page: page}, storage.OS{}, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.now = func() time.Time { return fixedNow }
	req := newRequest(t, "http://spa.test/")

	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StylesheetInlineResult{}, res.Stylesheets)
	assert.Zero(t, res.ScriptsRemoved)
	assert.Equal(t, len(models.SEOFields), res.SEO.Warned)
	assert.True(t, res.Verification.Checks[models.CheckHasMarker])
	assert.True(t, page.closed)
}

func TestPipeline_SerializeFailure(t *testing.T) {
	page := &stubPage{htmlErr: errors.New("target closed")}
	p := NewPipeline(&stubEngine{page: page}, storage.OS{}, testConfig(), nil)
	req := newRequest(t, "http://spa.test/")

	_, err := p.Run(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeSerialize, models.ErrorCode(err))
	assert.NoFileExists(t, req.OutputPath())
}
