package models

import (
	"net/url"
	"path/filepath"
	"strings"
)

// DefaultOutputPath is where the artifact is written when no path is given.
var DefaultOutputPath = filepath.Join("public", "seo-test", "index.html")

// CaptureRequest describes one capture. It is immutable once constructed.
type CaptureRequest struct {
	sourceURL        string
	outputPath       string
	openAfterCapture bool
}

// NewCaptureRequest validates the invocation input and returns a request.
//
// A URL without a scheme ("localhost:5173", "example.com/app") is treated as
// http. An empty output path falls back to DefaultOutputPath. The output path
// is made absolute against the working directory.
func NewCaptureRequest(rawURL, outputPath string, open bool) (*CaptureRequest, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, NewCaptureError(ErrCodeInvalidInput, "a URL is required", nil)
	}
	if !strings.Contains(rawURL, "://") && !strings.HasPrefix(rawURL, "about:") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewCaptureError(ErrCodeInvalidInput, "invalid URL", err)
	}
	if u.Scheme != "about" && u.Host == "" {
		return nil, NewCaptureError(ErrCodeInvalidInput, "URL has no host: "+rawURL, nil)
	}

	if strings.TrimSpace(outputPath) == "" {
		outputPath = DefaultOutputPath
	}
	abs, err := filepath.Abs(outputPath)
	if err != nil {
		return nil, NewCaptureError(ErrCodeInvalidInput, "cannot resolve output path", err)
	}

	return &CaptureRequest{
		sourceURL:        u.String(),
		outputPath:       abs,
		openAfterCapture: open,
	}, nil
}

// SourceURL is the page to render.
func (r *CaptureRequest) SourceURL() string { return r.sourceURL }

// OutputPath is the absolute destination of the artifact.
func (r *CaptureRequest) OutputPath() string { return r.outputPath }

// OpenAfterCapture reports whether the artifact should be opened in a viewer.
func (r *CaptureRequest) OpenAfterCapture() bool { return r.openAfterCapture }
