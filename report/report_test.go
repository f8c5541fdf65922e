package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/spacapture/capture"
	"github.com/use-agent/spacapture/models"
)

func sampleResult(allPassed bool) *capture.Result {
	checks := make(map[models.Check]bool, len(models.Checks))
	for _, c := range models.Checks {
		checks[c] = true
	}
	if !allPassed {
		checks[models.CheckNoExternalCSS] = false
	}

	return &capture.Result{
		SourceURL:        "http://localhost:5173/",
		OutputPath:       "/srv/site/public/seo-test/index.html",
		Engine:           "static",
		NavigationStatus: 200,
		ContentFound:     true,
		Stylesheets:      models.StylesheetInlineResult{Total: 2, Inlined: 1, Failed: 1},
		ScriptsRemoved:   3,
		SEO: models.SEOReport{
			Values: map[models.SEOField]string{
				models.SEOTitle:       "Demo Shop",
				models.SEODescription: strings.Repeat("d", 100),
			},
			Passed: 2,
			Warned: 8,
			Total:  10,
		},
		Artifact: models.CapturedArtifact{
			HTML:       strings.Repeat("x", 4096),
			CapturedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		},
		Verification: models.VerificationReport{Checks: checks, AllPassed: allPassed, Size: 4096},
		Duration:     1500 * time.Millisecond,
	}
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewTextWriter(&buf).Write(sampleResult(false))
	require.NoError(t, err)
	assert.Equal(t, buf.Len(), n)

	out := buf.String()
	assert.Contains(t, out, "Source: http://localhost:5173/")
	assert.Contains(t, out, "[1/7] Navigating to http://localhost:5173/")
	assert.Contains(t, out, "[7/7] Writing output and verifying")
	assert.Contains(t, out, "WARN  Inlined 1/2 stylesheets (1 failed)")
	assert.Contains(t, out, "PASS  Removed 3 script(s)")
	assert.Contains(t, out, "PASS  <title>: Demo Shop")
	assert.Contains(t, out, "PASS  meta description: "+strings.Repeat("d", 60)+"...")
	assert.Contains(t, out, "WARN  og:image: MISSING")
	assert.Contains(t, out, "PASS  Captured 4 KB of HTML")
	assert.Contains(t, out, "FAIL  No external stylesheet links (CSS inlined)")
	assert.Contains(t, out, "SEO tags found:          2/10")
	assert.Contains(t, out, "SOME CHECKS FAILED")
	assert.Contains(t, out, "8 SEO tag(s) missing")
}

func TestTextWriter_AllPassed(t *testing.T) {
	res := sampleResult(true)
	res.Stylesheets = models.StylesheetInlineResult{}
	res.ScriptsRemoved = 0

	var buf bytes.Buffer
	_, err := NewTextWriter(&buf).Write(res)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "..    No external stylesheets found")
	assert.Contains(t, out, "..    No module/asset scripts found")
	assert.Contains(t, out, "ALL PASSED")
	assert.NotContains(t, out, "FAIL")
	assert.NotContains(t, out, "Review the output")
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewMarkdownWriter(&buf).Write(sampleResult(false))
	require.NoError(t, err)
	assert.Positive(t, n)

	out := buf.String()
	assert.Contains(t, out, "# SPA Capture Report")
	assert.Contains(t, out, "## SEO Tags")
	assert.Contains(t, out, "## Verification")
	assert.Contains(t, out, "`http://localhost:5173/`")
	assert.Contains(t, out, "[!WARNING]")
	assert.Contains(t, out, "og:image")
	assert.Contains(t, out, "2/10 tags found.")
}

func TestMarkdownWriter_EscapesCells(t *testing.T) {
	res := sampleResult(true)
	res.SEO.Values[models.SEOTitle] = "Demo Shop | Home"
	res.SEO.Values[models.SEOH1] = "Use `npm i` <b>now</b>"

	var buf bytes.Buffer
	_, err := NewMarkdownWriter(&buf).Write(res)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "`Demo Shop \\| Home`")
	assert.Contains(t, out, "`<title>`")
	assert.Contains(t, out, "`<h1> heading`")
	assert.Contains(t, out, "`` Use `npm i` <b>now</b> ``")

	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "`<title>`") {
			continue
		}
		delimiters := strings.Count(line, "|") - strings.Count(line, `\|`)
		assert.Equal(t, 4, delimiters, "row %q should have three cells", line)
	}
}

func TestCell(t *testing.T) {
	assert.Equal(t, "`a \\| b`", cell("a | b"))
	assert.Equal(t, "`two lines`", cell("two\n lines"))
	assert.Equal(t, "`` x`y ``", cell("x`y"))
}

type failingWriter struct{}

func (failingWriter) Write(*capture.Result) (int, error) { return 0, errors.New("closed") }

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	res := sampleResult(true)

	n, err := NewMultiWriter(NewTextWriter(&a), NewMarkdownWriter(&b)).Write(res)
	require.NoError(t, err)
	assert.Positive(t, a.Len())
	assert.Positive(t, b.Len())
	assert.GreaterOrEqual(t, n, a.Len())

	_, err = NewMultiWriter(NewTextWriter(&a), failingWriter{}).Write(res)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "日本...", truncate("日本語", 2))
}

func TestFatal(t *testing.T) {
	var buf bytes.Buffer
	Fatal(&buf, errors.New("NAVIGATION_FAILED: boom"))
	assert.Equal(t, "\n  FATAL: NAVIGATION_FAILED: boom\n\n", buf.String())
}
