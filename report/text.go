package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/use-agent/spacapture/capture"
	"github.com/use-agent/spacapture/models"
)

const totalSteps = 7

// seoValueWidth is how much of each SEO value the terminal report shows.
const seoValueWidth = 60

// TextWriter prints the capture as numbered steps with PASS/WARN/FAIL
// lines followed by a summary block.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

func (w *TextWriter) Write(res *capture.Result) (int, error) {
	var sb strings.Builder

	Banner(&sb, res.SourceURL, res.OutputPath)
	w.writeSteps(&sb, res)
	w.writeSummary(&sb, res)

	return io.WriteString(w.output, sb.String())
}

// Banner writes the report header.
func Banner(w io.Writer, source, output string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  ======================================")
	fmt.Fprintln(w, "  SPA Capture")
	fmt.Fprintln(w, "  ======================================")
	fmt.Fprintf(w, "  Source: %s\n", source)
	fmt.Fprintf(w, "  Output: %s\n", output)
}

// Fatal writes the single line reported when a capture aborts.
func Fatal(w io.Writer, err error) {
	fmt.Fprintf(w, "\n  FATAL: %v\n\n", err)
}

func step(sb *strings.Builder, n int, msg string) {
	fmt.Fprintf(sb, "\n  [%d/%d] %s\n", n, totalSteps, msg)
}

func line(sb *strings.Builder, tag, format string, args ...any) {
	fmt.Fprintf(sb, "    %-4s  %s\n", tag, fmt.Sprintf(format, args...))
}

func (w *TextWriter) writeSteps(sb *strings.Builder, res *capture.Result) {
	step(sb, 1, "Navigating to "+res.SourceURL)
	line(sb, "PASS", "Page loaded (network idle)")
	if res.NavigationStatus >= 400 {
		line(sb, "WARN", "Server responded with HTTP %d", res.NavigationStatus)
	}

	step(sb, 2, "Waiting for content to render")
	if res.ContentFound {
		line(sb, "PASS", "Content element found")
	} else {
		line(sb, "WARN", "No primary content element found; page may be empty or use different selectors")
	}

	step(sb, 3, "Inlining external CSS")
	css := res.Stylesheets
	switch {
	case css.Total == 0:
		line(sb, "..", "No external stylesheets found (CSS may already be inline)")
	case css.Failed > 0:
		line(sb, "WARN", "Inlined %d/%d stylesheets (%d failed)", css.Inlined, css.Total, css.Failed)
	default:
		line(sb, "PASS", "Inlined %d stylesheet(s)", css.Inlined)
	}

	step(sb, 4, "Removing module scripts (not needed for SEO)")
	if res.ScriptsRemoved > 0 {
		line(sb, "PASS", "Removed %d script(s)", res.ScriptsRemoved)
	} else {
		line(sb, "..", "No module/asset scripts found")
	}

	step(sb, 5, "Validating SEO meta tags")
	for _, f := range models.SEOFields {
		if v, ok := res.SEO.Value(f); ok {
			line(sb, "PASS", "%s: %s", f.Label(), truncate(v, seoValueWidth))
		} else {
			line(sb, "WARN", "%s: MISSING", f.Label())
		}
	}

	step(sb, 6, "Capturing final HTML")
	line(sb, "PASS", "Captured %s of HTML", kilobytes(len(res.Artifact.HTML)))

	step(sb, 7, "Writing output and verifying")
	line(sb, "..", "Written to: %s", res.OutputPath)
	for _, c := range models.Checks {
		if res.Verification.Checks[c] {
			line(sb, "PASS", "%s", c.Label())
		} else {
			line(sb, "FAIL", "%s", c.Label())
		}
	}
}

func (w *TextWriter) writeSummary(sb *strings.Builder, res *capture.Result) {
	sb.WriteString("\n  ======================================\n")
	sb.WriteString("  Summary\n")
	sb.WriteString("  ======================================\n")
	fmt.Fprintf(sb, "  CSS stylesheets inlined: %d\n", res.Stylesheets.Inlined)
	fmt.Fprintf(sb, "  JS scripts removed:      %d\n", res.ScriptsRemoved)
	fmt.Fprintf(sb, "  SEO tags found:          %d/%d\n", res.SEO.Passed, res.SEO.Total)
	fmt.Fprintf(sb, "  Verification:            %s\n", verdict(res.Verification.AllPassed))
	fmt.Fprintf(sb, "  Output:                  %s\n", res.OutputPath)

	if res.SEO.Warned > 0 {
		fmt.Fprintf(sb, "\n  %d SEO tag(s) missing, see warnings above.\n", res.SEO.Warned)
	}
	if !res.Verification.AllPassed {
		sb.WriteString("\n  Some verification checks failed. Review the output before deploying.\n")
	}
	sb.WriteString("\n")
}
