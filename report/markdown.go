package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/use-agent/spacapture/capture"
	"github.com/use-agent/spacapture/models"
)

// MarkdownWriter outputs the capture as a Markdown document, suitable for
// attaching to a pull request or a deploy log.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

func (w *MarkdownWriter) Write(res *capture.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, res)
	w.writeAlert(md, res)
	w.writePipeline(md, res)
	w.writeSEO(md, res)
	w.writeVerification(md, res)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, res *capture.Result) {
	md.H1("SPA Capture Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", cell(res.SourceURL)},
			{"Output", cell(res.OutputPath)},
			{"Engine", res.Engine},
			{"Captured At", res.Artifact.CapturedAt.Format(time.RFC3339)},
			{"Size", kilobytes(len(res.Artifact.HTML))},
			{"Duration", res.Duration.Round(time.Millisecond).String()},
			{"Verification", verdict(res.Verification.AllPassed)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, res *capture.Result) {
	switch failed := res.Verification.Failed(); {
	case len(failed) > 0:
		md.Warningf("%d verification check(s) failed. Review the output before deploying.", len(failed))
	case res.SEO.Warned > 0:
		md.Note(strconv.Itoa(res.SEO.Warned) + " SEO tag(s) missing.")
	default:
		md.Tip("Capture is self-contained and every SEO tag is present.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePipeline(md *markdown.Markdown, res *capture.Result) {
	md.H2("Pipeline")
	md.PlainText("")

	content := "found"
	if !res.ContentFound {
		content = "not found"
	}
	status := "unknown"
	if res.NavigationStatus > 0 {
		status = strconv.Itoa(res.NavigationStatus)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Stage", "Result"},
		Rows: [][]string{
			{"Navigation", "HTTP " + status},
			{"Primary content", content},
			{"Stylesheets inlined", strconv.Itoa(res.Stylesheets.Inlined) + "/" + strconv.Itoa(res.Stylesheets.Total)},
			{"Stylesheets failed", strconv.Itoa(res.Stylesheets.Failed)},
			{"Scripts removed", strconv.Itoa(res.ScriptsRemoved)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSEO(md *markdown.Markdown, res *capture.Result) {
	md.H2("SEO Tags")
	md.PlainText("")

	rows := make([][]string, 0, len(models.SEOFields))
	for _, f := range models.SEOFields {
		if v, ok := res.SEO.Value(f); ok {
			rows = append(rows, []string{cell(f.Label()), "✅", cell(truncate(v, seoValueWidth))})
		} else {
			rows = append(rows, []string{cell(f.Label()), "⚠️", "missing"})
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Tag", "Status", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainTextf("%d/%d tags found.", res.SEO.Passed, res.SEO.Total)
	md.PlainText("")
}

func (w *MarkdownWriter) writeVerification(md *markdown.Markdown, res *capture.Result) {
	md.H2("Verification")
	md.PlainText("")

	rows := make([][]string, 0, len(models.Checks))
	for _, c := range models.Checks {
		mark := "❌"
		if res.Verification.Checks[c] {
			mark = "✅"
		}
		rows = append(rows, []string{cell(c.Label()), mark})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Check", "Result"},
		Rows:   rows,
	})
	md.PlainText("")
}

// cell renders page-controlled text as a code span that cannot break out of
// its table cell or be read as HTML.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	if strings.Contains(s, "`") {
		return "`` " + s + " ``"
	}
	return "`" + s + "`"
}
