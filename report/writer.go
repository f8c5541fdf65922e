// Package report renders a finished capture for humans: a step-by-step
// terminal summary and an optional Markdown capture report.
package report

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/use-agent/spacapture/capture"
)

// Writer renders a capture result.
type Writer interface {
	// Write outputs the report and returns the number of bytes written.
	Write(res *capture.Result) (int, error)
}

// MultiWriter writes the same result to several Writers, stopping at the
// first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(res *capture.Result) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(res)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// truncate shortens s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}

func kilobytes(n int) string {
	return fmt.Sprintf("%.0f KB", float64(n)/1024)
}

func verdict(allPassed bool) string {
	if allPassed {
		return "ALL PASSED"
	}
	return "SOME CHECKS FAILED"
}
