package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/spacapture/engine"
	"github.com/use-agent/spacapture/models"
	"github.com/use-agent/spacapture/storage"
)

// TimestampLayout formats the capture timestamp as UTC ISO-8601 with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var headCloseRe = regexp.MustCompile(`(?i)</head\s*>`)

// Snapshot stamps the capture marker into the live document and serializes
// it. If the marker did not make it into the serialized markup it is spliced
// into the text instead, so the artifact always carries it.
func Snapshot(ctx context.Context, page engine.Page, now time.Time) (models.CapturedArtifact, error) {
	ts := now.UTC().Format(TimestampLayout)

	var stamped bool
	stampErr := page.Evaluate(ctx, engine.StampCapture, &stamped, ts)

	doc, err := page.HTML(ctx)
	if err != nil {
		return models.CapturedArtifact{}, models.NewCaptureError(models.ErrCodeSerialize, "failed to serialize document", err)
	}
	if stampErr != nil || !stamped || !strings.Contains(doc, `name="`+engine.MarkerStatusName+`"`) {
		doc = SpliceMarker(doc, ts)
	}
	return models.CapturedArtifact{HTML: doc, CapturedAt: now.UTC()}, nil
}

// SpliceMarker inserts the marker metas immediately before the first
// closing head tag, matched case-insensitively. Documents without one get
// the metas appended.
func SpliceMarker(doc, timestamp string) string {
	tags := fmt.Sprintf("<meta name=%q content=%q />\n<meta name=%q content=%q />\n",
		engine.MarkerStatusName, engine.MarkerStatusValue,
		engine.MarkerTimestampName, timestamp)

	loc := headCloseRe.FindStringIndex(doc)
	if loc == nil {
		return doc + tags
	}
	return doc[:loc[0]] + tags + doc[loc[0]:]
}

// Write stores the artifact at path, creating parent directories and
// overwriting any existing file.
func Write(fs storage.FS, path string, artifact models.CapturedArtifact) error {
	if err := fs.MkdirAll(filepath.Dir(path)); err != nil {
		return models.NewCaptureError(models.ErrCodeStorage, "failed to create output directory", err)
	}
	if err := fs.WriteFile(path, []byte(artifact.HTML)); err != nil {
		return models.NewCaptureError(models.ErrCodeStorage, "failed to write artifact", err)
	}
	return nil
}
