package capture

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/spacapture/engine"
	"github.com/use-agent/spacapture/models"
	"github.com/use-agent/spacapture/storage"
)

// Verify reads the artifact back from storage and evaluates every check
// against the stored bytes. A read failure is a storage error; failing
// checks are not errors.
func Verify(fs storage.FS, path string, minBytes int) (models.VerificationReport, error) {
	content, err := fs.ReadFile(path)
	if err != nil {
		return models.VerificationReport{}, models.NewCaptureError(models.ErrCodeStorage, "failed to read artifact back", err)
	}
	return VerifyContent(content, minBytes), nil
}

// VerifyContent evaluates the structural checks against a stored document.
func VerifyContent(content []byte, minBytes int) models.VerificationReport {
	checks := make(map[models.Check]bool, len(models.Checks))
	checks[models.CheckHasMarker] = bytes.Contains(content, []byte(engine.MarkerStatusName))
	checks[models.CheckSizeOK] = len(content) > minBytes

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err == nil {
		checks[models.CheckHasContent] = doc.Find("h1").Length() > 0
		checks[models.CheckNoExternalCSS] = doc.Find("link[rel]").FilterFunction(stylesheetLink).Length() == 0
		checks[models.CheckNoModuleScripts] = doc.Find("script[type]").FilterFunction(moduleScript).Length() == 0
		checks[models.CheckHasTitle] = doc.Find("title").FilterFunction(hasText).Length() > 0
		checks[models.CheckHasDescription] = doc.Find("meta[name]").FilterFunction(descriptionMeta).Length() > 0
	}

	all := true
	for _, c := range models.Checks {
		if !checks[c] {
			all = false
			break
		}
	}
	return models.VerificationReport{Checks: checks, AllPassed: all, Size: len(content)}
}

func stylesheetLink(_ int, s *goquery.Selection) bool {
	for _, tok := range strings.Fields(s.AttrOr("rel", "")) {
		if strings.EqualFold(tok, "stylesheet") {
			return true
		}
	}
	return false
}

func moduleScript(_ int, s *goquery.Selection) bool {
	return strings.EqualFold(strings.TrimSpace(s.AttrOr("type", "")), "module")
}

func hasText(_ int, s *goquery.Selection) bool {
	return strings.TrimSpace(s.Text()) != ""
}

func descriptionMeta(_ int, s *goquery.Selection) bool {
	return strings.EqualFold(s.AttrOr("name", ""), "description")
}
