package capture

import (
	"context"
	"strings"

	"github.com/use-agent/spacapture/engine"
	"github.com/use-agent/spacapture/models"
)

// InlineStylesheets replaces every external stylesheet link with a <style>
// holding its fetched CSS, in place. Links whose fetch fails stay as they
// are and are counted in Failed. The error reports only a failure to run the
// inliner at all.
func InlineStylesheets(ctx context.Context, page engine.Page) (models.StylesheetInlineResult, error) {
	var res models.StylesheetInlineResult
	if err := page.Evaluate(ctx, engine.InlineStylesheets, &res); err != nil {
		return models.StylesheetInlineResult{}, err
	}
	return res, nil
}

// StripScripts removes ES-module scripts and scripts loaded from the asset
// bundle path, returning how many were removed.
func StripScripts(ctx context.Context, page engine.Page, assetPattern string) (int, error) {
	var removed int
	if err := page.Evaluate(ctx, engine.StripScripts, &removed, assetPattern); err != nil {
		return 0, err
	}
	return removed, nil
}

// CollectSEO reads the raw SEO signals without touching the document.
// h1Max bounds the reported heading length in characters.
func CollectSEO(ctx context.Context, page engine.Page, h1Max int) (models.SEOSignals, error) {
	signals := models.SEOSignals{}
	if err := page.Evaluate(ctx, engine.SEOSignals, &signals, h1Max); err != nil {
		return nil, err
	}
	return signals, nil
}

// GradeSEO classifies each field as present (non-empty after trimming) or
// missing. A nil signals map grades as all missing.
func GradeSEO(signals models.SEOSignals) models.SEOReport {
	r := models.SEOReport{
		Values: make(map[models.SEOField]string, len(models.SEOFields)),
		Total:  len(models.SEOFields),
	}
	for _, f := range models.SEOFields {
		if v := signals[f]; v != nil {
			if t := strings.TrimSpace(*v); t != "" {
				r.Values[f] = t
				r.Passed++
				continue
			}
		}
		r.Warned++
	}
	return r
}

// ValidateSEO collects and grades the SEO signals. When collection fails the
// returned report grades every field as missing alongside the error.
func ValidateSEO(ctx context.Context, page engine.Page, h1Max int) (models.SEOReport, error) {
	signals, err := CollectSEO(ctx, page, h1Max)
	return GradeSEO(signals), err
}
