package models

import "time"

// StylesheetInlineResult counts what the stylesheet inliner did.
type StylesheetInlineResult struct {
	Total   int `json:"total"`
	Inlined int `json:"inlined"`
	Failed  int `json:"failed"`
}

// SEOField names one metadata signal read by the metadata validator.
type SEOField string

// The ten SEO signals, in report order. The string values double as the
// keys of the in-page extraction result.
const (
	SEOTitle         SEOField = "title"
	SEODescription   SEOField = "description"
	SEOCanonical     SEOField = "canonical"
	SEOOGTitle       SEOField = "ogTitle"
	SEOOGDescription SEOField = "ogDescription"
	SEOOGImage       SEOField = "ogImage"
	SEOOGURL         SEOField = "ogUrl"
	SEOTwitterCard   SEOField = "twitterCard"
	SEOJSONLD        SEOField = "jsonLd"
	SEOH1            SEOField = "h1"
)

// SEOFields lists every SEO field in report order.
var SEOFields = []SEOField{
	SEOTitle, SEODescription, SEOCanonical,
	SEOOGTitle, SEOOGDescription, SEOOGImage, SEOOGURL,
	SEOTwitterCard, SEOJSONLD, SEOH1,
}

var seoLabels = map[SEOField]string{
	SEOTitle:         "<title>",
	SEODescription:   "meta description",
	SEOCanonical:     "canonical URL",
	SEOOGTitle:       "og:title",
	SEOOGDescription: "og:description",
	SEOOGImage:       "og:image",
	SEOOGURL:         "og:url",
	SEOTwitterCard:   "twitter:card",
	SEOJSONLD:        "JSON-LD structured data",
	SEOH1:            "<h1> heading",
}

// Label is the human-readable name of the field.
func (f SEOField) Label() string {
	if l, ok := seoLabels[f]; ok {
		return l
	}
	return string(f)
}

// SEOSignals is the raw extraction result: nil means the signal was absent.
type SEOSignals map[SEOField]*string

// SEOReport grades the SEO signals of one capture.
type SEOReport struct {
	// Values holds the trimmed value of every present field.
	Values map[SEOField]string `json:"values"`
	Passed int                 `json:"passed"`
	Warned int                 `json:"warned"`
	Total  int                 `json:"total"`
}

// Value returns the field's value and whether it was present.
func (r *SEOReport) Value(f SEOField) (string, bool) {
	v, ok := r.Values[f]
	return v, ok
}

// Missing lists the absent fields in report order.
func (r *SEOReport) Missing() []SEOField {
	var out []SEOField
	for _, f := range SEOFields {
		if _, ok := r.Values[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// CapturedArtifact is the serialized, marker-stamped document.
type CapturedArtifact struct {
	HTML       string
	CapturedAt time.Time
}

// Check names one structural predicate evaluated against the stored artifact.
type Check string

// Verification predicates, in report order.
const (
	CheckHasContent      Check = "hasContent"
	CheckHasMarker       Check = "hasMarker"
	CheckNoExternalCSS   Check = "noExternalCSS"
	CheckNoModuleScripts Check = "noModuleScripts"
	CheckHasTitle        Check = "hasTitle"
	CheckHasDescription  Check = "hasDescription"
	CheckSizeOK          Check = "sizeOK"
)

// Checks lists every verification predicate in report order.
var Checks = []Check{
	CheckHasContent, CheckHasMarker, CheckNoExternalCSS, CheckNoModuleScripts,
	CheckHasTitle, CheckHasDescription, CheckSizeOK,
}

var checkLabels = map[Check]string{
	CheckHasContent:      "Has <h1> content",
	CheckHasMarker:       "Capture marker present",
	CheckNoExternalCSS:   "No external stylesheet links (CSS inlined)",
	CheckNoModuleScripts: "No module script tags (JS stripped)",
	CheckHasTitle:        "Has <title> tag",
	CheckHasDescription:  "Has meta description",
	CheckSizeOK:          "File size above minimum",
}

// Label is the human-readable description of the check.
func (c Check) Label() string {
	if l, ok := checkLabels[c]; ok {
		return l
	}
	return string(c)
}

// VerificationReport is computed from the artifact as read back from storage.
type VerificationReport struct {
	Checks    map[Check]bool `json:"checks"`
	AllPassed bool           `json:"all_passed"`
	// Size is the stored artifact size in bytes.
	Size int `json:"size"`
}

// Failed lists the failing checks in report order.
func (r *VerificationReport) Failed() []Check {
	var out []Check
	for _, c := range Checks {
		if !r.Checks[c] {
			out = append(out, c)
		}
	}
	return out
}
