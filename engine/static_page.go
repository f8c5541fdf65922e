package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
)

// ErrNoDocument is returned when a page is used before Navigate.
var ErrNoDocument = errors.New("static: no document loaded")

// ErrNoMatch is returned by WaitForSelector when nothing matches. The static
// DOM never changes on its own, so a miss is final and returned at once.
var ErrNoMatch = errors.New("static: no element matches selector")

// staticPage holds one parsed document. mu serializes DOM mutations made
// from concurrent stylesheet fetches.
type staticPage struct {
	engine *StaticEngine

	mu     sync.Mutex
	doc    *goquery.Document
	base   *url.URL
	status int
}

// Navigate fetches the document. No subresources are loaded, so the page is
// quiescent as soon as the body is read and idle is unused.
func (p *staticPage) Navigate(ctx context.Context, target string, idle time.Duration) error {
	resp, body, err := p.engine.get(ctx, target, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("static: parse document: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc = doc
	p.base = resp.Request.URL
	p.status = resp.StatusCode
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := p.base.Parse(strings.TrimSpace(href)); err == nil {
			p.base = b
		}
	}
	return nil
}

func (p *staticPage) WaitForSelector(ctx context.Context, selector string) error {
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return fmt.Errorf("static: invalid selector %q: %w", selector, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return ErrNoDocument
	}
	if cascadia.Query(p.doc.Nodes[0], sel) == nil {
		return ErrNoMatch
	}
	return nil
}

func (p *staticPage) Evaluate(ctx context.Context, script Script, out any, args ...any) error {
	if p.doc == nil {
		return ErrNoDocument
	}

	var result any
	switch script.Name {
	case ScriptInlineStylesheets:
		result = p.inlineStylesheets(ctx)
	case ScriptStripScripts:
		result = p.stripScripts(stringArg(args, 0))
	case ScriptSEOSignals:
		result = p.seoSignals(intArg(args, 0))
	case ScriptStampCapture:
		result = p.stampCapture(stringArg(args, 0))
	case ScriptNavigationStatus:
		result = p.status
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedScript, script.Name)
	}

	if out == nil {
		return nil
	}
	// Round-trip through JSON so callers see exactly what a browser
	// evaluation would hand back.
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("static: encode %s result: %w", script.Name, err)
	}
	return json.Unmarshal(raw, out)
}

func (p *staticPage) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return "", ErrNoDocument
	}
	return p.doc.Html()
}

func (p *staticPage) Close() error {
	p.mu.Lock()
	p.doc = nil
	p.mu.Unlock()
	return nil
}

// inlineStylesheets mirrors the InlineStylesheets script. Fetches run
// concurrently; each link is replaced as soon as its own fetch completes.
func (p *staticPage) inlineStylesheets(ctx context.Context) map[string]int {
	links := p.doc.Find("link[rel]").FilterFunction(isStylesheetLink)
	total := links.Length()

	var (
		g       errgroup.Group
		inlined int
		failed  int
	)
	links.Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		media, _ := link.Attr("media")
		g.Go(func() error {
			css, err := p.fetchStylesheet(ctx, href)

			p.mu.Lock()
			defer p.mu.Unlock()
			if err != nil {
				p.engine.logger.Debug("stylesheet fetch failed", "href", href, "error", err)
				failed++
				return nil
			}
			link.ReplaceWithNodes(styleNode(href, media, css))
			inlined++
			return nil
		})
	})
	_ = g.Wait()

	return map[string]int{"total": total, "inlined": inlined, "failed": failed}
}

func (p *staticPage) fetchStylesheet(ctx context.Context, href string) (string, error) {
	if strings.TrimSpace(href) == "" {
		return "", errors.New("empty href")
	}
	u, err := p.base.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, p.engine.fetchTimeout)
	defer cancel()

	resp, body, err := p.engine.get(ctx, u.String(), "text/css,*/*;q=0.1")
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return string(body), nil
}

// isStylesheetLink matches rel~="stylesheet" case-insensitively.
func isStylesheetLink(_ int, s *goquery.Selection) bool {
	rel, _ := s.Attr("rel")
	for _, tok := range strings.Fields(rel) {
		if strings.EqualFold(tok, "stylesheet") {
			return true
		}
	}
	return false
}

func styleNode(href, media, css string) *html.Node {
	if href == "" {
		href = "unknown"
	}
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "data-inlined-from", Val: href}},
	}
	if media != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "media", Val: media})
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	return n
}

// stripScripts mirrors the StripScripts script.
func (p *staticPage) stripScripts(assetPattern string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	scripts := p.doc.Find("script").FilterFunction(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		if strings.EqualFold(strings.TrimSpace(typ), "module") {
			return true
		}
		src, ok := s.Attr("src")
		return ok && assetPattern != "" && strings.Contains(src, assetPattern)
	})
	n := scripts.Length()
	scripts.Remove()
	return n
}

// seoSignals mirrors the SEOSignals script.
func (p *staticPage) seoSignals(h1Max int) map[string]*string {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := p.doc
	get := func(sel string) *string {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			return nil
		}
		v, _ := el.Attr("content")
		if v == "" {
			v = el.Text()
		}
		return nonEmpty(v)
	}

	out := map[string]*string{
		"title":         nonEmpty(strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")),
		"description":   get(`meta[name="description"]`),
		"canonical":     nil,
		"ogTitle":       get(`meta[property="og:title"]`),
		"ogDescription": get(`meta[property="og:description"]`),
		"ogImage":       get(`meta[property="og:image"]`),
		"ogUrl":         get(`meta[property="og:url"]`),
		"twitterCard":   get(`meta[name="twitter:card"]`),
		"jsonLd":        nil,
		"h1":            nil,
	}
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		out["canonical"] = nonEmpty(href)
	}
	if doc.Find(`script[type="application/ld+json"]`).Length() > 0 {
		present := "present"
		out["jsonLd"] = &present
	}
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		text := []rune(strings.TrimSpace(h1.Text()))
		if h1Max > 0 && len(text) > h1Max {
			text = text[:h1Max]
		}
		out["h1"] = nonEmpty(string(text))
	}
	return out
}

// stampCapture mirrors the StampCapture script.
func (p *staticPage) stampCapture(timestamp string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	head := p.doc.Find("head").First()
	if head.Length() == 0 {
		return false
	}
	stamp := func(name, content string) {
		existing := head.Find(`meta[name="` + name + `"]`).First()
		if existing.Length() > 0 {
			existing.SetAttr("content", content)
			return
		}
		head.AppendNodes(&html.Node{
			Type:     html.ElementNode,
			Data:     "meta",
			DataAtom: atom.Meta,
			Attr: []html.Attribute{
				{Key: "name", Val: name},
				{Key: "content", Val: content},
			},
		})
	}
	stamp(MarkerStatusName, MarkerStatusValue)
	stamp(MarkerTimestampName, timestamp)
	return true
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func stringArg(args []any, i int) string {
	if i < len(args) {
		if s, ok := args[i].(string); ok {
			return s
		}
	}
	return ""
}

func intArg(args []any, i int) int {
	if i < len(args) {
		if n, ok := args[i].(int); ok {
			return n
		}
	}
	return 0
}
