
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"npdetector/internal/classifier"
	"npdetector/internal/errlog"
	"npdetector/internal/models"
	"npdetector/internal/schema"
)

// Error marker keys set on a bundle when part of the extraction failed.
const (
	ErrKeyParse      = "error_parse_site"
	ErrKeyIdentifier = "error_identifier"
	ErrKeyGraph      = "error_schema_graph"
)

var errNoDocument = errors.New("no document")

// Parse decodes raw page bytes to UTF-8 and builds a document.
func Parse(r io.Reader, contentType string) (*goquery.Document, error) {
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	data := buf.Bytes()

	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		// fallback: if already utf-8, continue
		if !utf8.Valid(data) {
			return nil, err
		}
		utf8data = data
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
}

// Identifier derives a stable file-friendly name from a site URL, e.g.
// https://www.Example.org/x -> example_org.
func Identifier(siteURL string) (string, error) {
	u, err := url.Parse(strings.ToLower(strings.TrimSpace(siteURL)))
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("no host in %q", siteURL)
	}
	host = strings.TrimPrefix(host, "www.")
	return strings.ReplaceAll(host, ".", "_"), nil
}

// Extractor turns one parsed page into a signal bundle.
type Extractor struct {
	reg  *schema.Registry
	cl   *classifier.Classifier
	errs *errlog.Log
}

func New(reg *schema.Registry, errs *errlog.Log) *Extractor {
	if reg == nil {
		reg = schema.Default()
	}
	if errs == nil {
		errs = errlog.New(nil)
	}
	return &Extractor{reg: reg, cl: classifier.New(reg), errs: errs}
}

var tabNewlineRe = regexp.MustCompile(`\s*[\t\n]+\s*`)

// Extract never fails: problems are written to the error log and marked on
// the returned bundle, which keeps whatever was extracted before the failure.
// A nil doc stands for a page that could not be fetched.
func (e *Extractor) Extract(doc *goquery.Document, siteURL string) (b models.SignalBundle) {
	b = e.emptyBundle(siteURL)
	defer func() {
		if r := recover(); r != nil {
			e.fail(&b, ErrKeyParse, "parse_site", fmt.Errorf("%v", r))
		}
	}()

	ident, err := Identifier(siteURL)
	if err != nil {
		e.fail(&b, ErrKeyIdentifier, "url2identifier", err)
	}
	b.Identifier = ident
	if doc == nil {
		e.fail(&b, ErrKeyParse, "parse_site", errNoDocument)
		return b
	}
	base, err := url.Parse(siteURL)
	if err != nil {
		e.fail(&b, ErrKeyParse, "parse_site", err)
		return b
	}

	body := doc.Find("body")
	head := doc.Find("head")

	for _, sel := range e.reg.Selectors {
		b.Scraped[sel.Name] = firstText(body, sel.CSS)
	}

	b.Metas = e.metas(head, &b)

	var linkErrs []error
	b.Links, linkErrs = e.cl.Links(body.Find("a"), base, false)
	// nav and footer anchors are a subset of the body pass; report once.
	for _, le := range linkErrs {
		e.errs.Addf("get_links", siteURL, "%v", le)
	}
	b.NavLinks, _ = e.cl.Links(doc.Find("nav a"), base, true)
	b.FooterLinks, _ = e.cl.Links(doc.Find("footer a"), base, true)

	b.TextMatches = e.cl.Text(textNodes(body))

	doc.Find("[itemtype]").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				b.ItemTypes++
			}
		}
	})
	return b
}

func (e *Extractor) emptyBundle(siteURL string) models.SignalBundle {
	b := models.SignalBundle{
		SiteURL:     siteURL,
		Scraped:     make(map[string]*string, len(e.reg.Selectors)),
		Metas:       models.Metas{Generator: []string{}},
		Links:       models.LinkBucket{Links: map[string][]string{}},
		NavLinks:    models.LinkBucket{Links: map[string][]string{}},
		FooterLinks: models.LinkBucket{Links: map[string][]string{}},
		TextMatches: models.TextMatchBucket{},
	}
	for _, sel := range e.reg.Selectors {
		b.Scraped[sel.Name] = nil
	}
	for _, p := range e.reg.Text {
		b.TextMatches[p.Name] = []string{}
	}
	return b
}

func (e *Extractor) fail(b *models.SignalBundle, key, op string, err error) {
	if b.Errors == nil {
		b.Errors = map[string]string{}
	}
	b.Errors[key] = err.Error()
	e.errs.Addf(op, b.SiteURL, "%v", err)
}

func (e *Extractor) metas(head *goquery.Selection, b *models.SignalBundle) models.Metas {
	m := models.Metas{
		Title:         nonEmpty(head.Find("title").First().Text()),
		TitleOG:       attr(head, `meta[property="og:title"]`, "content"),
		Description:   attr(head, `meta[name="description"]`, "content"),
		DescriptionOG: attr(head, `meta[property="og:description"]`, "content"),
		Twitter:       attr(head, `meta[name="twitter:site"]`, "content"),
		Canonical:     attr(head, `link[rel="canonical"]`, "href"),
		Icon32:        attr(head, `link[rel="icon"][sizes="32x32"]`, "href"),
		Generator:     []string{},
	}
	head.Find(`meta[name="generator"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			m.Generator = append(m.Generator, v)
		}
	})

	org, err := organization(head, e.reg.Social)
	if err != nil {
		e.fail(b, ErrKeyGraph, "get_schema_graph", err)
	}
	m.Organization = org
	return m
}

// organization looks for a schema.org Organization node in the JSON-LD
// blocks of the head, preferring the Yoast SEO graph when present.
func organization(head *goquery.Selection, social schema.PatternMap) (*models.Organization, error) {
	scripts := head.Find("script.yoast-schema-graph")
	if scripts.Length() == 0 {
		scripts = head.Find(`script[type="application/ld+json"]`)
	}
	var org *models.Organization
	var firstErr error
	scripts.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		for _, node := range graphNodes(data) {
			if !isOrganization(node["@type"]) {
				continue
			}
			org = &models.Organization{}
			if name, ok := node["name"].(string); ok {
				org.Name = &name
			}
			org.Social = socialHandles(sameAs(node["sameAs"]), social)
			return false
		}
		return true
	})
	if org != nil {
		return org, nil
	}
	return nil, firstErr
}

func graphNodes(data any) []map[string]any {
	var items []any
	switch v := data.(type) {
	case map[string]any:
		if g, ok := v["@graph"].([]any); ok {
			items = g
		} else {
			items = []any{v}
		}
	case []any:
		items = v
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func isOrganization(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Organization"
	case []any:
		for _, x := range v {
			if s, ok := x.(string); ok && s == "Organization" {
				return true
			}
		}
	}
	return false
}

func sameAs(v any) []string {
	switch x := v.(type) {
	case string:
		return []string{x}
	case []any:
		out := make([]string, 0, len(x))
		for _, it := range x {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// socialHandles keeps, per platform, the first URL matching its pattern.
func socialHandles(urls []string, platforms schema.PatternMap) map[string]string {
	out := map[string]string{}
	for _, p := range platforms {
		for _, u := range urls {
			if p.Re.MatchString(u) {
				out[p.Name] = u
				break
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstText(s *goquery.Selection, css string) *string {
	node := s.Find(css).First()
	if node.Length() == 0 {
		return nil
	}
	t := tabNewlineRe.ReplaceAllString(strings.TrimSpace(node.Text()), " ")
	return &t
}

func attr(s *goquery.Selection, css, name string) *string {
	v, ok := s.Find(css).First().Attr(name)
	if !ok {
		return nil
	}
	return nonEmpty(v)
}

func nonEmpty(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func textNodes(s *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return out
}
