
package classifier

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"npdetector/internal/models"
	"npdetector/internal/schema"
)

// Classifier buckets anchors and text nodes using a pattern registry.
type Classifier struct {
	reg *schema.Registry
}

func New(reg *schema.Registry) *Classifier {
	if reg == nil {
		reg = schema.Default()
	}
	return &Classifier{reg: reg}
}

// Anchors that only point at the current page.
var bareFragmentRe = regexp.MustCompile(`/?#\z`)

// Characters that routinely defeat exact text comparison.
var normalizer = strings.NewReplacer(
	"\u00a0", " ",
	"\u2019", "'",
	"\u2018", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u2013", "-",
)

// minCatchAllRunes is the shortest anchor text kept in the catch-all list.
const minCatchAllRunes = 4

// Links classifies anchors against the registry's link categories.
func (c *Classifier) Links(anchors *goquery.Selection, base *url.URL, collectAll bool) (models.LinkBucket, []error) {
	return ClassifyLinks(anchors, base, c.reg.Links, collectAll)
}

// Text scans text nodes against the registry's nonprofit text categories.
func (c *Classifier) Text(texts []string) models.TextMatchBucket {
	return ScanText(texts, c.reg.Text)
}

// ClassifyLinks files every anchor's absolute href under each category whose
// pattern matches the anchor text. Anchors without a usable href are skipped
// entirely. Hrefs that fail to parse are skipped and reported.
func ClassifyLinks(anchors *goquery.Selection, base *url.URL, patterns schema.PatternMap, collectAll bool) (models.LinkBucket, []error) {
	bucket := models.LinkBucket{Links: map[string][]string{}}
	if collectAll {
		bucket.All = []string{}
	}
	seen := map[string]map[string]bool{}
	seenText := map[string]bool{}
	var errs []error

	anchors.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		abs, ok, err := AbsoluteHref(base, href)
		if err != nil {
			errs = append(errs, err)
			return
		}
		if !ok {
			return
		}

		raw := s.Text()
		text := collapse(raw)
		for _, p := range patterns {
			if !p.Re.MatchString(text) {
				continue
			}
			if seen[p.Name] == nil {
				seen[p.Name] = map[string]bool{}
			}
			if seen[p.Name][abs] {
				continue
			}
			seen[p.Name][abs] = true
			bucket.Links[p.Name] = append(bucket.Links[p.Name], abs)
		}

		if !collectAll {
			return
		}
		t := NormalizeText(raw)
		if utf8.RuneCountInString(t) < minCatchAllRunes || seenText[t] {
			return
		}
		seenText[t] = true
		bucket.All = append(bucket.All, t)
	})
	return bucket, errs
}

// AbsoluteHref resolves href against base. ok is false for hrefs that carry
// no destination of their own (bare fragments).
func AbsoluteHref(base *url.URL, href string) (abs string, ok bool, err error) {
	href = strings.TrimSpace(href)
	if bareFragmentRe.MatchString(href) {
		return "", false, nil
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false, fmt.Errorf("href %q: %w", href, err)
	}
	if u.IsAbs() || base == nil {
		return u.String(), true, nil
	}
	return base.ResolveReference(u).String(), true, nil
}

// NormalizeText maps typographic quotes and dashes to ASCII and collapses
// whitespace.
func NormalizeText(s string) string {
	return collapse(normalizer.Replace(s))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
