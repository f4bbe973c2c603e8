// Package schema holds the static pattern tables used to classify links,
// body text and social profile URLs, plus the CSS selectors for a few
// boilerplate fields.
package schema

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrPattern is returned when a pattern table cannot be compiled.
var ErrPattern = errors.New("invalid pattern")

// Pattern is one named category and the rule that selects it.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

// PatternMap is an ordered, immutable category table.
type PatternMap []Pattern

// Names returns the category names in iteration order.
func (m PatternMap) Names() []string {
	out := make([]string, 0, len(m))
	for _, p := range m {
		out = append(out, p.Name)
	}
	return out
}

// Selector maps a scraped field name to a CSS selector.
type Selector struct {
	Name string
	CSS  string
}

// Registry bundles every pattern table the extractor consults.
type Registry struct {
	Links     PatternMap
	Text      PatternMap
	Social    PatternMap
	Selectors []Selector
}

// Text category names referenced outside of the table itself.
const (
	TextNonprofit = "nonprofit"
	Text501c3     = "501c3"
	Text501c6     = "501c6"
	TextEIN       = "einscan"
)

type rawPattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

var defaultLinks = []rawPattern{
	{"aboutlinks", `(?i)\Aabout-?u?`},
	{"boardlinks", `(?i)\Aboard`},
	{"bylawlinks", `(?i)bylaws`},
	{"budgetlinks", `(?i)(budget|finance)`},
	{"teamlinks", `(?i)\A(meet|our|the)[\w\s]+(team|staff)`},
	{"missionlinks", `(?i)[\w\s]*mission\z`},
	{"policylinks", `(?i)[\w\s]*polic\w*\z`},
	{"brandlinks", `(?i)\A(brand|trademark)[\w\s]*\z`},
	{"projectlinks", `(?i)project`},
	{"eventlinks", `(?i)event`},
	{"securitylinks", `(?i)security`},
	{"coclinks", `(?i)\Acode of[\w\s]*\z`},
	{"contactlinks", `(?i)\Acontact[\w\s]*\z`},
	{"contributelinks", `(?im)^(contribut|support|give)`},
	{"sponsorlinks", `(?i)sponsor`},
	{"donatelinks", `(?i)\Adonat`},
}

// Valid EIN prefixes: https://www.irs.gov/businesses/small-businesses-self-employed/how-eins-are-assigned-and-valid-ein-prefixes
const einPrefixes = `01|02|03|04|05|06|10|11|12|13|14|15|16|20|21|22|23|24|25|26|27|30|32|33|34|35|36|37|38|39|` +
	`40|41|42|43|44|45|46|47|48|50|51|52|53|54|55|56|57|58|59|60|61|62|63|64|65|66|67|68|71|72|73|74|75|76|77|` +
	`80|81|82|83|84|85|86|87|88|90|91|92|93|94|95|98|99|`

var defaultText = []rawPattern{
	{TextNonprofit, `(?i)non[-\s]?profit`},
	{Text501c3, `(?i)501[(\s]*c[)\s]*[(\s]*3[)\s]*`},
	{Text501c6, `(?i)501[(\s]*c[)\s]*[(\s]*6[)\s]*`},
	{TextEIN, `(?i)(tax\s+id:?|ein:?)\D+(` + einPrefixes + `)-?\d{7}`},
}

var defaultSocial = []rawPattern{
	{"twitter", `(?i)twitter\.com`},
	{"facebook", `(?i)facebook\.com`},
	{"instagram", `(?i)instagram\.com`},
	{"linkedin", `(?i)linkedin\.com`},
	{"tiktok", `(?i)tiktok\.com`},
	{"threads", `(?i)threads\.net`},
	{"bluesky", `(?i)bsky\.app`},
	{"youtube", `(?i)youtube\.com`},
	{"whatsapp", `(?i)whatsapp\.com`},
	{"snapchat", `(?i)snapchat\.com`},
	{"pinterest", `(?i)pinterest\.com`},
	{"reddit", `(?i)reddit\.com`},
}

var defaultSelectors = []Selector{
	{Name: "slogan", CSS: ".site-description"},
	{Name: "copyright", CSS: ".copyright"},
	{Name: "imprint", CSS: ".imprint"},
}

// Default returns the built-in registry. It is compiled once and shared;
// callers must treat it as read-only.
var Default = sync.OnceValue(func() *Registry {
	r, err := build(defaultLinks, defaultText, defaultSocial, defaultSelectors)
	if err != nil {
		panic(err)
	}
	return r
})

// fileFormat is the YAML layout accepted by Load. Each non-empty list
// replaces the matching built-in table.
type fileFormat struct {
	Links     []rawPattern `yaml:"links"`
	Text      []rawPattern `yaml:"text"`
	Social    []rawPattern `yaml:"social"`
	Selectors []struct {
		Name string `yaml:"name"`
		CSS  string `yaml:"css"`
	} `yaml:"selectors"`
}

// Load reads pattern overrides from a YAML file on top of the defaults.
// An empty path returns Default().
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse patterns %s: %w", path, err)
	}

	links, text, social, selectors := defaultLinks, defaultText, defaultSocial, defaultSelectors
	if len(f.Links) > 0 {
		links = f.Links
	}
	if len(f.Text) > 0 {
		text = f.Text
	}
	if len(f.Social) > 0 {
		social = f.Social
	}
	if len(f.Selectors) > 0 {
		selectors = make([]Selector, 0, len(f.Selectors))
		for _, s := range f.Selectors {
			selectors = append(selectors, Selector{Name: s.Name, CSS: s.CSS})
		}
	}
	return build(links, text, social, selectors)
}

func build(links, text, social []rawPattern, selectors []Selector) (*Registry, error) {
	r := &Registry{Selectors: selectors}
	var err error
	if r.Links, err = compile("links", links); err != nil {
		return nil, err
	}
	if r.Text, err = compile("text", text); err != nil {
		return nil, err
	}
	if r.Social, err = compile("social", social); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, s := range selectors {
		if s.Name == "" || s.CSS == "" {
			return nil, fmt.Errorf("%w: selectors: empty name or css", ErrPattern)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: selectors: duplicate name %q", ErrPattern, s.Name)
		}
		seen[s.Name] = true
	}
	return r, nil
}

func compile(table string, raw []rawPattern) (PatternMap, error) {
	out := make(PatternMap, 0, len(raw))
	seen := map[string]bool{}
	for _, p := range raw {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: %s: empty category name", ErrPattern, table)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: %s: duplicate category %q", ErrPattern, table, p.Name)
		}
		seen[p.Name] = true
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %v", ErrPattern, table, p.Name, err)
		}
		out = append(out, Pattern{Name: p.Name, Re: re})
	}
	return out, nil
}
