package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	if len(r.Links) != 16 {
		t.Fatalf("want 16 link categories, got %d", len(r.Links))
	}
	if r != Default() {
		t.Fatal("Default should return the same registry on every call")
	}
	names := r.Text.Names()
	want := []string{TextNonprofit, Text501c3, Text501c6, TextEIN}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("text category %d: want %s, got %s", i, n, names[i])
		}
	}
	if len(r.Selectors) != 3 || r.Selectors[0].Name != "slogan" {
		t.Fatalf("unexpected selectors: %#v", r.Selectors)
	}
}

func TestLinkPatterns(t *testing.T) {
	r := Default()
	find := func(name string) Pattern {
		for _, p := range r.Links {
			if p.Name == name {
				return p
			}
		}
		t.Fatalf("missing category %s", name)
		return Pattern{}
	}
	cases := []struct {
		cat   string
		text  string
		match bool
	}{
		{"aboutlinks", "About Us", true},
		{"aboutlinks", "Learn about us", false},
		{"teamlinks", "Meet the Team", true},
		{"missionlinks", "Our Mission", true},
		{"missionlinks", "Mission and Values", false},
		{"policylinks", "Privacy Policy", true},
		{"coclinks", "Code of Conduct", true},
		{"contributelinks", "Support us", true},
		{"donatelinks", "Donate", true},
		{"donatelinks", "Please donate", false},
	}
	for _, c := range cases {
		if got := find(c.cat).Re.MatchString(c.text); got != c.match {
			t.Errorf("%s %q: want %v, got %v", c.cat, c.text, c.match, got)
		}
	}
}

func TestTextPatterns(t *testing.T) {
	r := Default()
	checks := map[string]string{
		TextNonprofit: "We are a non-profit organization",
		Text501c3:     "a 501(c)(3) charity",
		Text501c6:     "a 501 (c) (6) trade association",
		TextEIN:       "EIN: 12-3456789",
	}
	for _, p := range r.Text {
		if !p.Re.MatchString(checks[p.Name]) {
			t.Errorf("%s should match %q", p.Name, checks[p.Name])
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	data := []byte(`links:
  - name: jobslinks
    pattern: '(?i)\Acareers?'
selectors:
  - name: tagline
    css: .tagline
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(r.Links) != 1 || r.Links[0].Name != "jobslinks" {
		t.Fatalf("links not replaced: %v", r.Links.Names())
	}
	if len(r.Text) != len(Default().Text) {
		t.Fatal("text table should keep defaults")
	}
	if r.Selectors[0].Name != "tagline" {
		t.Fatalf("selectors not replaced: %#v", r.Selectors)
	}
}

func TestLoadRejectsBadPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("text:\n  - name: broken\n    pattern: '(['\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrPattern) {
		t.Fatalf("want ErrPattern, got %v", err)
	}
	dup := filepath.Join(dir, "dup.yaml")
	if err := os.WriteFile(dup, []byte("social:\n  - {name: x, pattern: a}\n  - {name: x, pattern: b}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dup); !errors.Is(err, ErrPattern) {
		t.Fatalf("want ErrPattern for duplicate, got %v", err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	r, err := Load("")
	if err != nil || r != Default() {
		t.Fatalf("empty path should return defaults, got %v", err)
	}
}
