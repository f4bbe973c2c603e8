package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"npdetector/internal/aggregate"
	"npdetector/internal/crawler"
	"npdetector/internal/ioformats"
	"npdetector/internal/parser"
)

type fakePages map[string]string

func (f fakePages) Get(_ context.Context, siteURL, _ string, _ bool) (crawler.Page, error) {
	html, ok := f[siteURL]
	if !ok {
		return crawler.Page{}, errors.New("connection refused")
	}
	return crawler.Page{HTML: []byte(html), ContentType: "text/html; charset=utf-8"}, nil
}

func page(title, donate string) string {
	return `<html><head><title>` + title + `</title></head><body>
<nav><a href="/about">About Us</a></nav>
<p>A registered nonprofit.</p>
<footer><a href="` + donate + `">Donate</a></footer></body></html>`
}

var pages = fakePages{
	"https://a.org": page("A", "/donate"),
	"https://b.org": page("B", "https://give.b.org"),
}

func TestRunCorpus(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken_org.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	report := filepath.Join(dir, "npdetector.json")
	var seen []string
	r := New(Options{
		WorkDir:    dir,
		ReportPath: report,
		Pages:      pages,
		Progress:   func(stage, site string) { seen = append(seen, stage+":"+site) },
	})
	orgs := []ioformats.Org{
		{"website": "https://a.org", "taxID": "12-3456789"},
		{"website": "https://b.org"},
		{"website": "https://c.org"},
	}
	rep, err := r.Run(context.Background(), orgs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !reflect.DeepEqual(rep.Sites, []string{"a_org", "b_org", "broken_org", "c_org"}) {
		t.Fatalf("sites: got %v", rep.Sites)
	}
	if rep.FooterLinkCounts["Donate"] != 2 {
		t.Fatalf("want Donate counted twice, got %#v", rep.FooterLinkCounts)
	}
	if rep.NavLinkCounts["About Us"] != 2 {
		t.Fatalf("want About Us counted twice, got %#v", rep.NavLinkCounts)
	}
	for _, id := range []string{"a_org", "b_org", "c_org"} {
		if _, err := os.Stat(ioformats.RecordPath(dir, id)); err != nil {
			t.Errorf("record for %s: %v", id, err)
		}
	}
	if _, err := os.Stat(ioformats.RecordPath(dir, "broken_org")); err == nil {
		t.Error("broken bundle must not produce a record")
	}
	if _, err := os.Stat(report); err != nil {
		t.Fatalf("report not written: %v", err)
	}

	log := strings.Join(rep.ErrorLog, "\n")
	for _, want := range []string{"get_site(https://c.org): connection refused", "condense_site(broken_org)"} {
		if !strings.Contains(log, want) {
			t.Errorf("error log missing %q:\n%s", want, log)
		}
	}
	if len(seen) != 7 || seen[0] != "scrape:https://a.org" {
		t.Fatalf("unexpected progress calls: %v", seen)
	}

	b, err := ioformats.ReadBundle(ioformats.BundlePath(dir, "c_org"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Errors[parser.ErrKeyParse]; !ok {
		t.Fatalf("unfetchable site should carry an error marker, got %v", b.Errors)
	}
	a, err := ioformats.ReadBundle(ioformats.BundlePath(dir, "a_org"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Manual["taxID"] != "12-3456789" {
		t.Fatalf("manual fields not attached: %v", a.Manual)
	}
}

func TestRunInMemory(t *testing.T) {
	r := New(Options{Pages: pages})
	rep, err := r.Run(context.Background(), []ioformats.Org{{"website": "https://a.org"}}, aggregate.WithMinCount(1))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rep.Sites, []string{"a_org"}) || rep.FooterLinkCounts["Donate"] != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestCondenseBundleRecord(t *testing.T) {
	r := New(Options{Pages: pages})
	b := r.ScrapeSite(context.Background(), ioformats.Org{"website": "https://b.org", "legalName": "B Org"})
	rec, ok := r.CondenseBundle(b)
	if !ok {
		t.Fatal("condense failed")
	}
	if *rec.Title != "B" || *rec.LegalNameAlt != "B Org" || *rec.Website != "https://b.org" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !reflect.DeepEqual(rec.Links["donatelinks"], []string{"https://give.b.org"}) {
		t.Fatalf("donate links: %#v", rec.Links["donatelinks"])
	}
	if !reflect.DeepEqual(rec.NonprofitStatusAlt, []string{"A registered nonprofit."}) {
		t.Fatalf("nonprofit hints: %#v", rec.NonprofitStatusAlt)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(Options{WorkDir: t.TempDir(), Pages: pages})
	if _, err := r.Run(ctx, []ioformats.Org{{"website": "https://a.org"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestRunSkipsInvalidRows(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(t.TempDir(), "orgs.csv")
	if err := os.WriteFile(input, []byte("website\nhttps://a.org\nexample.org\nhttps://b.org\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	orgs, err := ioformats.ReadOrgs(input)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	r := New(Options{WorkDir: dir, ReportPath: filepath.Join(dir, "npdetector.json"), Pages: pages})
	rep, err := r.Run(context.Background(), orgs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(rep.Sites, []string{"a_org", "b_org"}) {
		t.Fatalf("sites: got %v", rep.Sites)
	}
	var rowErrs []string
	for _, e := range rep.ErrorLog {
		if strings.HasPrefix(e, "read_orgs(") {
			rowErrs = append(rowErrs, e)
		}
	}
	if len(rowErrs) != 1 || !strings.HasPrefix(rowErrs[0], `read_orgs(row 2): website "example.org"`) {
		t.Fatalf("want one row error for row 2, got %v", rowErrs)
	}
}

func TestRunCountsSiteWithoutIdentifier(t *testing.T) {
	org := ioformats.Org{"website": "mailto:info@a.org"}
	for _, dir := range []string{"", t.TempDir()} {
		r := New(Options{WorkDir: dir, Pages: pages})
		rep, err := r.Run(context.Background(), []ioformats.Org{org})
		if err != nil {
			t.Fatalf("workdir %q: %v", dir, err)
		}
		if !reflect.DeepEqual(rep.Sites, []string{"mailto:info@a.org"}) {
			t.Fatalf("workdir %q: sites %v", dir, rep.Sites)
		}
	}
}
