package aggregate

import (
	"reflect"
	"testing"

	"npdetector/internal/errlog"
	"npdetector/internal/models"
)

func TestFooterTextCountedAcrossSites(t *testing.T) {
	a := New(nil)
	a.AddSite("one_org")
	a.AddLinks(nil, &models.LinkBucket{
		Links: map[string][]string{"donatelinks": {"https://one.org/donate"}},
		All:   []string{"Donate"},
	})
	a.AddSite("two_org")
	a.AddLinks(nil, &models.LinkBucket{
		Links: map[string][]string{"donatelinks": {"https://two.org/give"}},
		All:   []string{"Donate"},
	})
	r := a.Finalize()
	if r.FooterLinkCounts["Donate"] != 2 {
		t.Fatalf("want Donate=2, got %#v", r.FooterLinkCounts)
	}
	if len(r.NavLinkCounts) != 0 {
		t.Fatalf("nav counts should be empty, got %#v", r.NavLinkCounts)
	}
	if !reflect.DeepEqual(r.Sites, []string{"one_org", "two_org"}) {
		t.Fatalf("sites: got %#v", r.Sites)
	}
}

func TestBucketWithoutCatchAllSkipped(t *testing.T) {
	a := New(nil)
	a.AddLinks(&models.LinkBucket{Links: map[string][]string{"aboutlinks": {"https://x.org/about"}}}, nil)
	if r := a.Finalize(); len(r.NavLinkCounts) != 0 {
		t.Fatalf("want no counts, got %#v", r.NavLinkCounts)
	}
}

func TestFinalizePruning(t *testing.T) {
	a := New(nil)
	for i := 0; i < 3; i++ {
		a.AddLinks(&models.LinkBucket{All: []string{"About Us"}}, nil)
	}
	a.AddLinks(&models.LinkBucket{All: []string{"Rare link"}}, nil)

	if r := a.Finalize(); len(r.NavLinkCounts) != 2 {
		t.Fatalf("default finalize must not prune: %#v", r.NavLinkCounts)
	}
	r := a.Finalize(WithMinCount(2))
	if !reflect.DeepEqual(r.NavLinkCounts, map[string]int{"About Us": 3}) {
		t.Fatalf("pruned counts: got %#v", r.NavLinkCounts)
	}
}

func TestFinalizeCarriesErrorLog(t *testing.T) {
	log := errlog.New(nil)
	a := New(log)
	log.Addf("condense_site", "bad_org", "boom")
	r := a.Finalize()
	if len(r.ErrorLog) != 1 {
		t.Fatalf("want 1 error entry, got %#v", r.ErrorLog)
	}
	r.Sites = append(r.Sites, "mutated")
	if len(a.Finalize().Sites) != 0 {
		t.Fatal("report must not alias aggregator state")
	}
}
