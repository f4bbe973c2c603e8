// Package aggregate rolls per-site link buckets up into corpus-wide counts.
package aggregate

import (
	"npdetector/internal/errlog"
	"npdetector/internal/models"
)

// Aggregator counts navigation and footer link text across sites. Counters
// are keyed by the normalized anchor text of the catch-all list, so the same
// label linking to different URLs on different sites shares one counter.
//
// An Aggregator has a single owner; callers that process sites in parallel
// must feed it from one goroutine.
type Aggregator struct {
	sites  []string
	nav    map[string]int
	footer map[string]int
	errs   *errlog.Log
}

func New(errs *errlog.Log) *Aggregator {
	if errs == nil {
		errs = errlog.New(nil)
	}
	return &Aggregator{
		sites:  []string{},
		nav:    map[string]int{},
		footer: map[string]int{},
		errs:   errs,
	}
}

func (a *Aggregator) AddSite(identifier string) {
	a.sites = append(a.sites, identifier)
}

// AddLinks counts every catch-all entry of the nav and footer buckets once.
// A nil bucket, or one collected without catch-all text, is skipped.
func (a *Aggregator) AddLinks(nav, footer *models.LinkBucket) {
	count(a.nav, nav)
	count(a.footer, footer)
}

func count(into map[string]int, b *models.LinkBucket) {
	if b == nil {
		return
	}
	for _, t := range b.All {
		into[t]++
	}
}

type options struct {
	minCount int
}

type Option func(*options)

// WithMinCount drops counter entries seen fewer than n times.
func WithMinCount(n int) Option {
	return func(o *options) { o.minCount = n }
}

// Finalize returns a snapshot of the report. Without options no entries
// are pruned.
func (a *Aggregator) Finalize(opts ...Option) models.AggregateReport {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return models.AggregateReport{
		NavLinkCounts:    snapshot(a.nav, o.minCount),
		FooterLinkCounts: snapshot(a.footer, o.minCount),
		Sites:            append([]string{}, a.sites...),
		ErrorLog:         a.errs.Entries(),
	}
}

func snapshot(m map[string]int, minCount int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		if v >= minCount {
			out[k] = v
		}
	}
	return out
}
