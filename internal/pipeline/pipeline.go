// Package pipeline drives a corpus run: scrape every site into a signal
// bundle, condense every bundle into a review record, and roll the results
// up into one report. Sites are processed one at a time; a failing site is
// logged and skipped, never fatal to the run.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"npdetector/internal/aggregate"
	"npdetector/internal/condenser"
	"npdetector/internal/crawler"
	"npdetector/internal/errlog"
	"npdetector/internal/ioformats"
	"npdetector/internal/models"
	"npdetector/internal/parser"
	"npdetector/internal/schema"
	"npdetector/pkg/logger"
)

// PageSource returns raw HTML for a site, from cache or network.
type PageSource interface {
	Get(ctx context.Context, siteURL, key string, refresh bool) (crawler.Page, error)
}

type Options struct {
	// WorkDir receives bundles and records. Empty keeps everything in memory.
	WorkDir    string
	ReportPath string
	Refresh    bool
	Pages      PageSource
	Registry   *schema.Registry
	Logger     *logger.Logger
	// Progress, when set, is called before each site is processed.
	Progress func(stage, site string)
}

type Runner struct {
	opts      Options
	log       *logger.Logger
	errs      *errlog.Log
	extractor *parser.Extractor
	condenser *condenser.Condenser
	agg       *aggregate.Aggregator
}

func New(opts Options) *Runner {
	if opts.Registry == nil {
		opts.Registry = schema.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	errs := errlog.New(opts.Logger)
	return &Runner{
		opts:      opts,
		log:       opts.Logger,
		errs:      errs,
		extractor: parser.New(opts.Registry, errs),
		condenser: condenser.New(opts.Registry),
		agg:       aggregate.New(errs),
	}
}

// ScrapeSite fetches and extracts one site and attaches the operator's
// override fields. It always returns a bundle; failures are marked on it.
func (r *Runner) ScrapeSite(ctx context.Context, org ioformats.Org) models.SignalBundle {
	site := org.Website()
	r.progress("scrape", site)
	r.errs.Note(site)

	doc := r.load(ctx, site)
	b := r.extractor.Extract(doc, site)

	b.Manual = make(map[string]string, len(org))
	for k, v := range org {
		b.Manual[k] = v
	}
	return b
}

func (r *Runner) load(ctx context.Context, site string) *goquery.Document {
	if r.opts.Pages == nil {
		r.errs.Addf("get_site", site, "no page source configured")
		return nil
	}
	key, err := parser.Identifier(site)
	if err != nil {
		// extraction reports the bad URL
		return nil
	}
	page, err := r.opts.Pages.Get(ctx, site, key, r.opts.Refresh)
	if err != nil {
		r.errs.Addf("get_site", site, "%v", err)
		return nil
	}
	if page.Cached {
		r.log.Debugf("cache hit for %s", key)
	}
	doc, err := parser.Parse(bytes.NewReader(page.HTML), page.ContentType)
	if err != nil {
		r.errs.Addf("parse_html", site, "%v", err)
		return nil
	}
	return doc
}

// Scrape processes every org in order and persists each bundle. Rows with
// an invalid website are logged and skipped. It returns the bundle paths
// written; it stops early only if ctx is cancelled.
func (r *Runner) Scrape(ctx context.Context, orgs []ioformats.Org) ([]string, error) {
	var paths []string
	for i, org := range orgs {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		if !r.validRow(i, org) {
			continue
		}
		b := r.ScrapeSite(ctx, org)
		if r.opts.WorkDir == "" {
			continue
		}
		if b.Identifier == "" {
			// no file name to persist under; count it as in-memory runs do
			r.agg.AddSite(b.SiteURL)
			r.errs.Addf("write_bundle", b.SiteURL, "no identifier")
			continue
		}
		p, err := ioformats.WriteBundle(r.opts.WorkDir, b)
		if err != nil {
			r.errs.Addf("write_bundle", org.Website(), "%v", err)
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// CondenseFile loads one persisted bundle and condenses it. The site is
// counted in the report even when its bundle turns out to be unreadable.
func (r *Runner) CondenseFile(path string) (models.CondensedRecord, bool) {
	ident := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	r.progress("condense", ident)
	r.agg.AddSite(ident)

	b, err := ioformats.ReadBundle(path)
	if err != nil {
		r.errs.Addf("condense_site", ident, "%v", err)
		return models.CondensedRecord{}, false
	}
	return r.condense(ident, b)
}

// CondenseBundle condenses an in-memory bundle, recording its site first.
func (r *Runner) CondenseBundle(b models.SignalBundle) (models.CondensedRecord, bool) {
	ident := b.Identifier
	if ident == "" {
		ident = b.SiteURL
	}
	r.agg.AddSite(ident)
	return r.condense(ident, b)
}

func (r *Runner) condense(ident string, b models.SignalBundle) (models.CondensedRecord, bool) {
	// link counts come from the raw buckets, whatever happens to the record
	defer r.agg.AddLinks(&b.NavLinks, &b.FooterLinks)

	rec, err := r.condenser.Condense(b)
	if err != nil {
		r.errs.Addf("condense_site", ident, "%v", err)
		return models.CondensedRecord{}, false
	}
	if r.opts.WorkDir != "" {
		if _, err := ioformats.WriteRecord(r.opts.WorkDir, rec); err != nil {
			r.errs.Addf("write_record", ident, "%v", err)
			return rec, false
		}
	}
	return rec, true
}

// Condense condenses every bundle in dir, skipping the report file.
func (r *Runner) Condense(dir string) error {
	var skip []string
	if r.opts.ReportPath != "" {
		skip = append(skip, filepath.Base(r.opts.ReportPath))
	}
	files, err := ioformats.ListBundles(dir, skip...)
	if err != nil {
		return err
	}
	for _, f := range files {
		r.CondenseFile(f)
	}
	return nil
}

// Report returns the aggregate so far.
func (r *Runner) Report(opts ...aggregate.Option) models.AggregateReport {
	return r.agg.Finalize(opts...)
}

// Run scrapes and condenses every org and writes the report. Without a
// work directory bundles are condensed in memory as they are produced.
func (r *Runner) Run(ctx context.Context, orgs []ioformats.Org, opts ...aggregate.Option) (models.AggregateReport, error) {
	if r.opts.WorkDir == "" {
		for i, org := range orgs {
			if err := ctx.Err(); err != nil {
				return models.AggregateReport{}, err
			}
			if r.validRow(i, org) {
				r.CondenseBundle(r.ScrapeSite(ctx, org))
			}
		}
	} else {
		if _, err := r.Scrape(ctx, orgs); err != nil {
			return models.AggregateReport{}, err
		}
		if err := r.Condense(r.opts.WorkDir); err != nil {
			return models.AggregateReport{}, err
		}
	}
	report := r.Report(opts...)
	if r.opts.ReportPath != "" {
		if err := ioformats.WriteReport(r.opts.ReportPath, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// validRow logs and rejects input rows without a usable website.
func (r *Runner) validRow(i int, org ioformats.Org) bool {
	if err := org.Validate(); err != nil {
		r.errs.Addf("read_orgs", fmt.Sprintf("row %d", i+1), "%v", err)
		return false
	}
	return true
}

func (r *Runner) progress(stage, site string) {
	if r.opts.Progress != nil {
		r.opts.Progress(stage, site)
	}
}
