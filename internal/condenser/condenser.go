// Package condenser projects a signal bundle onto the fixed review schema.
//
// Every scalar field is filled from an ordered chain of sources; the first
// source yielding a non-empty value wins. The chains live in one table so
// precedence (including the legal name exception, which never consults the
// operator's value) can be read and tested in one place.
package condenser

import (
	"errors"
	"fmt"
	"strings"

	"npdetector/internal/models"
	"npdetector/internal/schema"
)

// ErrMalformedBundle marks a bundle that cannot be condensed at all.
var ErrMalformedBundle = errors.New("malformed bundle")

type source struct {
	name string
	get  func(b *models.SignalBundle) *string
}

type rule struct {
	field   string
	set     func(r *models.CondensedRecord, v *string)
	sources []source
}

var (
	metaTitle         = source{"metas.title", func(b *models.SignalBundle) *string { return b.Metas.Title }}
	metaTitleOG       = source{"metas.titleog", func(b *models.SignalBundle) *string { return b.Metas.TitleOG }}
	metaDescription   = source{"metas.description", func(b *models.SignalBundle) *string { return b.Metas.Description }}
	metaDescriptionOG = source{"metas.descriptionog", func(b *models.SignalBundle) *string { return b.Metas.DescriptionOG }}
	metaCanonical     = source{"metas.canonical", func(b *models.SignalBundle) *string { return b.Metas.Canonical }}
	metaIcon32        = source{"metas.icon32", func(b *models.SignalBundle) *string { return b.Metas.Icon32 }}
	metaGenerator     = source{"metas.generator", func(b *models.SignalBundle) *string {
		if len(b.Metas.Generator) == 0 {
			return nil
		}
		s := strings.Join(b.Metas.Generator, "; ")
		return &s
	}}
	orgName = source{"metas.organization.name", func(b *models.SignalBundle) *string {
		if b.Metas.Organization == nil {
			return nil
		}
		return b.Metas.Organization.Name
	}}
)

func manual(key string) source {
	return source{"manual." + key, func(b *models.SignalBundle) *string {
		v, ok := b.Manual[key]
		if !ok {
			return nil
		}
		return &v
	}}
}

func scraped(key string) source {
	return source{"scraped." + key, func(b *models.SignalBundle) *string { return b.Scraped[key] }}
}

var rules = []rule{
	{"title", func(r *models.CondensedRecord, v *string) { r.Title = v }, []source{metaTitle, metaTitleOG}},
	{"commonName", func(r *models.CondensedRecord, v *string) { r.CommonName = v }, []source{manual("commonName")}},
	{"legalName", func(r *models.CondensedRecord, v *string) { r.LegalName = v }, []source{orgName}},
	{"legalName_alt", func(r *models.CondensedRecord, v *string) { r.LegalNameAlt = v }, []source{manual("legalName_alt"), manual("legalName")}},
	{"description", func(r *models.CondensedRecord, v *string) { r.Description = v }, []source{metaDescription, metaDescriptionOG}},
	{"description_alt", func(r *models.CondensedRecord, v *string) { r.DescriptionAlt = v }, []source{manual("description_alt"), manual("description")}},
	{"website", func(r *models.CondensedRecord, v *string) { r.Website = v }, []source{metaCanonical, manual("website")}},
	{"slogan", func(r *models.CondensedRecord, v *string) { r.Slogan = v }, []source{manual("slogan"), scraped("slogan")}},
	{"copyright", func(r *models.CondensedRecord, v *string) { r.Copyright = v }, []source{manual("copyright"), scraped("copyright")}},
	{"imprint", func(r *models.CondensedRecord, v *string) { r.Imprint = v }, []source{manual("imprint"), scraped("imprint")}},
	{"addressCountry", func(r *models.CondensedRecord, v *string) { r.AddressCountry = v }, []source{manual("addressCountry")}},
	{"addressRegion", func(r *models.CondensedRecord, v *string) { r.AddressRegion = v }, []source{manual("addressRegion")}},
	{"taxID", func(r *models.CondensedRecord, v *string) { r.TaxID = v }, []source{manual("taxID")}},
	{"nonprofitStatus", func(r *models.CondensedRecord, v *string) { r.NonprofitStatus = v }, []source{manual("nonprofitStatus")}},
	{"icon32", func(r *models.CondensedRecord, v *string) { r.Icon32 = v }, []source{metaIcon32}},
	{"webgenerator", func(r *models.CondensedRecord, v *string) { r.WebGenerator = v }, []source{metaGenerator}},
}

// Chain returns the source names consulted for field, in precedence order.
func Chain(field string) []string {
	for _, r := range rules {
		if r.field != field {
			continue
		}
		out := make([]string, 0, len(r.sources))
		for _, s := range r.sources {
			out = append(out, s.name)
		}
		return out
	}
	return nil
}

type Condenser struct {
	reg *schema.Registry
}

func New(reg *schema.Registry) *Condenser {
	if reg == nil {
		reg = schema.Default()
	}
	return &Condenser{reg: reg}
}

// Condense builds the review record for one bundle. A field whose sources
// are all missing or blank is null; only a bundle without an identity is
// rejected.
func (c *Condenser) Condense(b models.SignalBundle) (models.CondensedRecord, error) {
	if b.Identifier == "" {
		return models.CondensedRecord{}, fmt.Errorf("%w: missing identifier for %q", ErrMalformedBundle, b.SiteURL)
	}

	rec := models.CondensedRecord{Identifier: b.Identifier}
	for _, r := range rules {
		r.set(&rec, first(&b, r.sources))
	}

	rec.Links = make(map[string][]string, len(c.reg.Links))
	for _, p := range c.reg.Links {
		var v []string
		if urls, ok := b.Links.Links[p.Name]; ok {
			v = append([]string{}, urls...)
		}
		rec.Links[p.Name] = v
	}

	rec.NonprofitStatusAlt = c.textHints(b.TextMatches)
	rec.Social = social(&b)
	return rec, nil
}

// textHints joins each non-empty text category into one readable string.
func (c *Condenser) textHints(m models.TextMatchBucket) []string {
	out := []string{}
	for _, p := range c.reg.Text {
		if v := m[p.Name]; len(v) > 0 {
			out = append(out, strings.Join(v, ";"))
		}
	}
	return out
}

func social(b *models.SignalBundle) map[string]string {
	out := map[string]string{}
	if org := b.Metas.Organization; org != nil {
		for k, v := range org.Social {
			out[k] = v
		}
	}
	if b.Metas.Twitter != nil {
		out["twitter"] = *b.Metas.Twitter
	}
	return out
}

func first(b *models.SignalBundle, sources []source) *string {
	for _, s := range sources {
		if v := s.get(b); v != nil && strings.TrimSpace(*v) != "" {
			out := *v
			return &out
		}
	}
	return nil
}
