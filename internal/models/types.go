
package models

type LinkBucket struct {
	Links map[string][]string `json:"links"`
	All   []string            `json:"alllinks,omitempty"`
}

type TextMatchBucket map[string][]string

type Organization struct {
	Name   *string           `json:"name"`
	Social map[string]string `json:"social,omitempty"`
}

type Metas struct {
	Title         *string       `json:"title"`
	TitleOG       *string       `json:"titleog"`
	Description   *string       `json:"description"`
	DescriptionOG *string       `json:"descriptionog"`
	Twitter       *string       `json:"twitter"`
	Canonical     *string       `json:"canonical"`
	Icon32        *string       `json:"icon32"`
	Generator     []string      `json:"generator"`
	Organization  *Organization `json:"organization"`
}

type SignalBundle struct {
	Identifier  string             `json:"identifier"`
	SiteURL     string             `json:"siteUrl"`
	Scraped     map[string]*string `json:"scraped"`
	Metas       Metas              `json:"metas"`
	Links       LinkBucket         `json:"links"`
	NavLinks    LinkBucket         `json:"linksnav"`
	FooterLinks LinkBucket         `json:"linksfooter"`
	TextMatches TextMatchBucket    `json:"textmatch"`
	ItemTypes   int                `json:"itemtypes,omitempty"`
	Manual      map[string]string  `json:"manual,omitempty"`
	Errors      map[string]string  `json:"errors,omitempty"`
}

// HasErrors reports whether extraction left an error marker on the bundle.
func (b SignalBundle) HasErrors() bool { return len(b.Errors) > 0 }

type CondensedRecord struct {
	Identifier         string              `json:"identifier" yaml:"identifier"`
	Title              *string             `json:"title" yaml:"title"`
	CommonName         *string             `json:"commonName" yaml:"commonName"`
	LegalName          *string             `json:"legalName" yaml:"legalName"`
	LegalNameAlt       *string             `json:"legalName_alt" yaml:"legalName_alt"`
	Description        *string             `json:"description" yaml:"description"`
	DescriptionAlt     *string             `json:"description_alt" yaml:"description_alt"`
	Website            *string             `json:"website" yaml:"website"`
	Slogan             *string             `json:"slogan" yaml:"slogan"`
	Copyright          *string             `json:"copyright" yaml:"copyright"`
	Imprint            *string             `json:"imprint" yaml:"imprint"`
	AddressCountry     *string             `json:"addressCountry" yaml:"addressCountry"`
	AddressRegion      *string             `json:"addressRegion" yaml:"addressRegion"`
	Links              map[string][]string `json:"links" yaml:",inline"`
	TaxID              *string             `json:"taxID" yaml:"taxID"`
	NonprofitStatus    *string             `json:"nonprofitStatus" yaml:"nonprofitStatus"`
	NonprofitStatusAlt []string            `json:"nonprofitStatus_alt" yaml:"nonprofitStatus_alt"`
	Icon32             *string             `json:"icon32" yaml:"icon32"`
	WebGenerator       *string             `json:"webgenerator" yaml:"webgenerator"`
	Social             map[string]string   `json:"social" yaml:"social"`
}

type AggregateReport struct {
	NavLinkCounts    map[string]int `json:"navLinkCounts"`
	FooterLinkCounts map[string]int `json:"footerLinkCounts"`
	Sites            []string       `json:"sites"`
	ErrorLog         []string       `json:"errorLog"`
}
