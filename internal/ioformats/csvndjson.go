
package ioformats

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Org is one operator-supplied input row: the site to scan plus any manual
// override fields keyed by column name.
type Org map[string]string

// Website returns the row's site URL.
func (o Org) Website() string { return o["website"] }

var validate = validator.New()

// Validate checks that the row names an absolute site URL.
func (o Org) Validate() error {
	if err := validate.Var(o.Website(), "required,url"); err != nil {
		return fmt.Errorf("website %q: %w", o.Website(), err)
	}
	return nil
}

// ReadOrgs reads organization rows from a CSV (header row required, with a
// "website" column) or NDJSON file of flat objects.
// If ext cannot be determined, tries CSV first then NDJSON.
// Rows are returned unvalidated so one bad row cannot sink a run; callers
// check each with Org.Validate.
func ReadOrgs(path string) ([]Org, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".ndjson", ".jsonl":
		return readNDJSON(path)
	}
	if orgs, err := readCSV(path); err == nil && len(orgs) > 0 {
		return orgs, nil
	}
	return readNDJSON(path)
}

func readCSV(path string) ([]Org, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty csv")
	}
	header := make([]string, len(rows[0]))
	hasWebsite := false
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if header[i] == "website" {
			hasWebsite = true
		}
	}
	if !hasWebsite {
		return nil, errors.New("csv must contain a 'website' header column")
	}
	var out []Org
	for _, row := range rows[1:] {
		o := Org{}
		for i, v := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			// blank cells carry no override
			if v = strings.TrimSpace(v); v != "" {
				o[header[i]] = v
			}
		}
		if len(o) > 0 {
			out = append(out, o)
		}
	}
	return out, nil
}

func readNDJSON(path string) ([]Org, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []Org
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		// allow raw url or {"website": "...", ...}
		if !strings.HasPrefix(line, "{") {
			out = append(out, Org{"website": line})
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, fmt.Errorf("ndjson: %w", err)
		}
		o := Org{}
		for k, v := range obj {
			switch x := v.(type) {
			case string:
				if x != "" {
					o[k] = x
				}
			case nil:
			default:
				o[k] = fmt.Sprint(x)
			}
		}
		out = append(out, o)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no organizations found in ndjson")
	}
	return out, nil
}
