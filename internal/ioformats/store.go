package ioformats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"npdetector/internal/models"
)

// FrontmatterSep delimits YAML frontmatter in record files.
const FrontmatterSep = "---"

// BundlePath is where a site's signal bundle lives inside dir.
func BundlePath(dir, identifier string) string {
	return filepath.Join(dir, identifier+".json")
}

// RecordPath is where a site's condensed record lives inside dir.
func RecordPath(dir, identifier string) string {
	return filepath.Join(dir, identifier+".md")
}

func WriteBundle(dir string, b models.SignalBundle) (string, error) {
	if b.Identifier == "" {
		return "", fmt.Errorf("write bundle for %q: empty identifier", b.SiteURL)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", err
	}
	path := BundlePath(dir, b.Identifier)
	return path, os.WriteFile(path, append(data, '\n'), 0o644)
}

func ReadBundle(path string) (models.SignalBundle, error) {
	var b models.SignalBundle
	data, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("decode %s: %w", path, err)
	}
	return b, nil
}

// ListBundles returns the bundle files in dir in name order, leaving out
// the files named in skip (such as the corpus report).
func ListBundles(dir string, skip ...string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	out := matches[:0]
	for _, m := range matches {
		if !contains(skip, filepath.Base(m)) {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// MarshalRecord renders a record as a markdown file consisting of YAML
// frontmatter only.
func MarshalRecord(r models.CondensedRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(FrontmatterSep + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteString(FrontmatterSep + "\n")
	return buf.Bytes(), nil
}

func WriteRecord(dir string, r models.CondensedRecord) (string, error) {
	data, err := MarshalRecord(r)
	if err != nil {
		return "", err
	}
	path := RecordPath(dir, r.Identifier)
	return path, os.WriteFile(path, data, 0o644)
}

func WriteReport(path string, r models.AggregateReport) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
