// Package mdnormalize rewrites the YAML frontmatter of record files so the
// fields follow the property order of a JSON schema.
package mdnormalize

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const sep = "---"

// SkipFields are schema properties left out of normalized output.
var SkipFields = []string{"dissolutionDate"}

// SchemaFields returns the top-level property names of a JSON schema file in
// document order, minus SkipFields.
func SchemaFields(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// JSON is valid YAML, and yaml.Node keeps key order.
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("schema %s is empty", path)
	}
	props := lookup(doc.Content[0], "properties")
	if props == nil || props.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schema %s has no properties object", path)
	}
	var fields []string
	for i := 0; i+1 < len(props.Content); i += 2 {
		name := props.Content[i].Value
		if !skipped(name) {
			fields = append(fields, name)
		}
	}
	return fields, nil
}

// NormalizeFile rewrites path in place and returns a status line. Errors are
// reported in the returned line rather than aborting a directory run.
func NormalizeFile(path string, fields []string) string {
	if err := normalize(path, fields); err != nil {
		return fmt.Sprintf("ERROR: (%s): %v", path, err)
	}
	return "Wrote out: " + path
}

// NormalizeDir applies NormalizeFile to every .md file in dir.
func NormalizeDir(dir string, fields []string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, NormalizeFile(f, fields))
	}
	return out, nil
}

func normalize(path string, fields []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	parts := strings.SplitN(string(data), sep, 3)
	if len(parts) < 2 {
		return errors.New("no frontmatter")
	}
	markdown := ""
	if len(parts) == 3 {
		markdown = parts[2]
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(parts[1]), &doc); err != nil {
		return err
	}
	old := &yaml.Node{Kind: yaml.MappingNode}
	if len(doc.Content) > 0 {
		old = doc.Content[0]
	}
	if old.Kind != yaml.MappingNode {
		return errors.New("frontmatter is not a mapping")
	}

	out := &yaml.Node{Kind: yaml.MappingNode}
	used := map[string]bool{}
	for _, f := range fields {
		used[f] = true
		v := lookup(old, f)
		if v == nil || isBlank(v) {
			v = nullNode()
		}
		out.Content = append(out.Content, strNode(f), v)
	}
	// non-schema fields keep their order after the schema fields; nulls are dropped
	for i := 0; i+1 < len(old.Content); i += 2 {
		k, v := old.Content[i], old.Content[i+1]
		if used[k.Value] || v.Tag == "!!null" {
			continue
		}
		out.Content = append(out.Content, k, v)
	}

	var buf bytes.Buffer
	buf.WriteString(sep + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	buf.WriteString(sep)
	buf.WriteString(markdown)
	if !strings.HasSuffix(markdown, "\n") {
		buf.WriteString("\n")
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func isBlank(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!str" && n.Value == ""
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func skipped(name string) bool {
	for _, s := range SkipFields {
		if s == name {
			return true
		}
	}
	return false
}
