package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"npdetector/internal/ioformats"
	"npdetector/internal/models"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestCondenseThenNormalize(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	title := "Helping Hands"
	b := models.SignalBundle{
		Identifier: "helpinghands_org",
		SiteURL:    "https://helpinghands.org",
		Metas:      models.Metas{Title: &title},
		FooterLinks: models.LinkBucket{
			Links: map[string][]string{},
			All:   []string{"Donate"},
		},
		Manual: map[string]string{"website": "https://helpinghands.org"},
	}
	if _, err := ioformats.WriteBundle(dir, b); err != nil {
		t.Fatal(err)
	}

	execute(t, "condense", "-q", "-w", dir, "--log-level", "error")

	rep, err := os.ReadFile(filepath.Join(dir, "npdetector.json"))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(string(rep), `"Donate": 1`) {
		t.Fatalf("report missing footer count:\n%s", rep)
	}
	if _, err := os.Stat(ioformats.RecordPath(dir, "helpinghands_org")); err != nil {
		t.Fatalf("record: %v", err)
	}

	schemaPath := filepath.Join(t.TempDir(), "schema.json")
	schema := `{"properties": {"identifier": {}, "title": {}, "ein": {}}}`
	if err := os.WriteFile(schemaPath, []byte(schema), 0o644); err != nil {
		t.Fatal(err)
	}
	out := execute(t, "normalize", "-q", "-w", dir, "--schema", schemaPath)
	if !strings.HasPrefix(out, "Wrote out: ") {
		t.Fatalf("unexpected output: %q", out)
	}
	rec, err := os.ReadFile(ioformats.RecordPath(dir, "helpinghands_org"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(rec), "---\nidentifier: helpinghands_org\ntitle: Helping Hands\nein: null\n") {
		t.Fatalf("unexpected record:\n%s", rec)
	}
}
