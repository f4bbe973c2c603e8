package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.WorkDir != "_npwork" {
		t.Fatalf("workdir: got %q", c.WorkDir)
	}
	if c.Input != filepath.Join("_npwork", "npdetector.csv") || c.Report != filepath.Join("_npwork", "npdetector.json") {
		t.Fatalf("derived paths: %q %q", c.Input, c.Report)
	}
	if c.CacheDB != filepath.Join("_npwork", "cache", "pages.db") {
		t.Fatalf("cache: got %q", c.CacheDB)
	}
	if c.Fetch.Timeout != 15*time.Second || c.Fetch.SizeCap != 5*1024*1024 {
		t.Fatalf("fetch defaults: %+v", c.Fetch)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "npd.yaml")
	content := "workdir: " + dir + "\nmin_count: 2\nfetch:\n  timeout: 3s\nlog:\n  level: debug\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NPDETECTOR_REFRESH", "true")
	c, err := Load(viper.New(), cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.WorkDir != dir || c.MinCount != 2 || c.Fetch.Timeout != 3*time.Second || c.Log.Level != "debug" {
		t.Fatalf("file values not applied: %+v", c)
	}
	if !c.Refresh {
		t.Fatal("env override not applied")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("log:\n  level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(viper.New(), cfgPath); err == nil {
		t.Fatal("want validation error for unknown log level")
	}
	if _, err := Load(viper.New(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("want error for explicit missing config file")
	}
}
