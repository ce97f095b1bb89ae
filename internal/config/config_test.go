package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	c := Default()
	if c.LeadInMax != 3 || c.TrailingContextMin != 3 || c.TempFilePrefix != ".fixdiff" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestLoadWithoutEnvReturnsDefaults(t *testing.T) {
	t.Setenv(EnvPath, "")
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != Default() {
		t.Fatalf("got %+v, want defaults", c)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv(EnvPath, filepath.Join(t.TempDir(), "does-not-exist.json"))
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != Default() {
		t.Fatalf("got %+v, want defaults", c)
	}
}

func TestLoadOverridesFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte(`{"leadInMax": 5}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvPath, path)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.LeadInMax != 5 {
		t.Fatalf("leadInMax = %d, want 5", c.LeadInMax)
	}
	if c.TrailingContextMin != 3 || c.TempFilePrefix != ".fixdiff" {
		t.Fatalf("unset fields should keep defaults, got %+v", c)
	}
}
