package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	got, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("Find: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestDiscoverWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if cfg.Path != "" || cfg.Diagnostics.Max != Default().Diagnostics.Max {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
[analysis]
discriminate_generics = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Analysis.DiscriminateGenerics {
		t.Fatalf("discriminate_generics not read")
	}
	if cfg.Diagnostics.Max != 100 || cfg.Trace.Mode != "ring" || cfg.Analysis.Jobs < 1 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Path != path {
		t.Fatalf("path not recorded")
	}
}

func TestTemplateLoads(t *testing.T) {
	cfg, err := Load(writeFile(t, t.TempDir(), Template()))
	if err != nil {
		t.Fatalf("template must be valid: %v", err)
	}
	if cfg.Analysis.FragileAnnotation != "Fragile" || cfg.Analysis.Jobs != 4 {
		t.Fatalf("unexpected template values %+v", cfg.Analysis)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[diagnostics\n", "failed to parse TOML"},
		{"unknown key", "[analysis]\nthreads = 3\n", "unknown keys: analysis.threads"},
		{"jobs", "[analysis]\njobs = 0\n", "jobs must be at least 1"},
		{"exclusive", "[diagnostics]\nwarnings_as_errors = true\nno_warnings = true\n", "exclude each other"},
		{"level", "[trace]\nlevel = \"loud\"\n", "invalid trace level"},
		{"fragile", "[analysis]\nfragile_annotation = \" \"\n", "must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, t.TempDir(), tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("want error containing %q, got %v", tt.want, err)
			}
		})
	}
}
