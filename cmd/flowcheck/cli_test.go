package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"flowsema/internal/config"
)

func TestReadFormat(t *testing.T) {
	tests := []struct {
		in   string
		want outputFormat
		err  bool
	}{
		{"pretty", formatPretty, false},
		{" Short ", formatShort, false},
		{"JSON", formatJSON, false},
		{"sarif", "", true},
	}
	for _, tt := range tests {
		got, err := readFormat(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Fatalf("readFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, "off": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
	if !shouldUseTUI(uiModeOn, 1) || shouldUseTUI(uiModeOff, 10) {
		t.Fatalf("explicit modes must win")
	}
}

func checkFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	fs.Int("max-diagnostics", 100, "")
	fs.Bool("warnings-as-errors", false, "")
	fs.Bool("no-warnings", false, "")
	fs.Int("jobs", 0, "")
	fs.Bool("discriminate-generics", false, "")
	fs.String("fragile", "", "")
	fs.String("trace-level", "off", "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return fs
}

func TestApplyFlagsOverridesOnlyGivenFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Diagnostics.NoWarnings = true
	cfg.Analysis.Jobs = 3
	cfg.Analysis.FragileAnnotation = "Fragile"

	fs := checkFlags(t, "--warnings-as-errors", "--max-diagnostics=7", "--trace-level=phase")
	if err := applyFlags(fs, &cfg); err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if !cfg.Diagnostics.WarningsAsErrors || cfg.Diagnostics.NoWarnings {
		t.Fatalf("flag must replace the configured warning mode: %+v", cfg.Diagnostics)
	}
	if cfg.Diagnostics.Max != 7 || cfg.Trace.Level != "phase" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Analysis.Jobs != 3 || cfg.Analysis.FragileAnnotation != "Fragile" {
		t.Fatalf("unset flags must keep config values: %+v", cfg.Analysis)
	}
}

func TestApplyFlagsRejectsConflicts(t *testing.T) {
	cfg := config.Default()
	fs := checkFlags(t, "--warnings-as-errors", "--no-warnings")
	if err := applyFlags(fs, &cfg); err == nil {
		t.Fatalf("expected a conflict error")
	}
	cfg = config.Default()
	if err := applyFlags(checkFlags(t, "--jobs=-2"), &cfg); err == nil {
		t.Fatalf("expected a jobs error")
	}
}

func TestInitWritesTemplate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"init", "--color", "off", dir})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("init: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, config.FileName))
	if err != nil || string(data) != config.Template() {
		t.Fatalf("template not written: %v", err)
	}

	rootCmd.SetArgs([]string{"init", "--color", "off", dir})
	if err := rootCmd.Execute(); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("second init must refuse, got %v", err)
	}
}

func TestCheckShortOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	fixture := filepath.Join("..", "..", "testdata", "fixtures", "overload.yaml")
	rootCmd.SetArgs([]string{"check", "--color", "off", "--ui", "off", "--format", "short", fixture})
	err := rootCmd.Execute()
	if !errors.Is(err, errFailed) {
		t.Fatalf("want errFailed, got %v", err)
	}
	if got := out.String(); !strings.Contains(got, "error SEM3101") || strings.Count(got, "\n") != 1 {
		t.Fatalf("unexpected output:\n%s", got)
	}
}
