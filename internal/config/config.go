// Package config reads flowcheck.toml, the per-project defaults for the
// flowcheck command. Flags given on the command line win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"flowsema/internal/trace"
)

// FileName is the name searched for by Find.
const FileName = "flowcheck.toml"

// Config mirrors the sections of flowcheck.toml.
type Config struct {
	Diagnostics Diagnostics `toml:"diagnostics"`
	Analysis    Analysis    `toml:"analysis"`
	Trace       Trace       `toml:"trace"`

	// Path is the file the values came from; empty for defaults.
	Path string `toml:"-"`
}

type Diagnostics struct {
	Max              int  `toml:"max"`
	WarningsAsErrors bool `toml:"warnings_as_errors"`
	NoWarnings       bool `toml:"no_warnings"`
}

type Analysis struct {
	DiscriminateGenerics bool `toml:"discriminate_generics"`
	// FragileAnnotation names the annotation type that silences the
	// constructor checks; empty means the built-in Fragile.
	FragileAnnotation string `toml:"fragile_annotation"`
	Jobs              int    `toml:"jobs"`
}

type Trace struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
	// Format is auto, text or ndjson; auto picks by the output extension.
	Format string `toml:"format"`
}

// Default returns the configuration used without a flowcheck.toml.
func Default() Config {
	return Config{
		Diagnostics: Diagnostics{Max: 100},
		Analysis:    Analysis{Jobs: runtime.GOMAXPROCS(0)},
		Trace:       Trace{Level: "off", Mode: "ring", Output: "-", Format: "auto"},
	}
}

// Find walks up from startDir to locate flowcheck.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the nearest flowcheck.toml above startDir. It
// falls back to Default when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load decodes path over the defaults. Keys the file leaves out keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.validate(meta); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate(meta toml.MetaData) error {
	var errs []error
	if meta.IsDefined("diagnostics", "max") && c.Diagnostics.Max < 0 {
		errs = append(errs, fmt.Errorf("[diagnostics].max must not be negative"))
	}
	if c.Diagnostics.WarningsAsErrors && c.Diagnostics.NoWarnings {
		errs = append(errs, fmt.Errorf("[diagnostics]: warnings_as_errors and no_warnings exclude each other"))
	}
	if meta.IsDefined("analysis", "jobs") && c.Analysis.Jobs < 1 {
		errs = append(errs, fmt.Errorf("[analysis].jobs must be at least 1"))
	}
	if meta.IsDefined("analysis", "fragile_annotation") && strings.TrimSpace(c.Analysis.FragileAnnotation) == "" {
		errs = append(errs, fmt.Errorf("[analysis].fragile_annotation must not be empty"))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, fmt.Errorf("[trace].level: %w", err))
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, fmt.Errorf("[trace].mode: %w", err))
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		errs = append(errs, fmt.Errorf("[trace].format: %w", err))
	}
	return errors.Join(errs...)
}

// Template is the file written by `flowcheck init`.
func Template() string {
	return `# flowcheck project configuration

[diagnostics]
# stop collecting after this many diagnostics per fixture (0 = no limit)
max = 100
warnings_as_errors = false
no_warnings = false

[analysis]
# compare generic candidates by their type parameter bounds
discriminate_generics = false
# annotation that exempts an expression from constructor checks
fragile_annotation = "Fragile"
jobs = 4

[trace]
level = "off"   # off|error|phase|detail|debug
mode = "ring"   # stream|ring|both
output = "-"
format = "auto" # auto|text|ndjson
`
}
