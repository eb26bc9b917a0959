package testkit

import (
	"os"
	"path/filepath"
	"testing"

	"flowsema/internal/diag"
	"flowsema/internal/fixture"
	"flowsema/internal/source"
)

func TestFixturesKeepSpansInFile(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "testdata", "fixtures", "*.yaml"))
	if err != nil || len(paths) == 0 {
		t.Fatalf("no fixtures: %v", err)
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			fs := source.NewFileSet()
			bag := diag.NewBag(0)
			fix, err := fixture.Load(fs, path, diag.BagReporter{Bag: bag}, fixture.Options{})
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			sf, _ := fs.Lookup(path)
			if err := CheckFixtureSpans(fix, sf); err != nil {
				t.Fatalf("span invariants: %v", err)
			}
		})
	}
}

func TestCheckFixtureSpansRejectsForeignSpans(t *testing.T) {
	fs := source.NewFileSet()
	content, err := os.ReadFile(filepath.Join("..", "..", "testdata", "fixtures", "overload.yaml"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	fix, err := fixture.Parse(fs, "overload.yaml", content, nil, fixture.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fix.Calls[0].Span.End = uint32(len(content)) + 10
	sf, _ := fs.Lookup("overload.yaml")
	if err := CheckFixtureSpans(fix, sf); err == nil {
		t.Fatalf("expected an out-of-file span to be reported")
	}
}
