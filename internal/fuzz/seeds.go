package fuzztests

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const (
	maxSeedBytes = 64 << 10
	maxFuzzInput = 256 << 10
)

func addCorpusSeeds(f *testing.F) {
	addTestdataSeeds(f)
	addShapeSeeds(f)
}

// addTestdataSeeds seeds the corpus with every checked-in YAML fixture.
func addTestdataSeeds(f *testing.F) {
	fsys := os.DirFS(filepath.Join("..", "..", "testdata"))
	_ = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return fs.SkipDir
		case d.IsDir() || !isFixture(path):
			return nil
		}
		if src, err := fs.ReadFile(fsys, path); err == nil {
			f.Add(clampSeed(src))
		}
		return nil
	})
}

func isFixture(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// addShapeSeeds covers entries the checked-in fixtures do not use.
func addShapeSeeds(f *testing.F) {
	f.Add([]byte("package: p\nclasses:\n  - name: A\n    typeparams: [{name: T, bound: \"Any?\", variance: out}]\n"))
	f.Add([]byte("package: p\nclasses:\n  - {name: A, supertypes: [{by: B}]}\n"))
	f.Add([]byte("graphs:\n  - name: g\n    code:\n      - label: a\n      - goto: a\n"))
	f.Add([]byte("graphs:\n  - name: g\n    code:\n      - nested: {name: n, code: [exit]}\n"))
	f.Add([]byte("calls:\n  - site: f\n    mode: reference\n    candidates: []\n"))
	f.Add([]byte("{}"))
	f.Add([]byte("- not a mapping\n"))
}

func clampSeed(src []byte) []byte {
	return bytes.Clone(src[:min(len(src), maxSeedBytes)])
}
