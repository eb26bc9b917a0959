// Package fixture loads YAML documents that describe what an upstream
// frontend would have produced for one source file: declarations, call
// sites with their candidates, and pseudocode graphs.
//
// A minimal fixture:
//
//	package: demo
//	classes:
//	  - name: C
//	    modality: open
//	    properties:
//	      - {name: x, type: Int}
//	    functions:
//	      - {name: foo, returns: Int}
//	graphs:
//	  - decl: C
//	    code:
//	      - call: foo
//	      - write: x
package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"flowsema/internal/cfg"
	"flowsema/internal/delegation"
	"flowsema/internal/descriptors"
	"flowsema/internal/diag"
	"flowsema/internal/overload"
	"flowsema/internal/source"
	"flowsema/internal/types"
)

// Fixture is the loaded content of one file.
type Fixture struct {
	Path    string
	File    source.FileID
	Table   *descriptors.Table
	Package descriptors.DescID
	Classes []Class
	Calls   []Call
	Graphs  []*cfg.Graph
}

// Class is a declared class together with its header entries.
type Class struct {
	ID         descriptors.DescID
	Span       source.Span
	Specifiers []delegation.Specifier
	// Scope holds the class's type parameters by name.
	Scope map[string]types.TypeID
}

// Call is one call site and the candidates an upstream resolver found
// applicable.
type Call struct {
	Name         string
	Span         source.Span
	Mode         overload.Mode
	Discriminate bool
	Candidates   []overload.Candidate
}

// Options tune defaults that a fixture may leave open.
type Options struct {
	// DiscriminateGenerics is used for calls that do not say otherwise.
	DiscriminateGenerics bool
}

// SyntaxError means the file is not YAML or does not follow the fixture
// layout. Nothing was loaded.
type SyntaxError struct {
	Path string
	Err  error
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }
func (e *SyntaxError) Unwrap() error { return e.Err }

// Load reads path into fs and builds the fixture. I/O and syntax problems
// are returned; problems with individual entries are reported to rep and
// the entry is skipped.
func Load(fs *source.FileSet, path string, rep diag.Reporter, opts Options) (*Fixture, error) {
	id, err := fs.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load fixture: %w", err)
	}
	return build(fs.Get(id), rep, opts)
}

// Parse builds a fixture from memory.
func Parse(fs *source.FileSet, name string, content []byte, rep diag.Reporter, opts Options) (*Fixture, error) {
	id := fs.AddVirtual(name, content)
	return build(fs.Get(id), rep, opts)
}

func build(file *source.File, rep diag.Reporter, opts Options) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(file.Content))
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &SyntaxError{Path: file.Path, Err: err}
	}

	l := newLoader(file, rep, opts)
	l.load(&doc)
	return l.fix, nil
}

func u32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0
	}
	return v
}

// span points at the scalar s inside the fixture file.
func (l *loader) span(s str) source.Span {
	if s.Line == 0 {
		return source.Span{File: l.file.ID}
	}
	return l.file.SpanAt(source.LineCol{Line: u32(s.Line), Col: u32(s.Col)}, u32(len(s.Value)))
}

func (l *loader) errorf(code diag.Code, s str, format string, args ...any) {
	diag.ReportError(l.rep, code, l.span(s), fmt.Sprintf(format, args...)).Emit()
}
