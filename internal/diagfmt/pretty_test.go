package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"flowsema/internal/diag"
	"flowsema/internal/source"
)

func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("/home/user/project/fixtures/calls.yaml", []byte(fixtureText))
	fs.SetBaseDir("/home/user/project")

	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.SevError, diag.SemaOverloadAmbiguity, source.Span{File: fileID, Start: 32, End: 33}, "ambiguous call of f"))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/project/fixtures/calls.yaml:3:11"},
		{"relative", PathModeRelative, "fixtures/calls.yaml:3:11"},
		{"basename", PathModeBasename, "calls.yaml:3:11"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: tt.mode})
			output := buf.String()
			if !strings.Contains(output, tt.contains) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.contains, output)
			}
			if !strings.Contains(output, "ERROR SEM3101: ambiguous call of f") {
				t.Errorf("missing head line:\n%s", output)
			}
		})
	}
}

func TestPrettySnippetAndNotes(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("calls.yaml", []byte(fixtureText))
	bag := diag.NewBag(4)
	d := diag.New(diag.SevWarning, diag.SemaDangerousOpenPropertyAccess, source.Span{File: fileID, Start: 26, End: 30}, "accessing non-final property")
	d = d.WithNote(source.Span{File: fileID, Start: 0, End: 7}, "declared here")
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: PathModeBasename, ShowNotes: true})
	want := strings.Join([]string{
		"calls.yaml:3:5: WARNING SEM3107: accessing non-final property",
		"2 | calls:",
		"3 |   - site: f",
		"  |     ^~~~",
		"  note: calls.yaml:1:1: declared here",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyHidesNotesByDefault(t *testing.T) {
	bag, fs := ambiguityBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	if strings.Contains(buf.String(), "note:") {
		t.Fatalf("notes printed without ShowNotes:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "WARNING SEM3110") {
		t.Fatalf("second diagnostic missing:\n%s", buf.String())
	}
}

func TestPrettyWithColor(t *testing.T) {
	bag, fs := ambiguityBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Color: true, PathMode: PathModeBasename})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI escapes:\n%q", buf.String())
	}
}
