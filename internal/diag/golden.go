package diag

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"flowsema/internal/source"
)

// line is one rendered row: a diagnostic head or one of its notes.
type line struct {
	kind      string
	code      string
	path      string
	line, col uint32
	msg       string
}

func (l line) String() string {
	return fmt.Sprintf("%s %s %s:%d:%d %s", l.kind, l.code, l.path, l.line, l.col, l.msg)
}

// FormatGoldenDiagnostics renders one diagnostic per line with base-name
// paths, so the result is independent of where the fixtures live.
func FormatGoldenDiagnostics(diags []*Diagnostic, fs *source.FileSet, includeNotes bool) string {
	return formatLines(diags, fs, includeNotes, "basename")
}

// FormatShortDiagnostics is the --format short output: paths relative to the
// file set base directory.
func FormatShortDiagnostics(diags []*Diagnostic, fs *source.FileSet, includeNotes bool) string {
	return formatLines(diags, fs, includeNotes, "relative")
}

func formatLines(diags []*Diagnostic, fs *source.FileSet, includeNotes bool, mode string) string {
	if fs == nil {
		return ""
	}
	// a group is a head followed by its notes; only heads take part in sorting
	var groups [][]line
	for _, d := range diags {
		head, ok := locate(fs, d.Primary, mode)
		if !ok {
			continue
		}
		head.kind, head.code, head.msg = d.Severity.Label(), d.Code.ID(), oneLine(d.Message)
		group := []line{head}
		for _, n := range d.Notes {
			if !includeNotes {
				break
			}
			if nl, ok := locate(fs, n.Span, mode); ok {
				nl.kind, nl.code, nl.msg = "note", head.code, oneLine(n.Msg)
				group = append(group, nl)
			}
		}
		groups = append(groups, group)
	}
	slices.SortStableFunc(groups, func(a, b []line) int {
		x, y := a[0], b[0]
		return cmp.Or(
			cmp.Compare(x.path, y.path),
			cmp.Compare(x.line, y.line),
			cmp.Compare(x.col, y.col),
			cmp.Compare(x.code, y.code),
			cmp.Compare(x.msg, y.msg),
		)
	})

	var rows []string
	for _, g := range groups {
		for _, l := range g {
			rows = append(rows, l.String())
		}
	}
	return strings.Join(rows, "\n")
}

func locate(fs *source.FileSet, sp source.Span, mode string) (line, bool) {
	if int(sp.File) >= fs.Len() {
		return line{}, false
	}
	start, _ := fs.Resolve(sp)
	path := fs.Get(sp.File).FormatPath(mode, fs.BaseDir())
	return line{path: strings.TrimPrefix(path, "./"), line: start.Line, col: start.Col}, true
}

// oneLine folds line breaks into spaces.
func oneLine(msg string) string {
	return strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(msg))
}
