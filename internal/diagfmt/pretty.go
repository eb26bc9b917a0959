package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"flowsema/internal/diag"
	"flowsema/internal/source"
)

type palette struct {
	err, warn, info, note, gutter, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgBlue),
		gutter: color.New(color.FgBlue, color.Bold),
		caret:  color.New(color.FgGreen, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.gutter, p.caret, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty renders the bag in reading order (callers sort it first):
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with ^~~~ under the span and, with ShowNotes,
// one "note:" line per note. Timing diagnostics are skipped since their
// payload is meant for machines.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil || fs == nil {
		return
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		if d.Code == diag.ObsTimings {
			fmt.Fprintf(w, "%s %s\n", p.info.Sprint(d.Severity.String()), d.Message)
			continue
		}
		loc := location(fs, d.Primary, opts.PathMode)
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.bold.Sprint(loc),
			p.severity(d.Severity).Sprint(d.Severity.String()),
			d.Code.ID(),
			d.Message)
		writeSnippet(w, fs, d.Primary, opts.Context, p)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), location(fs, n.Span, opts.PathMode), n.Msg)
		}
	}
}

func location(fs *source.FileSet, sp source.Span, mode PathMode) string {
	if int(sp.File) >= fs.Len() {
		return "<unknown>"
	}
	f := fs.Get(sp.File)
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", f.FormatPath(mode.String(), fs.BaseDir()), start.Line, start.Col)
}

func writeSnippet(w io.Writer, fs *source.FileSet, sp source.Span, context int8, p palette) {
	if int(sp.File) >= fs.Len() {
		return
	}
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	if start.Line == 0 {
		return
	}
	ctx := uint32(max(context, 0))
	first := start.Line - min(ctx, start.Line-1)
	last := start.Line + ctx
	width := len(fmt.Sprint(last))

	for line := first; line <= last; line++ {
		text := f.GetLine(line)
		if line != start.Line && text == "" {
			continue
		}
		text = strings.ReplaceAll(text, "\t", "    ")
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", width, line), text)
		if line != start.Line {
			continue
		}
		raw := f.GetLine(line)
		lead := displayWidth(raw, start.Col-1)
		span := 1
		if end.Line == start.Line && end.Col > start.Col {
			span = max(displayWidth(raw, end.Col-1)-lead, 1)
		}
		marker := "^" + strings.Repeat("~", span-1)
		fmt.Fprintf(w, "%s %s%s\n", p.gutter.Sprintf("%*s |", width, ""), strings.Repeat(" ", lead), p.caret.Sprint(marker))
	}
}

// displayWidth measures the first n bytes of line in terminal cells.
func displayWidth(line string, n uint32) int {
	if int(n) > len(line) {
		n = uint32(len(line)) // #nosec G115 -- bounded by len
	}
	prefix := strings.ReplaceAll(line[:n], "\t", "    ")
	return runewidth.StringWidth(prefix)
}
