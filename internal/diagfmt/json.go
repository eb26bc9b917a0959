package diagfmt

import (
	"encoding/json"
	"io"

	"flowsema/internal/diag"
	"flowsema/internal/source"
)

// LocationJSON is a span; line and column fields are only set when positions
// are requested.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the document written for one fixture. Dropped counts
// diagnostics the bag refused once it was full.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Dropped     int              `json:"dropped,omitempty"`
}

type locator struct {
	fs        *source.FileSet
	mode      string
	positions bool
}

func (l locator) at(sp source.Span) LocationJSON {
	loc := LocationJSON{StartByte: sp.Start, EndByte: sp.End}
	if int(sp.File) >= l.fs.Len() {
		return loc
	}
	loc.File = l.fs.Get(sp.File).FormatPath(l.mode, l.fs.BaseDir())
	if l.positions {
		start, end := l.fs.Resolve(sp)
		loc.StartLine, loc.StartCol = start.Line, start.Col
		loc.EndLine, loc.EndCol = end.Line, end.Col
	}
	return loc
}

// BuildDiagnosticsOutput converts the bag. Timing diagnostics keep their
// notes whatever IncludeNotes says, since the payload is a note.
func BuildDiagnosticsOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	l := locator{fs: fs, mode: opts.PathMode.String(), positions: opts.IncludePositions}

	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, len(items)), Dropped: bag.Dropped()}
	for _, d := range items {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Message:  d.Message,
			Location: l.at(d.Primary),
		}
		if opts.IncludeNotes || d.Code == diag.ObsTimings {
			for _, n := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{Message: n.Msg, Location: l.at(n.Span)})
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	out.Count = len(out.Diagnostics)
	return out
}

// JSON writes BuildDiagnosticsOutput as indented JSON.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(bag, fs, opts))
}
