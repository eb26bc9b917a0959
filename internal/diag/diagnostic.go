package diag

import "flowsema/internal/source"

// Severity orders findings; larger is worse.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityLabels = [...]string{"info", "warning", "error"}

// String is the upper-case form used in headlines: ERROR, WARNING, INFO.
func (s Severity) String() string {
	if int(s) >= len(severityLabels) {
		return "UNKNOWN"
	}
	return upper(severityLabels[s])
}

// Label is the lower-case form used by line output. Unknown values read as
// info.
func (s Severity) Label() string {
	if int(s) >= len(severityLabels) {
		return severityLabels[SevInfo]
	}
	return severityLabels[s]
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// Note is a secondary location attached to a diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one finding of a pass or of the fixture loader.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// WithNote returns a copy of d with one more note.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes[:len(d.Notes):len(d.Notes)], Note{Span: sp, Msg: msg})
	return d
}

// identity is what two diagnostics must share to count as the same finding.
type identity struct {
	code       Code
	sev        Severity
	file       source.FileID
	start, end uint32
	msg        string
}

func (d *Diagnostic) identity() identity {
	return identity{d.Code, d.Severity, d.Primary.File, d.Primary.Start, d.Primary.End, d.Message}
}
