package diag

import "flowsema/internal/source"

// Reporter receives findings from the passes. BagReporter stores them;
// SeverityFilter and DedupReporter wrap another Reporter.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// ReportBuilder collects notes before handing a diagnostic to a Reporter.
type ReportBuilder struct {
	to   Reporter
	d    Diagnostic
	sent bool
}

func NewReportBuilder(r Reporter, sev Severity, code Code, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{to: r, d: New(sev, code, primary, msg)}
}

func ReportError(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevError, code, primary, msg)
}

func ReportWarning(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevWarning, code, primary, msg)
}

func (b *ReportBuilder) WithNote(sp source.Span, msg string) *ReportBuilder {
	if b != nil {
		b.d = b.d.WithNote(sp, msg)
	}
	return b
}

// Emit reports the diagnostic. Only the first call has an effect.
func (b *ReportBuilder) Emit() {
	if b == nil || b.sent {
		return
	}
	b.sent = true
	if b.to != nil {
		b.to.Report(b.d.Code, b.d.Severity, b.d.Primary, b.d.Message, b.d.Notes)
	}
}

// BagReporter appends to Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r.Bag != nil {
		r.Bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary, Notes: notes})
	}
}

// SeverityFilter promotes warnings to errors or drops them.
type SeverityFilter struct {
	Next             Reporter
	WarningsAsErrors bool
	NoWarnings       bool
}

func (f SeverityFilter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if f.Next == nil || (sev == SevWarning && f.NoWarnings) {
		return
	}
	if sev == SevWarning && f.WarningsAsErrors {
		sev = SevError
	}
	f.Next.Report(code, sev, primary, msg, notes)
}

// DedupReporter forwards each finding once. Findings are the same when code,
// severity, primary span and message agree; notes are not compared.
type DedupReporter struct {
	next Reporter
	seen map[identity]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[identity]struct{})}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r == nil {
		return
	}
	d := New(sev, code, primary, msg)
	id := d.identity()
	if _, dup := r.seen[id]; dup {
		return
	}
	r.seen[id] = struct{}{}
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes)
	}
}
