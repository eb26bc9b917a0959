package diag

import (
	"testing"

	"flowsema/internal/source"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")
	file := fs.Add("/workspace/testdata/ctor.yaml", []byte("a\nb\nc\n"), 0)

	diags := []*Diagnostic{
		{
			Severity: SevWarning,
			Code:     SemaDangerousOpenPropertyAccess,
			Message:  "later",
			Primary:  source.Span{File: file, Start: 4, End: 5},
		},
		{
			Severity: SevError,
			Code:     SemaOverloadAmbiguity,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: file, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: file, Start: 2, End: 3}, Msg: "candidate"},
			},
		},
	}

	want := "error SEM3101 ctor.yaml:1:1 first line second\n" +
		"note SEM3101 ctor.yaml:2:1 candidate\n" +
		"warning SEM3107 ctor.yaml:3:1 later"
	if got := FormatGoldenDiagnostics(diags, fs, true); got != want {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", want, got)
	}

	short := FormatShortDiagnostics(diags, fs, false)
	if short != "error SEM3101 testdata/ctor.yaml:1:1 first line second\nwarning SEM3107 testdata/ctor.yaml:3:1 later" {
		t.Fatalf("unexpected short output:\n%s", short)
	}
}

func TestBagLimitSortAndDedup(t *testing.T) {
	bag := NewBag(3)
	r := BagReporter{Bag: bag}
	sp := source.Span{Start: 5, End: 6}
	r.Report(SemaRedeclaration, SevError, sp, "dup", nil)
	r.Report(SemaRedeclaration, SevError, sp, "dup", nil)
	r.Report(SemaConflictingOverloads, SevWarning, source.Span{Start: 1, End: 2}, "first", nil)
	if ok := bag.Add(NewError(SemaError, sp, "overflow")); ok {
		t.Fatalf("bag must reject diagnostics over the limit")
	}
	if bag.Dropped() != 1 {
		t.Fatalf("expected one dropped diagnostic, got %d", bag.Dropped())
	}
	bag.Dedup()
	bag.Sort()
	items := bag.Items()
	if len(items) != 2 || items[0].Message != "first" || items[1].Message != "dup" {
		t.Fatalf("unexpected bag contents: %+v", items)
	}
}

func TestSeverityFilter(t *testing.T) {
	bag := NewBag(0)
	promote := SeverityFilter{Next: BagReporter{Bag: bag}, WarningsAsErrors: true}
	ReportWarning(promote, SemaDangerousOpenPropertyAccess, source.Span{}, "w").Emit()
	if !bag.HasErrors() {
		t.Fatalf("warning must be promoted to error")
	}

	quiet := SeverityFilter{Next: BagReporter{Bag: bag}, NoWarnings: true}
	ReportWarning(quiet, SemaDangerousOpenPropertyAccess, source.Span{}, "w").Emit()
	if bag.Len() != 1 {
		t.Fatalf("warning must be dropped, bag has %d items", bag.Len())
	}
}

func TestDedupReporterAndBuilderEmitOnce(t *testing.T) {
	bag := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: bag})
	b := ReportError(r, SemaManyImplMemberNotImplemented, source.Span{Start: 1, End: 2}, "clash").
		WithNote(source.Span{Start: 3, End: 4}, "other")
	b.Emit()
	b.Emit()
	ReportError(r, SemaManyImplMemberNotImplemented, source.Span{Start: 1, End: 2}, "clash").Emit()
	if bag.Len() != 1 {
		t.Fatalf("expected a single diagnostic, got %d", bag.Len())
	}
	if notes := bag.Items()[0].Notes; len(notes) != 1 || notes[0].Msg != "other" {
		t.Fatalf("note was lost: %+v", notes)
	}
}
