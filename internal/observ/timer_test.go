package observ

import (
	"strings"
	"testing"
)

func TestTimerRecordsPhasesInOrder(t *testing.T) {
	tm := NewTimer()
	tm.Measure("load", func() string { return "3 classes" })
	idx := tm.Begin("overload")
	tm.End(idx, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "load" || r.Phases[1].Name != "overload" {
		t.Fatalf("unexpected phases: %+v", r.Phases)
	}
	if r.Phases[0].Note != "3 classes" {
		t.Fatalf("note lost: %+v", r.Phases[0])
	}
	sum := r.Phases[0].DurationMS + r.Phases[1].DurationMS
	if r.TotalMS != sum {
		t.Fatalf("total %v, want %v", r.TotalMS, sum)
	}
}

func TestMergeSumsByName(t *testing.T) {
	a := Report{TotalMS: 3, Phases: []PhaseReport{{Name: "load", DurationMS: 1}, {Name: "overload", DurationMS: 2, Note: "x"}}}
	b := Report{TotalMS: 4, Phases: []PhaseReport{{Name: "overload", DurationMS: 1}, {Name: "ctorcheck", DurationMS: 3}}}

	m := Merge(a, b)
	want := []PhaseReport{{Name: "load", DurationMS: 1}, {Name: "overload", DurationMS: 3}, {Name: "ctorcheck", DurationMS: 3}}
	if m.TotalMS != 7 || len(m.Phases) != len(want) {
		t.Fatalf("unexpected merge: %+v", m)
	}
	for i := range want {
		if m.Phases[i] != want[i] {
			t.Fatalf("phase %d: got %+v, want %+v", i, m.Phases[i], want[i])
		}
	}
}

func TestSummaryHasTotalRow(t *testing.T) {
	s := Report{TotalMS: 1.5, Phases: []PhaseReport{{Name: "load", DurationMS: 1.5, Note: "ok"}}}.Summary()
	if !strings.HasPrefix(s, "timings:\n") || !strings.Contains(s, "load") || !strings.Contains(s, "ok") {
		t.Fatalf("unexpected summary:\n%s", s)
	}
	if !strings.HasSuffix(s, "  total             1.50 ms\n") {
		t.Fatalf("missing total row:\n%s", s)
	}
}
