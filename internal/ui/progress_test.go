package ui

import (
	"strings"
	"testing"
	"time"

	"flowsema/internal/driver"
)

func newBoard(t *testing.T, files ...string) *board {
	t.Helper()
	b, ok := NewProgressModel("check", files, nil).(*board)
	if !ok {
		t.Fatalf("unexpected model type")
	}
	return b
}

func TestBoardTracksStagesAndFailures(t *testing.T) {
	b := newBoard(t, "a.yaml", "b.yaml")

	b.apply(driver.Event{File: "a.yaml", Stage: driver.StageOverload, Status: driver.StatusWorking})
	if got := b.rows[0].label; got != "overload" {
		t.Fatalf("label = %q, want overload", got)
	}
	b.apply(driver.Event{File: "a.yaml", Stage: driver.StageOverload, Status: driver.StatusWorking, Elapsed: time.Millisecond})
	if b.rows[0].finished != 1 {
		t.Fatalf("finished = %d, want 1", b.rows[0].finished)
	}

	b.apply(driver.Event{File: "b.yaml", Status: driver.StatusError})
	b.apply(driver.Event{File: "b.yaml", Status: driver.StatusError})
	if b.failing != 1 {
		t.Fatalf("failing = %d, want 1", b.failing)
	}

	b.apply(driver.Event{File: "unknown.yaml", Status: driver.StatusError})
	if b.failing != 1 {
		t.Fatalf("unknown fixture changed the failing count")
	}
}

func TestBoardFraction(t *testing.T) {
	b := newBoard(t, "a.yaml", "b.yaml")
	if got := b.fraction(); got != 0 {
		t.Fatalf("fraction = %v, want 0", got)
	}
	b.apply(driver.Event{File: "a.yaml", Status: driver.StatusDone})
	if got := b.fraction(); got != 0.5 {
		t.Fatalf("fraction = %v, want 0.5", got)
	}
	b.apply(driver.Event{File: "b.yaml", Status: driver.StatusDone})
	if got := b.fraction(); got != 1 {
		t.Fatalf("fraction = %v, want 1", got)
	}
}

func TestViewListsFixtures(t *testing.T) {
	b := newBoard(t, "fixtures/ctor.yaml")
	b.apply(driver.Event{File: "fixtures/ctor.yaml", Status: driver.StatusError})
	b.closed = true

	view := b.View()
	for _, want := range []string{"done: check (1 fixtures), 1 failing", "fixtures/ctor.yaml", "error"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if newBoard(t).View() != "" {
		t.Fatalf("empty board should render nothing")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 0, "abcdefghij"},
		{"abcdefghij", 7, "abcd..."},
		{"abcdefghij", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
