package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestStreamTracerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	pass := Begin(tr, ScopePass, "delegation", 0)
	decl := Begin(tr, ScopeDecl, "class:Derived", pass.ID())
	decl.End("")
	pass.WithExtra("members", "2").WithExtra("clashes", "1").End("ok")

	out := buf.String()
	if strings.Contains(out, "class:Derived") {
		t.Fatalf("decl scope must be filtered at phase level:\n%s", out)
	}
	if !strings.Contains(out, "pass:delegation (ok) {clashes=1, members=2}") {
		t.Fatalf("missing pass end line:\n%s", out)
	}
	if decl.ID() != 0 {
		t.Fatalf("filtered span must be inert, got id %d", decl.ID())
	}
}

func TestMultiTracerFeedsRing(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingTracer(2, LevelDebug)
	multi := NewMultiTracer(LevelDebug, NewStreamTracer(&buf, LevelDebug, FormatNDJSON), ring)

	for _, name := range []string{"a", "b", "c"} {
		Point(multi, ScopeNode, name, "", 0)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 0 {
		t.Fatalf("point events must stay buffered until a flush, got %d lines", lines)
	}
	if err := multi.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	events := FindRing(multi).Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("ring must keep the last two events, got %+v", events)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 3 {
		t.Fatalf("stream must receive every event, got %d lines", lines)
	}
	if !strings.Contains(buf.String(), `"kind":"point"`) {
		t.Fatalf("expected NDJSON output, got %s", buf.String())
	}
}

func TestContextFallsBackToNop(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context must yield Nop")
	}
	ring := NewRingTracer(4, LevelPhase)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated through context")
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if lvl, err := ParseLevel("DETAIL"); err != nil || lvl != LevelDetail {
		t.Fatalf("ParseLevel(DETAIL) = %v, %v", lvl, err)
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("unknown level must fail")
	}
	if mode, err := ParseMode("both"); err != nil || mode != ModeBoth {
		t.Fatalf("ParseMode(both) = %v, %v", mode, err)
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format Format
		path   string
		want   Format
	}{
		{FormatAuto, "-", FormatText},
		{FormatAuto, "run.ndjson", FormatNDJSON},
		{FormatAuto, "run.jsonl", FormatNDJSON},
		{FormatText, "run.ndjson", FormatText},
	}
	for _, tt := range tests {
		if got := ResolveFormat(tt.format, tt.path); got != tt.want {
			t.Fatalf("ResolveFormat(%v, %q) = %v, want %v", tt.format, tt.path, got, tt.want)
		}
	}
}

func TestHeartbeatStopsOnce(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	hb := StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	events := ring.Snapshot()
	if len(events) == 0 || events[0].Kind != KindHeartbeat || events[0].Detail != "#1" {
		t.Fatalf("want heartbeat events, got %+v", events)
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("disabled tracer must not start a heartbeat")
	}
}
