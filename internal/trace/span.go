package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns a process-wide increasing number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a fresh non-zero span ID.
func NextSpanID() uint64 { return spanCounter.Add(1) }

var goroutinePrefix = []byte("goroutine ")

// getGoroutineID parses the header line of runtime.Stack, which reads
// "goroutine N [state]:". It returns 0 when the line does not parse.
func getGoroutineID() uint64 {
	var buf [64]byte
	line := bytes.TrimPrefix(buf[:runtime.Stack(buf[:], false)], goroutinePrefix)
	num, _, ok := bytes.Cut(line, []byte{' '})
	if !ok {
		return 0
	}
	gid, err := strconv.ParseUint(string(num), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// Span is an open begin/end pair. Spans filtered out by the level are inert:
// their ID is 0 and End does nothing.
type Span struct {
	tracer  Tracer
	begin   Event
	started time.Time
}

var inert = &Span{tracer: Nop}

func admitted(t Tracer, scope Scope) bool {
	return t != nil && t.Enabled() && t.Level().ShouldEmit(scope)
}

// Begin opens a span under parent (0 for a root) and emits its begin event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if !admitted(t, scope) {
		return inert
	}
	s := &Span{
		tracer:  t,
		started: time.Now(),
		begin: Event{
			Kind:     KindSpanBegin,
			Scope:    scope,
			SpanID:   NextSpanID(),
			ParentID: parent,
			GID:      getGoroutineID(),
			Name:     name,
		},
	}
	ev := s.begin
	ev.Time = s.started
	t.Emit(&ev)
	return s
}

// End emits the end event and returns the time since Begin. Inert spans
// return 0.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return 0
	}
	ev := s.begin
	ev.Time = time.Now()
	ev.Kind = KindSpanEnd
	ev.Detail = detail
	s.tracer.Emit(&ev)
	return ev.Time.Sub(s.started)
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s == inert || s.tracer == nil || !s.tracer.Enabled() {
		return s
	}
	if s.begin.Extra == nil {
		s.begin.Extra = make(map[string]string, 2)
	}
	s.begin.Extra[key] = value
	return s
}

func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.begin.SpanID
}

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if !admitted(t, scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		GID:      getGoroutineID(),
		Name:     name,
		Detail:   detail,
	})
}
