package trace

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// gate carries the level every sink filters on.
type gate struct{ level Level }

func (g gate) Level() Level  { return g.level }
func (g gate) Enabled() bool { return g.level > LevelOff }

// admits reports whether ev passes the level. Heartbeats always pass.
func (g gate) admits(ev *Event) bool {
	return ev != nil && g.Enabled() && (ev.Kind == KindHeartbeat || g.level.ShouldEmit(ev.Scope))
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop discards everything.
var Nop Tracer = nopTracer{}

// StreamTracer formats events to a writer as they arrive.
type StreamTracer struct {
	gate
	mu     sync.Mutex
	out    *bufio.Writer
	closer io.Closer // nil for stdout, stderr and caller-owned writers
	format Format
	seq    uint64
}

// NewStreamTracer writes to w. Files opened by New are closed by Close.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	st := &StreamTracer{gate: gate{level}, out: bufio.NewWriter(w), format: format}
	if c, ok := w.(io.Closer); ok && !isStdStream(w) {
		st.closer = c
	}
	return st
}

func (t *StreamTracer) Emit(ev *Event) {
	if !t.admits(ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	ev.Seq = t.seq
	_, _ = t.out.Write(FormatEvent(ev, t.format))
	// ends and heartbeats are the lines someone waits for on a hung run
	if ev.Kind == KindSpanEnd || ev.Kind == KindHeartbeat {
		_ = t.out.Flush()
	}
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Flush()
}

func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.out.Flush()
	if t.closer != nil {
		err = errors.Join(err, t.closer.Close())
		t.closer = nil
	}
	return err
}

// RingTracer keeps the most recent events in memory.
type RingTracer struct {
	gate
	mu   sync.Mutex
	buf  []Event
	next int // slot for the next event
	full bool
	seq  atomic.Uint64
}

// NewRingTracer keeps up to capacity events; non-positive capacity selects
// the default.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{gate: gate{level}, buf: make([]Event, capacity)}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.admits(ev) {
		return
	}
	stored := *ev
	stored.Seq = t.seq.Add(1)
	t.mu.Lock()
	t.buf[t.next] = stored
	t.next = (t.next + 1) % len(t.buf)
	t.full = t.full || t.next == 0
	t.mu.Unlock()
}

func (t *RingTracer) Flush() error { return nil }
func (t *RingTracer) Close() error { return nil }

// Snapshot copies the buffered events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]Event(nil), t.buf[:t.next]...)
	}
	out := make([]Event, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}

// Dump writes the buffered events to w.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	bw := bufio.NewWriter(w)
	for _, ev := range t.Snapshot() {
		if _, err := bw.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// MultiTracer fans events out to several sinks.
type MultiTracer struct {
	gate
	tracers []Tracer
}

// NewMultiTracer filters at level before handing events to tracers, which
// apply their own levels as well.
func NewMultiTracer(level Level, tracers ...Tracer) *MultiTracer {
	return &MultiTracer{gate: gate{level}, tracers: tracers}
}

func (t *MultiTracer) Emit(ev *Event) {
	if !t.admits(ev) {
		return
	}
	for _, inner := range t.tracers {
		// each sink stamps its own sequence number
		cp := *ev
		inner.Emit(&cp)
	}
}

func (t *MultiTracer) Flush() error { return t.each(Tracer.Flush) }
func (t *MultiTracer) Close() error { return t.each(Tracer.Close) }

func (t *MultiTracer) each(fn func(Tracer) error) error {
	var errs []error
	for _, inner := range t.tracers {
		if err := fn(inner); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
