package trace

import "time"

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat // liveness signal, emitted whatever the level
)

var kindNames = [...]string{"unknown", "begin", "end", "point", "heartbeat"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[0]
}

// Scope is the granularity of an event; smaller values are coarser.
type Scope uint8

const (
	// ScopeDriver covers a run and the work on one fixture.
	ScopeDriver Scope = iota + 1
	// ScopePass covers one analysis pass over a fixture.
	ScopePass
	// ScopeDecl covers one class, graph or declaration inside a pass.
	ScopeDecl
	// ScopeNode covers one call site or instruction.
	ScopeNode
)

var scopeNames = [...]string{"unknown", "driver", "pass", "decl", "node"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return scopeNames[0]
}

// Event is a single trace record. Seq is stamped by the sink that stores it.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for roots
	GID      uint64
	Name     string // "overload", "class:Derived", ...
	Detail   string
	Extra    map[string]string
}
