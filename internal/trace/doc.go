// Package trace is the logging layer of flowcheck: structured span events
// for the driver, every analysis pass and, at higher levels, individual
// declarations and call sites.
//
// # Usage
//
//	flowcheck check --trace=- --trace-level=detail testdata/
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is disabled
//   - StreamTracer: writes each event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events for post-mortem dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// LevelPhase emits ScopeDriver and ScopePass events, LevelDetail adds
// ScopeDecl (one class or function), LevelDebug adds ScopeNode (a call site
// or instruction).
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "overload", parentID)
//	defer span.End("")
package trace
