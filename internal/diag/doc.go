// Package diag defines the diagnostic model shared by every analysis pass.
//
// # Purpose
//
//   - Provide deterministic data structures for findings of the delegation,
//     overload, smart-cast and constructor-consistency passes, and for
//     problems found while loading fixtures.
//   - Offer light-weight utilities (Reporter, Bag) that let passes emit
//     diagnostics without coupling to storage or formatting.
//
// Package diag does no formatting beyond the line-oriented golden/short forms;
// terminal and JSON rendering lives in internal/diagfmt.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error.
//   - Code – numeric identifier with a stable string form (SEM3101, IO4002).
//   - Message – short, names the entities involved.
//   - Primary – the source.Span the finding is attached to.
//   - Notes – secondary spans, e.g. every candidate of an ambiguous call.
//
// # Reporting
//
// Passes receive a Reporter. Use ReportError / ReportWarning to get a
// ReportBuilder, attach notes, then Emit:
//
//	diag.ReportError(r, diag.SemaOverloadAmbiguity, span, msg).
//		WithNote(candSpan, "candidate").
//		Emit()
//
// SeverityFilter and DedupReporter wrap another Reporter. Bag keeps the
// diagnostics of one fixture; the driver sorts and merges bags by input index.
package diag
