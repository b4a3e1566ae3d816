// Package diag defines the core diagnostic model shared by all analysis phases.
//
// # Purpose
//
//   - Provide deterministic, serialisable data structures that capture findings
//     produced by the scope builder and the ownership/borrow/lifetime trackers.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to concrete storage or formatting layers.
//
// # Scope
//
// Package diag does not perform any formatting, IO, or CLI integration.
// Rendering responsibilities live in internal/diagfmt, orchestration in the
// driver layer.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary span – the canonical source.Span pointing at the offending
//     program point(s).
//   - Notes – optional secondary spans/messages for additional context.
//
// Notes should be used sparingly: each note must add new context (e.g. "value
// moved here") rather than repeating the diagnostic message.
//
// # Emitting diagnostics
//
// Phases should use a diag.Reporter to decouple emission from storage. The
// checker constructs a ReportBuilder via the helper functions
// ReportError/ReportWarning/ReportInfo and chains WithNote before calling
// Emit. When no additional metadata is needed, phases may call
// Reporter.Report(...) directly. diag.BagReporter aggregates diagnostics into
// a Bag, which supports sorting, deduplication and merging.
//
// Semantic diagnostics never abort a run: the checker applies the offending
// transition anyway and keeps going, so one pass yields every detectable
// violation. Structural defects of the input IR are ordinary Go errors instead
// (see internal/ir) and stop the run before any semantic work.
//
// Keep the data model deterministic: any new fields should avoid side effects,
// so the CLI and tooling can safely serialise diagnostics for caching and
// testing.
package diag
