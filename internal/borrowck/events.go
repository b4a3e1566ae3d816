package borrowck

import (
	"borrowck/internal/scopes"
	"borrowck/internal/source"
)

// EventKind identifies the type of borrow event recorded during analysis.
type EventKind uint8

const (
	// EvBorrowStart indicates the beginning of a borrow.
	EvBorrowStart EventKind = iota
	// EvBorrowEnd indicates the retirement of a borrow.
	EvBorrowEnd
	EvMove
	EvWrite
	EvDrop
)

func (k EventKind) String() string {
	switch k {
	case EvBorrowStart:
		return "borrow_start"
	case EvBorrowEnd:
		return "borrow_end"
	case EvMove:
		return "move"
	case EvWrite:
		return "write"
	case EvDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// Event is a lightweight log entry produced while checking. It is meant for
// downstream debug/visualization and must not affect diagnostics.
type Event struct {
	Kind EventKind

	// Borrow is the borrow entry associated with this event (when applicable).
	Borrow BorrowID

	// BorrowKind is only meaningful for EvBorrowStart.
	BorrowKind BorrowKind

	// Place is the accessed place (when applicable).
	Place scopes.PlaceID

	// Binding is the binding involved in this event (when applicable),
	// e.g. the reference written through or the move destination.
	Binding scopes.PlaceID

	Span  source.Span
	Scope scopes.ScopeID

	// Issue captures whether this event was blocked by an active borrow.
	Issue       BorrowIssueKind
	IssueBorrow BorrowID

	Note string
}
