package ir

import "errors"

// Structural failures abort an analysis run before (or instead of) producing
// semantic diagnostics. Callers distinguish them with errors.Is.
var (
	// ErrMalformedProgram marks a statement referring to a place that was
	// never declared anywhere in the unit.
	ErrMalformedProgram = errors.New("malformed program")

	// ErrUnbalancedScope marks scope-exit underflow or a unit ending with
	// open scopes.
	ErrUnbalancedScope = errors.New("unbalanced scope")

	// ErrUnitTooLarge marks a unit rejected by the statement-count guard.
	ErrUnitTooLarge = errors.New("unit too large")

	// ErrBadWire marks an undecodable wire payload.
	ErrBadWire = errors.New("bad unit wire payload")
)
