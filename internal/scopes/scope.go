package scopes

import (
	"borrowck/internal/source"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid ScopeKind = iota
	ScopeUnit              // artificial root covering the whole unit
	ScopeBlock             // nested lexical block (scope_enter .. scope_exit)
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeUnit:
		return "unit"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// Scope models a lexical block with a parent-child hierarchy. Places lists
// the places declared directly in the scope, in declaration order; scope exit
// drops them in reverse.
type Scope struct {
	Kind     ScopeKind
	Parent   ScopeID
	Depth    uint32
	Span     source.Span
	Places   []PlaceID
	Children []ScopeID
}

// PlaceKind distinguishes value bindings from reference bindings.
type PlaceKind uint8

const (
	PlaceInvalid PlaceKind = iota
	PlaceValue
	PlaceRef
)

func (k PlaceKind) String() string {
	switch k {
	case PlaceValue:
		return "value"
	case PlaceRef:
		return "ref"
	default:
		return "invalid"
	}
}

// Place is a named storage location. Shadowing declares a distinct Place for
// the same name, so identity is the PlaceID, never the name.
type Place struct {
	Kind  PlaceKind
	Name  source.StringID
	Scope ScopeID
	Decl  uint32 // program point of the declaration
	Mut   bool
}
