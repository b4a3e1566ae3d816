package scopes

import (
	"fmt"

	"fortio.org/safecast"

	"borrowck/internal/source"
)

// Table is the arena owning every scope and place of one analyzed unit.
// Index 0 of both arenas is a sentinel so that the zero ID stays invalid.
type Table struct {
	scopes []Scope
	places []Place
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		scopes: []Scope{{}},
		places: []Place{{}},
	}
}

// NewScope allocates a scope and links it to its parent.
func (t *Table) NewScope(kind ScopeKind, parent ScopeID, span source.Span) ScopeID {
	depth := uint32(0)
	if p := t.Scope(parent); p != nil {
		depth = p.Depth + 1
	}
	raw, err := safecast.Conv[uint32](len(t.scopes))
	if err != nil {
		panic(fmt.Errorf("scope arena overflow: %w", err))
	}
	id := ScopeID(raw)
	t.scopes = append(t.scopes, Scope{
		Kind:   kind,
		Parent: parent,
		Depth:  depth,
		Span:   span,
	})
	if p := t.Scope(parent); p != nil {
		p.Children = append(p.Children, id)
	}
	return id
}

// NewPlace allocates a place declared directly in scope at point decl.
func (t *Table) NewPlace(kind PlaceKind, name source.StringID, scope ScopeID, decl uint32, mut bool) PlaceID {
	raw, err := safecast.Conv[uint32](len(t.places))
	if err != nil {
		panic(fmt.Errorf("place arena overflow: %w", err))
	}
	id := PlaceID(raw)
	t.places = append(t.places, Place{
		Kind:  kind,
		Name:  name,
		Scope: scope,
		Decl:  decl,
		Mut:   mut,
	})
	if s := t.Scope(scope); s != nil {
		s.Places = append(s.Places, id)
	}
	return id
}

// Scope returns the scope for id, or nil for the sentinel/unknown ids.
func (t *Table) Scope(id ScopeID) *Scope {
	if t == nil || !id.IsValid() || int(id) >= len(t.scopes) {
		return nil
	}
	return &t.scopes[id]
}

// Place returns the place for id, or nil for the sentinel/unknown ids.
func (t *Table) Place(id PlaceID) *Place {
	if t == nil || !id.IsValid() || int(id) >= len(t.places) {
		return nil
	}
	return &t.places[id]
}

// ScopeCount returns the number of allocated scopes (sentinel excluded).
func (t *Table) ScopeCount() int {
	return len(t.scopes) - 1
}

// PlaceCount returns the number of allocated places (sentinel excluded).
func (t *Table) PlaceCount() int {
	return len(t.places) - 1
}

// IsAncestor reports whether anc is desc or one of its ancestors.
func (t *Table) IsAncestor(anc, desc ScopeID) bool {
	if !anc.IsValid() || !desc.IsValid() {
		return false
	}
	for cur := desc; cur.IsValid(); {
		if cur == anc {
			return true
		}
		s := t.Scope(cur)
		if s == nil {
			return false
		}
		cur = s.Parent
	}
	return false
}
