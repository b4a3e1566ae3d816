package ir

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"borrowck/internal/source"
)

// WireSchemaVersion - increment when the wire format changes.
const WireSchemaVersion uint16 = 1

// unitWire is the serialised form of a Unit, shared by the JSON
// (*.unit.json) and msgpack (*.unit.msgpack) encodings.
type unitWire struct {
	Schema     uint16     `json:"schema,omitempty" msgpack:"schema"`
	Name       string     `json:"name" msgpack:"name"`
	Statements []stmtWire `json:"statements" msgpack:"statements"`
}

type stmtWire struct {
	Op     string `json:"op" msgpack:"op"`
	Dest   string `json:"dest,omitempty" msgpack:"dest,omitempty"`
	From   string `json:"from,omitempty" msgpack:"from,omitempty"`
	Ref    string `json:"ref,omitempty" msgpack:"ref,omitempty"`
	Place  string `json:"place,omitempty" msgpack:"place,omitempty"`
	Mut    bool   `json:"mut,omitempty" msgpack:"mut,omitempty"`
	Shadow bool   `json:"shadow,omitempty" msgpack:"shadow,omitempty"`
}

// FromJSON decodes a unit from its JSON wire form.
func FromJSON(data []byte) (*Unit, error) {
	var w unitWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadWire, err)
	}
	return fromWire(&w)
}

// FromMsgpack decodes a unit from its msgpack wire form.
func FromMsgpack(data []byte) (*Unit, error) {
	var w unitWire
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadWire, err)
	}
	return fromWire(&w)
}

// ToJSON encodes the unit for storage or transport.
func (u *Unit) ToJSON() ([]byte, error) {
	return json.MarshalIndent(u.toWire(), "", "  ")
}

// ToMsgpack encodes the unit in the compact binary form.
func (u *Unit) ToMsgpack() ([]byte, error) {
	return msgpack.Marshal(u.toWire())
}

func fromWire(w *unitWire) (*Unit, error) {
	if w.Schema != 0 && w.Schema != WireSchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema %d (want %d)", ErrBadWire, w.Schema, WireSchemaVersion)
	}
	u := NewUnit(w.Name)
	for i, s := range w.Statements {
		stmt, err := s.decode(u.Names)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		u.push(stmt)
	}
	return u, nil
}

func (s stmtWire) decode(names *source.Interner) (Stmt, error) {
	intern := func(field, v string) (source.StringID, error) {
		if v == "" {
			return source.NoStringID, fmt.Errorf("%w: op %q requires %q", ErrBadWire, s.Op, field)
		}
		return names.Intern(v), nil
	}
	switch s.Op {
	case "bind":
		dest, err := intern("dest", s.Dest)
		if err != nil {
			return Stmt{}, err
		}
		out := Stmt{Kind: StmtBind, Dest: dest, Mut: s.Mut, Shadow: s.Shadow}
		if s.From != "" {
			out.Src = names.Intern(s.From)
		}
		return out, nil
	case "move":
		dest, err := intern("dest", s.Dest)
		if err != nil {
			return Stmt{}, err
		}
		src, err := intern("from", s.From)
		if err != nil {
			return Stmt{}, err
		}
		return Stmt{Kind: StmtMove, Dest: dest, Src: src}, nil
	case "borrow_shared", "borrow_exclusive":
		dest, err := intern("dest", s.Dest)
		if err != nil {
			return Stmt{}, err
		}
		ref, err := intern("ref", s.Ref)
		if err != nil {
			return Stmt{}, err
		}
		kind := StmtBorrowShared
		if s.Op == "borrow_exclusive" {
			kind = StmtBorrowExclusive
		}
		return Stmt{Kind: kind, Dest: dest, Src: ref}, nil
	case "write":
		place, err := intern("place", s.Place)
		if err != nil {
			return Stmt{}, err
		}
		return Stmt{Kind: StmtWriteThrough, Src: place}, nil
	case "read":
		place, err := intern("place", s.Place)
		if err != nil {
			return Stmt{}, err
		}
		return Stmt{Kind: StmtRead, Src: place}, nil
	case "scope_enter":
		return Stmt{Kind: StmtScopeEnter}, nil
	case "scope_exit":
		return Stmt{Kind: StmtScopeExit}, nil
	default:
		return Stmt{}, fmt.Errorf("%w: unknown op %q", ErrBadWire, s.Op)
	}
}

func (u *Unit) toWire() unitWire {
	w := unitWire{
		Schema:     WireSchemaVersion,
		Name:       u.Name,
		Statements: make([]stmtWire, 0, len(u.stmts)),
	}
	for _, s := range u.stmts {
		out := stmtWire{Op: s.Kind.String(), Mut: s.Mut, Shadow: s.Shadow}
		switch s.Kind {
		case StmtBind:
			out.Dest = u.PlaceName(s.Dest)
			out.From = u.PlaceName(s.Src)
		case StmtMove:
			out.Dest = u.PlaceName(s.Dest)
			out.From = u.PlaceName(s.Src)
		case StmtBorrowShared, StmtBorrowExclusive:
			out.Dest = u.PlaceName(s.Dest)
			out.Ref = u.PlaceName(s.Src)
		case StmtWriteThrough, StmtRead:
			out.Place = u.PlaceName(s.Src)
		}
		w.Statements = append(w.Statements, out)
	}
	return w
}
