package ir

import (
	"fmt"

	"fortio.org/safecast"

	"borrowck/internal/source"
)

// Unit is a single analyzable unit: an ordered statement sequence plus the
// interner holding its place names. Units are plain data; all checking
// happens in internal/scopes and internal/borrowck.
type Unit struct {
	Name  string
	Names *source.Interner
	stmts []Stmt
}

// NewUnit creates an empty unit.
func NewUnit(name string) *Unit {
	return &Unit{
		Name:  name,
		Names: source.NewInterner(),
	}
}

// Stmts returns the statement sequence.
// Не модифицируйте возвращаемый срез.
func (u *Unit) Stmts() []Stmt {
	return u.stmts
}

func (u *Unit) Len() int {
	return len(u.stmts)
}

// PlaceName resolves an interned operand back to its name.
func (u *Unit) PlaceName(id source.StringID) string {
	s, _ := u.Names.Lookup(id)
	return s
}

func (u *Unit) push(s Stmt) uint32 {
	idx, err := safecast.Conv[uint32](len(u.stmts))
	if err != nil {
		panic(fmt.Errorf("unit statement overflow: %w", err))
	}
	u.stmts = append(u.stmts, s)
	return idx
}

// Append adds a raw statement; the builder methods below cover the common
// forms and are what tests and decoders should normally use.
func (u *Unit) Append(s Stmt) uint32 {
	return u.push(s)
}

// Bind declares dest owning a fresh value.
func (u *Unit) Bind(dest string, mut bool) uint32 {
	return u.push(Stmt{Kind: StmtBind, Dest: u.Names.Intern(dest), Mut: mut})
}

// BindMoved declares dest taking ownership of src's value.
func (u *Unit) BindMoved(dest, src string, mut bool) uint32 {
	return u.push(Stmt{Kind: StmtBind, Dest: u.Names.Intern(dest), Src: u.Names.Intern(src), Mut: mut})
}

// Shadow redeclares dest in the current scope as a fresh place.
func (u *Unit) Shadow(dest string, mut bool) uint32 {
	return u.push(Stmt{Kind: StmtBind, Dest: u.Names.Intern(dest), Mut: mut, Shadow: true})
}

// Move reassigns ownership of src's value to the existing place dest.
func (u *Unit) Move(dest, src string) uint32 {
	return u.push(Stmt{Kind: StmtMove, Dest: u.Names.Intern(dest), Src: u.Names.Intern(src)})
}

// BorrowShared declares dest as a shared reference to ref.
func (u *Unit) BorrowShared(dest, ref string) uint32 {
	return u.push(Stmt{Kind: StmtBorrowShared, Dest: u.Names.Intern(dest), Src: u.Names.Intern(ref)})
}

// BorrowExclusive declares dest as an exclusive reference to ref.
func (u *Unit) BorrowExclusive(dest, ref string) uint32 {
	return u.push(Stmt{Kind: StmtBorrowExclusive, Dest: u.Names.Intern(dest), Src: u.Names.Intern(ref)})
}

// Write mutates place (directly or through the reference bound to it).
func (u *Unit) Write(place string) uint32 {
	return u.push(Stmt{Kind: StmtWriteThrough, Src: u.Names.Intern(place)})
}

// Read observes place.
func (u *Unit) Read(place string) uint32 {
	return u.push(Stmt{Kind: StmtRead, Src: u.Names.Intern(place)})
}

// Enter opens a nested scope.
func (u *Unit) Enter() uint32 {
	return u.push(Stmt{Kind: StmtScopeEnter})
}

// Exit closes the innermost scope.
func (u *Unit) Exit() uint32 {
	return u.push(Stmt{Kind: StmtScopeExit})
}
