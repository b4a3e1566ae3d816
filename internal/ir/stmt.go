package ir

import (
	"borrowck/internal/source"
)

// StmtKind enumerates the statement forms of the program model.
type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	// StmtBind declares Dest in the current scope. When Src is set the new
	// binding takes ownership of Src's value (a move); otherwise it owns a
	// fresh value.
	StmtBind
	// StmtMove transfers ownership from Src to the already-declared Dest.
	StmtMove
	// StmtBorrowShared declares Dest as a shared reference to Src.
	StmtBorrowShared
	// StmtBorrowExclusive declares Dest as an exclusive reference to Src.
	StmtBorrowExclusive
	// StmtWriteThrough mutates the place named by Src, either directly or
	// through the reference bound to Src.
	StmtWriteThrough
	// StmtRead observes the place named by Src.
	StmtRead
	StmtScopeEnter
	StmtScopeExit
)

func (k StmtKind) String() string {
	switch k {
	case StmtBind:
		return "bind"
	case StmtMove:
		return "move"
	case StmtBorrowShared:
		return "borrow_shared"
	case StmtBorrowExclusive:
		return "borrow_exclusive"
	case StmtWriteThrough:
		return "write"
	case StmtRead:
		return "read"
	case StmtScopeEnter:
		return "scope_enter"
	case StmtScopeExit:
		return "scope_exit"
	default:
		return "invalid"
	}
}

// Stmt is one statement of an analyzable unit. Place names are interned in the
// owning Unit; NoStringID means the operand is absent for this kind.
type Stmt struct {
	Kind StmtKind
	Dest source.StringID // place declared or assigned by the statement
	Src  source.StringID // place read, moved from, borrowed or written
	Mut  bool            // Dest is declared mutable (bind forms only)
	// Shadow marks an intentional redeclaration of a same-scope name.
	// Without it, redeclaring in the same scope is a duplicate binding.
	Shadow bool
}

// HasDest reports whether the statement kind declares or assigns a place.
func (s Stmt) HasDest() bool {
	switch s.Kind {
	case StmtBind, StmtMove, StmtBorrowShared, StmtBorrowExclusive:
		return s.Dest != source.NoStringID
	}
	return false
}
