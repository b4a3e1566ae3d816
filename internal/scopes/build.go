package scopes

import (
	"fmt"

	"borrowck/internal/ir"
	"borrowck/internal/source"
)

// StmtOps carries the resolved operands of one statement. The checker works
// entirely in PlaceIDs; names are gone after this pass.
type StmtOps struct {
	// Scope is the innermost scope open at the statement.
	Scope ScopeID

	// Dest is the place declared (bind, borrows) or assigned (move).
	Dest PlaceID
	// DestDead is set when a move target resolved to a place whose scope
	// had already closed.
	DestDead bool

	// Src is the place read, moved from, borrowed or written.
	Src PlaceID
	// SrcDead is set when Src resolved to a place whose scope had already
	// closed. The lifetime resolver decides what that means.
	SrcDead bool

	// Redeclared points at the same-scope place a non-shadow bind collides
	// with; the ownership tracker reports the duplicate.
	Redeclared PlaceID
	// Shadowed points at the same-scope place this bind hides, shadow flag
	// or not; its value is implicitly dropped at this point if still owned.
	Shadowed PlaceID

	// Block is the scope opened by scope_enter or closed by scope_exit.
	Block ScopeID
}

// Resolved is the output of the scope tree builder: the scope/place arenas
// plus per-statement operand resolution.
type Resolved struct {
	Unit   *ir.Unit
	UnitID source.UnitID
	Table  *Table
	Root   ScopeID
	Ops    []StmtOps
}

// builder runs the linear scan over the statement sequence.
type builder struct {
	unit   *ir.Unit
	unitID source.UnitID
	table  *Table

	stack []ScopeID
	// live holds, per name, the stack of visible places (innermost last).
	live map[source.StringID][]PlaceID
	// dead remembers the most recent place per name whose scope closed;
	// late references to it are the lifetime resolver's business, not a
	// malformed program.
	dead map[source.StringID]PlaceID
}

// Build converts the flat statement sequence into a scope tree and resolves
// every operand to a place. It fails with ir.ErrUnbalancedScope on scope
// underflow or unterminated scopes and with ir.ErrMalformedProgram when a
// statement refers to a name never declared up to that point.
func Build(unit *ir.Unit, unitID source.UnitID) (*Resolved, error) {
	stmts := unit.Stmts()
	stmtCount, errConv := lenU32(stmts)
	if errConv != nil {
		return nil, errConv
	}

	b := &builder{
		unit:   unit,
		unitID: unitID,
		table:  NewTable(),
		live:   make(map[source.StringID][]PlaceID),
		dead:   make(map[source.StringID]PlaceID),
	}
	root := b.table.NewScope(ScopeUnit, NoScopeID, source.Span{Unit: unitID, Start: 0, End: stmtCount})
	b.stack = append(b.stack, root)

	res := &Resolved{
		Unit:   unit,
		UnitID: unitID,
		Table:  b.table,
		Root:   root,
		Ops:    make([]StmtOps, len(stmts)),
	}

	for i, stmt := range stmts {
		point := uint32(i)
		ops := StmtOps{Scope: b.top()}

		switch stmt.Kind {
		case ir.StmtScopeEnter:
			child := b.table.NewScope(ScopeBlock, b.top(), source.Span{Unit: unitID, Start: point, End: stmtCount})
			b.stack = append(b.stack, child)
			ops.Block = child

		case ir.StmtScopeExit:
			if len(b.stack) <= 1 {
				return nil, fmt.Errorf("stmt %d: scope exit without open scope: %w", i, ir.ErrUnbalancedScope)
			}
			closed := b.top()
			b.stack = b.stack[:len(b.stack)-1]
			b.closeScope(closed, point+1)
			ops.Block = closed

		case ir.StmtBind:
			if stmt.Src != source.NoStringID {
				if err := b.resolveSrc(&ops, stmt.Src, i); err != nil {
					return nil, err
				}
			}
			b.declare(&ops, PlaceValue, stmt, point)

		case ir.StmtMove:
			if err := b.resolveSrc(&ops, stmt.Src, i); err != nil {
				return nil, err
			}
			dest, destDead, ok := b.resolve(stmt.Dest)
			if !ok {
				return nil, b.malformed(stmt.Dest, i)
			}
			ops.Dest, ops.DestDead = dest, destDead

		case ir.StmtBorrowShared, ir.StmtBorrowExclusive:
			if err := b.resolveSrc(&ops, stmt.Src, i); err != nil {
				return nil, err
			}
			b.declare(&ops, PlaceRef, stmt, point)

		case ir.StmtRead, ir.StmtWriteThrough:
			if err := b.resolveSrc(&ops, stmt.Src, i); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("stmt %d: invalid statement kind: %w", i, ir.ErrMalformedProgram)
		}

		res.Ops[i] = ops
	}

	if len(b.stack) != 1 {
		return nil, fmt.Errorf("unit ends with %d unterminated scope(s): %w", len(b.stack)-1, ir.ErrUnbalancedScope)
	}
	return res, nil
}

func (b *builder) top() ScopeID {
	return b.stack[len(b.stack)-1]
}

// declare allocates a new place for a bind/borrow destination and records
// duplicate/shadow collisions against the current scope.
func (b *builder) declare(ops *StmtOps, kind PlaceKind, stmt ir.Stmt, point uint32) {
	cur := b.top()
	if prev := b.visibleInScope(stmt.Dest, cur); prev.IsValid() {
		ops.Shadowed = prev
		if !stmt.Shadow {
			ops.Redeclared = prev
		}
	}
	id := b.table.NewPlace(kind, stmt.Dest, cur, point, stmt.Mut)
	b.live[stmt.Dest] = append(b.live[stmt.Dest], id)
	ops.Dest = id
}

// visibleInScope returns the innermost visible place for name if it is
// declared directly in scope.
func (b *builder) visibleInScope(name source.StringID, scope ScopeID) PlaceID {
	stack := b.live[name]
	if len(stack) == 0 {
		return NoPlaceID
	}
	top := stack[len(stack)-1]
	if p := b.table.Place(top); p != nil && p.Scope == scope {
		return top
	}
	return NoPlaceID
}

// resolve finds the place for name: visible places first, then the most
// recently discarded one.
func (b *builder) resolve(name source.StringID) (PlaceID, bool, bool) {
	if stack := b.live[name]; len(stack) > 0 {
		return stack[len(stack)-1], false, true
	}
	if id, ok := b.dead[name]; ok {
		return id, true, true
	}
	return NoPlaceID, false, false
}

func (b *builder) resolveSrc(ops *StmtOps, name source.StringID, i int) error {
	id, isDead, ok := b.resolve(name)
	if !ok {
		return b.malformed(name, i)
	}
	ops.Src, ops.SrcDead = id, isDead
	return nil
}

func (b *builder) malformed(name source.StringID, i int) error {
	return fmt.Errorf("stmt %d: place %q was never declared: %w", i, b.unit.PlaceName(name), ir.ErrMalformedProgram)
}

// closeScope finalises a block: its span ends, its places leave the visible
// stacks and become dead (in reverse declaration order, mirroring drops).
func (b *builder) closeScope(id ScopeID, end uint32) {
	scope := b.table.Scope(id)
	scope.Span.End = end
	for i := len(scope.Places) - 1; i >= 0; i-- {
		pid := scope.Places[i]
		place := b.table.Place(pid)
		stack := b.live[place.Name]
		if n := len(stack); n > 0 && stack[n-1] == pid {
			b.live[place.Name] = stack[:n-1]
		}
		b.dead[place.Name] = pid
	}
}

func lenU32(stmts []ir.Stmt) (uint32, error) {
	n := len(stmts)
	if n > 1<<31 {
		return 0, fmt.Errorf("statement count %d: %w", n, ir.ErrUnitTooLarge)
	}
	return uint32(n), nil
}
