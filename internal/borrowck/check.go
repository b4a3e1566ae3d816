// Package borrowck runs the ownership, borrow and lifetime trackers over a
// resolved unit in a single pass per statement.
package borrowck

import (
	"fmt"

	"borrowck/internal/diag"
	"borrowck/internal/ir"
	"borrowck/internal/scopes"
	"borrowck/internal/source"
)

// Options configure one checking pass over a unit.
type Options struct {
	Reporter diag.Reporter

	// PreciseExtents retires each borrow right after the last use of its
	// binding instead of at scope exit (non-lexical extents). Off by
	// default; the lexical model is the conformance baseline.
	PreciseExtents bool

	// MaxStatements rejects oversized units with ir.ErrUnitTooLarge before
	// any analysis. 0 disables the guard.
	MaxStatements int
}

// Result stores the artefacts of a checking pass. Diagnostics go to the
// reporter; a unit is accepted when its bag stays free of errors.
type Result struct {
	Scopes  *scopes.Resolved
	Borrows *BorrowTable
	Events  []Event
}

// Check runs the ownership, borrow and lifetime trackers over the unit in one
// pass per statement. Structural defects (malformed references, unbalanced
// scopes, the size guard) return an error with no partial diagnostics;
// semantic violations are reported and never abort.
func Check(unit *ir.Unit, unitID source.UnitID, opts Options) (Result, error) {
	if opts.MaxStatements > 0 && unit.Len() > opts.MaxStatements {
		return Result{}, fmt.Errorf("unit %q has %d statements (limit %d): %w",
			unit.Name, unit.Len(), opts.MaxStatements, ir.ErrUnitTooLarge)
	}
	res, err := scopes.Build(unit, unitID)
	if err != nil {
		return Result{}, err
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	c := &checker{
		unit:     unit,
		res:      res,
		reporter: reporter,
		own:      newOwnTable(res.Table.PlaceCount()),
		borrows:  NewBorrowTable(),
		precise:  opts.PreciseExtents,
	}
	c.run()
	return Result{Scopes: res, Borrows: c.borrows, Events: c.events}, nil
}

type checker struct {
	unit     *ir.Unit
	res      *scopes.Resolved
	reporter diag.Reporter
	own      *ownTable
	borrows  *BorrowTable
	events   []Event
	precise  bool
	lastUse  []uint32
}

func (c *checker) run() {
	if c.precise {
		c.computeLastUse()
	}
	for i, stmt := range c.unit.Stmts() {
		point := uint32(i)
		ops := c.res.Ops[i]
		if c.precise {
			c.retireExpired(point)
		}
		switch stmt.Kind {
		case ir.StmtScopeEnter:
			// открытие сцены учтено в resolve-проходе
		case ir.StmtScopeExit:
			c.closeScope(ops.Block, point)
		case ir.StmtBind:
			c.checkBind(ops, point)
		case ir.StmtMove:
			c.checkMove(ops, point)
		case ir.StmtBorrowShared:
			c.checkBorrow(BorrowShared, ops, point)
		case ir.StmtBorrowExclusive:
			c.checkBorrow(BorrowExclusive, ops, point)
		case ir.StmtRead:
			c.checkRead(ops, point)
		case ir.StmtWriteThrough:
			c.checkWrite(ops, point)
		}
	}
	// unit end closes the root scope
	c.closeScope(c.res.Root, uint32(c.unit.Len()))
}

// checkDecl reports duplicate bindings and applies the implicit drop of a
// same-scope binding hidden by a shadow (or by the duplicate's recovery).
func (c *checker) checkDecl(ops scopes.StmtOps, point uint32) {
	if ops.Redeclared.IsValid() {
		prev := c.place(ops.Redeclared)
		diag.ReportError(c.reporter, diag.SemaDuplicateBinding, c.spanAt(point),
			fmt.Sprintf("'%s' is declared twice in the same scope", c.name(ops.Dest))).
			WithNote(c.spanAt(prev.Decl), "previous declaration here").
			Emit()
	}
	if ops.Shadowed.IsValid() && c.own.get(ops.Shadowed) == OwnOwned {
		c.dropPlace(ops.Shadowed, point, fmt.Sprintf("'%s' shadowed here", c.name(ops.Shadowed)))
	}
}

func (c *checker) checkBind(ops scopes.StmtOps, point uint32) {
	c.checkDecl(ops, point)
	if ops.Src.IsValid() {
		c.moveFrom(ops.Src, ops.SrcDead, point)
		c.transferBorrow(ops.Src, ops.Dest, point)
		c.event(Event{Kind: EvMove, Place: ops.Src, Binding: ops.Dest, Span: c.spanAt(point), Scope: ops.Scope})
	}
	c.own.bind(ops.Dest)
}

func (c *checker) checkMove(ops scopes.StmtOps, point uint32) {
	c.moveFrom(ops.Src, ops.SrcDead, point)
	if ops.DestDead {
		diag.ReportError(c.reporter, diag.SemaUseOfUninit, c.spanAt(point),
			fmt.Sprintf("assignment to '%s' after its scope ended", c.name(ops.Dest))).
			WithNote(c.spanAt(c.place(ops.Dest).Decl), "declared here").
			Emit()
	} else {
		if issue := c.borrows.MutationAllowed(ops.Dest); issue.Kind != BorrowIssueNone {
			info := c.borrows.Info(issue.Borrow)
			diag.ReportError(c.reporter, diag.SemaConflictingBorrow, c.spanAt(point),
				fmt.Sprintf("cannot assign to '%s' while it is borrowed", c.name(ops.Dest))).
				WithNote(info.Span, fmt.Sprintf("%s borrow created here", info.Kind)).
				Emit()
		}
		if c.own.get(ops.Dest) == OwnOwned {
			c.dropPlace(ops.Dest, point, fmt.Sprintf("'%s' overwritten here", c.name(ops.Dest)))
		}
	}
	c.transferBorrow(ops.Src, ops.Dest, point)
	c.own.bind(ops.Dest)
	c.event(Event{Kind: EvMove, Place: ops.Src, Binding: ops.Dest, Span: c.spanAt(point), Scope: ops.Scope})
}

// moveFrom validates taking ownership out of src and applies the transition
// regardless of violations, keeping later checks consistent.
func (c *checker) moveFrom(src scopes.PlaceID, srcDead bool, point uint32) {
	switch {
	case srcDead:
		c.deadAccess(src, point)
	default:
		switch c.own.get(src) {
		case OwnMoved:
			diag.ReportError(c.reporter, diag.SemaUseAfterMove, c.spanAt(point),
				fmt.Sprintf("use of moved value '%s'", c.name(src))).
				WithNote(c.spanAt(c.own.movedPoint(src)), "value moved here").
				Emit()
		case OwnUninit, OwnDropped:
			diag.ReportError(c.reporter, diag.SemaUseOfUninit, c.spanAt(point),
				fmt.Sprintf("use of '%s' which holds no value", c.name(src))).
				Emit()
		case OwnOwned:
			if issue := c.borrows.MoveAllowed(src); issue.Kind != BorrowIssueNone {
				info := c.borrows.Info(issue.Borrow)
				diag.ReportError(c.reporter, diag.SemaMoveWhileBorrowed, c.spanAt(point),
					fmt.Sprintf("cannot move out of '%s' while it is borrowed", c.name(src))).
					WithNote(info.Span, fmt.Sprintf("%s borrow created here", info.Kind)).
					Emit()
			}
		}
	}
	c.own.moveOut(src, point)
}

// transferBorrow re-homes the borrow held by src when the reference itself is
// moved, so the borrow's lexical extent follows its new binding.
func (c *checker) transferBorrow(src, dest scopes.PlaceID, point uint32) {
	b := c.borrows.BindingBorrow(src)
	if b == NoBorrowID {
		return
	}
	if info := c.borrows.Info(b); info == nil || info.Retired {
		return
	}
	if c.checkEscape(b, dest, point) {
		return
	}
	c.borrows.Transfer(b, dest, c.place(dest).Scope)
}

func (c *checker) checkBorrow(kind BorrowKind, ops scopes.StmtOps, point uint32) {
	c.checkDecl(ops, point)
	ref := ops.Src
	refPlace := c.place(ref)
	if ops.SrcDead {
		c.deadAccess(ref, point)
	} else {
		switch c.own.get(ref) {
		case OwnMoved:
			diag.ReportError(c.reporter, diag.SemaUseAfterMove, c.spanAt(point),
				fmt.Sprintf("cannot borrow '%s' after its value was moved", c.name(ref))).
				WithNote(c.spanAt(c.own.movedPoint(ref)), "value moved here").
				Emit()
		case OwnUninit, OwnDropped:
			diag.ReportError(c.reporter, diag.SemaUseOfUninit, c.spanAt(point),
				fmt.Sprintf("cannot borrow '%s' which holds no value", c.name(ref))).
				Emit()
		}
		if kind == BorrowExclusive && refPlace.Kind == scopes.PlaceValue && !refPlace.Mut {
			diag.ReportWarning(c.reporter, diag.SemaImmutableBorrow, c.spanAt(point),
				fmt.Sprintf("exclusive borrow of '%s' which is not declared mutable", c.name(ref))).
				WithNote(c.spanAt(refPlace.Decl), "declared immutable here").
				Emit()
		}
	}
	id, issue := c.borrows.Begin(kind, ref, ops.Dest, ops.Scope, c.spanAt(point))
	if issue.Kind != BorrowIssueNone {
		prior := c.borrows.Info(issue.Borrow)
		var msg string
		if kind == BorrowExclusive {
			msg = fmt.Sprintf("cannot borrow '%s' as exclusive because it is already borrowed", c.name(ref))
		} else {
			msg = fmt.Sprintf("cannot borrow '%s' as shared while an exclusive borrow is active", c.name(ref))
		}
		diag.ReportError(c.reporter, diag.SemaConflictingBorrow, c.spanAt(point), msg).
			WithNote(prior.Span, fmt.Sprintf("%s borrow created here", prior.Kind)).
			Emit()
	}
	c.own.bind(ops.Dest)
	c.event(Event{
		Kind: EvBorrowStart, Borrow: id, BorrowKind: kind,
		Place: ref, Binding: ops.Dest, Span: c.spanAt(point), Scope: ops.Scope,
		Issue: issue.Kind, IssueBorrow: issue.Borrow,
	})
}

func (c *checker) checkRead(ops scopes.StmtOps, point uint32) {
	if ops.SrcDead {
		c.deadAccess(ops.Src, point)
		return
	}
	switch c.own.get(ops.Src) {
	case OwnMoved:
		diag.ReportError(c.reporter, diag.SemaUseAfterMove, c.spanAt(point),
			fmt.Sprintf("use of moved value '%s'", c.name(ops.Src))).
			WithNote(c.spanAt(c.own.movedPoint(ops.Src)), "value moved here").
			Emit()
	case OwnUninit, OwnDropped:
		diag.ReportError(c.reporter, diag.SemaUseOfUninit, c.spanAt(point),
			fmt.Sprintf("read of '%s' which holds no value", c.name(ops.Src))).
			Emit()
	}
	// reads of a borrowed place are fine; only writes and moves conflict
}

func (c *checker) checkWrite(ops scopes.StmtOps, point uint32) {
	if ops.SrcDead {
		c.deadAccess(ops.Src, point)
		return
	}
	place := c.place(ops.Src)
	switch c.own.get(ops.Src) {
	case OwnMoved:
		diag.ReportError(c.reporter, diag.SemaUseAfterMove, c.spanAt(point),
			fmt.Sprintf("write to moved value '%s'", c.name(ops.Src))).
			WithNote(c.spanAt(c.own.movedPoint(ops.Src)), "value moved here").
			Emit()
		return
	case OwnUninit, OwnDropped:
		diag.ReportError(c.reporter, diag.SemaUseOfUninit, c.spanAt(point),
			fmt.Sprintf("write to '%s' which holds no value", c.name(ops.Src))).
			Emit()
		return
	}

	if place.Kind == scopes.PlaceRef {
		b := c.borrows.BindingBorrow(ops.Src)
		if b == NoBorrowID {
			return
		}
		info := c.borrows.Info(b)
		if issue := c.borrows.WriteThroughIssue(b); issue.Kind != BorrowIssueNone {
			var msg string
			if info.Kind != BorrowExclusive {
				msg = fmt.Sprintf("cannot write through shared reference '%s'", c.name(ops.Src))
			} else {
				msg = fmt.Sprintf("cannot write through '%s' while other borrows of '%s' are active",
					c.name(ops.Src), c.name(info.Place))
			}
			rb := diag.ReportError(c.reporter, diag.SemaConflictingBorrow, c.spanAt(point), msg)
			if other := c.borrows.Info(issue.Borrow); other != nil && issue.Borrow != b {
				rb.WithNote(other.Span, fmt.Sprintf("%s borrow created here", other.Kind))
			}
			rb.Emit()
		}
		c.event(Event{Kind: EvWrite, Borrow: b, Place: info.Place, Binding: ops.Src, Span: c.spanAt(point), Scope: ops.Scope})
		return
	}

	if issue := c.borrows.MutationAllowed(ops.Src); issue.Kind != BorrowIssueNone {
		info := c.borrows.Info(issue.Borrow)
		diag.ReportError(c.reporter, diag.SemaConflictingBorrow, c.spanAt(point),
			fmt.Sprintf("cannot write to '%s' while it is borrowed", c.name(ops.Src))).
			WithNote(info.Span, fmt.Sprintf("%s borrow created here", info.Kind)).
			Emit()
	}
	if !place.Mut {
		diag.ReportWarning(c.reporter, diag.SemaImmutableWrite, c.spanAt(point),
			fmt.Sprintf("write to '%s' which is not declared mutable", c.name(ops.Src))).
			WithNote(c.spanAt(place.Decl), "declared immutable here").
			Emit()
	}
	c.event(Event{Kind: EvWrite, Place: ops.Src, Span: c.spanAt(point), Scope: ops.Scope})
}

// closeScope retires the scope's borrows, then drops its places in reverse
// declaration order.
func (c *checker) closeScope(scope scopes.ScopeID, point uint32) {
	for _, b := range c.borrows.EndScope(scope, point) {
		info := c.borrows.Info(b)
		c.event(Event{Kind: EvBorrowEnd, Borrow: b, Place: info.Place, Binding: info.Binding, Span: c.spanAt(point), Scope: scope})
	}
	sc := c.res.Table.Scope(scope)
	if sc == nil {
		return
	}
	for i := len(sc.Places) - 1; i >= 0; i-- {
		p := sc.Places[i]
		if c.own.get(p) == OwnOwned {
			c.dropPlace(p, point, "")
		} else {
			c.own.drop(p, point)
		}
	}
}

// precise-extent support

func (c *checker) computeLastUse() {
	c.lastUse = make([]uint32, c.res.Table.PlaceCount()+1)
	for i, ops := range c.res.Ops {
		if ops.Src.IsValid() {
			c.lastUse[ops.Src] = uint32(i)
		}
		if ops.Dest.IsValid() {
			c.lastUse[ops.Dest] = uint32(i)
		}
	}
}

// retireExpired ends every borrow whose binding has no use at or after point.
func (c *checker) retireExpired(point uint32) {
	for _, info := range c.borrows.Infos() {
		if info.Retired || !info.Binding.IsValid() {
			continue
		}
		if point > c.lastUse[info.Binding] {
			c.borrows.Retire(info.ID, point)
			c.event(Event{Kind: EvBorrowEnd, Borrow: info.ID, Place: info.Place, Binding: info.Binding, Span: c.spanAt(point), Note: "last use passed"})
		}
	}
}

// helpers

func (c *checker) place(p scopes.PlaceID) *scopes.Place {
	return c.res.Table.Place(p)
}

func (c *checker) name(p scopes.PlaceID) string {
	place := c.place(p)
	if place == nil {
		return "?"
	}
	return c.unit.PlaceName(place.Name)
}

func (c *checker) spanAt(point uint32) source.Span {
	return source.At(c.res.UnitID, point)
}

func (c *checker) event(ev Event) {
	c.events = append(c.events, ev)
}
