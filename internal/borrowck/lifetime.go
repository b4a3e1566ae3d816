package borrowck

import (
	"fmt"

	"borrowck/internal/diag"
	"borrowck/internal/scopes"
)

// Lifetime containment: a borrow is valid only while its referent's declaring
// scope encloses every scope the borrow is held in. With stack discipline a
// fresh borrow always satisfies this (the referent is visible, so its scope is
// an ancestor); violations appear when the borrow escapes — moved to a longer
// lived binding, or used after its own scope closed.

// checkEscape verifies that moving a borrow to dest keeps it inside the
// referent's lifetime. On violation it reports a dangling reference at the
// move point and retires the borrow so the drop pass does not report it again.
// Reports true when an escape was diagnosed.
func (c *checker) checkEscape(b BorrowID, dest scopes.PlaceID, point uint32) bool {
	info := c.borrows.Info(b)
	if info == nil || info.Retired {
		return false
	}
	referent := c.place(info.Place)
	destScope := c.place(dest).Scope
	if referent == nil || c.res.Table.IsAncestor(referent.Scope, destScope) {
		return false
	}
	diag.ReportError(c.reporter, diag.SemaDanglingReference, c.spanAt(point),
		fmt.Sprintf("'%s' does not live long enough: its borrow escapes to '%s' in an enclosing scope",
			c.name(info.Place), c.name(dest))).
		WithNote(info.Span, fmt.Sprintf("%s borrow of '%s' created here", info.Kind, c.name(info.Place))).
		Emit()
	c.borrows.Retire(b, point)
	c.event(Event{Kind: EvBorrowEnd, Borrow: b, Place: info.Place, Span: c.spanAt(point), Note: "escaped"})
	return true
}

// dropPlace discards a place's value at point. Any borrow of it still active
// at that moment lives in a scope that outlives the referent, which is a
// dangling reference.
func (c *checker) dropPlace(p scopes.PlaceID, point uint32, why string) {
	for _, b := range c.borrows.ActiveBorrows(p) {
		info := c.borrows.Info(b)
		rb := diag.ReportError(c.reporter, diag.SemaDanglingReference, c.spanAt(point),
			fmt.Sprintf("'%s' does not live long enough: '%s' still borrows it when it is dropped",
				c.name(p), c.name(info.Binding))).
			WithNote(info.Span, fmt.Sprintf("%s borrow created here", info.Kind))
		if why != "" {
			rb.WithNote(c.spanAt(point), why)
		}
		rb.Emit()
		c.borrows.Retire(b, point)
		c.event(Event{Kind: EvBorrowEnd, Borrow: b, Place: p, Binding: info.Binding, Span: c.spanAt(point)})
	}
	c.own.drop(p, point)
	c.event(Event{Kind: EvDrop, Place: p, Span: c.spanAt(point), Note: why})
}

// deadAccess handles a statement whose operand resolved to a place from an
// already-closed scope. For reference bindings that is the classic dangling
// reference; for value places the storage is simply gone.
func (c *checker) deadAccess(p scopes.PlaceID, point uint32) {
	place := c.place(p)
	if place.Kind == scopes.PlaceRef {
		rb := diag.ReportError(c.reporter, diag.SemaDanglingReference, c.spanAt(point),
			fmt.Sprintf("use of '%s' after the value it borrows was dropped", c.name(p)))
		if b := c.borrows.BindingBorrow(p); b != NoBorrowID {
			info := c.borrows.Info(b)
			rb.WithNote(info.Span, fmt.Sprintf("%s borrow of '%s' created here", info.Kind, c.name(info.Place))).
				WithNote(c.spanAt(c.own.droppedPoint(info.Place)), fmt.Sprintf("'%s' dropped here", c.name(info.Place)))
		}
		rb.Emit()
		return
	}
	diag.ReportError(c.reporter, diag.SemaUseOfUninit, c.spanAt(point),
		fmt.Sprintf("use of '%s' after its scope ended", c.name(p))).
		WithNote(c.spanAt(place.Decl), "declared here").
		Emit()
}
