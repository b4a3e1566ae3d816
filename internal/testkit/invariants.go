package testkit

import (
	"fmt"

	"borrowck/internal/borrowck"
	"borrowck/internal/scopes"
)

// CheckScopeInvariants runs a minimal set of invariants on a resolved unit:
// 1) the root scope covers the whole unit and has no parent
// 2) every child scope's span is contained in its parent's span
// 3) every place's declaration point lies within its scope's span
// 4) every statement resolved to a scope that exists in the table
func CheckScopeInvariants(res *scopes.Resolved) error {
	if res == nil || res.Table == nil {
		return fmt.Errorf("nil resolved unit")
	}
	root := res.Table.Scope(res.Root)
	if root == nil {
		return fmt.Errorf("root scope missing")
	}
	if root.Parent.IsValid() {
		return fmt.Errorf("root scope has a parent: %v", root.Parent)
	}
	if root.Span.Start != 0 || int(root.Span.End) != len(res.Ops) {
		return fmt.Errorf("root span %v does not cover unit of %d statements", root.Span, len(res.Ops))
	}

	for id := scopes.ScopeID(1); int(id) <= res.Table.ScopeCount(); id++ {
		sc := res.Table.Scope(id)
		if sc == nil {
			return fmt.Errorf("scope %d missing from table", id)
		}
		if sc.Parent.IsValid() {
			parent := res.Table.Scope(sc.Parent)
			if parent == nil {
				return fmt.Errorf("scope %d: parent %d missing", id, sc.Parent)
			}
			if sc.Span.Start < parent.Span.Start || sc.Span.End > parent.Span.End {
				return fmt.Errorf("scope %d span %v escapes parent span %v", id, sc.Span, parent.Span)
			}
			if sc.Depth != parent.Depth+1 {
				return fmt.Errorf("scope %d depth %d inconsistent with parent depth %d", id, sc.Depth, parent.Depth)
			}
		}
		for _, pid := range sc.Places {
			place := res.Table.Place(pid)
			if place == nil {
				return fmt.Errorf("scope %d: place %d missing", id, pid)
			}
			if place.Scope != id {
				return fmt.Errorf("place %d recorded in scope %d but declares scope %d", pid, id, place.Scope)
			}
			if !sc.Span.Contains(place.Decl) {
				return fmt.Errorf("place %d declared at %d outside scope span %v", pid, place.Decl, sc.Span)
			}
		}
	}

	for i, ops := range res.Ops {
		if !ops.Scope.IsValid() || res.Table.Scope(ops.Scope) == nil {
			return fmt.Errorf("stmt %d resolved to missing scope %d", i, ops.Scope)
		}
	}
	return nil
}

// CheckBorrowInvariants replays the borrow event log and verifies that no
// place ever holds a conflict-free mix of borrows: at every point the set is
// empty, all shared, or exactly one exclusive. Events flagged with an issue
// are the checker reporting a violation and are skipped (they model the
// erroneous recovered state).
func CheckBorrowInvariants(events []borrowck.Event) error {
	type state struct {
		shared int
		excl   int
	}
	active := make(map[scopes.PlaceID]state)
	kinds := make(map[borrowck.BorrowID]borrowck.BorrowKind)
	for i, ev := range events {
		switch ev.Kind {
		case borrowck.EvBorrowStart:
			kinds[ev.Borrow] = ev.BorrowKind
			if ev.Issue != borrowck.BorrowIssueNone {
				continue // reported conflict; recovered state is expected to violate
			}
			st := active[ev.Place]
			if ev.BorrowKind == borrowck.BorrowExclusive {
				st.excl++
			} else {
				st.shared++
			}
			if st.excl > 1 || (st.excl == 1 && st.shared > 0) {
				return fmt.Errorf("event %d: place %d reached invalid borrow set (shared=%d excl=%d)", i, ev.Place, st.shared, st.excl)
			}
			active[ev.Place] = st
		case borrowck.EvBorrowEnd:
			st := active[ev.Place]
			if kinds[ev.Borrow] == borrowck.BorrowExclusive {
				if st.excl > 0 {
					st.excl--
				}
			} else if st.shared > 0 {
				st.shared--
			}
			active[ev.Place] = st
		}
	}
	return nil
}
