package borrowck_test

import (
	"testing"

	"borrowck/internal/borrowck"
	"borrowck/internal/diag"
	"borrowck/internal/ir"
	"borrowck/internal/testkit"
)

// The units here mix clean and violating programs; whatever the verdict, the
// scope tree and the borrow event log must stay internally consistent.

func verify(t *testing.T, unit *ir.Unit, opts borrowck.Options) {
	t.Helper()
	bag := diag.NewBag(64)
	opts.Reporter = diag.BagReporter{Bag: bag}
	res, err := borrowck.Check(unit, 0, opts)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if err := testkit.CheckScopeInvariants(res.Scopes); err != nil {
		t.Fatalf("scope invariants: %v", err)
	}
	if err := testkit.CheckBorrowInvariants(res.Events); err != nil {
		t.Fatalf("borrow invariants: %v", err)
	}
}

func TestInvariantsOnNestedBorrows(t *testing.T) {
	unit := ir.NewUnit("nested_borrows")
	unit.Bind("x", true)
	unit.Enter()
	unit.BorrowShared("a", "x")
	unit.BorrowShared("b", "x")
	unit.Read("a")
	unit.Enter()
	unit.BorrowShared("c", "x")
	unit.Read("c")
	unit.Exit()
	unit.Exit()
	unit.BorrowExclusive("w", "x")
	unit.Write("w")

	verify(t, unit, borrowck.Options{})
}

func TestInvariantsSurviveViolations(t *testing.T) {
	unit := ir.NewUnit("violating")
	unit.Bind("x", true)
	unit.BorrowExclusive("w", "x")
	unit.BorrowShared("r", "x")
	unit.BindMoved("y", "x", false)
	unit.Read("x")
	unit.Bind("x", false)

	verify(t, unit, borrowck.Options{})
}

func TestInvariantsUnderPreciseExtents(t *testing.T) {
	unit := ir.NewUnit("precise_invariants")
	unit.Bind("x", true)
	unit.BorrowShared("r", "x")
	unit.Read("r")
	unit.Write("x")
	unit.BorrowExclusive("w", "x")
	unit.Write("w")

	verify(t, unit, borrowck.Options{PreciseExtents: true})
}

func TestInvariantsOnShadowChains(t *testing.T) {
	unit := ir.NewUnit("shadow_chain")
	unit.Bind("x", false)
	unit.Shadow("x", true)
	unit.Enter()
	unit.Shadow("x", false)
	unit.BorrowShared("r", "x")
	unit.Read("r")
	unit.Exit()
	unit.Write("x")

	verify(t, unit, borrowck.Options{})
}
