package scopes

import (
	"errors"
	"testing"

	"borrowck/internal/ir"
)

func buildUnit(t *testing.T, unit *ir.Unit) *Resolved {
	t.Helper()
	res, err := Build(unit, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return res
}

func TestBuildRootScopeCoversUnit(t *testing.T) {
	unit := ir.NewUnit("root_cover")
	unit.Bind("x", false)
	unit.Read("x")

	res := buildUnit(t, unit)
	root := res.Table.Scope(res.Root)
	if root == nil {
		t.Fatalf("root scope missing")
	}
	if root.Kind != ScopeUnit {
		t.Fatalf("root scope kind = %v, want ScopeUnit", root.Kind)
	}
	if root.Span.Start != 0 || root.Span.End != 2 {
		t.Fatalf("root span = %v, want [0,2)", root.Span)
	}
	if len(root.Places) != 1 {
		t.Fatalf("root declares %d places, want 1", len(root.Places))
	}
}

func TestBuildNestedScopeTree(t *testing.T) {
	unit := ir.NewUnit("nested")
	unit.Enter()
	unit.Enter()
	unit.Exit()
	unit.Exit()

	res := buildUnit(t, unit)
	if res.Table.ScopeCount() != 3 {
		t.Fatalf("scope count = %d, want 3", res.Table.ScopeCount())
	}
	inner := res.Table.Scope(res.Ops[1].Block)
	outer := res.Table.Scope(res.Ops[0].Block)
	if inner.Parent != res.Ops[0].Block {
		t.Fatalf("inner parent = %v, want %v", inner.Parent, res.Ops[0].Block)
	}
	if outer.Parent != res.Root {
		t.Fatalf("outer parent = %v, want root %v", outer.Parent, res.Root)
	}
	if inner.Depth != 2 || outer.Depth != 1 {
		t.Fatalf("depths = %d/%d, want 2/1", inner.Depth, outer.Depth)
	}
	if !res.Table.IsAncestor(res.Root, res.Ops[1].Block) {
		t.Fatalf("root must be an ancestor of the inner block")
	}
	if res.Table.IsAncestor(res.Ops[1].Block, res.Root) {
		t.Fatalf("inner block must not be an ancestor of root")
	}
}

func TestBuildResolvesInnermostBinding(t *testing.T) {
	unit := ir.NewUnit("innermost")
	unit.Bind("x", false)
	unit.Enter()
	unit.Bind("x", false)
	unit.Read("x")
	unit.Exit()
	unit.Read("x")

	res := buildUnit(t, unit)
	inner := res.Ops[2].Dest
	outer := res.Ops[0].Dest
	if inner == outer {
		t.Fatalf("nested bind must allocate a fresh place")
	}
	if res.Ops[3].Src != inner {
		t.Fatalf("read inside block resolved to %v, want inner place %v", res.Ops[3].Src, inner)
	}
	if res.Ops[5].Src != outer {
		t.Fatalf("read after block resolved to %v, want outer place %v", res.Ops[5].Src, outer)
	}
	if res.Ops[5].SrcDead {
		t.Fatalf("outer binding is still live after the block")
	}
}

func TestBuildMarksDeadResolution(t *testing.T) {
	unit := ir.NewUnit("dead")
	unit.Enter()
	unit.Bind("x", false)
	unit.Exit()
	unit.Read("x")

	res := buildUnit(t, unit)
	if res.Ops[3].Src != res.Ops[1].Dest {
		t.Fatalf("late read resolved to %v, want the closed-scope place %v", res.Ops[3].Src, res.Ops[1].Dest)
	}
	if !res.Ops[3].SrcDead {
		t.Fatalf("late read must be flagged as dead resolution")
	}
}

func TestBuildRecordsDuplicateAndShadow(t *testing.T) {
	unit := ir.NewUnit("collisions")
	unit.Bind("x", false)
	unit.Bind("x", false)
	unit.Shadow("x", false)

	res := buildUnit(t, unit)
	if !res.Ops[1].Redeclared.IsValid() {
		t.Fatalf("plain rebind in the same scope must record the collision")
	}
	if res.Ops[2].Redeclared.IsValid() {
		t.Fatalf("shadow bind must not count as a duplicate")
	}
	if !res.Ops[2].Shadowed.IsValid() {
		t.Fatalf("shadow bind must point at the hidden place")
	}
}

func TestBuildScopeExitUnderflow(t *testing.T) {
	unit := ir.NewUnit("underflow")
	unit.Exit()

	_, err := Build(unit, 0)
	if !errors.Is(err, ir.ErrUnbalancedScope) {
		t.Fatalf("expected ErrUnbalancedScope, got %v", err)
	}
}

func TestBuildUnterminatedScope(t *testing.T) {
	unit := ir.NewUnit("unterminated")
	unit.Enter()

	_, err := Build(unit, 0)
	if !errors.Is(err, ir.ErrUnbalancedScope) {
		t.Fatalf("expected ErrUnbalancedScope, got %v", err)
	}
}

func TestBuildUnknownNameIsMalformed(t *testing.T) {
	unit := ir.NewUnit("unknown")
	unit.Bind("x", false)
	unit.Read("ghost")

	_, err := Build(unit, 0)
	if !errors.Is(err, ir.ErrMalformedProgram) {
		t.Fatalf("expected ErrMalformedProgram, got %v", err)
	}
}

func TestBuildBlockSpanEndsAfterExit(t *testing.T) {
	unit := ir.NewUnit("block_span")
	unit.Bind("x", false)
	unit.Enter()
	unit.Bind("y", false)
	unit.Exit()
	unit.Read("x")

	res := buildUnit(t, unit)
	block := res.Table.Scope(res.Ops[1].Block)
	if block.Span.Start != 1 || block.Span.End != 4 {
		t.Fatalf("block span = %v, want [1,4)", block.Span)
	}
}
