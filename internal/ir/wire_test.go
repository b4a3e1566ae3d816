package ir

import (
	"errors"
	"testing"
)

const sampleUnitJSON = `{
  "schema": 1,
  "name": "sample",
  "statements": [
    {"op": "bind", "dest": "x", "mut": true},
    {"op": "borrow_shared", "dest": "r", "ref": "x"},
    {"op": "read", "place": "r"},
    {"op": "scope_enter"},
    {"op": "bind", "dest": "y", "from": "x"},
    {"op": "scope_exit"},
    {"op": "move", "dest": "x", "from": "x"},
    {"op": "write", "place": "x"},
    {"op": "borrow_exclusive", "dest": "w", "ref": "x"},
    {"op": "bind", "dest": "x", "shadow": true}
  ]
}`

func TestFromJSONDecodesEveryOp(t *testing.T) {
	unit, err := FromJSON([]byte(sampleUnitJSON))
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if unit.Name != "sample" {
		t.Fatalf("unit name = %q, want %q", unit.Name, "sample")
	}
	wantKinds := []StmtKind{
		StmtBind, StmtBorrowShared, StmtRead, StmtScopeEnter, StmtBind,
		StmtScopeExit, StmtMove, StmtWriteThrough, StmtBorrowExclusive, StmtBind,
	}
	stmts := unit.Stmts()
	if len(stmts) != len(wantKinds) {
		t.Fatalf("decoded %d statements, want %d", len(stmts), len(wantKinds))
	}
	for i, want := range wantKinds {
		if stmts[i].Kind != want {
			t.Fatalf("statement %d kind = %v, want %v", i, stmts[i].Kind, want)
		}
	}
	if !stmts[0].Mut {
		t.Fatalf("bind mut flag lost in decode")
	}
	if stmts[4].Src == 0 {
		t.Fatalf("move-binding must carry its source operand")
	}
	if !stmts[9].Shadow {
		t.Fatalf("shadow flag lost in decode")
	}
	if unit.PlaceName(stmts[1].Src) != "x" {
		t.Fatalf("borrow ref resolved to %q, want %q", unit.PlaceName(stmts[1].Src), "x")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig, err := FromJSON([]byte(sampleUnitJSON))
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	data, err := orig.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	back, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON of re-encoded unit failed: %v", err)
	}
	if back.Len() != orig.Len() {
		t.Fatalf("round trip changed length: %d -> %d", orig.Len(), back.Len())
	}
	for i := range orig.Stmts() {
		a, b := orig.Stmts()[i], back.Stmts()[i]
		if a.Kind != b.Kind || a.Mut != b.Mut || a.Shadow != b.Shadow {
			t.Fatalf("statement %d changed in round trip: %+v vs %+v", i, a, b)
		}
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	orig := NewUnit("binary")
	orig.Bind("x", true)
	orig.BorrowExclusive("w", "x")
	orig.Write("w")

	data, err := orig.ToMsgpack()
	if err != nil {
		t.Fatalf("ToMsgpack failed: %v", err)
	}
	back, err := FromMsgpack(data)
	if err != nil {
		t.Fatalf("FromMsgpack failed: %v", err)
	}
	if back.Name != "binary" || back.Len() != 3 {
		t.Fatalf("decoded unit %q with %d statements, want binary/3", back.Name, back.Len())
	}
	if back.Stmts()[1].Kind != StmtBorrowExclusive {
		t.Fatalf("statement 1 kind = %v, want %v", back.Stmts()[1].Kind, StmtBorrowExclusive)
	}
	if back.PlaceName(back.Stmts()[2].Src) != "w" {
		t.Fatalf("write place = %q, want %q", back.PlaceName(back.Stmts()[2].Src), "w")
	}
}

func TestFromJSONRejectsUnknownOp(t *testing.T) {
	_, err := FromJSON([]byte(`{"name":"bad","statements":[{"op":"teleport","dest":"x"}]}`))
	if !errors.Is(err, ErrBadWire) {
		t.Fatalf("expected ErrBadWire, got %v", err)
	}
}

func TestFromJSONRejectsMissingOperand(t *testing.T) {
	cases := []string{
		`{"name":"bad","statements":[{"op":"bind"}]}`,
		`{"name":"bad","statements":[{"op":"move","dest":"x"}]}`,
		`{"name":"bad","statements":[{"op":"borrow_shared","dest":"r"}]}`,
		`{"name":"bad","statements":[{"op":"read"}]}`,
	}
	for _, c := range cases {
		if _, err := FromJSON([]byte(c)); !errors.Is(err, ErrBadWire) {
			t.Fatalf("input %s: expected ErrBadWire, got %v", c, err)
		}
	}
}

func TestFromJSONRejectsFutureSchema(t *testing.T) {
	_, err := FromJSON([]byte(`{"schema":99,"name":"bad","statements":[]}`))
	if !errors.Is(err, ErrBadWire) {
		t.Fatalf("expected ErrBadWire, got %v", err)
	}
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte(`{"name": 12`))
	if !errors.Is(err, ErrBadWire) {
		t.Fatalf("expected ErrBadWire, got %v", err)
	}
}
