package source

import "testing"

func TestInternerDeduplicates(t *testing.T) {
	in := NewInterner()
	a := in.Intern("x")
	b := in.Intern("y")
	c := in.Intern("x")

	if a == NoStringID || b == NoStringID {
		t.Fatalf("interned names must not collide with NoStringID")
	}
	if a != c {
		t.Fatalf("same string interned twice: %v vs %v", a, c)
	}
	if a == b {
		t.Fatalf("distinct strings share an ID: %v", a)
	}
	if got := in.MustLookup(a); got != "x" {
		t.Fatalf("Lookup(%v) = %q, want %q", a, got, "x")
	}
	// "" + x + y
	if in.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", in.Len())
	}
}

func TestInternerLookupInvalid(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Lookup(StringID(42)); ok {
		t.Fatalf("lookup of an unknown ID must fail")
	}
	if s, ok := in.Lookup(NoStringID); !ok || s != "" {
		t.Fatalf("NoStringID must resolve to the empty string, got %q/%v", s, ok)
	}
}

func TestSpanBasics(t *testing.T) {
	sp := At(3, 7)
	if sp.Unit != 3 || sp.Start != 7 || sp.End != 8 {
		t.Fatalf("At produced %v", sp)
	}
	if sp.Empty() || sp.Len() != 1 {
		t.Fatalf("single-point span misreports its size: %v", sp)
	}
	if !sp.Contains(7) || sp.Contains(8) {
		t.Fatalf("half-open containment broken for %v", sp)
	}

	cover := sp.Cover(Span{Unit: 3, Start: 2, End: 5})
	if cover.Start != 2 || cover.End != 8 {
		t.Fatalf("Cover = %v, want [2,8)", cover)
	}
	unrelated := sp.Cover(Span{Unit: 9, Start: 0, End: 100})
	if unrelated != sp {
		t.Fatalf("Cover across units must be a no-op, got %v", unrelated)
	}
}

func TestUnitSetHashAndLookup(t *testing.T) {
	us := NewUnitSet()
	id := us.Add("alpha", "units/alpha.unit.json", []byte(`{"name":"alpha"}`), 4, 0)
	virtual := us.AddVirtual("scratch", 2)

	if us.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", us.Len())
	}
	u := us.Get(id)
	if u == nil || u.Name != "alpha" || u.Stmts != 4 {
		t.Fatalf("stored unit corrupted: %+v", u)
	}
	var zero [32]byte
	if u.Hash == zero {
		t.Fatalf("unit with content must carry a hash")
	}
	if v := us.Get(virtual); v.Hash != zero {
		t.Fatalf("virtual unit must not carry a hash")
	}

	got, ok := us.LookupPath("units/alpha.unit.json")
	if !ok || got != id {
		t.Fatalf("LookupPath = %v/%v, want %v/true", got, ok, id)
	}
	if us.Name(virtual) != "scratch" {
		t.Fatalf("Name(virtual) = %q", us.Name(virtual))
	}
	if us.Get(UnitID(99)) != nil {
		t.Fatalf("unknown id must return nil")
	}
}
