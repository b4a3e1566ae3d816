package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"borrowck/internal/diag"
	"borrowck/internal/ir"
)

func writeUnit(t *testing.T, dir, name string, unit *ir.Unit, binary bool) string {
	t.Helper()
	var (
		data []byte
		err  error
		ext  = ExtJSON
	)
	if binary {
		data, err = unit.ToMsgpack()
		ext = ExtMsgpack
	} else {
		data, err = unit.ToJSON()
	}
	if err != nil {
		t.Fatalf("encode unit: %v", err)
	}
	path := filepath.Join(dir, name+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write unit: %v", err)
	}
	return path
}

func cleanUnit(name string) *ir.Unit {
	u := ir.NewUnit(name)
	u.Bind("x", true)
	u.BorrowShared("r", "x")
	u.Read("r")
	return u
}

func brokenUnit(name string) *ir.Unit {
	u := ir.NewUnit(name)
	u.Bind("x", false)
	u.BindMoved("y", "x", false)
	u.Read("x")
	return u
}

func TestAnalyzeUnitAcceptsCleanUnit(t *testing.T) {
	res := AnalyzeUnit(cleanUnit("clean"), 0, Options{})
	if !res.Accepted() {
		t.Fatalf("clean unit rejected: fatal=%v codes=%v", res.Fatal, res.Bag.Items())
	}
	if res.Bag.Len() != 0 {
		t.Fatalf("clean unit produced %d diagnostics", res.Bag.Len())
	}
}

func TestAnalyzeUnitReportsViolations(t *testing.T) {
	res := AnalyzeUnit(brokenUnit("broken"), 0, Options{})
	if res.Accepted() {
		t.Fatalf("unit with a use-after-move must be rejected")
	}
	if res.Fatal != nil {
		t.Fatalf("semantic violations are not fatal: %v", res.Fatal)
	}
}

func TestAnalyzeUnitFatalErrorLandsInBag(t *testing.T) {
	u := ir.NewUnit("unbalanced")
	u.Enter()
	res := AnalyzeUnit(u, 0, Options{})
	if res.Fatal == nil {
		t.Fatalf("expected a fatal structural error")
	}
	found := false
	for _, d := range res.Bag.Items() {
		if d.Code == diag.IrUnbalancedScope {
			found = true
		}
	}
	if !found {
		t.Fatalf("fatal error must surface as an IR diagnostic, got %v", res.Bag.Items())
	}
}

func TestAnalyzeDirDeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "b_second", cleanUnit("b_second"), false)
	writeUnit(t, dir, "a_first", brokenUnit("a_first"), true)
	writeUnit(t, dir, "c_third", cleanUnit("c_third"), false)

	units, results, err := AnalyzeDir(context.Background(), dir, Options{}, 4)
	if err != nil {
		t.Fatalf("AnalyzeDir failed: %v", err)
	}
	if len(results) != 3 || units.Len() != 3 {
		t.Fatalf("got %d results over %d units, want 3/3", len(results), units.Len())
	}
	// sorted-path order regardless of worker scheduling
	wantNames := []string{"a_first", "b_second", "c_third"}
	for i, want := range wantNames {
		if got := units.Name(results[i].UnitID); got != want {
			t.Fatalf("result %d is %q, want %q", i, got, want)
		}
	}
	if results[0].Accepted() {
		t.Fatalf("a_first carries a use-after-move and must be rejected")
	}
	if !results[1].Accepted() || !results[2].Accepted() {
		t.Fatalf("clean units must be accepted")
	}
}

func TestAnalyzeFilesLoadFailureBecomesDiagnostic(t *testing.T) {
	dir := t.TempDir()
	good := writeUnit(t, dir, "good", cleanUnit("good"), false)
	bad := filepath.Join(dir, "bad"+ExtJSON)
	if err := os.WriteFile(bad, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write bad unit: %v", err)
	}

	_, results, err := AnalyzeFiles(context.Background(), []string{bad, good}, Options{}, 1)
	if err != nil {
		t.Fatalf("AnalyzeFiles failed: %v", err)
	}
	if results[0].Fatal == nil {
		t.Fatalf("undecodable unit must carry a fatal error")
	}
	found := false
	for _, d := range results[0].Bag.Items() {
		if d.Code == diag.IOLoadUnitError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an IOLoadUnitError diagnostic, got %v", results[0].Bag.Items())
	}
	if !results[1].Accepted() {
		t.Fatalf("load failure of one unit must not poison the others")
	}
}

func TestResultCacheRoundTrip(t *testing.T) {
	cache, err := OpenResultCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenResultCacheAt failed: %v", err)
	}
	dir := t.TempDir()
	writeUnit(t, dir, "unit", brokenUnit("unit"), false)

	opts := Options{Cache: cache}
	_, first, err := AnalyzeDir(context.Background(), dir, opts, 1)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first[0].Cached {
		t.Fatalf("first run must not be a cache hit")
	}

	_, second, err := AnalyzeDir(context.Background(), dir, opts, 1)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !second[0].Cached {
		t.Fatalf("unchanged unit must be served from the cache")
	}
	if second[0].Bag.Len() != first[0].Bag.Len() {
		t.Fatalf("cache changed the diagnostics: %d vs %d", second[0].Bag.Len(), first[0].Bag.Len())
	}
	a, b := first[0].Bag.Items(), second[0].Bag.Items()
	for i := range a {
		if a[i].Code != b[i].Code || a[i].Message != b[i].Message || a[i].Primary != b[i].Primary {
			t.Fatalf("cached diagnostic %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestResultCacheMissOnUnknownKey(t *testing.T) {
	cache, err := OpenResultCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenResultCacheAt failed: %v", err)
	}
	var key [32]byte
	key[0] = 0xAB
	if _, ok := cache.Get(key); ok {
		t.Fatalf("empty cache must miss")
	}
}

func TestIsUnitFile(t *testing.T) {
	if !IsUnitFile("a/b/c.unit.json") || !IsUnitFile("x.unit.msgpack") {
		t.Fatalf("unit extensions not recognised")
	}
	if IsUnitFile("c.json") || IsUnitFile("c.unit") {
		t.Fatalf("non-unit files recognised as units")
	}
}
