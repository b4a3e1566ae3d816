package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

func sampleBag() (*diag.Bag, *source.UnitSet) {
	us := source.NewUnitSet()
	id := us.AddVirtual("demo", 5)
	bag := diag.NewBag(8)
	bag.Add(diag.NewError(diag.SemaUseAfterMove, source.At(id, 2), "use of moved value 'x'").
		WithNote(source.At(id, 1), "value moved here"))
	bag.Add(diag.New(diag.SevWarning, diag.SemaImmutableWrite, source.At(id, 4), "write to 'x' which is not declared mutable"))
	return bag, us
}

func TestPrettyLayout(t *testing.T) {
	bag, us := sampleBag()
	var buf bytes.Buffer
	Pretty(&buf, bag, us, PrettyOpts{ShowNotes: true})

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if lines[0] != "demo:2: ERROR SEM3003: use of moved value 'x'" {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  note: demo:1:") {
		t.Fatalf("note line malformed: %q", lines[1])
	}
	if !strings.Contains(lines[2], "WARNING SEM3008") {
		t.Fatalf("warning line malformed: %q", lines[2])
	}
}

func TestPrettyHidesNotesByDefault(t *testing.T) {
	bag, us := sampleBag()
	var buf bytes.Buffer
	Pretty(&buf, bag, us, PrettyOpts{})
	if strings.Contains(buf.String(), "note:") {
		t.Fatalf("notes printed without ShowNotes:\n%s", buf.String())
	}
}

func TestJSONOutput(t *testing.T) {
	bag, us := sampleBag()
	var buf bytes.Buffer
	if err := JSON(&buf, bag, us, JSONOpts{IncludeNotes: true}); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("count = %d over %d entries, want 2/2", out.Count, len(out.Diagnostics))
	}
	first := out.Diagnostics[0]
	if first.Code != "SEM3003" || first.Location.Unit != "demo" || first.Location.Start != 2 {
		t.Fatalf("first entry malformed: %+v", first)
	}
	if len(first.Notes) != 1 {
		t.Fatalf("first entry carries %d notes, want 1", len(first.Notes))
	}
}

func TestJSONMaxTruncatesOutputOnly(t *testing.T) {
	bag, us := sampleBag()
	out := Build(bag, us, JSONOpts{Max: 1})
	if len(out.Diagnostics) != 1 {
		t.Fatalf("Max=1 left %d entries", len(out.Diagnostics))
	}
	if out.Count != 2 {
		t.Fatalf("Count must keep the real total, got %d", out.Count)
	}
}

func TestSarifShape(t *testing.T) {
	bag, us := sampleBag()
	var buf bytes.Buffer
	if err := Sarif(&buf, bag, us, SarifRunMeta{ToolName: "borrowck", ToolVersion: "0.1.0"}); err != nil {
		t.Fatalf("Sarif failed: %v", err)
	}
	var log map[string]any
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("SARIF output is not valid JSON: %v", err)
	}
	if log["version"] != "2.1.0" {
		t.Fatalf("version = %v", log["version"])
	}
	runs := log["runs"].([]any)
	run := runs[0].(map[string]any)
	results := run["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	first := results[0].(map[string]any)
	if first["ruleId"] != "SEM3003" || first["level"] != "error" {
		t.Fatalf("first result malformed: %v", first)
	}
}
