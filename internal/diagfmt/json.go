package diagfmt

import (
	"encoding/json"
	"io"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// LocationJSON представляет местоположение в юните для JSON
type LocationJSON struct {
	Unit  string `json:"unit"`
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(us *source.UnitSet, sp source.Span) LocationJSON {
	name := ""
	if us != nil {
		name = us.Name(sp.Unit)
	}
	return LocationJSON{Unit: name, Start: sp.Start, End: sp.End}
}

// Build converts a bag into the serialisable output structure.
func Build(bag *diag.Bag, us *source.UnitSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	out := DiagnosticsOutput{
		Diagnostics: make([]DiagnosticJSON, 0, len(items)),
		Count:       len(items),
	}
	for _, d := range items {
		if opts.Max > 0 && len(out.Diagnostics) >= opts.Max {
			break
		}
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Message:  d.Message,
			Location: makeLocation(us, d.Primary),
		}
		if opts.IncludeNotes {
			for _, n := range d.Notes {
				dj.Notes = append(dj.Notes, NoteJSON{
					Message:  n.Msg,
					Location: makeLocation(us, n.Span),
				})
			}
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	return out
}

// JSON пишет диагностики в JSON формате (ожидается bag.Sort() заранее).
func JSON(w io.Writer, bag *diag.Bag, us *source.UnitSet, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Build(bag, us, opts))
}
