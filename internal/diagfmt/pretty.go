package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	noteColor = color.New(color.FgHiBlack)
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <unit>:<point>: <SEV> <CODE>: <Message>
// затем Notes с отступом.
func Pretty(w io.Writer, bag *diag.Bag, us *source.UnitSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		sev := d.Severity.String()
		if opts.Color {
			switch d.Severity {
			case diag.SevError:
				sev = errColor.Sprint(sev)
			case diag.SevWarning:
				sev = warnColor.Sprint(sev)
			default:
				sev = infoColor.Sprint(sev)
			}
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", location(us, d.Primary), sev, d.Code.ID(), d.Message)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			line := fmt.Sprintf("  note: %s: %s", location(us, n.Span), n.Msg)
			if opts.Color {
				line = noteColor.Sprint(line)
			}
			fmt.Fprintln(w, line)
		}
	}
}

// location renders a span as "<unit>:<point>" (or "<unit>:<start>-<end>" for
// multi-point spans).
func location(us *source.UnitSet, sp source.Span) string {
	name := fmt.Sprintf("unit#%d", sp.Unit)
	if us != nil {
		name = us.Name(sp.Unit)
	}
	if sp.Len() <= 1 {
		return fmt.Sprintf("%s:%d", name, sp.Start)
	}
	return fmt.Sprintf("%s:%d-%d", name, sp.Start, sp.End)
}
