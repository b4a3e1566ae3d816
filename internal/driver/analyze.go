package driver

import (
	"errors"
	"fmt"

	"borrowck/internal/borrowck"
	"borrowck/internal/diag"
	"borrowck/internal/ir"
	"borrowck/internal/observ"
	"borrowck/internal/source"
)

// Options configure one analysis run (single unit or directory).
type Options struct {
	// PreciseExtents enables non-lexical borrow retirement.
	PreciseExtents bool
	// MaxStatements rejects oversized units; 0 disables the guard.
	MaxStatements int
	// MaxDiagnostics caps each unit's bag.
	MaxDiagnostics int
	// Cache, when non-nil, short-circuits units whose content hash matches
	// a previous run.
	Cache *ResultCache
	// Timings enables per-phase timers.
	Timings bool
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return 100
	}
	return o.MaxDiagnostics
}

// UnitResult содержит результат анализа одного юнита.
type UnitResult struct {
	Path   string
	UnitID source.UnitID
	Bag    *diag.Bag
	Check  borrowck.Result
	// Fatal holds the structural error that prevented analysis, if any.
	Fatal error
	// Cached marks a result rehydrated from the result cache.
	Cached bool
	Timing *observ.Report
}

// Accepted reports whether the unit passed: no fatal error and no error-level
// diagnostics.
func (r UnitResult) Accepted() bool {
	return r.Fatal == nil && !r.Bag.HasErrors()
}

// AnalyzeUnit runs the full pipeline over one already-decoded unit.
// Structural defects land in Fatal (and, for convenience of the formatters,
// as a single diagnostic in the bag); semantic violations fill the bag.
func AnalyzeUnit(unit *ir.Unit, unitID source.UnitID, opts Options) UnitResult {
	bag := diag.NewBag(opts.maxDiagnostics())
	res := UnitResult{UnitID: unitID, Bag: bag}

	var timer *observ.Timer
	if opts.Timings {
		timer = observ.NewTimer()
	}
	phase := -1
	if timer != nil {
		phase = timer.Begin("check")
	}

	check, err := borrowck.Check(unit, unitID, borrowck.Options{
		Reporter:       diag.BagReporter{Bag: bag},
		PreciseExtents: opts.PreciseExtents,
		MaxStatements:  opts.MaxStatements,
	})
	if timer != nil {
		timer.End(phase, fmt.Sprintf("%d statements", unit.Len()))
		report := timer.Report()
		res.Timing = &report
	}
	if err != nil {
		res.Fatal = err
		bag.Add(diag.NewError(structuralCode(err), source.Span{Unit: unitID}, err.Error()))
		return res
	}
	res.Check = check
	bag.Sort()
	return res
}

func structuralCode(err error) diag.Code {
	switch {
	case errors.Is(err, ir.ErrUnbalancedScope):
		return diag.IrUnbalancedScope
	case errors.Is(err, ir.ErrUnitTooLarge):
		return diag.IrUnitTooLarge
	case errors.Is(err, ir.ErrBadWire):
		return diag.IrBadWireFormat
	default:
		return diag.IrMalformedProgram
	}
}
