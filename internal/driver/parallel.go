package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"borrowck/internal/diag"
	"borrowck/internal/ir"
	"borrowck/internal/source"
)

// AnalyzeDir analyzes every unit file under dir in parallel. Results come
// back in the deterministic (sorted-path) input order regardless of worker
// scheduling. Unit decode failures become IOLoadUnitError diagnostics in the
// affected unit's bag rather than failing the whole run.
func AnalyzeDir(ctx context.Context, dir string, opts Options, jobs int) (*source.UnitSet, []UnitResult, error) {
	files, err := listUnitFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	return AnalyzeFiles(ctx, files, opts, jobs)
}

// AnalyzeFiles analyzes an explicit list of unit files.
func AnalyzeFiles(ctx context.Context, files []string, opts Options, jobs int) (*source.UnitSet, []UnitResult, error) {
	units := source.NewUnitSet()
	if len(files) == 0 {
		return units, nil, nil
	}

	// Декодируем последовательно: UnitSet не рассчитан на конкурентную запись.
	type loaded struct {
		unit *ir.Unit
		id   source.UnitID
		fail error
	}
	decoded := make([]loaded, len(files))
	for i, path := range files {
		unit, raw, loadErr := LoadUnitFile(path)
		if loadErr != nil {
			decoded[i] = loaded{fail: loadErr, id: units.Add(unitNameFromPath(path), path, raw, 0, 0)}
			continue
		}
		decoded[i] = loaded{
			unit: unit,
			id:   units.Add(unit.Name, path, raw, uint32(unit.Len()), 0),
		}
	}

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	results := make([]UnitResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			d := decoded[i]
			if d.fail != nil {
				bag := diag.NewBag(opts.maxDiagnostics())
				bag.Add(diag.NewError(diag.IOLoadUnitError, source.Span{Unit: d.id},
					"failed to load unit: "+d.fail.Error()))
				results[i] = UnitResult{Path: path, UnitID: d.id, Bag: bag, Fatal: d.fail}
				return nil
			}

			if opts.Cache != nil {
				if hit, ok := opts.Cache.Get(units.Get(d.id).Hash); ok {
					results[i] = hydrateCached(path, d.id, hit, opts)
					return nil
				}
			}

			res := AnalyzeUnit(d.unit, d.id, opts)
			res.Path = path
			results[i] = res

			if opts.Cache != nil && res.Fatal == nil {
				// Ошибки записи кэша не фатальны для анализа.
				_ = opts.Cache.Put(units.Get(d.id).Hash, res.Bag)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return units, results, nil
}
