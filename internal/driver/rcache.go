package driver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"borrowck/internal/diag"
	"borrowck/internal/source"
)

// Current schema version - increment when CachedResult format changes
const resultCacheSchemaVersion uint16 = 1

// ResultCache хранит диагностики юнитов по хэшу содержимого на диске.
// Thread-safe for concurrent access.
type ResultCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedNote is the serialisable form of a diag.Note; spans are stored as
// bare statement ranges because UnitIDs are per-run.
type CachedNote struct {
	Message string
	Start   uint32
	End     uint32
}

// CachedDiagnostic is the serialisable form of one diagnostic.
type CachedDiagnostic struct {
	Severity uint8
	Code     uint16
	Message  string
	Start    uint32
	End      uint32
	Notes    []CachedNote
}

// CachedResult stores a unit's full diagnostic list for fast re-runs.
type CachedResult struct {
	// Schema version for safe invalidation when format changes
	Schema uint16
	Diags  []CachedDiagnostic
}

// OpenResultCache initializes and returns a result cache at the standard
// location.
func OpenResultCache(app string) (*ResultCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ResultCache{dir: dir}, nil
}

// OpenResultCacheAt places the cache in an explicit directory (tests).
func OpenResultCacheAt(dir string) (*ResultCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ResultCache{dir: dir}, nil
}

func (c *ResultCache) pathFor(key [32]byte) string {
	hexKey := hex.EncodeToString(key[:])
	// Подкаталог "units" — для удобства читаемости/очистки.
	return filepath.Join(c.dir, "units", hexKey+".mp")
}

// Put serializes the bag and writes it to the cache.
func (c *ResultCache) Put(key [32]byte, bag *diag.Bag) error {
	if c == nil || bag == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := CachedResult{Schema: resultCacheSchemaVersion}
	for _, d := range bag.Items() {
		cd := CachedDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{Message: n.Msg, Start: n.Span.Start, End: n.Span.End})
		}
		payload.Diags = append(payload.Diags, cd)
	}

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}

// Get reads a cached result; misses and schema mismatches return ok=false.
func (c *ResultCache) Get(key [32]byte) (*CachedResult, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "result cache read error: %v\n", err)
		}
		return nil, false
	}
	defer func() {
		_ = f.Close()
	}()
	var out CachedResult
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, false
	}
	if out.Schema != resultCacheSchemaVersion {
		return nil, false
	}
	return &out, true
}

// hydrateCached rebuilds a UnitResult from a cache hit, re-targeting spans at
// this run's UnitID.
func hydrateCached(path string, id source.UnitID, hit *CachedResult, opts Options) UnitResult {
	bag := diag.NewBag(opts.maxDiagnostics())
	for _, cd := range hit.Diags {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code),
			source.Span{Unit: id, Start: cd.Start, End: cd.End}, cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(source.Span{Unit: id, Start: n.Start, End: n.End}, n.Message)
		}
		bag.Add(d)
	}
	return UnitResult{Path: path, UnitID: id, Bag: bag, Cached: true}
}
