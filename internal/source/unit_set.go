package source

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"fortio.org/safecast"
)

// UnitSet manages the collection of units participating in one analysis run
// and resolves UnitIDs back to names for output.
type UnitSet struct {
	units []Unit
	index map[string]UnitID // path -> id
}

// NewUnitSet creates a new empty UnitSet.
func NewUnitSet() *UnitSet {
	return &UnitSet{
		units: make([]Unit, 0),
		index: make(map[string]UnitID),
	}
}

// Add stores a unit's metadata and returns a new UnitID.
// content is the raw wire payload the unit was decoded from (hashed for the
// result cache); it may be nil for in-memory units.
func (us *UnitSet) Add(name, path string, content []byte, stmts uint32, flags UnitFlags) UnitID {
	lenUnits, err := safecast.Conv[uint32](len(us.units))
	if err != nil {
		panic(fmt.Errorf("unit set overflow: %w", err))
	}
	id := UnitID(lenUnits)
	u := Unit{
		ID:      id,
		Name:    name,
		Path:    normalizePath(path),
		Content: content,
		Stmts:   stmts,
		Flags:   flags,
	}
	if len(content) > 0 {
		u.Hash = sha256.Sum256(content)
	}
	us.units = append(us.units, u)
	if u.Path != "" {
		us.index[u.Path] = id
	}
	return id
}

// AddVirtual registers an in-memory unit (tests, stdin).
func (us *UnitSet) AddVirtual(name string, stmts uint32) UnitID {
	return us.Add(name, "", nil, stmts, UnitVirtual)
}

// Get returns the unit for id, or nil if the id is unknown.
func (us *UnitSet) Get(id UnitID) *Unit {
	if int(id) >= len(us.units) {
		return nil
	}
	return &us.units[id]
}

// Name returns a printable name for the unit, falling back to the path.
func (us *UnitSet) Name(id UnitID) string {
	u := us.Get(id)
	if u == nil {
		return fmt.Sprintf("unit#%d", id)
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Path
}

// LookupPath returns the id registered for path, if any.
func (us *UnitSet) LookupPath(path string) (UnitID, bool) {
	id, ok := us.index[normalizePath(path)]
	return id, ok
}

func (us *UnitSet) Len() int {
	return len(us.units)
}

func normalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(path))
}
