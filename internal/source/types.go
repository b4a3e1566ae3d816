package source

type (
	// UnitID uniquely identifies an analyzable unit within a UnitSet.
	UnitID uint32
	// UnitFlags encodes metadata about a unit.
	UnitFlags uint8
)

const (
	// UnitVirtual indicates the unit was added from memory (test, stdin, etc.).
	UnitVirtual UnitFlags = 1 << iota
)

// Unit captures metadata for a single analyzable unit.
// Content holds the raw wire bytes the unit was decoded from; it stays nil for
// units built in memory.
type Unit struct {
	ID      UnitID
	Name    string
	Path    string
	Content []byte
	Stmts   uint32
	Hash    [32]byte
	Flags   UnitFlags
}
