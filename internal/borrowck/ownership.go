package borrowck

import (
	"borrowck/internal/scopes"
)

// OwnState is the per-place ownership state machine.
type OwnState uint8

const (
	// OwnUninit is the state before a place's binding executes.
	OwnUninit OwnState = iota
	// OwnOwned means the place currently owns a value.
	OwnOwned
	// OwnMoved means the value was moved out and the place is unusable
	// until rebound.
	OwnMoved
	// OwnDropped is terminal: the value was dropped (scope exit, shadow,
	// or overwrite by a move).
	OwnDropped
)

func (s OwnState) String() string {
	switch s {
	case OwnUninit:
		return "uninitialized"
	case OwnOwned:
		return "owned"
	case OwnMoved:
		return "moved"
	case OwnDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// ownTable tracks ownership state per place, indexed by PlaceID. The extra
// points remember where the state changed so diagnostics can attach
// "moved here" style notes.
type ownTable struct {
	state     []OwnState
	movedAt   []uint32
	droppedAt []uint32
}

func newOwnTable(places int) *ownTable {
	n := places + 1 // slot 0 is the sentinel place
	return &ownTable{
		state:     make([]OwnState, n),
		movedAt:   make([]uint32, n),
		droppedAt: make([]uint32, n),
	}
}

func (o *ownTable) get(p scopes.PlaceID) OwnState {
	if !p.IsValid() || int(p) >= len(o.state) {
		return OwnUninit
	}
	return o.state[p]
}

// bind puts the place into OwnOwned. Rebinding after a move goes through
// here as well: a fresh value makes the place usable again.
func (o *ownTable) bind(p scopes.PlaceID) {
	if !p.IsValid() || int(p) >= len(o.state) {
		return
	}
	o.state[p] = OwnOwned
}

// moveOut marks the value as transferred away. Applied even when the move was
// reported as invalid, so later statements see a consistent state.
func (o *ownTable) moveOut(p scopes.PlaceID, point uint32) {
	if !p.IsValid() || int(p) >= len(o.state) {
		return
	}
	o.state[p] = OwnMoved
	o.movedAt[p] = point
}

// drop discards the value; terminal for the place.
func (o *ownTable) drop(p scopes.PlaceID, point uint32) {
	if !p.IsValid() || int(p) >= len(o.state) {
		return
	}
	o.state[p] = OwnDropped
	o.droppedAt[p] = point
}

func (o *ownTable) movedPoint(p scopes.PlaceID) uint32 {
	if !p.IsValid() || int(p) >= len(o.movedAt) {
		return 0
	}
	return o.movedAt[p]
}

func (o *ownTable) droppedPoint(p scopes.PlaceID) uint32 {
	if !p.IsValid() || int(p) >= len(o.droppedAt) {
		return 0
	}
	return o.droppedAt[p]
}
