package borrowck

import (
	"fmt"

	"fortio.org/safecast"

	"borrowck/internal/scopes"
	"borrowck/internal/source"
)

// BorrowID identifies an active borrow entry.
type BorrowID uint32

// NoBorrowID marks the absence of a borrow.
const NoBorrowID BorrowID = 0

// BorrowKind differentiates shared vs exclusive borrows.
type BorrowKind uint8

const (
	BorrowShared BorrowKind = iota
	BorrowExclusive
)

func (k BorrowKind) String() string {
	if k == BorrowExclusive {
		return "exclusive"
	}
	return "shared"
}

// BorrowInfo stores metadata about each borrow.
type BorrowInfo struct {
	ID      BorrowID
	Kind    BorrowKind
	Place   scopes.PlaceID // referent
	Binding scopes.PlaceID // the reference binding holding this borrow
	Scope   scopes.ScopeID // scope of the binding; lexical validity extent
	Span    source.Span    // creation point

	// Retired borrows stay in the table for diagnostics but no longer
	// constrain the referent.
	Retired   bool
	RetiredAt uint32
}

type borrowState struct {
	shared []BorrowID
	excl   BorrowID
}

// BorrowIssueKind enumerates reasons a borrow-related action fails.
type BorrowIssueKind uint8

const (
	BorrowIssueNone BorrowIssueKind = iota
	// BorrowIssueConflictShared: blocked by an existing shared borrow.
	BorrowIssueConflictShared
	// BorrowIssueConflictExclusive: blocked by an existing exclusive borrow.
	BorrowIssueConflictExclusive
	// BorrowIssueFrozen: the place cannot be mutated or moved while shared
	// borrows are active.
	BorrowIssueFrozen
	// BorrowIssueTaken: the place is controlled by an exclusive borrow.
	BorrowIssueTaken
)

// BorrowIssue carries information about conflicts.
type BorrowIssue struct {
	Kind   BorrowIssueKind
	Borrow BorrowID
}

// BorrowTable tracks active borrows and per-place state for one unit.
//
// Unlike a hard-failing table, Begin registers the borrow even when it
// conflicts: the checker reports the conflict and analysis continues against
// the resulting (erroneous but consistent) state.
type BorrowTable struct {
	infos        []BorrowInfo
	placeState   map[scopes.PlaceID]borrowState
	bindingIdx   map[scopes.PlaceID]BorrowID
	scopeBorrows map[scopes.ScopeID][]BorrowID
}

// NewBorrowTable builds an empty borrow table ready for tracking.
func NewBorrowTable() *BorrowTable {
	return &BorrowTable{
		infos:        []BorrowInfo{{}},
		placeState:   make(map[scopes.PlaceID]borrowState),
		bindingIdx:   make(map[scopes.PlaceID]BorrowID),
		scopeBorrows: make(map[scopes.ScopeID][]BorrowID),
	}
}

// Begin registers a borrow of place held by binding within scope. The
// returned issue is non-empty when the new borrow violates exclusivity; the
// borrow is recorded regardless.
func (bt *BorrowTable) Begin(kind BorrowKind, place, binding scopes.PlaceID, scope scopes.ScopeID, span source.Span) (BorrowID, BorrowIssue) {
	if bt == nil || !place.IsValid() || !scope.IsValid() {
		return NoBorrowID, BorrowIssue{}
	}
	state := bt.placeState[place]
	var issue BorrowIssue
	switch kind {
	case BorrowShared:
		if state.excl != NoBorrowID {
			issue = BorrowIssue{Kind: BorrowIssueConflictExclusive, Borrow: state.excl}
		}
	case BorrowExclusive:
		if len(state.shared) > 0 {
			issue = BorrowIssue{Kind: BorrowIssueConflictShared, Borrow: state.shared[0]}
		} else if state.excl != NoBorrowID {
			issue = BorrowIssue{Kind: BorrowIssueConflictExclusive, Borrow: state.excl}
		}
	}
	value, err := safecast.Conv[uint32](len(bt.infos))
	if err != nil {
		panic(fmt.Errorf("borrow table overflow: %w", err))
	}
	id := BorrowID(value)
	bt.infos = append(bt.infos, BorrowInfo{
		ID:      id,
		Kind:    kind,
		Place:   place,
		Binding: binding,
		Scope:   scope,
		Span:    span,
	})
	switch kind {
	case BorrowShared:
		state.shared = append(state.shared, id)
	case BorrowExclusive:
		state.excl = id
	}
	bt.placeState[place] = state
	if binding.IsValid() {
		bt.bindingIdx[binding] = id
	}
	bt.scopeBorrows[scope] = append(bt.scopeBorrows[scope], id)
	return id, issue
}

// MutationAllowed verifies whether the place can be mutated directly.
func (bt *BorrowTable) MutationAllowed(place scopes.PlaceID) BorrowIssue {
	if bt == nil || !place.IsValid() {
		return BorrowIssue{}
	}
	state, ok := bt.placeState[place]
	if !ok {
		return BorrowIssue{}
	}
	if len(state.shared) > 0 {
		return BorrowIssue{Kind: BorrowIssueFrozen, Borrow: state.shared[0]}
	}
	if state.excl != NoBorrowID {
		return BorrowIssue{Kind: BorrowIssueTaken, Borrow: state.excl}
	}
	return BorrowIssue{}
}

// MoveAllowed verifies whether the place can be moved from.
func (bt *BorrowTable) MoveAllowed(place scopes.PlaceID) BorrowIssue {
	if bt == nil || !place.IsValid() {
		return BorrowIssue{}
	}
	state, ok := bt.placeState[place]
	if !ok {
		return BorrowIssue{}
	}
	if len(state.shared) > 0 {
		return BorrowIssue{Kind: BorrowIssueFrozen, Borrow: state.shared[0]}
	}
	if state.excl != NoBorrowID {
		return BorrowIssue{Kind: BorrowIssueTaken, Borrow: state.excl}
	}
	return BorrowIssue{}
}

// WriteThroughIssue checks that the borrow is an exclusive borrow and is the
// sole entry in its referent's set, i.e. writing through it is legal.
func (bt *BorrowTable) WriteThroughIssue(id BorrowID) BorrowIssue {
	info := bt.Info(id)
	if info == nil || info.Retired {
		return BorrowIssue{}
	}
	if info.Kind != BorrowExclusive {
		return BorrowIssue{Kind: BorrowIssueFrozen, Borrow: id}
	}
	state := bt.placeState[info.Place]
	if state.excl != id || len(state.shared) > 0 {
		other := state.excl
		if len(state.shared) > 0 {
			other = state.shared[0]
		}
		return BorrowIssue{Kind: BorrowIssueConflictShared, Borrow: other}
	}
	return BorrowIssue{}
}

// Retire removes a borrow from its referent's active set. The info entry is
// kept so late uses can still name the borrow.
func (bt *BorrowTable) Retire(id BorrowID, point uint32) {
	info := bt.Info(id)
	if info == nil || info.Retired {
		return
	}
	state := bt.placeState[info.Place]
	switch info.Kind {
	case BorrowShared:
		state.shared = dropBorrowID(state.shared, id)
	case BorrowExclusive:
		if state.excl == id {
			state.excl = NoBorrowID
		}
	}
	if len(state.shared) == 0 && state.excl == NoBorrowID {
		delete(bt.placeState, info.Place)
	} else {
		bt.placeState[info.Place] = state
	}
	info.Retired = true
	info.RetiredAt = point
}

// EndScope retires all borrows whose lexical extent ends at scope and returns
// their ids in creation order.
func (bt *BorrowTable) EndScope(scope scopes.ScopeID, point uint32) []BorrowID {
	if bt == nil || !scope.IsValid() {
		return nil
	}
	ids := bt.scopeBorrows[scope]
	if len(ids) == 0 {
		return nil
	}
	retired := make([]BorrowID, 0, len(ids))
	for _, id := range ids {
		if info := bt.Info(id); info != nil && !info.Retired {
			bt.Retire(id, point)
			retired = append(retired, id)
		}
	}
	delete(bt.scopeBorrows, scope)
	return retired
}

// Transfer moves a borrow to a new binding, typically when the reference
// value itself is moved to another place. The lexical extent follows the new
// binding's scope.
func (bt *BorrowTable) Transfer(id BorrowID, binding scopes.PlaceID, scope scopes.ScopeID) {
	info := bt.Info(id)
	if info == nil || info.Retired {
		return
	}
	if info.Binding.IsValid() && bt.bindingIdx[info.Binding] == id {
		delete(bt.bindingIdx, info.Binding)
	}
	bt.scopeBorrows[info.Scope] = dropBorrowID(bt.scopeBorrows[info.Scope], id)
	info.Binding = binding
	info.Scope = scope
	if binding.IsValid() {
		bt.bindingIdx[binding] = id
	}
	bt.scopeBorrows[scope] = append(bt.scopeBorrows[scope], id)
}

// ActiveBorrows returns the active borrows of place, shared first.
func (bt *BorrowTable) ActiveBorrows(place scopes.PlaceID) []BorrowID {
	if bt == nil {
		return nil
	}
	state, ok := bt.placeState[place]
	if !ok {
		return nil
	}
	out := make([]BorrowID, 0, len(state.shared)+1)
	out = append(out, state.shared...)
	if state.excl != NoBorrowID {
		out = append(out, state.excl)
	}
	return out
}

// BindingBorrow returns the borrow held by a reference binding, retired or
// not; NoBorrowID when the binding never held one.
func (bt *BorrowTable) BindingBorrow(binding scopes.PlaceID) BorrowID {
	if bt == nil {
		return NoBorrowID
	}
	return bt.bindingIdx[binding]
}

// Info returns metadata for the borrow.
func (bt *BorrowTable) Info(id BorrowID) *BorrowInfo {
	if bt == nil || id == NoBorrowID || int(id) >= len(bt.infos) {
		return nil
	}
	return &bt.infos[id]
}

// Infos returns a shallow copy of stored borrow infos (excluding sentinel).
func (bt *BorrowTable) Infos() []BorrowInfo {
	if bt == nil || len(bt.infos) <= 1 {
		return nil
	}
	out := make([]BorrowInfo, len(bt.infos)-1)
	copy(out, bt.infos[1:])
	return out
}

func dropBorrowID(ids []BorrowID, target BorrowID) []BorrowID {
	if len(ids) == 0 {
		return ids
	}
	for i, id := range ids {
		if id == target {
			ids[i] = ids[len(ids)-1]
			return ids[:len(ids)-1]
		}
	}
	return ids
}
