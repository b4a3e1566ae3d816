package scopes

// ScopeID identifies a scope in the table arena.
type ScopeID uint32

const (
	// NoScopeID marks the absence of a scope reference.
	NoScopeID ScopeID = 0
)

// IsValid reports whether the scope ID refers to an allocated scope.
func (id ScopeID) IsValid() bool { return id != NoScopeID }

// PlaceID identifies a place inside the table arena.
type PlaceID uint32

const (
	// NoPlaceID marks the absence of a place reference.
	NoPlaceID PlaceID = 0
)

// IsValid reports whether the place ID refers to an allocated place.
func (id PlaceID) IsValid() bool { return id != NoPlaceID }
