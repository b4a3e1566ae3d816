package source

import (
	"fmt"
)

// Span is a half-open range of program points (statement indices) inside a unit.
type Span struct {
	Unit  UnitID
	Start uint32 // индекс первого оператора, включительно
	End   uint32 // не включительно
}

// At builds a span covering the single program point at index i.
func At(unit UnitID, i uint32) Span {
	return Span{Unit: unit, Start: i, End: i + 1}
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.Unit, s.Start, s.End)
}

// Contains reports whether point i lies within the span.
func (s Span) Contains(i uint32) bool {
	return i >= s.Start && i < s.End
}

func (s Span) Cover(other Span) Span {
	if s.Unit != other.Unit {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
