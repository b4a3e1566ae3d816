package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// Структурные дефекты входного IR (фатальные для анализа).
	IrInfo             Code = 1000
	IrMalformedProgram Code = 1001
	IrUnbalancedScope  Code = 1002
	IrUnitTooLarge     Code = 1003
	IrBadWireFormat    Code = 1004

	// Семантические нарушения (собираются, не прерывают анализ).
	SemaInfo              Code = 3000
	SemaError             Code = 3001
	SemaDuplicateBinding  Code = 3002
	SemaUseAfterMove      Code = 3003
	SemaUseOfUninit       Code = 3004
	SemaMoveWhileBorrowed Code = 3005
	SemaConflictingBorrow Code = 3006
	SemaDanglingReference Code = 3007
	SemaImmutableWrite    Code = 3008
	SemaImmutableBorrow   Code = 3009

	// I/O и загрузка юнитов.
	IOLoadUnitError Code = 4000

	// Наблюдаемость.
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:        "Unknown error",
		IrInfo:             "IR information",
		IrMalformedProgram: "statement refers to a place that was never declared",
		IrUnbalancedScope:  "scope enter/exit statements are not balanced",
		IrUnitTooLarge:     "unit exceeds the configured statement limit",
		IrBadWireFormat:    "unit wire payload cannot be decoded",

		SemaInfo:              "Semantic information",
		SemaError:             "Semantic error",
		SemaDuplicateBinding:  "place is declared twice in the same scope",
		SemaUseAfterMove:      "use of moved value",
		SemaUseOfUninit:       "use of uninitialized or dropped value",
		SemaMoveWhileBorrowed: "cannot move out of a place while it is borrowed",
		SemaConflictingBorrow: "borrow conflicts with an existing borrow",
		SemaDanglingReference: "borrowed value does not live long enough",
		SemaImmutableWrite:    "write to a place not declared mutable",
		SemaImmutableBorrow:   "exclusive borrow of a place not declared mutable",

		IOLoadUnitError: "I/O load unit error",

		ObsInfo:    "Observability information",
		ObsTimings: "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IR%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
