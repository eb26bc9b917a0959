package cfg

import (
	"flowsema/internal/dataflow"
	"flowsema/internal/types"
)

// InstrID is an index into Graph.Instrs. Instruction 0 is the entry.
type InstrID uint32

// InstrKind enumerates pseudocode instruction kinds.
type InstrKind uint8

const (
	// InstrRead reads a value, e.g. the receiver.
	InstrRead InstrKind = iota
	// InstrWrite stores Source into Target.
	InstrWrite
	// InstrMagic is an implicit-receiver reference or call.
	InstrMagic
	// InstrCall is an explicit call.
	InstrCall
	// InstrJump transfers control to Jump.Target.
	InstrJump
	// InstrCondJump jumps when the condition holds and falls through otherwise.
	InstrCondJump
	// InstrMark has no effect besides optionally invalidating a value.
	InstrMark
	// InstrProbe asks for the facts about a value at this point.
	InstrProbe
	// InstrExit ends the graph.
	InstrExit
)

func (k InstrKind) String() string {
	switch k {
	case InstrRead:
		return "read"
	case InstrWrite:
		return "write"
	case InstrMagic:
		return "magic"
	case InstrCall:
		return "call"
	case InstrJump:
		return "jmp"
	case InstrCondJump:
		return "jmp?"
	case InstrMark:
		return "mark"
	case InstrProbe:
		return "probe"
	case InstrExit:
		return "exit"
	default:
		return "?"
	}
}

// MagicKind tells implicit-receiver calls from references.
type MagicKind uint8

const (
	MagicReference MagicKind = iota
	MagicCall
)

// CondKind enumerates the conditions a conditional jump can test.
type CondKind uint8

const (
	CondOpaque CondKind = iota
	CondEq
	CondNotEq
	CondIs
	CondNotIs
)

func (k CondKind) String() string {
	switch k {
	case CondEq:
		return "=="
	case CondNotEq:
		return "!="
	case CondIs:
		return "is"
	case CondNotIs:
		return "!is"
	default:
		return "?"
	}
}

// Condition is what a conditional jump tests. Left/Right are the compared
// values; for is-checks Right is unused and Type is the checked type.
type Condition struct {
	Kind  CondKind
	Left  dataflow.ValueID
	Right dataflow.ValueID
	Type  types.TypeID
}

// Instr is one pseudocode instruction. Kind selects the meaningful fields.
type Instr struct {
	Kind    InstrKind
	Owner   GraphID
	Element ElementID

	Read     ReadInstr
	Write    WriteInstr
	Magic    MagicInstr
	Jump     JumpInstr
	CondJump CondJumpInstr
	Mark     MarkInstr
	Probe    ProbeInstr
}

type ReadInstr struct {
	Value dataflow.ValueID
}

type WriteInstr struct {
	Target dataflow.ValueID
	Source dataflow.ValueID
}

type MagicInstr struct {
	Kind MagicKind
}

type JumpInstr struct {
	Target InstrID
}

type CondJumpInstr struct {
	Cond   Condition
	Target InstrID
}

// MarkInstr optionally invalidates everything known about Clear.
type MarkInstr struct {
	Clear dataflow.ValueID
}

type ProbeInstr struct {
	Value dataflow.ValueID
	Label string
}
