package dataflow

// Nullability is a four-point lattice encoded as two independent flags:
// whether the value may be null and whether it may be non-null.
type Nullability uint8

const (
	flagNull    Nullability = 1 << 0
	flagNonNull Nullability = 1 << 1
)

const (
	Impossible Nullability = 0
	Null                   = flagNull
	NotNull                = flagNonNull
	Unknown                = flagNull | flagNonNull
)

// NullabilityOf builds a lattice point from its flags.
func NullabilityOf(canBeNull, canBeNonNull bool) Nullability {
	var n Nullability
	if canBeNull {
		n |= flagNull
	}
	if canBeNonNull {
		n |= flagNonNull
	}
	return n
}

func (n Nullability) CanBeNull() bool    { return n&flagNull != 0 }
func (n Nullability) CanBeNonNull() bool { return n&flagNonNull != 0 }

// And is used when both facts hold at once.
func (n Nullability) And(o Nullability) Nullability { return n & o }

// Or is used at control-flow joins: a value may be null if it may be null on
// either incoming path.
func (n Nullability) Or(o Nullability) Nullability { return n | o }

// Refine narrows n with an additional known fact.
func (n Nullability) Refine(o Nullability) Nullability { return n.And(o) }

// Invert describes the other side of a failed equality: only a definitely
// null operand says anything about its counterpart.
func (n Nullability) Invert() Nullability {
	if n == Null {
		return NotNull
	}
	return Unknown
}

func (n Nullability) String() string {
	switch n {
	case Impossible:
		return "IMPOSSIBLE"
	case Null:
		return "NULL"
	case NotNull:
		return "NOT_NULL"
	default:
		return "UNKNOWN"
	}
}
