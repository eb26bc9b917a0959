package dataflow

import (
	"fmt"

	"fortio.org/safecast"

	"flowsema/internal/types"
)

// ValueID identifies an observable storage location within one Values registry.
type ValueID uint32

const NoValueID ValueID = 0

// ValueKind tells where a value lives.
type ValueKind uint8

const (
	ValueLocal ValueKind = iota
	ValueParameter
	ValueProperty
	ValueBackingField
	ValueReceiver
	ValueExpression
	ValueConstant
)

func (k ValueKind) String() string {
	switch k {
	case ValueLocal:
		return "local"
	case ValueParameter:
		return "parameter"
	case ValueProperty:
		return "property"
	case ValueBackingField:
		return "field"
	case ValueReceiver:
		return "receiver"
	case ValueExpression:
		return "expression"
	case ValueConstant:
		return "constant"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Value is a handle for a local, parameter, property, receiver or expression.
// Predictable values keep their narrowing; unpredictable ones (a var captured
// and written by a closure, an open property) do not.
type Value struct {
	Kind        ValueKind
	Name        string
	Type        types.TypeID
	Predictable bool
	Immanent    Nullability
}

// Values registers the values of one analysed declaration.
type Values struct {
	in   *types.Interner
	data []Value
}

func NewValues(in *types.Interner) *Values {
	return &Values{in: in, data: make([]Value, 1, 32)}
}

// Types returns the interner used to judge declared types.
func (vs *Values) Types() *types.Interner { return vs.in }

// Len counts registered values.
func (vs *Values) Len() int { return len(vs.data) - 1 }

// New registers a value whose immanent nullability follows its declared type.
func (vs *Values) New(kind ValueKind, name string, typ types.TypeID, predictable bool) ValueID {
	return vs.NewWithNullability(kind, name, typ, predictable, ImmanentNullability(vs.in, typ))
}

// NewWithNullability registers a value with an explicit immanent nullability,
// e.g. a backing field that has not been written yet.
func (vs *Values) NewWithNullability(kind ValueKind, name string, typ types.TypeID, predictable bool, n Nullability) ValueID {
	id, err := safecast.Conv[uint32](len(vs.data))
	if err != nil {
		panic(fmt.Errorf("value registry overflow: %w", err))
	}
	vs.data = append(vs.data, Value{Kind: kind, Name: name, Type: typ, Predictable: predictable, Immanent: n})
	return ValueID(id)
}

// Get returns the value or nil for an unknown id.
func (vs *Values) Get(id ValueID) *Value {
	if id == NoValueID || int(id) >= len(vs.data) {
		return nil
	}
	return &vs.data[id]
}

// ImmanentNullability derives what the declared type alone says.
func ImmanentNullability(in *types.Interner, typ types.TypeID) Nullability {
	switch {
	case in.IsError(typ):
		return Unknown
	case in.IsNothing(typ):
		if in.IsMarkedNullable(typ) {
			return Null
		}
		return Impossible
	case in.IsNullable(typ):
		return Unknown
	default:
		return NotNull
	}
}
