package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// ClassID indexes a nominal classifier (class, interface or annotation class).
type ClassID uint32

// ParamID indexes a declared type parameter.
type ParamID uint32

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindError stands for a type the frontend failed to resolve.
	KindError
	// KindNothing is the bottom type.
	KindNothing
	KindClass
	KindTypeParam
	// KindIntersection is produced by smart casts to unrelated types.
	KindIntersection
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindError:
		return "error"
	case KindNothing:
		return "nothing"
	case KindClass:
		return "class"
	case KindTypeParam:
		return "typeparam"
	case KindIntersection:
		return "intersection"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Variance is the declaration-site variance of a type parameter.
type Variance uint8

const (
	Invariant Variance = iota
	In
	Out
)

func (v Variance) String() string {
	switch v {
	case In:
		return "in"
	case Out:
		return "out"
	default:
		return ""
	}
}

// Primitive tags the built-in value classes that get special treatment in
// overload specificity.
type Primitive uint8

const (
	PrimNone Primitive = iota
	PrimBoolean
	PrimChar
	PrimByte
	PrimShort
	PrimInt
	PrimLong
	PrimFloat
	PrimDouble
)

// Type is a compact descriptor. Args holds type arguments for KindClass and
// the parts of KindIntersection.
//
// A flexible type T! (platform type) is stored with Flexible set and
// Nullable cleared: its lower bound is T, its upper bound T?.
type Type struct {
	Kind     Kind
	Class    ClassID
	Param    ParamID
	Args     []TypeID
	Nullable bool
	Flexible bool
}

// ClassInfo describes a nominal classifier.
type ClassInfo struct {
	Name       string
	Interface  bool
	Primitive  Primitive
	Params     []TypeID // KindTypeParam types, in declaration order
	Supertypes []TypeID // may mention Params
}

// ParamInfo describes a type parameter.
type ParamInfo struct {
	Name     string
	Bound    TypeID
	Variance Variance
}

// Builtins stores TypeIDs for the built-in types.
type Builtins struct {
	Error           TypeID
	Nothing         TypeID
	NullableNothing TypeID
	Any             TypeID
	NullableAny     TypeID
	Unit            TypeID
	Boolean         TypeID
	Char            TypeID
	String          TypeID
	Number          TypeID
	Byte            TypeID
	Short           TypeID
	Int             TypeID
	Long            TypeID
	Float           TypeID
	Double          TypeID
	// Fragile is the annotation class that exempts an expression from
	// constructor consistency checks.
	Fragile TypeID
}
