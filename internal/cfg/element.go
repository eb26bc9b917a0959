package cfg

import (
	"flowsema/internal/descriptors"
	"flowsema/internal/source"
	"flowsema/internal/types"
)

// ElementID indexes Graph.Elements; 0 means no element.
type ElementID uint32

const NoElementID ElementID = 0

// ElementKind enumerates the source expression shapes the checks look at.
type ElementKind uint8

const (
	// ElemOther is any expression the checks do not inspect.
	ElemOther ElementKind = iota
	// ElemThis is an explicit receiver reference (this, this@Label).
	ElemThis
	// ElemNameRef is a simple name resolving to a member or local.
	ElemNameRef
	// ElemCall is a call expression; Target is the callee.
	ElemCall
	// ElemQualified is receiver.selector; Selector points at the right side.
	ElemQualified
	// ElemEquality is == or !=.
	ElemEquality
	// ElemIdentity is === or !==.
	ElemIdentity
)

func (k ElementKind) String() string {
	switch k {
	case ElemThis:
		return "this"
	case ElemNameRef:
		return "name"
	case ElemCall:
		return "call"
	case ElemQualified:
		return "qualified"
	case ElemEquality:
		return "equality"
	case ElemIdentity:
		return "identity"
	default:
		return "expr"
	}
}

// Element is the source expression an instruction was generated for.
type Element struct {
	Kind   ElementKind
	Span   source.Span
	Text   string
	Parent ElementID
	// Target is the resolved declaration: the class for this, the member for
	// names and calls.
	Target descriptors.DescID
	// Selector is the right-hand side of a qualified expression.
	Selector ElementID
	// BackingField marks a name that accesses the field directly.
	BackingField bool
	Annotations  []types.TypeID
}

// IsComparison reports whether the element compares its operands without
// dereferencing them.
func (e *Element) IsComparison() bool {
	return e != nil && (e.Kind == ElemEquality || e.Kind == ElemIdentity)
}
