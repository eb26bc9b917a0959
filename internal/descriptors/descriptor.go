package descriptors

import (
	"slices"

	"flowsema/internal/source"
	"flowsema/internal/types"
)

// Kind tags the variant of a Descriptor.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindPackage
	KindScript
	KindClass
	KindConstructor
	KindFunction
	KindProperty
)

func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindScript:
		return "script"
	case KindClass:
		return "class"
	case KindConstructor:
		return "constructor"
	case KindFunction:
		return "function"
	case KindProperty:
		return "property"
	default:
		return "invalid"
	}
}

// Modality of a class or member.
type Modality uint8

const (
	Final Modality = iota
	Open
	Abstract
)

func (m Modality) String() string {
	switch m {
	case Open:
		return "open"
	case Abstract:
		return "abstract"
	default:
		return "final"
	}
}

// IsOverridable reports whether subclasses may override.
func (m Modality) IsOverridable() bool { return m != Final }

// Visibility of a declaration. Inherited is given to synthesized copies whose
// effective visibility follows the member they stand for.
type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Internal
	Private
	Inherited
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Internal:
		return "internal"
	case Private:
		return "private"
	case Inherited:
		return "inherited"
	default:
		return "public"
	}
}

// MemberKind records where a callable member came from.
type MemberKind uint8

const (
	Declaration MemberKind = iota
	FakeOverride
	Delegation
	Synthesized
)

func (k MemberKind) String() string {
	switch k {
	case FakeOverride:
		return "fake-override"
	case Delegation:
		return "delegation"
	case Synthesized:
		return "synthesized"
	default:
		return "declaration"
	}
}

// ClassKind distinguishes classes from interfaces and objects.
type ClassKind uint8

const (
	ClassKindClass ClassKind = iota
	ClassKindInterface
	ClassKindObject
)

// ValueParam is one declared value parameter.
type ValueParam struct {
	Name       source.StringID
	Type       types.TypeID
	VarargElem types.TypeID // element type for vararg parameters
	HasDefault bool
}

// IsVararg reports whether the parameter collects a variable number of arguments.
func (p ValueParam) IsVararg() bool { return p.VarargElem != types.NoTypeID }

// ArgumentType is the type an argument bound to p is checked against.
func (p ValueParam) ArgumentType() types.TypeID {
	if p.IsVararg() {
		return p.VarargElem
	}
	return p.Type
}

// Callable is shared by functions, properties and constructors.
type Callable struct {
	TypeParams  []types.TypeID
	ValueParams []ValueParam
	ExtReceiver types.TypeID
	Return      types.TypeID
	Overridden  []DescID
	MemberKind  MemberKind
}

// Property carries the accessor facts used by constructor checks.
type Property struct {
	Mutable         bool
	HasBackingField bool
	DefaultGetter   bool
	DefaultSetter   bool
}

// Class holds classifier data; Members are kept in declaration order.
type Class struct {
	Kind        ClassKind
	Type        types.TypeID
	Supertypes  []types.TypeID
	Members     []DescID
	PrimaryCtor DescID
}

// Script gives top-level declarations of a script a resolution priority.
type Script struct {
	Priority int
}

// Descriptor is a tagged variant: Kind selects which payload is set.
type Descriptor struct {
	Kind       Kind
	Name       source.StringID
	Container  DescID
	Span       source.Span
	Modality   Modality
	Visibility Visibility

	Callable *Callable // function, property, constructor
	Property *Property // property
	Class    *Class    // class
	Script   *Script   // script
}

// IsCallable reports whether the descriptor can be a call or reference target.
func (d *Descriptor) IsCallable() bool {
	return d != nil && d.Callable != nil
}

// TypeParams returns declared type parameters of a callable.
func (d *Descriptor) TypeParams() []types.TypeID {
	if !d.IsCallable() {
		return nil
	}
	return d.Callable.TypeParams
}

// ValueParams returns declared value parameters of a callable.
func (d *Descriptor) ValueParams() []ValueParam {
	if !d.IsCallable() {
		return nil
	}
	return d.Callable.ValueParams
}

// MemberKind returns the provenance of a callable; non-callables are declarations.
func (d *Descriptor) MemberKind() MemberKind {
	if !d.IsCallable() {
		return Declaration
	}
	return d.Callable.MemberKind
}

// IsOverridable reports whether a member can be overridden in a subclass.
func (d *Descriptor) IsOverridable() bool {
	return d != nil && d.Modality.IsOverridable() && d.Visibility != Private
}

func (c *Callable) clone() *Callable {
	if c == nil {
		return nil
	}
	cp := *c
	cp.TypeParams = slices.Clone(c.TypeParams)
	cp.ValueParams = slices.Clone(c.ValueParams)
	cp.Overridden = slices.Clone(c.Overridden)
	return &cp
}
