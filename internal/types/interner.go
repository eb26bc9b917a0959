package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	classes  []ClassInfo
	params   []ParamInfo
	byName   map[string]TypeID
	builtins Builtins
}

type typeKey struct {
	Kind     Kind
	Class    ClassID
	Param    ParamID
	Args     string
	Nullable bool
	Flexible bool
}

func keyOf(t Type) typeKey {
	var args string
	if len(t.Args) > 0 {
		var sb strings.Builder
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatUint(uint64(a), 10))
		}
		args = sb.String()
	}
	return typeKey{
		Kind:     t.Kind,
		Class:    t.Class,
		Param:    t.Param,
		Args:     args,
		Nullable: t.Nullable,
		Flexible: t.Flexible,
	}
}

// NewInterner constructs an interner seeded with the built-in classes.
func NewInterner() *Interner {
	in := &Interner{
		index:   make(map[typeKey]TypeID, 64),
		classes: make([]ClassInfo, 1, 32), // 0 reserved
		params:  make([]ParamInfo, 1, 8),  // 0 reserved
		byName:  make(map[string]TypeID, 32),
	}
	in.types = append(in.types, Type{}) // NoTypeID

	b := &in.builtins
	b.Error = in.Intern(Type{Kind: KindError})
	b.Nothing = in.Intern(Type{Kind: KindNothing})
	b.NullableNothing = in.Intern(Type{Kind: KindNothing, Nullable: true})
	b.Any = in.RegisterClass("Any", false)
	b.NullableAny = in.Nullable(b.Any)
	b.Unit = in.RegisterClass("Unit", false)
	b.Boolean = in.registerPrimitive("Boolean", PrimBoolean, b.Any)
	b.Char = in.registerPrimitive("Char", PrimChar, b.Any)
	b.String = in.RegisterClass("String", false)
	b.Number = in.RegisterClass("Number", false)
	b.Byte = in.registerPrimitive("Byte", PrimByte, b.Number)
	b.Short = in.registerPrimitive("Short", PrimShort, b.Number)
	b.Int = in.registerPrimitive("Int", PrimInt, b.Number)
	b.Long = in.registerPrimitive("Long", PrimLong, b.Number)
	b.Float = in.registerPrimitive("Float", PrimFloat, b.Number)
	b.Double = in.registerPrimitive("Double", PrimDouble, b.Number)
	b.Fragile = in.RegisterClass("Fragile", false)
	in.byName["Nothing"] = b.Nothing
	return in
}

func (in *Interner) registerPrimitive(name string, prim Primitive, super TypeID) TypeID {
	id := in.RegisterClass(name, false)
	info := in.classInfo(id)
	info.Primitive = prim
	info.Supertypes = []TypeID{super}
	return id
}

// Builtins returns TypeIDs for built-in types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if t.Flexible {
		t.Nullable = false
	}
	key := keyOf(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	t.Args = slices.Clone(t.Args)
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// RegisterClass allocates a classifier and returns its bare, non-null type.
// Registering a name twice yields two distinct classifiers; ByName sees the latest.
// Names are stored in NFC, so precomposed and combining spellings agree.
func (in *Interner) RegisterClass(name string, iface bool) TypeID {
	name = norm.NFC.String(name)
	n, err := safecast.Conv[uint32](len(in.classes))
	if err != nil {
		panic(fmt.Errorf("classes arena overflow: %w", err))
	}
	in.classes = append(in.classes, ClassInfo{Name: name, Interface: iface})
	id := in.Intern(Type{Kind: KindClass, Class: ClassID(n)})
	in.byName[name] = id
	return id
}

// SetSupertypes records the direct supertypes of a classifier.
func (in *Interner) SetSupertypes(class TypeID, supers []TypeID) {
	if info := in.classInfo(class); info != nil {
		info.Supertypes = slices.Clone(supers)
	}
}

// SetClassParams records the type parameters of a classifier.
func (in *Interner) SetClassParams(class TypeID, params []TypeID) {
	if info := in.classInfo(class); info != nil {
		info.Params = slices.Clone(params)
	}
}

// NewTypeParam allocates a type parameter. A NoTypeID bound means Any?.
func (in *Interner) NewTypeParam(name string, bound TypeID, variance Variance) TypeID {
	if bound == NoTypeID {
		bound = in.builtins.NullableAny
	}
	n, err := safecast.Conv[uint32](len(in.params))
	if err != nil {
		panic(fmt.Errorf("type params arena overflow: %w", err))
	}
	in.params = append(in.params, ParamInfo{Name: name, Bound: bound, Variance: variance})
	return in.Intern(Type{Kind: KindTypeParam, Param: ParamID(n)})
}

// SetParamBound replaces the upper bound of a type parameter; bounds may
// refer to parameters declared later, so they are patched after allocation.
func (in *Interner) SetParamBound(param, bound TypeID) {
	if info := in.paramInfo(param); info != nil && bound != NoTypeID {
		info.Bound = bound
	}
}

// ByName finds a classifier registered under name.
func (in *Interner) ByName(name string) (TypeID, bool) {
	id, ok := in.byName[norm.NFC.String(name)]
	return id, ok
}

// Apply instantiates a generic classifier with arguments.
func (in *Interner) Apply(class TypeID, args ...TypeID) TypeID {
	t, ok := in.Lookup(class)
	if !ok || t.Kind != KindClass {
		return class
	}
	t.Args = args
	return in.Intern(t)
}

// Nullable returns T?.
func (in *Interner) Nullable(id TypeID) TypeID {
	t, ok := in.Lookup(id)
	if !ok || t.Kind == KindError || t.Nullable {
		return id
	}
	t.Nullable = true
	t.Flexible = false
	return in.Intern(t)
}

// NotNull returns the non-null version of id. For a type parameter whose
// bound admits null the result is T & Any.
func (in *Interner) NotNull(id TypeID) TypeID {
	t, ok := in.Lookup(id)
	if !ok || t.Kind == KindError {
		return id
	}
	if t.Kind == KindIntersection && t.Nullable {
		t.Nullable = false
		return in.Intern(t)
	}
	if t.Nullable || t.Flexible {
		t.Nullable = false
		t.Flexible = false
		id = in.Intern(t)
	}
	if t.Kind == KindTypeParam && in.IsNullable(in.paramInfo(id).Bound) {
		return in.Intersect(id, in.builtins.Any)
	}
	return id
}

// Flexible returns the platform type T!.
func (in *Interner) Flexible(id TypeID) TypeID {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindClass {
		return id
	}
	t.Flexible = true
	t.Nullable = false
	return in.Intern(t)
}

// Intersect builds a & b, collapsing to one side when it is already a subtype
// of the other. Parts are flattened and kept in TypeID order.
func (in *Interner) Intersect(a, b TypeID) TypeID {
	switch {
	case a == NoTypeID:
		return b
	case b == NoTypeID:
		return a
	case in.IsSubtype(a, b):
		return a
	case in.IsSubtype(b, a):
		return b
	}
	parts := make([]TypeID, 0, 4)
	for _, id := range []TypeID{a, b} {
		if t := in.MustLookup(id); t.Kind == KindIntersection {
			parts = append(parts, t.Args...)
		} else {
			parts = append(parts, id)
		}
	}
	slices.Sort(parts)
	parts = slices.Compact(parts)
	nullable := true
	for _, p := range parts {
		if !in.IsNullable(p) {
			nullable = false
		}
	}
	return in.Intern(Type{Kind: KindIntersection, Args: parts, Nullable: nullable})
}

// ClassInfo returns metadata of the classifier behind id (arguments ignored).
func (in *Interner) ClassInfo(id TypeID) (*ClassInfo, bool) {
	info := in.classInfo(id)
	return info, info != nil
}

// ParamInfo returns metadata of a type parameter type.
func (in *Interner) ParamInfo(id TypeID) (*ParamInfo, bool) {
	info := in.paramInfo(id)
	return info, info != nil
}

func (in *Interner) classInfo(id TypeID) *ClassInfo {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindClass || t.Class == 0 || int(t.Class) >= len(in.classes) {
		return nil
	}
	return &in.classes[t.Class]
}

func (in *Interner) paramInfo(id TypeID) *ParamInfo {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindTypeParam || t.Param == 0 || int(t.Param) >= len(in.params) {
		return nil
	}
	return &in.params[t.Param]
}

// Predicates ---------------------------------------------------------------

// IsError reports whether id is unresolved.
func (in *Interner) IsError(id TypeID) bool {
	t, ok := in.Lookup(id)
	return !ok || t.Kind == KindError
}

// IsNothing reports whether id is Nothing or Nothing?.
func (in *Interner) IsNothing(id TypeID) bool {
	t, ok := in.Lookup(id)
	return ok && t.Kind == KindNothing
}

// IsNullable reports whether a value of type id may be null.
func (in *Interner) IsNullable(id TypeID) bool {
	t, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch {
	case t.Nullable, t.Flexible:
		return true
	case t.Kind == KindTypeParam:
		return in.IsNullable(in.paramInfo(id).Bound)
	}
	return false
}

// IsMarkedNullable reports whether id carries an explicit '?'.
func (in *Interner) IsMarkedNullable(id TypeID) bool {
	t, ok := in.Lookup(id)
	return ok && t.Nullable
}

// IsFlexible reports whether id is a platform type.
func (in *Interner) IsFlexible(id TypeID) bool {
	t, ok := in.Lookup(id)
	return ok && t.Flexible
}

// IsInterface reports whether id is an interface type.
func (in *Interner) IsInterface(id TypeID) bool {
	info := in.classInfo(id)
	return info != nil && info.Interface
}

// PrimitiveOf returns the primitive tag of id regardless of nullability.
func (in *Interner) PrimitiveOf(id TypeID) Primitive {
	if info := in.classInfo(id); info != nil {
		return info.Primitive
	}
	return PrimNone
}

// IsPrimitive reports whether id is a built-in primitive (nullable or not).
func (in *Interner) IsPrimitive(id TypeID) bool {
	return in.PrimitiveOf(id) != PrimNone
}

// IsGeneric reports whether id mentions a type parameter.
func (in *Interner) IsGeneric(id TypeID) bool {
	t, ok := in.Lookup(id)
	if !ok {
		return false
	}
	if t.Kind == KindTypeParam {
		return true
	}
	return slices.ContainsFunc(t.Args, in.IsGeneric)
}
