package descriptors

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"flowsema/internal/source"
	"flowsema/internal/types"
)

// MemberSpec carries everything needed to declare a function or property.
// For properties Return is the property type.
type MemberSpec struct {
	Span        source.Span
	Modality    Modality
	Visibility  Visibility
	MemberKind  MemberKind
	TypeParams  []types.TypeID
	ValueParams []ValueParam
	ExtReceiver types.TypeID
	Return      types.TypeID
	Overridden  []DescID
	Property    Property
}

// Table is the descriptor arena of one analysis unit.
type Table struct {
	data    []Descriptor
	types   *types.Interner
	strings *source.Interner
	byClass map[types.ClassID]DescID
}

// NewTable creates an empty table. Nil interners are allocated fresh.
func NewTable(in *types.Interner, strings *source.Interner) *Table {
	if in == nil {
		in = types.NewInterner()
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Table{
		data:    make([]Descriptor, 1, 64), // index 0 reserved for NoDescID
		types:   in,
		strings: strings,
		byClass: make(map[types.ClassID]DescID),
	}
}

// Types returns the type interner the table was built with.
func (t *Table) Types() *types.Interner { return t.types }

// Strings returns the name interner.
func (t *Table) Strings() *source.Interner { return t.strings }

// Len reports the number of descriptors excluding the sentinel.
func (t *Table) Len() int { return len(t.data) - 1 }

// Get returns the descriptor or nil if the ID is invalid.
func (t *Table) Get(id DescID) *Descriptor {
	if !id.IsValid() || int(id) >= len(t.data) {
		return nil
	}
	return &t.data[id]
}

// Name returns the plain name of a descriptor.
func (t *Table) Name(id DescID) string {
	d := t.Get(id)
	if d == nil {
		return ""
	}
	return t.strings.MustLookup(d.Name)
}

func (t *Table) alloc(d Descriptor) DescID {
	n, err := safecast.Conv[uint32](len(t.data))
	if err != nil {
		panic(fmt.Errorf("descriptor arena overflow: %w", err))
	}
	t.data = append(t.data, d)
	return DescID(n)
}

// NewPackage declares a package-level container.
func (t *Table) NewPackage(name string, span source.Span) DescID {
	return t.alloc(Descriptor{Kind: KindPackage, Name: t.strings.Intern(name), Span: span})
}

// NewScript declares a script container with a resolution priority.
func (t *Table) NewScript(name string, priority int, span source.Span) DescID {
	return t.alloc(Descriptor{
		Kind:   KindScript,
		Name:   t.strings.Intern(name),
		Span:   span,
		Script: &Script{Priority: priority},
	})
}

// NewClass declares a classifier and registers its type with the interner.
func (t *Table) NewClass(container DescID, name string, kind ClassKind, modality Modality, span source.Span) DescID {
	if kind == ClassKindInterface && modality == Final {
		modality = Abstract
	}
	typ := t.types.RegisterClass(name, kind == ClassKindInterface)
	id := t.alloc(Descriptor{
		Kind:      KindClass,
		Name:      t.strings.Intern(name),
		Container: container,
		Span:      span,
		Modality:  modality,
		Class:     &Class{Kind: kind, Type: typ},
	})
	t.byClass[t.types.MustLookup(typ).Class] = id
	if c := t.Get(container); c != nil && c.Class != nil {
		c.Class.Members = append(c.Class.Members, id)
	}
	return id
}

// SetSupertypes records the direct supertypes of a class, in declaration order.
func (t *Table) SetSupertypes(class DescID, supers []types.TypeID) {
	d := t.Get(class)
	if d == nil || d.Class == nil {
		return
	}
	d.Class.Supertypes = slices.Clone(supers)
	t.types.SetSupertypes(d.Class.Type, supers)
}

// ClassOf maps a class type (any instantiation or nullability) to its descriptor.
func (t *Table) ClassOf(typ types.TypeID) (DescID, bool) {
	tt, ok := t.types.Lookup(typ)
	if !ok || tt.Kind != types.KindClass {
		return NoDescID, false
	}
	id, ok := t.byClass[tt.Class]
	return id, ok
}

// NewFunction declares a function inside container.
func (t *Table) NewFunction(container DescID, name string, spec MemberSpec) DescID {
	return t.newMember(KindFunction, container, name, spec)
}

// NewProperty declares a property inside container.
func (t *Table) NewProperty(container DescID, name string, spec MemberSpec) DescID {
	return t.newMember(KindProperty, container, name, spec)
}

// NewConstructor declares a constructor of class.
func (t *Table) NewConstructor(class DescID, spec MemberSpec, primary bool) DescID {
	if spec.Return == types.NoTypeID {
		if c := t.Get(class); c != nil && c.Class != nil {
			spec.Return = c.Class.Type
		}
	}
	id := t.newMember(KindConstructor, class, "<init>", spec)
	if c := t.Get(class); primary && c != nil && c.Class != nil {
		c.Class.PrimaryCtor = id
	}
	return id
}

func (t *Table) newMember(kind Kind, container DescID, name string, spec MemberSpec) DescID {
	d := Descriptor{
		Kind:       kind,
		Name:       t.strings.Intern(name),
		Container:  container,
		Span:       spec.Span,
		Modality:   spec.Modality,
		Visibility: spec.Visibility,
		Callable: &Callable{
			TypeParams:  slices.Clone(spec.TypeParams),
			ValueParams: slices.Clone(spec.ValueParams),
			ExtReceiver: spec.ExtReceiver,
			Return:      spec.Return,
			Overridden:  slices.Clone(spec.Overridden),
			MemberKind:  spec.MemberKind,
		},
	}
	if kind == KindProperty {
		prop := spec.Property
		d.Property = &prop
	}
	id := t.alloc(d)
	if kind != KindConstructor {
		t.AddMember(container, id)
	}
	return id
}

// AddMember appends member to a class member list; other containers ignore it.
func (t *Table) AddMember(container, member DescID) {
	c := t.Get(container)
	if c == nil || c.Class == nil || slices.Contains(c.Class.Members, member) {
		return
	}
	c.Class.Members = append(c.Class.Members, member)
	if m := t.Get(member); m != nil {
		m.Container = container
	}
}

// Copy clones a callable member into container with new modality, visibility
// and member kind. The copy overrides the original and is not added to any
// member list; callers decide whether it becomes a member.
func (t *Table) Copy(id, container DescID, modality Modality, visibility Visibility, kind MemberKind) DescID {
	src := t.Get(id)
	if src == nil || !src.IsCallable() {
		return NoDescID
	}
	cp := *src
	cp.Container = container
	cp.Modality = modality
	cp.Visibility = visibility
	cp.Callable = src.Callable.clone()
	cp.Callable.MemberKind = kind
	cp.Callable.Overridden = []DescID{id}
	if src.Property != nil {
		prop := *src.Property
		cp.Property = &prop
	}
	return t.alloc(cp)
}

// Each calls fn for every descriptor in allocation order.
func (t *Table) Each(fn func(id DescID, d *Descriptor)) {
	for i := 1; i < len(t.data); i++ {
		fn(DescID(i), &t.data[i])
	}
}

// ContainingClass walks up containers to the nearest class.
func (t *Table) ContainingClass(id DescID) DescID {
	for d := t.Get(id); d != nil; d = t.Get(d.Container) {
		if d.Container == NoDescID {
			return NoDescID
		}
		if c := t.Get(d.Container); c != nil && c.Kind == KindClass {
			return d.Container
		}
	}
	return NoDescID
}

// ClassMembers returns the member list of a class in declaration order.
func (t *Table) ClassMembers(class DescID) []DescID {
	d := t.Get(class)
	if d == nil || d.Class == nil {
		return nil
	}
	return d.Class.Members
}
