package descriptors

import (
	"slices"

	"flowsema/internal/types"
)

// MembersByType lists the callable members visible on a value of type typ:
// the class's own members first, then inherited members that none of the
// already collected members overrides, walking supertypes in declaration
// order. Nested classes and constructors are not members in this sense.
func (t *Table) MembersByType(typ types.TypeID) []DescID {
	class, ok := t.ClassOf(typ)
	if !ok {
		return nil
	}
	return t.membersOf(class, make(map[DescID]struct{}))
}

func (t *Table) membersOf(class DescID, visiting map[DescID]struct{}) []DescID {
	if _, ok := visiting[class]; ok {
		return nil
	}
	visiting[class] = struct{}{}
	defer delete(visiting, class)

	d := t.Get(class)
	if d == nil || d.Class == nil {
		return nil
	}
	out := make([]DescID, 0, len(d.Class.Members))
	for _, m := range d.Class.Members {
		if md := t.Get(m); md.IsCallable() && md.Kind != KindConstructor {
			out = append(out, m)
		}
	}
	own := len(out)
	for _, st := range d.Class.Supertypes {
		super, ok := t.ClassOf(st)
		if !ok {
			continue
		}
		for _, m := range t.membersOf(super, visiting) {
			if slices.Contains(out, m) || t.hiddenBy(m, out[:own]) {
				continue
			}
			out = append(out, m)
		}
	}
	return out
}

func (t *Table) hiddenBy(inherited DescID, own []DescID) bool {
	for _, m := range own {
		if t.overridesByLink(m, inherited, make(map[DescID]struct{})) || t.HaveSameSignature(m, inherited) {
			return true
		}
	}
	return false
}

// FirstClassSupertype returns the first supertype of class that is not an
// interface, if any.
func (t *Table) FirstClassSupertype(class DescID) (types.TypeID, bool) {
	d := t.Get(class)
	if d == nil || d.Class == nil {
		return types.NoTypeID, false
	}
	for _, st := range d.Class.Supertypes {
		if t.types.IsError(st) || t.types.IsInterface(st) {
			continue
		}
		if _, ok := t.ClassOf(st); ok {
			return st, true
		}
	}
	return types.NoTypeID, false
}

// IsOpenClass reports whether class can be subclassed.
func (t *Table) IsOpenClass(class DescID) bool {
	d := t.Get(class)
	return d != nil && d.Class != nil && d.Modality != Final
}
