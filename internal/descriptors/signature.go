package descriptors

import (
	"flowsema/internal/source"
	"flowsema/internal/types"
)

// HaveSameSignature reports whether a and b would clash or override each
// other: same variant, name, type-parameter count, extension receiver and
// value-parameter types. Type parameters of b are mapped positionally onto
// those of a. Return types are ignored.
func (t *Table) HaveSameSignature(a, b DescID) bool {
	da, db := t.Get(a), t.Get(b)
	if !da.IsCallable() || !db.IsCallable() {
		return false
	}
	if a == b {
		return true
	}
	if variantOf(da.Kind) != variantOf(db.Kind) || t.callName(da) != t.callName(db) {
		return false
	}
	ca, cb := da.Callable, db.Callable
	if len(ca.TypeParams) != len(cb.TypeParams) || len(ca.ValueParams) != len(cb.ValueParams) {
		return false
	}
	if (ca.ExtReceiver == types.NoTypeID) != (cb.ExtReceiver == types.NoTypeID) {
		return false
	}

	var subst map[types.TypeID]types.TypeID
	if len(cb.TypeParams) > 0 {
		subst = make(map[types.TypeID]types.TypeID, len(cb.TypeParams))
		for i, p := range cb.TypeParams {
			subst[p] = ca.TypeParams[i]
		}
	}
	same := func(x, y types.TypeID) bool {
		return t.types.Equivalent(x, t.types.Substitute(y, subst))
	}

	if ca.ExtReceiver != types.NoTypeID && !same(ca.ExtReceiver, cb.ExtReceiver) {
		return false
	}
	for i := range ca.ValueParams {
		if ca.ValueParams[i].IsVararg() != cb.ValueParams[i].IsVararg() {
			return false
		}
		if !same(ca.ValueParams[i].Type, cb.ValueParams[i].Type) {
			return false
		}
	}
	return true
}

// callName is the name a callable is invoked by; constructors answer to
// their class.
func (t *Table) callName(d *Descriptor) source.StringID {
	if d.Kind == KindConstructor {
		if c := t.Get(d.Container); c != nil {
			return c.Name
		}
	}
	return d.Name
}

// functions and constructors share one namespace, properties another
func variantOf(k Kind) Kind {
	if k == KindConstructor {
		return KindFunction
	}
	return k
}

// IsSubclass reports whether class sub inherits from class super, directly
// or transitively. A class is not its own subclass.
func (t *Table) IsSubclass(sub, super DescID) bool {
	if sub == super {
		return false
	}
	seen := make(map[DescID]struct{})
	var walk func(DescID) bool
	walk = func(c DescID) bool {
		if _, ok := seen[c]; ok {
			return false
		}
		seen[c] = struct{}{}
		d := t.Get(c)
		if d == nil || d.Class == nil {
			return false
		}
		for _, st := range d.Class.Supertypes {
			next, ok := t.ClassOf(st)
			if !ok {
				continue
			}
			if next == super || walk(next) {
				return true
			}
		}
		return false
	}
	return walk(sub)
}

// Overrides reports whether sub overrides super, either through explicit
// overridden links (followed transitively) or structurally: sub lives in a
// strict subclass of super's class and has the same signature.
func (t *Table) Overrides(sub, super DescID) bool {
	if sub == super {
		return false
	}
	if t.overridesByLink(sub, super, make(map[DescID]struct{})) {
		return true
	}
	ds, dp := t.Get(sub), t.Get(super)
	if !ds.IsCallable() || !dp.IsCallable() || ds.Kind == KindConstructor {
		return false
	}
	if !dp.IsOverridable() {
		return false
	}
	cs, cp := t.ContainingClass(sub), t.ContainingClass(super)
	if cs == NoDescID || cp == NoDescID || !t.IsSubclass(cs, cp) {
		return false
	}
	return t.HaveSameSignature(sub, super)
}

func (t *Table) overridesByLink(sub, super DescID, seen map[DescID]struct{}) bool {
	if _, ok := seen[sub]; ok {
		return false
	}
	seen[sub] = struct{}{}
	d := t.Get(sub)
	if !d.IsCallable() {
		return false
	}
	for _, o := range d.Callable.Overridden {
		if o == super || t.overridesByLink(o, super, seen) {
			return true
		}
	}
	return false
}

// IsGeneric reports whether a callable declares type parameters.
func (t *Table) IsGeneric(id DescID) bool {
	return len(t.Get(id).TypeParams()) > 0
}
