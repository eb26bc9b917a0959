package types

// Substitute replaces type parameters according to subst. Nullability of the
// replaced occurrence is preserved: T? with T := String gives String?.
func (in *Interner) Substitute(id TypeID, subst map[TypeID]TypeID) TypeID {
	if len(subst) == 0 {
		return id
	}
	t, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch t.Kind {
	case KindTypeParam:
		key := id
		if t.Nullable {
			bare := t
			bare.Nullable = false
			key = in.Intern(bare)
		}
		repl, found := subst[key]
		if !found {
			return id
		}
		if t.Nullable {
			return in.Nullable(repl)
		}
		return repl
	case KindClass, KindIntersection:
		if len(t.Args) == 0 {
			return id
		}
		args := make([]TypeID, len(t.Args))
		changed := false
		for i, a := range t.Args {
			args[i] = in.Substitute(a, subst)
			changed = changed || args[i] != a
		}
		if !changed {
			return id
		}
		if t.Kind == KindIntersection {
			out := args[0]
			for _, a := range args[1:] {
				out = in.Intersect(out, a)
			}
			if t.Nullable {
				out = in.Nullable(out)
			}
			return out
		}
		t.Args = args
		return in.Intern(t)
	}
	return id
}

// SubstituteBounds replaces each of params by its upper bound. Bounds that
// mention other parameters of the same list are resolved as well.
func (in *Interner) SubstituteBounds(id TypeID, params []TypeID) TypeID {
	if len(params) == 0 {
		return id
	}
	subst := make(map[TypeID]TypeID, len(params))
	for _, p := range params {
		if info := in.paramInfo(p); info != nil {
			subst[p] = info.Bound
		}
	}
	// a chain T1 : T2, T2 : T3 ... needs at most len(params) rounds
	out := id
	for range params {
		next := in.Substitute(out, subst)
		if next == out {
			break
		}
		out = next
	}
	return out
}

// UpperBound returns the bound of a type parameter, or id itself otherwise.
func (in *Interner) UpperBound(id TypeID) TypeID {
	if info := in.paramInfo(id); info != nil {
		return info.Bound
	}
	return id
}
