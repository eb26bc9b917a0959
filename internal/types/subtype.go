package types

// maxSubtypeDepth bounds supertype walks so that cyclic hierarchies coming
// from broken input terminate.
const maxSubtypeDepth = 64

// IsSubtype reports a <: b. Error types are compatible with everything.
func (in *Interner) IsSubtype(a, b TypeID) bool {
	return in.subtype(a, b, 0)
}

// Equivalent reports a <: b and b <: a.
func (in *Interner) Equivalent(a, b TypeID) bool {
	return a == b || (in.IsSubtype(a, b) && in.IsSubtype(b, a))
}

func (in *Interner) subtype(a, b TypeID, depth int) bool {
	if a == b {
		return true
	}
	if depth > maxSubtypeDepth {
		return false
	}
	ta, okA := in.Lookup(a)
	tb, okB := in.Lookup(b)
	if !okA || !okB {
		return false
	}
	if ta.Kind == KindError || tb.Kind == KindError {
		return true
	}

	if ta.Kind == KindIntersection {
		for _, part := range ta.Args {
			if in.subtype(part, b, depth+1) {
				return true
			}
		}
		return false
	}
	if tb.Kind == KindIntersection {
		for _, part := range tb.Args {
			if !in.subtype(a, part, depth+1) {
				return false
			}
		}
		return true
	}

	// T! is lenient in both directions: lower bound T as a subtype, T? as a supertype
	if ta.Nullable && !tb.Nullable && !tb.Flexible {
		return false
	}

	switch {
	case ta.Kind == KindNothing:
		return true
	case tb.Kind == KindNothing:
		return false
	case ta.Kind == KindTypeParam:
		if tb.Kind == KindTypeParam && ta.Param == tb.Param {
			return true
		}
		bound := in.paramInfo(a).Bound
		if ta.Nullable {
			bound = in.Nullable(bound)
		}
		return in.subtype(bound, b, depth+1)
	case tb.Kind == KindTypeParam:
		return false
	}

	// both are classes from here on
	if tb.Class == in.MustLookup(in.builtins.Any).Class && len(tb.Args) == 0 {
		return true
	}
	if ta.Class == tb.Class {
		return in.argsSubtype(ta, tb, depth)
	}
	for _, super := range in.directSupertypes(ta) {
		if in.subtype(super, in.coreOf(tb), depth+1) {
			return true
		}
	}
	return false
}

// argsSubtype compares type arguments of two instantiations of one class.
func (in *Interner) argsSubtype(ta, tb Type, depth int) bool {
	if len(ta.Args) != len(tb.Args) {
		// raw use of a generic class: treat as compatible
		return len(ta.Args) == 0 || len(tb.Args) == 0
	}
	params := in.classes[ta.Class].Params
	for i := range ta.Args {
		variance := Invariant
		if i < len(params) {
			if info := in.paramInfo(params[i]); info != nil {
				variance = info.Variance
			}
		}
		x, y := ta.Args[i], tb.Args[i]
		switch variance {
		case Out:
			if !in.subtype(x, y, depth+1) {
				return false
			}
		case In:
			if !in.subtype(y, x, depth+1) {
				return false
			}
		default:
			if !in.subtype(x, y, depth+1) || !in.subtype(y, x, depth+1) {
				return false
			}
		}
	}
	return true
}

// coreOf drops nullability and flexibility, keeping the classifier and arguments.
func (in *Interner) coreOf(t Type) TypeID {
	t.Nullable = false
	t.Flexible = false
	return in.Intern(t)
}

// Supertypes returns the direct supertypes of id with type arguments substituted.
func (in *Interner) Supertypes(id TypeID) []TypeID {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindClass {
		return nil
	}
	return in.directSupertypes(t)
}

func (in *Interner) directSupertypes(t Type) []TypeID {
	info := &in.classes[t.Class]
	anyClass := in.MustLookup(in.builtins.Any).Class
	if len(info.Supertypes) == 0 {
		if t.Class == anyClass {
			return nil
		}
		return []TypeID{in.builtins.Any}
	}
	if len(info.Params) == 0 || len(t.Args) != len(info.Params) {
		return info.Supertypes
	}
	subst := make(map[TypeID]TypeID, len(info.Params))
	for i, p := range info.Params {
		subst[p] = t.Args[i]
	}
	out := make([]TypeID, len(info.Supertypes))
	for i, s := range info.Supertypes {
		out[i] = in.Substitute(s, subst)
	}
	return out
}
