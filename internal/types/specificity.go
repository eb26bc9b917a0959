package types

// Relation is the outcome of comparing two types for overload specificity
// beyond plain subtyping.
type Relation uint8

const (
	DontKnow Relation = iota
	LessSpecific
)

func (r Relation) String() string {
	if r == LessSpecific {
		return "less-specific"
	}
	return "dont-know"
}

// Specificity relates specific to general. The only decided case is a
// flexible primitive, which is less specific than the same primitive without
// a platform flag: foo(Int!) loses to foo(Int). Generic instantiations of one
// class are compared argument-wise along the declared variance.
func (in *Interner) Specificity(specific, general TypeID) Relation {
	return in.specificity(specific, general, 0)
}

func (in *Interner) specificity(specific, general TypeID, depth int) Relation {
	if depth > maxSubtypeDepth {
		return DontKnow
	}
	ts, okS := in.Lookup(specific)
	tg, okG := in.Lookup(general)
	if !okS || !okG || ts.Kind != KindClass || tg.Kind != KindClass {
		return DontKnow
	}
	if ts.Flexible {
		if !in.IsPrimitive(specific) || !in.IsPrimitive(general) {
			return DontKnow
		}
		// Int! vs Int! / Int?: undecided
		if tg.Flexible || tg.Nullable {
			return DontKnow
		}
		return LessSpecific
	}
	if ts.Class != tg.Class || len(ts.Args) == 0 || len(ts.Args) != len(tg.Args) {
		return DontKnow
	}
	params := in.classes[ts.Class].Params
	for i := range ts.Args {
		variance := Invariant
		if i < len(params) {
			if info := in.paramInfo(params[i]); info != nil {
				variance = info.Variance
			}
		}
		var rel Relation
		if variance == In {
			rel = in.specificity(tg.Args[i], ts.Args[i], depth+1)
		} else {
			rel = in.specificity(ts.Args[i], tg.Args[i], depth+1)
		}
		if rel == LessSpecific {
			return LessSpecific
		}
	}
	return DontKnow
}

// NumericWidens implements the implicit widening table used to prefer
// narrower numeric overloads: Double over Float; Int over Long, Byte and
// Short; Short over Byte. Only exact non-null types take part.
func (in *Interner) NumericWidens(specific, general TypeID) bool {
	b := in.builtins
	switch specific {
	case b.Double:
		return general == b.Float
	case b.Int:
		return general == b.Long || general == b.Byte || general == b.Short
	case b.Short:
		return general == b.Byte
	}
	return false
}

// TypeMoreSpecific reports whether specific is at least as specific as general:
// it must be a subtype (or win by numeric widening), and must not be less
// specific while general is not.
func (in *Interner) TypeMoreSpecific(specific, general TypeID) bool {
	if !in.IsSubtype(specific, general) && !in.NumericWidens(specific, general) {
		return false
	}
	sThanG := in.Specificity(specific, general)
	gThanS := in.Specificity(general, specific)
	return !(sThanG == LessSpecific && gThanS != LessSpecific)
}
