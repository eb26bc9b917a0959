package overload

import (
	"flowsema/internal/descriptors"
	"flowsema/internal/types"
)

type decision uint8

const (
	undecided decision = iota
	moreSpecific
	lessSpecific
)

func (d decision) decided() bool { return d != undecided }
func (d decision) result() bool  { return d == moreSpecific }

// byScripts prefers declarations from scripts with a higher priority.
func (r *Resolver) byScripts(f, g descriptors.DescID) decision {
	sf := r.table.Get(r.table.Get(f).Container)
	sg := r.table.Get(r.table.Get(g).Container)
	if sf == nil || sg == nil || sf.Script == nil || sg.Script == nil {
		return undecided
	}
	switch {
	case sf.Script.Priority > sg.Script.Priority:
		return moreSpecific
	case sf.Script.Priority < sg.Script.Priority:
		return lessSpecific
	}
	return undecided
}

func (r *Resolver) byOverride(f, g descriptors.DescID) decision {
	switch {
	case r.table.Overrides(f, g):
		return moreSpecific
	case r.table.Overrides(g, f):
		return lessSpecific
	}
	return undecided
}

// byReceiver only ever rules a candidate out: a receiver that is not more
// specific loses, anything else is left to later steps.
func (r *Resolver) byReceiver(f, g types.TypeID) decision {
	if f != types.NoTypeID && g != types.NoTypeID && !r.types.TypeMoreSpecific(f, g) {
		return lessSpecific
	}
	return undecided
}

// moreSpecificCall is the comparison for calls with value arguments. plain
// views carry declared parameter types, bounded views the same types with
// type parameters replaced by their bounds.
func (r *Resolver) moreSpecificCall(f, g, fb, gb view, discriminateGenerics bool) bool {
	if d := r.byScripts(f.Desc, g.Desc); d.decided() {
		return d.result()
	}

	substitute := false
	if discriminateGenerics {
		switch {
		case !f.generic && g.generic:
			return true
		case f.generic && !g.generic:
			return false
		}
		substitute = f.generic && g.generic
	}
	if substitute {
		f, g = fb, gb
	}

	if d := r.byOverride(f.Desc, g.Desc); d.decided() {
		return d.result()
	}
	if d := r.byReceiver(f.receiver, g.receiver); d.decided() {
		return d.result()
	}

	if f.Site != g.Site {
		invariant(f.Candidate, g.Candidate, "candidates belong to different call sites %d and %d", f.Site, g.Site)
	}
	if len(f.Args) != len(g.Args) {
		invariant(f.Candidate, g.Candidate, "different number of explicit arguments: %d vs %d", len(f.Args), len(g.Args))
	}
	for i := range f.argTypes {
		tf, tg := f.argTypes[i], g.argTypes[i]
		if tf == types.NoTypeID {
			invariant(f.Candidate, g.Candidate, "argument %d is not bound in #%d", i, f.Desc)
		}
		if tg == types.NoTypeID {
			invariant(f.Candidate, g.Candidate, "argument %d is not bound in #%d", i, g.Desc)
		}
		if !r.types.TypeMoreSpecific(tf, tg) {
			return false
		}
	}

	if f.VarargCount > g.VarargCount {
		return false
	}
	if f.DefaultCount > g.DefaultCount {
		return false
	}
	return true
}

// moreSpecificVariable compares the variables of variable-as-function calls.
func (r *Resolver) moreSpecificVariable(f, g descriptors.DescID, discriminateGenerics, bounded bool) bool {
	if d := r.byScripts(f, g); d.decided() {
		return d.result()
	}
	fGeneric, gGeneric := r.table.IsGeneric(f), r.table.IsGeneric(g)
	if discriminateGenerics {
		switch {
		case !fGeneric && gGeneric:
			return true
		case fGeneric && !gGeneric:
			return false
		case fGeneric && gGeneric:
			return r.moreSpecificVariable(f, g, false, true)
		}
	}
	if d := r.byOverride(f, g); d.decided() {
		return d.result()
	}
	if d := r.byReceiver(r.receiverOf(f, bounded), r.receiverOf(g, bounded)); d.decided() {
		return d.result()
	}
	return true
}

func (r *Resolver) receiverOf(id descriptors.DescID, bounded bool) types.TypeID {
	d := r.table.Get(id)
	if !d.IsCallable() || d.Callable.ExtReceiver == types.NoTypeID {
		return types.NoTypeID
	}
	if bounded {
		return r.types.SubstituteBounds(d.Callable.ExtReceiver, d.TypeParams())
	}
	return d.Callable.ExtReceiver
}

// moreSpecificReference compares candidates of a callable reference, where
// there are no arguments and whole parameter lists are matched.
func (r *Resolver) moreSpecificReference(f, g view) bool {
	if d := r.byScripts(f.Desc, g.Desc); d.decided() {
		return d.result()
	}
	if d := r.byOverride(f.Desc, g.Desc); d.decided() {
		return d.result()
	}
	if d := r.byReceiver(f.receiver, g.receiver); d.decided() {
		return d.result()
	}
	fp, gp := f.desc.ValueParams(), g.desc.ValueParams()
	if len(fp) != len(gp) {
		return false
	}
	for i := range fp {
		if fp[i].IsVararg() != gp[i].IsVararg() {
			return false
		}
		if !r.types.TypeMoreSpecific(fp[i].ArgumentType(), gp[i].ArgumentType()) {
			return false
		}
	}
	return true
}
