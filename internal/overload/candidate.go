package overload

import (
	"fmt"

	"flowsema/internal/descriptors"
	"flowsema/internal/types"
)

// SiteID identifies the call expression a candidate was built for.
type SiteID uint32

// NoParam marks an argument that is not bound to any parameter.
const NoParam = -1

// Candidate is one trial binding of a call site to a descriptor.
type Candidate struct {
	Desc descriptors.DescID
	Site SiteID
	// Args maps each explicit argument, in source order, to the index of the
	// parameter it was bound to.
	Args []int
	// VarargCount counts arguments bound to a vararg parameter.
	VarargCount int
	// DefaultCount counts parameters left to their default value.
	DefaultCount int
	// Variable is set for variable-as-function calls: the property whose
	// value is invoked. Desc is then the invoke function.
	Variable descriptors.DescID
}

// InvariantError reports candidates that could never be compared: they come
// from different call sites or disagree on the argument list. It signals a
// bug upstream and is raised with panic.
type InvariantError struct {
	A, B descriptors.DescID
	Msg  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("overload invariant violated (#%d vs #%d): %s", e.A, e.B, e.Msg)
}

func invariant(a, b *Candidate, format string, args ...any) {
	panic(&InvariantError{A: a.Desc, B: b.Desc, Msg: fmt.Sprintf(format, args...)})
}

// view is a candidate prepared for comparison. Parameter types may have had
// their type parameters replaced by upper bounds.
type view struct {
	*Candidate
	desc     *descriptors.Descriptor
	generic  bool
	receiver types.TypeID
	argTypes []types.TypeID
}

func (r *Resolver) prepare(c *Candidate, substituteBounds bool) view {
	d := r.table.Get(c.Desc)
	v := view{Candidate: c, desc: d, generic: len(d.TypeParams()) > 0}
	subst := func(t types.TypeID) types.TypeID {
		if substituteBounds && v.generic {
			return r.types.SubstituteBounds(t, d.TypeParams())
		}
		return t
	}
	if d.IsCallable() && d.Callable.ExtReceiver != types.NoTypeID {
		v.receiver = subst(d.Callable.ExtReceiver)
	}
	params := d.ValueParams()
	v.argTypes = make([]types.TypeID, len(c.Args))
	for i, p := range c.Args {
		if p < 0 || p >= len(params) {
			v.argTypes[i] = types.NoTypeID
			continue
		}
		v.argTypes[i] = subst(params[p].ArgumentType())
	}
	return v
}
