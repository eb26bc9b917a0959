// Package ctorcheck finds constructor code that lets the receiver escape, or
// calls into members, before every non-null property has been initialized.
package ctorcheck

import (
	"fmt"

	"flowsema/internal/cfg"
	"flowsema/internal/dataflow"
	"flowsema/internal/descriptors"
	"flowsema/internal/diag"
	"flowsema/internal/types"
)

// Request describes one pseudocode graph to check.
//
// The graph belongs either to a class (primary constructor together with
// property initializers and init blocks) or to a secondary constructor; its
// Decl tells which.
type Request struct {
	Table    *descriptors.Table
	Graph    *cfg.Graph
	Reporter diag.Reporter
	// Fragile is the annotation type that exempts an expression. NoTypeID
	// selects the built-in one.
	Fragile types.TypeID
}

// Check reports every dangerous receiver use in req.Graph. It is
// deterministic: diagnostics come out in instruction order.
func Check(req Request) {
	c := newChecker(req)
	if c == nil {
		return
	}
	c.run()
}

type checker struct {
	Request
	in    *types.Interner
	class descriptors.DescID
	open  bool

	// fields holds one value per tracked property, in declaration order.
	// Its nullability reads NULL until the property is written on every
	// path and NOT_NULL after.
	fields  []field
	values  *dataflow.Values
	written dataflow.ValueID

	openReported map[cfg.ElementID]struct{}
}

type field struct {
	prop  descriptors.DescID
	value dataflow.ValueID
}

func newChecker(req Request) *checker {
	if req.Table == nil || req.Graph == nil {
		return nil
	}
	c := &checker{
		Request:      req,
		in:           req.Table.Types(),
		openReported: make(map[cfg.ElementID]struct{}),
	}
	if c.Fragile == types.NoTypeID {
		c.Fragile = c.in.Builtins().Fragile
	}

	d := req.Table.Get(req.Graph.Decl)
	switch {
	case d == nil:
		return nil
	case d.Kind == descriptors.KindClass:
		c.class = req.Graph.Decl
	case d.Kind == descriptors.KindConstructor:
		c.class = d.Container
	default:
		return nil
	}
	c.open = req.Table.IsOpenClass(c.class)

	c.values = dataflow.NewValues(c.in)
	c.written = c.values.NewWithNullability(dataflow.ValueExpression, "<init>", c.in.Builtins().Any, true, dataflow.NotNull)
	// a secondary constructor runs after the primary one has initialized
	// everything it is going to
	if d.Kind == descriptors.KindClass {
		c.trackProperties()
	}
	return c
}

func (c *checker) trackProperties() {
	for _, m := range c.Table.ClassMembers(c.class) {
		d := c.Table.Get(m)
		if d.Kind != descriptors.KindProperty || d.Property == nil || !d.Property.HasBackingField {
			continue
		}
		if d.MemberKind() != descriptors.Declaration || c.in.IsMarkedNullable(d.Callable.Return) {
			continue
		}
		v := c.values.NewWithNullability(dataflow.ValueBackingField, c.Table.Name(m), d.Callable.Return, true, dataflow.Null)
		c.fields = append(c.fields, field{prop: m, value: v})
	}
}

func (c *checker) run() {
	g := c.Graph
	res := cfg.Forward(g, cfg.Analysis[*dataflow.Snapshot]{
		Entry:    dataflow.Empty(c.values),
		Transfer: c.transfer,
		Join:     (*dataflow.Snapshot).Or,
		Equal:    (*dataflow.Snapshot).Equal,
	})
	res.Visit(func(id cfg.InstrID, in *dataflow.Snapshot) {
		ins := g.Instr(id)
		// nested declarations are checked on their own
		if ins.Owner != cfg.RootGraph {
			return
		}
		switch ins.Kind {
		case cfg.InstrRead:
			c.checkRead(ins, in)
		case cfg.InstrMagic:
			c.checkMagic(ins, in)
		}
	})
}

func (c *checker) transfer(id cfg.InstrID, in *dataflow.Snapshot) *dataflow.Snapshot {
	ins := c.Graph.Instr(id)
	if ins.Kind != cfg.InstrWrite || ins.Owner != cfg.RootGraph {
		return in
	}
	if f, ok := c.fieldOf(ins); ok {
		return in.Assign(f.value, c.written)
	}
	return in
}

// fieldOf finds the tracked property a write stores into: through the
// resolved element first, by the target value's name otherwise.
func (c *checker) fieldOf(ins *cfg.Instr) (field, bool) {
	target := descriptors.NoDescID
	if el := c.Graph.Element(ins.Element); el != nil {
		switch el.Kind {
		case cfg.ElemNameRef:
			target = el.Target
		case cfg.ElemQualified:
			if sel := c.Graph.Element(el.Selector); sel != nil {
				target = sel.Target
			}
		}
	}
	for _, f := range c.fields {
		if target != descriptors.NoDescID && f.prop == target {
			return f, true
		}
	}
	if target != descriptors.NoDescID || c.Graph.Values == nil {
		return field{}, false
	}
	v := c.Graph.Values.Get(ins.Write.Target)
	if v == nil || (v.Kind != dataflow.ValueProperty && v.Kind != dataflow.ValueBackingField) {
		return field{}, false
	}
	for _, f := range c.fields {
		if c.Table.Name(f.prop) == v.Name {
			return f, true
		}
	}
	return field{}, false
}

// uninitialized returns the first tracked property that may still be unset.
func (c *checker) uninitialized(in *dataflow.Snapshot) (descriptors.DescID, bool) {
	for _, f := range c.fields {
		if in.CollectedNullability(f.value).CanBeNull() {
			return f.prop, true
		}
	}
	return descriptors.NoDescID, false
}

func (c *checker) checkRead(ins *cfg.Instr, in *dataflow.Snapshot) {
	el := c.Graph.Element(ins.Element)
	if el == nil || el.Kind != cfg.ElemThis {
		return
	}
	if c.safeThisUsage(ins.Element) || c.markedAsFragile(el) {
		return
	}
	if prop, ok := c.uninitialized(in); ok {
		msg := fmt.Sprintf("leaking 'this' in constructor: property %s is not initialized yet", c.Table.Name(prop))
		c.report(diag.SemaDangerousThisInConstructor, el, msg, prop)
		return
	}
	if c.open {
		msg := fmt.Sprintf("leaking 'this' in constructor of non-final class %s", c.Table.Name(c.class))
		diag.ReportWarning(c.Reporter, diag.SemaDangerousThisInOpenClassConstructor, el.Span, msg).Emit()
	}
}

func (c *checker) checkMagic(ins *cfg.Instr, in *dataflow.Snapshot) {
	el := c.Graph.Element(ins.Element)
	if el == nil {
		return
	}
	switch el.Kind {
	case cfg.ElemCall:
		if c.safeCallUsage(el) || c.markedAsFragile(el) {
			return
		}
	case cfg.ElemNameRef:
		if c.markedAsFragile(el) || c.checkReferenceSafety(ins.Element) {
			return
		}
	default:
		return
	}
	if prop, ok := c.uninitialized(in); ok {
		msg := fmt.Sprintf("calling %s in constructor: property %s is not initialized yet", el.Text, c.Table.Name(prop))
		c.report(diag.SemaDangerousMethodCallInConstructor, el, msg, prop)
		return
	}
	if c.open {
		msg := fmt.Sprintf("calling %s in constructor of non-final class %s", el.Text, c.Table.Name(c.class))
		diag.ReportWarning(c.Reporter, diag.SemaDangerousMethodCallInOpenClassConstructor, el.Span, msg).Emit()
	}
}

// report emits an uninitialized-property diagnostic: an error in a final
// class, a warning in an open one.
func (c *checker) report(code diag.Code, el *cfg.Element, msg string, prop descriptors.DescID) {
	b := diag.ReportError
	if c.open {
		b = diag.ReportWarning
	}
	b(c.Reporter, code, el.Span, msg).
		WithNote(c.Table.Get(prop).Span, "declared here").
		Emit()
}

func (c *checker) safeThisUsage(id cfg.ElementID) bool {
	el := c.Graph.Element(id)
	if el.Target != c.class {
		return true
	}
	parent := c.Graph.Element(el.Parent)
	if parent == nil {
		return false
	}
	switch parent.Kind {
	case cfg.ElemQualified:
		if sel := c.Graph.Element(parent.Selector); sel != nil && sel.Kind == cfg.ElemNameRef {
			return c.checkReferenceSafety(parent.Selector)
		}
	case cfg.ElemEquality, cfg.ElemIdentity:
		return true
	}
	return false
}

// safeCallUsage accepts calls of functions that are not members of the class,
// inherited members included.
func (c *checker) safeCallUsage(el *cfg.Element) bool {
	d := c.Table.Get(el.Target)
	if d == nil || d.Kind != descriptors.KindFunction {
		return false
	}
	owner := c.Table.ContainingClass(el.Target)
	if owner == descriptors.NoDescID {
		return true
	}
	return owner != c.class && !c.Table.IsSubclass(c.class, owner)
}

func (c *checker) checkReferenceSafety(id cfg.ElementID) bool {
	el := c.Graph.Element(id)
	if el.BackingField {
		return true
	}
	d := c.Table.Get(el.Target)
	if d == nil || d.Kind != descriptors.KindProperty {
		return true
	}
	if c.open && d.Modality.IsOverridable() {
		if _, seen := c.openReported[id]; !seen {
			c.openReported[id] = struct{}{}
			msg := fmt.Sprintf("accessing non-final property %s in constructor", c.Table.Name(el.Target))
			diag.ReportWarning(c.Reporter, diag.SemaDangerousOpenPropertyAccess, el.Span, msg).Emit()
		}
		return true
	}
	if c.Table.ContainingClass(el.Target) != c.class {
		return true
	}
	p := d.Property
	if p == nil {
		return true
	}
	return p.DefaultGetter && (!p.Mutable || p.DefaultSetter)
}

func (c *checker) markedAsFragile(el *cfg.Element) bool {
	for _, a := range el.Annotations {
		if c.in.IsError(a) {
			continue
		}
		if c.in.Equivalent(c.in.NotNull(a), c.Fragile) {
			return true
		}
	}
	return false
}
