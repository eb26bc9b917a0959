package fixture

import (
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"

	"flowsema/internal/cfg"
	"flowsema/internal/dataflow"
	"flowsema/internal/descriptors"
	"flowsema/internal/diag"
	"flowsema/internal/types"
)

// graphLoader turns the pseudocode of one graph into cfg instructions.
//
//	- this: qualified x        # this.x
//	- call: foo                # implicit-receiver call
//	- ref: {name: x, field: true}
//	- write: {to: x, from: s}
//	- if: {eq: [x, null], goto: L1}
//	- probe: {value: x, label: after}
//	- label: L1
//	- nested: {name: lambda, code: [...]}
type graphLoader struct {
	*loader
	b      *cfg.Builder
	values *dataflow.Values
	class  descriptors.DescID
	scope  map[string]types.TypeID

	vals   map[string]dataflow.ValueID
	labels map[string]cfg.Label
	bound  map[string]bool
	failed bool
}

func (l *loader) graph(d graphDoc) *cfg.Graph {
	decl := descriptors.NoDescID
	if d.Decl.Value != "" {
		id, ok := l.resolve(d.Decl, descriptors.NoDescID)
		if !ok {
			return nil
		}
		decl = id
	}
	name := d.Name.Value
	if name == "" {
		name = d.Decl.Value
	}
	if name == "" {
		name = fmt.Sprintf("graph%d", len(l.fix.Graphs)+1)
	}

	values := dataflow.NewValues(l.in)
	g := &graphLoader{
		loader: l,
		b:      cfg.NewBuilder(name, decl, values),
		values: values,
		class:  l.enclosingClass(decl),
		vals:   make(map[string]dataflow.ValueID),
		labels: make(map[string]cfg.Label),
		bound:  make(map[string]bool),
	}
	g.scope = l.scopeOf(g.class)
	for _, v := range d.Values {
		g.declare(v)
	}
	g.code(d.Code, decl)
	for _, name := range slices.Sorted(maps.Keys(g.bound)) {
		if !g.bound[name] {
			l.errorf(diag.IOFixtureInvalid, str{Value: name}, "label %s is never placed", name)
			g.failed = true
		}
	}
	if g.failed {
		return nil
	}

	built, err := g.b.Build()
	if err != nil {
		l.errorf(diag.IOFixtureInvalid, d.Decl, "graph %s: %v", name, err)
		return nil
	}
	return built
}

// enclosingClass is the class whose members unqualified names resolve to.
func (l *loader) enclosingClass(decl descriptors.DescID) descriptors.DescID {
	d := l.tab.Get(decl)
	if d == nil {
		return descriptors.NoDescID
	}
	if d.Kind == descriptors.KindClass {
		return decl
	}
	return l.tab.ContainingClass(decl)
}

func (l *loader) scopeOf(class descriptors.DescID) map[string]types.TypeID {
	for _, c := range l.fix.Classes {
		if c.ID == class {
			return c.Scope
		}
	}
	return nil
}

func (g *graphLoader) declare(v valueDoc) {
	if _, dup := g.vals[v.Name.Value]; dup || v.Name.Value == "" {
		g.errorf(diag.IOFixtureDuplicate, v.Name, "value %q is already declared", v.Name.Value)
		return
	}
	typ, _ := g.typeOf(v.Type, g.scope)
	kind, ok := valueKinds[v.Kind.Value]
	if !ok {
		g.errorf(diag.IOFixtureInvalid, v.Kind, "unknown value kind %q", v.Kind.Value)
	}
	predictable := v.Predictable == nil || *v.Predictable
	g.vals[v.Name.Value] = g.values.New(kind, v.Name.Value, typ, predictable)
}

var valueKinds = map[string]dataflow.ValueKind{
	"":           dataflow.ValueLocal,
	"local":      dataflow.ValueLocal,
	"parameter":  dataflow.ValueParameter,
	"property":   dataflow.ValueProperty,
	"field":      dataflow.ValueBackingField,
	"receiver":   dataflow.ValueReceiver,
	"expression": dataflow.ValueExpression,
	"constant":   dataflow.ValueConstant,
}

// value looks a value up; `null` is always available.
func (g *graphLoader) value(s str) (dataflow.ValueID, bool) {
	if v, ok := g.vals[s.Value]; ok {
		return v, true
	}
	if s.Value == "null" {
		v := g.values.New(dataflow.ValueConstant, "null", g.in.Builtins().NullableNothing, true)
		g.vals["null"] = v
		return v, true
	}
	g.errorf(diag.IOFixtureUnknownName, s, "unknown value %s", s.Value)
	g.failed = true
	return dataflow.NoValueID, false
}

// member resolves a name against the enclosing class without reporting.
func (g *graphLoader) member(name string) descriptors.DescID {
	if id, ok := g.ids[name]; ok {
		return id
	}
	if g.class == descriptors.NoDescID {
		return descriptors.NoDescID
	}
	for _, m := range g.tab.ClassMembers(g.class) {
		if g.tab.Name(m) == name {
			return m
		}
	}
	for _, m := range g.tab.MembersByType(g.tab.Get(g.class).Class.Type) {
		if g.tab.Name(m) == name {
			return m
		}
	}
	return descriptors.NoDescID
}

func (g *graphLoader) label(s str) cfg.Label {
	if l, ok := g.labels[s.Value]; ok {
		return l
	}
	l := g.b.NewLabel()
	g.labels[s.Value] = l
	g.bound[s.Value] = false
	return l
}

func (g *graphLoader) annotations(refs []str) []types.TypeID {
	var out []types.TypeID
	for _, r := range refs {
		if t, ok := g.typeOf(r, g.scope); ok {
			out = append(out, t)
		}
	}
	return out
}

// Instructions --------------------------------------------------------------

func (g *graphLoader) code(code []instr, decl descriptors.DescID) {
	for _, ins := range code {
		g.instr(ins, decl)
	}
}

func (g *graphLoader) instr(ins instr, decl descriptors.DescID) {
	op := str{Value: ins.Op, Line: ins.Line, Col: ins.Col}
	var err error
	switch ins.Op {
	case "this":
		err = g.this(op, ins.Arg)
	case "call":
		err = g.call(op, ins.Arg)
	case "ref":
		err = g.ref(op, ins.Arg)
	case "read":
		err = g.read(op, ins.Arg)
	case "write":
		err = g.write(op, ins.Arg)
	case "if":
		err = g.cond(op, ins.Arg)
	case "goto":
		var target str
		if err = decodeArg(ins.Arg, &target); err == nil {
			g.b.Jump(g.label(target))
		}
	case "label":
		var name str
		if err = decodeArg(ins.Arg, &name); err == nil {
			if g.bound[name.Value] {
				g.errorf(diag.IOFixtureDuplicate, name, "label %s is placed twice", name.Value)
				g.failed = true
				return
			}
			g.b.Bind(g.label(name))
			g.bound[name.Value] = true
		}
	case "mark":
		clear := dataflow.NoValueID
		if ins.Arg != nil {
			var name str
			if err = decodeArg(ins.Arg, &name); err == nil {
				clear, _ = g.value(name)
			}
		}
		g.b.Mark(g.other(op), clear)
	case "probe":
		err = g.probe(op, ins.Arg)
	case "nested":
		err = g.nested(op, ins.Arg, decl)
	case "exit":
		g.b.Exit()
	default:
		g.errorf(diag.IOFixtureInvalid, op, "unknown instruction %q", ins.Op)
		g.failed = true
		return
	}
	if err != nil {
		g.errorf(diag.IOFixtureInvalid, op, "%s: %v", ins.Op, err)
		g.failed = true
	}
}

// decodeArg accepts either a scalar (stored into a *str) or a mapping.
func decodeArg(n *yaml.Node, into any) error {
	if n == nil {
		return fmt.Errorf("missing argument")
	}
	return n.Decode(into)
}

func (g *graphLoader) other(at str) cfg.ElementID {
	return g.b.Element(cfg.Element{Kind: cfg.ElemOther, Span: g.span(at), Text: at.Value})
}

type thisArg struct {
	Context     str   `yaml:"context"`
	Class       str   `yaml:"class"`
	Selector    str   `yaml:"selector"`
	Field       bool  `yaml:"field"`
	Annotations []str `yaml:"annotations"`
}

// this reads the receiver. The context decides what encloses it: an
// argument (default), nothing (bare), a qualified expression, or an
// equality or identity comparison. `qualified x` is a shorthand for
// {context: qualified, selector: x}.
func (g *graphLoader) this(op str, arg *yaml.Node) error {
	var a thisArg
	if arg != nil {
		if arg.Kind == yaml.ScalarNode {
			if err := a.Context.UnmarshalYAML(arg); err != nil {
				return err
			}
			if ctx, sel, ok := cut(a.Context.Value); ok {
				a.Context.Value = ctx
				a.Selector = str{Value: sel, Line: a.Context.Line, Col: a.Context.Col + len(ctx) + 1}
			}
		} else if err := arg.Decode(&a); err != nil {
			return err
		}
	}

	class := g.class
	if a.Class.Value != "" {
		id, ok := g.resolve(a.Class, descriptors.NoDescID)
		if !ok {
			g.failed = true
			return nil
		}
		class = id
	}
	sp := g.span(op)
	el := cfg.Element{Kind: cfg.ElemThis, Span: sp, Text: "this", Target: class, Annotations: g.annotations(a.Annotations)}

	switch a.Context.Value {
	case "", "arg":
		el.Parent = g.b.Element(cfg.Element{Kind: cfg.ElemOther, Span: sp})
	case "bare":
	case "eq":
		el.Parent = g.b.Element(cfg.Element{Kind: cfg.ElemEquality, Span: sp, Text: "=="})
	case "identity":
		el.Parent = g.b.Element(cfg.Element{Kind: cfg.ElemIdentity, Span: sp, Text: "==="})
	case "qualified":
		if a.Selector.Value == "" {
			return fmt.Errorf("qualified receiver needs a selector")
		}
		sel := g.b.Element(cfg.Element{
			Kind:         cfg.ElemNameRef,
			Span:         g.span(a.Selector),
			Text:         a.Selector.Value,
			Target:       g.member(a.Selector.Value),
			BackingField: a.Field,
		})
		el.Parent = g.b.Element(cfg.Element{Kind: cfg.ElemQualified, Span: sp, Text: "this." + a.Selector.Value, Selector: sel})
		g.b.SetParent(sel, el.Parent)
	default:
		return fmt.Errorf("unknown receiver context %q", a.Context.Value)
	}
	g.b.Read(g.b.Element(el), dataflow.NoValueID)
	return nil
}

func cut(s string) (before, after string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

type targetArg struct {
	Target      str   `yaml:"target"`
	Name        str   `yaml:"name"`
	Field       bool  `yaml:"field"`
	Annotations []str `yaml:"annotations"`
}

func (g *graphLoader) targetArg(arg *yaml.Node) (targetArg, error) {
	var a targetArg
	if arg == nil {
		return a, fmt.Errorf("missing argument")
	}
	if arg.Kind == yaml.ScalarNode {
		err := a.Target.UnmarshalYAML(arg)
		return a, err
	}
	if err := arg.Decode(&a); err != nil {
		return a, err
	}
	if a.Target.Value == "" {
		a.Target = a.Name
	}
	return a, nil
}

// call is an implicit-receiver call of a member or a top-level function.
func (g *graphLoader) call(op str, arg *yaml.Node) error {
	a, err := g.targetArg(arg)
	if err != nil {
		return err
	}
	target, ok := g.resolve(a.Target, g.class)
	if !ok {
		g.failed = true
		return nil
	}
	el := g.b.Element(cfg.Element{
		Kind:        cfg.ElemCall,
		Span:        g.span(a.Target),
		Text:        a.Target.Value + "()",
		Target:      target,
		Annotations: g.annotations(a.Annotations),
	})
	g.b.Magic(el, cfg.MagicCall)
	return nil
}

// ref is an implicit-receiver reference to a property.
func (g *graphLoader) ref(op str, arg *yaml.Node) error {
	a, err := g.targetArg(arg)
	if err != nil {
		return err
	}
	target, ok := g.resolve(a.Target, g.class)
	if !ok {
		g.failed = true
		return nil
	}
	el := g.b.Element(cfg.Element{
		Kind:         cfg.ElemNameRef,
		Span:         g.span(a.Target),
		Text:         a.Target.Value,
		Target:       target,
		BackingField: a.Field,
		Annotations:  g.annotations(a.Annotations),
	})
	g.b.Magic(el, cfg.MagicReference)
	return nil
}

func (g *graphLoader) read(op str, arg *yaml.Node) error {
	var name str
	if err := decodeArg(arg, &name); err != nil {
		return err
	}
	if v, ok := g.value(name); ok {
		g.b.Read(g.b.Element(cfg.Element{Kind: cfg.ElemOther, Span: g.span(name), Text: name.Value}), v)
	}
	return nil
}

type writeArg struct {
	To    str       `yaml:"to"`
	From  yaml.Node `yaml:"from"`
	Field bool      `yaml:"field"`
}

// write stores into a value, a property of the enclosing class, or both when
// they share the name.
func (g *graphLoader) write(op str, arg *yaml.Node) error {
	var a writeArg
	if arg == nil {
		return fmt.Errorf("missing argument")
	}
	if arg.Kind == yaml.ScalarNode {
		if err := a.To.UnmarshalYAML(arg); err != nil {
			return err
		}
	} else if err := arg.Decode(&a); err != nil {
		return err
	}

	target := g.vals[a.To.Value]
	prop := g.member(a.To.Value)
	if target == dataflow.NoValueID && prop == descriptors.NoDescID {
		g.errorf(diag.IOFixtureUnknownName, a.To, "unknown write target %s", a.To.Value)
		g.failed = true
		return nil
	}
	source := dataflow.NoValueID
	if from := operand(&a.From); from.Value != "" {
		v, ok := g.value(from)
		if !ok {
			return nil
		}
		source = v
	}
	el := g.b.Element(cfg.Element{
		Kind:         cfg.ElemNameRef,
		Span:         g.span(a.To),
		Text:         a.To.Value,
		Target:       prop,
		BackingField: a.Field,
	})
	g.b.Write(el, target, source)
	return nil
}

// Operands are kept as nodes: yaml skips unmarshalers for null, and null
// is the most common operand.
type condArg struct {
	Eq    []yaml.Node `yaml:"eq"`
	Ne    []yaml.Node `yaml:"ne"`
	Is    []yaml.Node `yaml:"is"`
	IsNot []yaml.Node `yaml:"isnot"`
	Goto  str         `yaml:"goto"`
}

func operand(n *yaml.Node) str {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return str{Value: "null", Line: n.Line, Col: n.Column}
	}
	return str{Value: n.Value, Line: n.Line, Col: n.Column}
}

// cond is a conditional jump. Without a comparison the condition is opaque
// and both edges carry the same facts.
func (g *graphLoader) cond(op str, arg *yaml.Node) error {
	var a condArg
	if err := decodeArg(arg, &a); err != nil {
		return err
	}
	if a.Goto.Value == "" {
		return fmt.Errorf("conditional jump needs goto")
	}
	c := cfg.Condition{Kind: cfg.CondOpaque}
	var operands []yaml.Node
	switch {
	case a.Eq != nil:
		c.Kind, operands = cfg.CondEq, a.Eq
	case a.Ne != nil:
		c.Kind, operands = cfg.CondNotEq, a.Ne
	case a.Is != nil:
		c.Kind, operands = cfg.CondIs, a.Is
	case a.IsNot != nil:
		c.Kind, operands = cfg.CondNotIs, a.IsNot
	}
	if c.Kind != cfg.CondOpaque {
		if len(operands) != 2 {
			return fmt.Errorf("%s needs two operands", c.Kind)
		}
		left, ok := g.value(operand(&operands[0]))
		if !ok {
			return nil
		}
		c.Left = left
		if c.Kind == cfg.CondIs || c.Kind == cfg.CondNotIs {
			t, ok := g.typeOf(operand(&operands[1]), g.scope)
			if !ok {
				g.failed = true
				return nil
			}
			c.Type = t
		} else {
			right, ok := g.value(operand(&operands[1]))
			if !ok {
				return nil
			}
			c.Right = right
		}
	}
	g.b.CondJump(g.other(op), c, g.label(a.Goto))
	return nil
}

type probeArg struct {
	Value str `yaml:"value"`
	Label str `yaml:"label"`
}

func (g *graphLoader) probe(op str, arg *yaml.Node) error {
	var a probeArg
	if arg == nil {
		return fmt.Errorf("missing argument")
	}
	if arg.Kind == yaml.ScalarNode {
		if err := a.Value.UnmarshalYAML(arg); err != nil {
			return err
		}
	} else if err := arg.Decode(&a); err != nil {
		return err
	}
	v, ok := g.value(a.Value)
	if !ok {
		return nil
	}
	at := a.Label
	if at.Value == "" {
		at = a.Value
	}
	g.b.Probe(g.other(at), v, a.Label.Value)
	return nil
}

type nestedArg struct {
	Name str     `yaml:"name"`
	Decl str     `yaml:"decl"`
	Code []instr `yaml:"code"`
}

// nested emits the body of a local declaration into its own sub-graph.
func (g *graphLoader) nested(op str, arg *yaml.Node, parent descriptors.DescID) error {
	var a nestedArg
	if err := decodeArg(arg, &a); err != nil {
		return err
	}
	decl := descriptors.NoDescID
	if a.Decl.Value != "" {
		id, ok := g.resolve(a.Decl, g.class)
		if !ok {
			g.failed = true
			return nil
		}
		decl = id
	}
	sub := g.b.NewSubGraph(g.b.Owner(), a.Name.Value, decl)
	prev := g.b.Enter(sub)
	g.code(a.Code, parent)
	g.b.Enter(prev)
	return nil
}
