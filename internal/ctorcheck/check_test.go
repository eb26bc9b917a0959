package ctorcheck

import (
	"slices"
	"strings"
	"testing"

	"flowsema/internal/cfg"
	"flowsema/internal/dataflow"
	"flowsema/internal/descriptors"
	"flowsema/internal/diag"
	"flowsema/internal/source"
	"flowsema/internal/types"
)

type env struct {
	tab *descriptors.Table
	in  *types.Interner
	b   types.Builtins
	pkg descriptors.DescID
	pos uint32
}

func newEnv() *env {
	tab := descriptors.NewTable(nil, nil)
	return &env{tab: tab, in: tab.Types(), b: tab.Types().Builtins(), pkg: tab.NewPackage("demo", source.NoSpan)}
}

// span hands out distinct spans so diagnostics can be told apart.
func (e *env) span() source.Span {
	e.pos += 10
	return source.Span{File: 1, Start: e.pos, End: e.pos + 4}
}

func (e *env) class(name string, modality descriptors.Modality, supers ...descriptors.DescID) descriptors.DescID {
	id := e.tab.NewClass(e.pkg, name, descriptors.ClassKindClass, modality, e.span())
	var sts []types.TypeID
	for _, s := range supers {
		sts = append(sts, e.tab.Get(s).Class.Type)
	}
	e.tab.SetSupertypes(id, sts)
	return id
}

// plain is a non-null property with a backing field and default accessors.
var plain = descriptors.Property{HasBackingField: true, DefaultGetter: true, DefaultSetter: true}

func (e *env) prop(class descriptors.DescID, name string, modality descriptors.Modality, p descriptors.Property) descriptors.DescID {
	return e.tab.NewProperty(class, name, descriptors.MemberSpec{Span: e.span(), Modality: modality, Return: e.b.Int, Property: p})
}

func (e *env) fun(container descriptors.DescID, name string) descriptors.DescID {
	return e.tab.NewFunction(container, name, descriptors.MemberSpec{Span: e.span(), Return: e.b.Int})
}

type graph struct {
	*cfg.Builder
	e *env
}

func (e *env) graph(decl descriptors.DescID) *graph {
	return &graph{Builder: cfg.NewBuilder(e.tab.Name(decl), decl, dataflow.NewValues(e.in)), e: e}
}

func (g *graph) write(prop descriptors.DescID) {
	el := g.Element(cfg.Element{Kind: cfg.ElemNameRef, Span: g.e.span(), Text: g.e.tab.Name(prop), Target: prop})
	g.Write(el, dataflow.NoValueID, dataflow.NoValueID)
}

func (g *graph) call(fn descriptors.DescID) source.Span {
	sp := g.e.span()
	el := g.Element(cfg.Element{Kind: cfg.ElemCall, Span: sp, Text: g.e.tab.Name(fn) + "()", Target: fn})
	g.Magic(el, cfg.MagicCall)
	return sp
}

func (g *graph) ref(prop descriptors.DescID, backingField bool) cfg.ElementID {
	el := g.Element(cfg.Element{Kind: cfg.ElemNameRef, Span: g.e.span(), Text: g.e.tab.Name(prop), Target: prop, BackingField: backingField})
	g.Magic(el, cfg.MagicReference)
	return el
}

// this reads the receiver of class as an argument of some call.
func (g *graph) this(class descriptors.DescID, annotations ...types.TypeID) source.Span {
	sp := g.e.span()
	arg := g.Element(cfg.Element{Kind: cfg.ElemOther, Span: sp})
	el := g.Element(cfg.Element{Kind: cfg.ElemThis, Span: sp, Text: "this", Target: class, Parent: arg, Annotations: annotations})
	g.Read(el, dataflow.NoValueID)
	return sp
}

func (g *graph) thisUnder(class descriptors.DescID, parent cfg.Element) source.Span {
	sp := g.e.span()
	p := g.Element(parent)
	el := g.Element(cfg.Element{Kind: cfg.ElemThis, Span: sp, Text: "this", Target: class, Parent: p})
	g.Read(el, dataflow.NoValueID)
	return sp
}

func check(t *testing.T, e *env, g *graph) []diag.Diagnostic {
	t.Helper()
	built, err := g.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	bag := diag.NewBag(32)
	Check(Request{Table: e.tab, Graph: built, Reporter: diag.BagReporter{Bag: bag}})
	return bag.Items()
}

func codes(ds []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, len(ds))
	for i, d := range ds {
		out[i] = d.Code
	}
	return out
}

// class C(val x: Int) { val y = x + 1 }
func TestInitializedPropertyReadIsSafe(t *testing.T) {
	e := newEnv()
	c := e.class("C", descriptors.Final)
	x := e.prop(c, "x", descriptors.Final, plain)
	y := e.prop(c, "y", descriptors.Final, plain)

	g := e.graph(c)
	g.write(x)
	g.ref(x, false)
	g.write(y)
	if ds := check(t, e, g); len(ds) != 0 {
		t.Fatalf("want no diagnostics, got %v", codes(ds))
	}
}

// open class C { val x: Int; init { foo() }; fun foo() = 1 }
func TestMemberCallBeforeInitInOpenClass(t *testing.T) {
	e := newEnv()
	c := e.class("C", descriptors.Open)
	x := e.prop(c, "x", descriptors.Final, plain)
	foo := e.fun(c, "foo")

	g := e.graph(c)
	at := g.call(foo)
	g.write(x)
	ds := check(t, e, g)
	if len(ds) != 1 {
		t.Fatalf("want one diagnostic, got %v", codes(ds))
	}
	d := ds[0]
	if d.Code != diag.SemaDangerousMethodCallInConstructor || d.Severity != diag.SevWarning || d.Primary != at {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if !strings.Contains(d.Message, "property x") {
		t.Fatalf("diagnostic must name x: %q", d.Message)
	}
}

func TestLeakingThis(t *testing.T) {
	cases := []struct {
		name     string
		modality descriptors.Modality
		want     []diag.Code
		sev      diag.Severity
	}{
		{"final", descriptors.Final, []diag.Code{diag.SemaDangerousThisInConstructor}, diag.SevError},
		{"open", descriptors.Open, []diag.Code{diag.SemaDangerousThisInConstructor, diag.SemaDangerousThisInOpenClassConstructor}, diag.SevWarning},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv()
			c := e.class("C", tc.modality)
			x := e.prop(c, "x", descriptors.Final, plain)

			g := e.graph(c)
			first := g.this(c)
			g.write(x)
			g.this(c)
			ds := check(t, e, g)
			if !slices.Equal(codes(ds), tc.want) {
				t.Fatalf("want %v, got %v", tc.want, codes(ds))
			}
			if ds[0].Primary != first || ds[0].Severity != tc.sev {
				t.Fatalf("unexpected first diagnostic %+v", ds[0])
			}
		})
	}
}

func TestSafeReceiverUsages(t *testing.T) {
	e := newEnv()
	c := e.class("C", descriptors.Final)
	other := e.class("Other", descriptors.Final)
	x := e.prop(c, "x", descriptors.Final, plain)
	y := e.prop(c, "y", descriptors.Final, descriptors.Property{HasBackingField: true})
	e.prop(c, "z", descriptors.Final, plain)

	g := e.graph(c)
	selX := g.Element(cfg.Element{Kind: cfg.ElemNameRef, Text: "x", Target: x})
	g.thisUnder(c, cfg.Element{Kind: cfg.ElemQualified, Selector: selX})
	selY := g.Element(cfg.Element{Kind: cfg.ElemNameRef, Text: "y", Target: y})
	viaGetter := g.thisUnder(c, cfg.Element{Kind: cfg.ElemQualified, Selector: selY})
	g.thisUnder(c, cfg.Element{Kind: cfg.ElemEquality})
	g.thisUnder(c, cfg.Element{Kind: cfg.ElemIdentity})
	g.this(other)

	ds := check(t, e, g)
	if len(ds) != 1 || ds[0].Primary != viaGetter {
		t.Fatalf("only this.y with a custom getter is dangerous, got %v", codes(ds))
	}
	if !strings.Contains(ds[0].Message, "property x") {
		t.Fatalf("first uninitialized property is x: %q", ds[0].Message)
	}
}

func TestOpenPropertyReportedOncePerReference(t *testing.T) {
	e := newEnv()
	c := e.class("C", descriptors.Open)
	p := e.prop(c, "p", descriptors.Open, plain)

	g := e.graph(c)
	el := g.ref(p, false)
	g.Magic(el, cfg.MagicReference)
	ds := check(t, e, g)
	if !slices.Equal(codes(ds), []diag.Code{diag.SemaDangerousOpenPropertyAccess}) {
		t.Fatalf("want a single open property warning, got %v", codes(ds))
	}
	if ds[0].Severity != diag.SevWarning {
		t.Fatalf("open property access is a warning")
	}
}

func TestFragileAnnotationExempts(t *testing.T) {
	e := newEnv()
	c := e.class("C", descriptors.Final)
	e.prop(c, "x", descriptors.Final, plain)

	g := e.graph(c)
	g.this(c, e.b.Fragile)
	broken := g.this(c, e.b.Error)
	ds := check(t, e, g)
	if len(ds) != 1 || ds[0].Primary != broken {
		t.Fatalf("error-typed annotations do not exempt, got %v", codes(ds))
	}
}

func TestInitializedOnlyWhenWrittenOnEveryPath(t *testing.T) {
	for _, both := range []bool{false, true} {
		e := newEnv()
		c := e.class("C", descriptors.Final)
		x := e.prop(c, "x", descriptors.Final, plain)
		foo := e.fun(c, "foo")

		g := e.graph(c)
		elseL, join := g.NewLabel(), g.NewLabel()
		g.CondJump(cfg.NoElementID, cfg.Condition{Kind: cfg.CondOpaque}, elseL)
		g.write(x)
		g.Jump(join)
		g.Bind(elseL)
		if both {
			g.write(x)
		} else {
			g.Mark(cfg.NoElementID, dataflow.NoValueID)
		}
		g.Bind(join)
		g.call(foo)

		ds := check(t, e, g)
		if both && len(ds) != 0 {
			t.Fatalf("x is written on both paths, got %v", codes(ds))
		}
		if !both && !slices.Equal(codes(ds), []diag.Code{diag.SemaDangerousMethodCallInConstructor}) {
			t.Fatalf("x is unset on the else path, got %v", codes(ds))
		}
	}
}

func TestLoopReachesFixedPoint(t *testing.T) {
	e := newEnv()
	c := e.class("C", descriptors.Final)
	x := e.prop(c, "x", descriptors.Final, plain)
	foo := e.fun(c, "foo")

	g := e.graph(c)
	head, done := g.NewLabel(), g.NewLabel()
	g.Bind(head)
	g.CondJump(cfg.NoElementID, cfg.Condition{Kind: cfg.CondOpaque}, done)
	g.write(x)
	g.Jump(head)
	g.Bind(done)
	g.call(foo)
	if ds := check(t, e, g); len(ds) != 1 {
		t.Fatalf("loop body may not run, got %v", codes(ds))
	}
}

func TestNestedDeclarationsAreSkipped(t *testing.T) {
	e := newEnv()
	c := e.class("C", descriptors.Final)
	e.prop(c, "x", descriptors.Final, plain)
	foo := e.fun(c, "foo")

	g := e.graph(c)
	lambda := g.NewSubGraph(cfg.RootGraph, "lambda", descriptors.NoDescID)
	prev := g.Enter(lambda)
	g.call(foo)
	g.this(c)
	g.Enter(prev)
	if ds := check(t, e, g); len(ds) != 0 {
		t.Fatalf("nested code must be skipped, got %v", codes(ds))
	}
}

// class Derived(x: Int) : Base(x) { val y = foo(); val z = x - 1 }
func TestInheritedMemberCallIsDangerous(t *testing.T) {
	e := newEnv()
	base := e.class("Base", descriptors.Open)
	foo := e.fun(base, "foo")
	top := e.fun(e.pkg, "top")
	derived := e.class("Derived", descriptors.Final, base)
	y := e.prop(derived, "y", descriptors.Final, plain)

	g := e.graph(derived)
	g.call(top)
	at := g.call(foo)
	g.write(y)
	ds := check(t, e, g)
	if len(ds) != 1 || ds[0].Primary != at || ds[0].Severity != diag.SevError {
		t.Fatalf("only the inherited member call is dangerous, got %v", codes(ds))
	}
	if !strings.Contains(ds[0].Message, "property y") {
		t.Fatalf("diagnostic must name y: %q", ds[0].Message)
	}
}

func TestCustomSetterVersusBackingField(t *testing.T) {
	e := newEnv()
	c := e.class("My", descriptors.Final)
	y := e.prop(c, "y", descriptors.Final, descriptors.Property{Mutable: true, HasBackingField: true, DefaultGetter: true})

	g := e.graph(c)
	g.ref(y, true)
	g.ref(y, false)
	ds := check(t, e, g)
	if !slices.Equal(codes(ds), []diag.Code{diag.SemaDangerousMethodCallInConstructor}) {
		t.Fatalf("only the setter access is dangerous, got %v", codes(ds))
	}
}

func TestSecondaryConstructorTracksNothing(t *testing.T) {
	for _, modality := range []descriptors.Modality{descriptors.Final, descriptors.Open} {
		e := newEnv()
		c := e.class("C", modality)
		e.prop(c, "x", descriptors.Final, plain)
		foo := e.fun(c, "foo")
		ctor := e.tab.NewConstructor(c, descriptors.MemberSpec{}, false)

		g := e.graph(ctor)
		g.call(foo)
		ds := check(t, e, g)
		switch {
		case modality == descriptors.Final && len(ds) != 0:
			t.Fatalf("final class: want nothing, got %v", codes(ds))
		case modality == descriptors.Open && !slices.Equal(codes(ds), []diag.Code{diag.SemaDangerousMethodCallInOpenClassConstructor}):
			t.Fatalf("open class: got %v", codes(ds))
		}
	}
}

func TestCheckIsDeterministic(t *testing.T) {
	e := newEnv()
	c := e.class("C", descriptors.Open)
	x := e.prop(c, "x", descriptors.Final, plain)
	e.prop(c, "p", descriptors.Open, plain)
	foo := e.fun(c, "foo")

	g := e.graph(c)
	g.call(foo)
	g.this(c)
	g.write(x)
	g.call(foo)
	built := g.MustBuild()

	run := func() string {
		bag := diag.NewBag(32)
		Check(Request{Table: e.tab, Graph: built, Reporter: diag.BagReporter{Bag: bag}})
		var sb strings.Builder
		for _, d := range bag.Items() {
			sb.WriteString(d.Code.ID() + " " + d.Primary.String() + " " + d.Message + "\n")
		}
		return sb.String()
	}
	first := run()
	for range 5 {
		if got := run(); got != first {
			t.Fatalf("runs differ:\n%s\nvs\n%s", first, got)
		}
	}
	if strings.Count(first, "\n") != 3 {
		t.Fatalf("want three diagnostics, got:\n%s", first)
	}
}
