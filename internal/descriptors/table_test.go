package descriptors

import (
	"testing"

	"flowsema/internal/source"
	"flowsema/internal/types"
)

type world struct {
	tab            *Table
	pkg            DescID
	base, derived  DescID
	iface          DescID
	baseT, derT    types.TypeID
	ifaceT         types.TypeID
	intT, stringT  types.TypeID
	unitT, numberT types.TypeID
}

func newWorld() world {
	tab := NewTable(nil, nil)
	b := tab.Types().Builtins()
	w := world{tab: tab, intT: b.Int, stringT: b.String, unitT: b.Unit, numberT: b.Number}
	w.pkg = tab.NewPackage("demo", source.NoSpan)
	w.iface = tab.NewClass(w.pkg, "Shape", ClassKindInterface, Final, source.NoSpan)
	w.base = tab.NewClass(w.pkg, "Base", ClassKindClass, Open, source.NoSpan)
	w.derived = tab.NewClass(w.pkg, "Derived", ClassKindClass, Final, source.NoSpan)
	w.ifaceT = tab.Get(w.iface).Class.Type
	w.baseT = tab.Get(w.base).Class.Type
	w.derT = tab.Get(w.derived).Class.Type
	tab.SetSupertypes(w.derived, []types.TypeID{w.baseT, w.ifaceT})
	return w
}

func (w world) fun(container DescID, name string, modality Modality, params ...types.TypeID) DescID {
	vps := make([]ValueParam, len(params))
	for i, p := range params {
		vps[i] = ValueParam{Type: p}
	}
	return w.tab.NewFunction(container, name, MemberSpec{
		Modality:    modality,
		ValueParams: vps,
		Return:      w.unitT,
	})
}

func TestTableAllocatesFromOne(t *testing.T) {
	tab := NewTable(nil, nil)
	if tab.Len() != 0 {
		t.Fatalf("fresh table must be empty, got %d", tab.Len())
	}
	id := tab.NewPackage("p", source.NoSpan)
	if id != 1 || tab.Get(NoDescID) != nil {
		t.Fatalf("first id must be 1 and the sentinel unreachable")
	}
	if tab.Name(id) != "p" {
		t.Fatalf("want p, got %q", tab.Name(id))
	}
}

func TestInterfacesAreAbstract(t *testing.T) {
	w := newWorld()
	if w.tab.Get(w.iface).Modality != Abstract {
		t.Fatalf("interface must be abstract")
	}
	if got, ok := w.tab.ClassOf(w.tab.Types().Nullable(w.baseT)); !ok || got != w.base {
		t.Fatalf("ClassOf(Base?) = %v, %v", got, ok)
	}
	if !w.tab.IsOpenClass(w.base) || w.tab.IsOpenClass(w.derived) {
		t.Fatalf("open/final classes mixed up")
	}
}

func TestSameSignature(t *testing.T) {
	w := newWorld()
	in := w.tab.Types()

	f1 := w.fun(w.base, "f", Open, w.intT)
	f2 := w.fun(w.derived, "f", Final, w.intT)
	g := w.fun(w.derived, "f", Final, w.stringT)
	h := w.fun(w.derived, "h", Final, w.intT)
	if !w.tab.HaveSameSignature(f1, f2) {
		t.Fatalf("f(Int) and f(Int) must match")
	}
	if w.tab.HaveSameSignature(f1, g) || w.tab.HaveSameSignature(f1, h) {
		t.Fatalf("different params or names must not match")
	}

	prop := w.tab.NewProperty(w.derived, "f", MemberSpec{Return: w.intT})
	if w.tab.HaveSameSignature(f1, prop) {
		t.Fatalf("property and function never share a signature")
	}

	// <T> id(x: T) vs <U> id(x: U)
	tp := in.NewTypeParam("T", types.NoTypeID, types.Invariant)
	up := in.NewTypeParam("U", types.NoTypeID, types.Invariant)
	a := w.tab.NewFunction(w.base, "id", MemberSpec{TypeParams: []types.TypeID{tp}, ValueParams: []ValueParam{{Type: tp}}, Return: tp})
	b := w.tab.NewFunction(w.derived, "id", MemberSpec{TypeParams: []types.TypeID{up}, ValueParams: []ValueParam{{Type: up}}, Return: up})
	if !w.tab.HaveSameSignature(a, b) {
		t.Fatalf("type parameters must be matched positionally")
	}
}

func TestOverrides(t *testing.T) {
	w := newWorld()
	open := w.fun(w.base, "f", Open, w.intT)
	final := w.fun(w.base, "g", Final)
	sub := w.fun(w.derived, "f", Final, w.intT)
	subG := w.fun(w.derived, "g", Final)

	if !w.tab.Overrides(sub, open) {
		t.Fatalf("structural override not detected")
	}
	if w.tab.Overrides(open, sub) {
		t.Fatalf("override is directed")
	}
	if w.tab.Overrides(subG, final) {
		t.Fatalf("final members cannot be overridden structurally")
	}

	linked := w.tab.NewFunction(w.derived, "renamed", MemberSpec{Overridden: []DescID{open}})
	if !w.tab.Overrides(linked, open) {
		t.Fatalf("explicit links are followed")
	}
	deeper := w.tab.NewFunction(w.derived, "deeper", MemberSpec{Overridden: []DescID{linked}})
	if !w.tab.Overrides(deeper, open) {
		t.Fatalf("links are followed transitively")
	}
}

func TestMembersByTypeHidesOverridden(t *testing.T) {
	w := newWorld()
	baseF := w.fun(w.base, "f", Open)
	baseG := w.fun(w.base, "g", Open)
	shapeArea := w.fun(w.iface, "area", Abstract)
	derF := w.fun(w.derived, "f", Final)

	got := w.tab.MembersByType(w.derT)
	want := []DescID{derF, baseG, shapeArea}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("member %d: want %s, got %s", i, w.tab.Render(want[i]), w.tab.Render(got[i]))
		}
	}
	for _, m := range got {
		if m == baseF {
			t.Fatalf("Base.f is overridden by Derived.f and must be hidden")
		}
	}

	if st, ok := w.tab.FirstClassSupertype(w.derived); !ok || st != w.baseT {
		t.Fatalf("first class supertype must be Base")
	}
}

func TestCopyForDelegation(t *testing.T) {
	w := newWorld()
	area := w.fun(w.iface, "area", Abstract, w.intT)
	cp := w.tab.Copy(area, w.derived, Open, Inherited, Delegation)
	d := w.tab.Get(cp)
	if d.Container != w.derived || d.Modality != Open || d.Visibility != Inherited {
		t.Fatalf("copy attributes wrong: %+v", d)
	}
	if d.MemberKind() != Delegation || len(d.Callable.Overridden) != 1 || d.Callable.Overridden[0] != area {
		t.Fatalf("copy must be a delegation overriding the original")
	}
	d.Callable.ValueParams[0].HasDefault = true
	if w.tab.Get(area).Callable.ValueParams[0].HasDefault {
		t.Fatalf("copy must not share parameter storage")
	}
}

func TestRender(t *testing.T) {
	w := newWorld()
	in := w.tab.Types()
	f := w.tab.NewFunction(w.base, "plot", MemberSpec{
		ExtReceiver: w.stringT,
		ValueParams: []ValueParam{
			{Name: w.tab.Strings().Intern("x"), Type: w.intT},
			{Name: w.tab.Strings().Intern("rest"), Type: w.intT, VarargElem: w.numberT},
		},
		Return: in.Nullable(w.intT),
	})
	if got, want := w.tab.Render(f), "fun String.plot(x: Int, vararg rest: Number): Int?"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	if got := w.tab.QualifiedName(f); got != "demo.Base.plot" {
		t.Fatalf("qualified name: %q", got)
	}
	if got := w.tab.Render(w.iface); got != "interface demo.Shape" {
		t.Fatalf("class render: %q", got)
	}
}
