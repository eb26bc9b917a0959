package overload

import (
	"errors"
	"strings"
	"testing"

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
}

func newEnv() *env {
	tab := descriptors.NewTable(nil, nil)
	e := &env{tab: tab, in: tab.Types(), b: tab.Types().Builtins()}
	e.pkg = tab.NewPackage("p", source.NoSpan)
	return e
}

func (e *env) fn(container descriptors.DescID, name string, params ...types.TypeID) descriptors.DescID {
	return e.fnSpec(container, name, descriptors.MemberSpec{}, params...)
}

func (e *env) fnSpec(container descriptors.DescID, name string, spec descriptors.MemberSpec, params ...types.TypeID) descriptors.DescID {
	for _, p := range params {
		spec.ValueParams = append(spec.ValueParams, descriptors.ValueParam{Type: p})
	}
	if spec.Return == types.NoTypeID {
		spec.Return = e.b.Unit
	}
	return e.tab.NewFunction(container, name, spec)
}

// call binds n arguments positionally.
func call(desc descriptors.DescID, n int) Candidate {
	args := make([]int, n)
	for i := range args {
		args[i] = i
	}
	return Candidate{Desc: desc, Site: 1, Args: args}
}

func mustResolve(t *testing.T, r *Resolver, cands []Candidate, discriminate bool) Candidate {
	t.Helper()
	res := r.Resolve(cands, discriminate, MatchValueArguments)
	if res.Outcome != Resolved {
		t.Fatalf("want resolved, got %s with %d tied", res.Outcome, len(res.Tied))
	}
	return res.Winner
}

func TestSingletonNeedsNoComparison(t *testing.T) {
	e := newEnv()
	f := e.fn(e.pkg, "f", e.b.Int)
	r := NewResolver(e.tab)

	if got := mustResolve(t, r, []Candidate{call(f, 1)}, true); got.Desc != f {
		t.Fatalf("wrong winner")
	}
	// the same descriptor reached twice is still one candidate
	if got := mustResolve(t, r, []Candidate{call(f, 1), call(f, 1)}, true); got.Desc != f {
		t.Fatalf("wrong winner")
	}
	if r.Comparisons() != 0 {
		t.Fatalf("singleton sets must not be compared, got %d comparisons", r.Comparisons())
	}
	if res := r.Resolve(nil, true, MatchValueArguments); res.Outcome != Empty {
		t.Fatalf("empty set: %s", res.Outcome)
	}
}

func TestNumericWideningPicksNarrowerType(t *testing.T) {
	cases := []struct {
		name          string
		winner, loser func(b types.Builtins) types.TypeID
	}{
		{"Int over Long", func(b types.Builtins) types.TypeID { return b.Int }, func(b types.Builtins) types.TypeID { return b.Long }},
		{"Double over Float", func(b types.Builtins) types.TypeID { return b.Double }, func(b types.Builtins) types.TypeID { return b.Float }},
		{"Short over Byte", func(b types.Builtins) types.TypeID { return b.Short }, func(b types.Builtins) types.TypeID { return b.Byte }},
		{"Int over Number", func(b types.Builtins) types.TypeID { return b.Int }, func(b types.Builtins) types.TypeID { return b.Number }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv()
			win := e.fn(e.pkg, "f", tc.winner(e.b))
			lose := e.fn(e.pkg, "f", tc.loser(e.b))
			r := NewResolver(e.tab)
			for _, order := range [][]Candidate{{call(lose, 1), call(win, 1)}, {call(win, 1), call(lose, 1)}} {
				if got := mustResolve(t, r, order, true); got.Desc != win {
					t.Fatalf("want %s, got %s", e.tab.Render(win), e.tab.Render(got.Desc))
				}
			}
		})
	}
}

func TestCrossedParametersAreAmbiguous(t *testing.T) {
	e := newEnv()
	a := e.fn(e.pkg, "f", e.b.Int, e.b.Number)
	b := e.fn(e.pkg, "f", e.b.Number, e.b.Int)
	r := NewResolver(e.tab)

	bag := diag.NewBag(8)
	res := r.ResolveAndReport(diag.BagReporter{Bag: bag}, source.NoSpan, "f", []Candidate{call(b, 2), call(a, 2)}, true, MatchValueArguments)
	if res.Outcome != Ambiguous || len(res.Tied) != 2 {
		t.Fatalf("want ambiguity between both, got %s/%d", res.Outcome, len(res.Tied))
	}
	if bag.Len() != 1 {
		t.Fatalf("want one diagnostic, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.Code != diag.SemaOverloadAmbiguity || len(d.Notes) != 2 {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if !strings.Contains(d.Notes[0].Msg, "fun f(Int, Number)") {
		t.Fatalf("notes must follow declaration order, got %q", d.Notes[0].Msg)
	}
}

func TestGenericDiscrimination(t *testing.T) {
	e := newEnv()
	tp := e.in.NewTypeParam("T", types.NoTypeID, types.Invariant)
	plain := e.fn(e.pkg, "f", e.b.Int)
	generic := e.fnSpec(e.pkg, "f", descriptors.MemberSpec{TypeParams: []types.TypeID{tp}}, tp)
	r := NewResolver(e.tab)
	cands := []Candidate{call(generic, 1), call(plain, 1)}

	if got := mustResolve(t, r, cands, true); got.Desc != plain {
		t.Fatalf("non-generic must win when discriminating")
	}
	if res := r.Resolve(cands, false, MatchValueArguments); res.Outcome != Ambiguous {
		t.Fatalf("without discrimination Int and T are incomparable, got %s", res.Outcome)
	}
}

func TestBothGenericCompareByBounds(t *testing.T) {
	e := newEnv()
	tNum := e.in.NewTypeParam("T", e.b.Number, types.Invariant)
	tAny := e.in.NewTypeParam("U", types.NoTypeID, types.Invariant)
	narrow := e.fnSpec(e.pkg, "f", descriptors.MemberSpec{TypeParams: []types.TypeID{tNum}}, tNum)
	wide := e.fnSpec(e.pkg, "f", descriptors.MemberSpec{TypeParams: []types.TypeID{tAny}}, tAny)
	r := NewResolver(e.tab)
	if got := mustResolve(t, r, []Candidate{call(wide, 1), call(narrow, 1)}, true); got.Desc != narrow {
		t.Fatalf("T : Number must beat an unbounded parameter")
	}
}

func TestOverrideWins(t *testing.T) {
	e := newEnv()
	base := e.tab.NewClass(e.pkg, "Base", descriptors.ClassKindClass, descriptors.Open, source.NoSpan)
	derived := e.tab.NewClass(e.pkg, "Derived", descriptors.ClassKindClass, descriptors.Final, source.NoSpan)
	e.tab.SetSupertypes(derived, []types.TypeID{e.tab.Get(base).Class.Type})
	super := e.fnSpec(base, "f", descriptors.MemberSpec{Modality: descriptors.Open}, e.b.Int)
	sub := e.fn(derived, "f", e.b.Int)

	r := NewResolver(e.tab)
	if got := mustResolve(t, r, []Candidate{call(super, 1), call(sub, 1)}, true); got.Desc != sub {
		t.Fatalf("overriding member must win")
	}
}

func TestReceiverTypeDecides(t *testing.T) {
	e := newEnv()
	onAny := e.fnSpec(e.pkg, "f", descriptors.MemberSpec{ExtReceiver: e.b.Any})
	onString := e.fnSpec(e.pkg, "f", descriptors.MemberSpec{ExtReceiver: e.b.String})
	r := NewResolver(e.tab)
	if got := mustResolve(t, r, []Candidate{call(onAny, 0), call(onString, 0)}, true); got.Desc != onString {
		t.Fatalf("String receiver must beat Any receiver")
	}
}

func TestVarargAndDefaultTieBreaks(t *testing.T) {
	e := newEnv()
	single := e.fn(e.pkg, "f", e.b.Int)
	vararg := e.tab.NewFunction(e.pkg, "f", descriptors.MemberSpec{
		ValueParams: []descriptors.ValueParam{{Type: e.b.Int, VarargElem: e.b.Int}},
	})
	withDefault := e.tab.NewFunction(e.pkg, "f", descriptors.MemberSpec{
		ValueParams: []descriptors.ValueParam{{Type: e.b.Int}, {Type: e.b.Int, HasDefault: true}},
	})
	r := NewResolver(e.tab)

	v := call(vararg, 1)
	v.VarargCount = 1
	if got := mustResolve(t, r, []Candidate{v, call(single, 1)}, true); got.Desc != single {
		t.Fatalf("fewer vararg arguments must win")
	}
	d := call(withDefault, 1)
	d.DefaultCount = 1
	if got := mustResolve(t, r, []Candidate{d, call(single, 1)}, true); got.Desc != single {
		t.Fatalf("fewer default arguments must win")
	}
}

func TestScriptPriority(t *testing.T) {
	e := newEnv()
	older := e.tab.NewScript("a.kts", 1, source.NoSpan)
	newer := e.tab.NewScript("b.kts", 2, source.NoSpan)
	f1 := e.fn(older, "f", e.b.Int)
	f2 := e.fn(newer, "f", e.b.Number)
	r := NewResolver(e.tab)
	if got := mustResolve(t, r, []Candidate{call(f1, 1), call(f2, 1)}, true); got.Desc != f2 {
		t.Fatalf("higher script priority wins before parameter types are looked at")
	}
}

func TestCallableReferenceMode(t *testing.T) {
	e := newEnv()
	narrow := e.fn(e.pkg, "f", e.b.Int)
	wide := e.fn(e.pkg, "f", e.b.Number)
	other := e.fn(e.pkg, "f", e.b.Int, e.b.Int)
	r := NewResolver(e.tab)

	res := r.Resolve([]Candidate{{Desc: wide}, {Desc: narrow}}, true, MatchCallableType)
	if res.Outcome != Resolved || res.Winner.Desc != narrow {
		t.Fatalf("reference to f(Int) must win, got %s", res.Outcome)
	}
	res = r.Resolve([]Candidate{{Desc: narrow}, {Desc: other}}, true, MatchCallableType)
	if res.Outcome != Ambiguous {
		t.Fatalf("different arity is incomparable, got %s", res.Outcome)
	}
}

func TestVariableAsFunctionFiltersByVariable(t *testing.T) {
	e := newEnv()
	fnType := e.in.RegisterClass("Function0", true)
	invoke := e.fn(e.pkg, "invoke")
	onAny := e.tab.NewProperty(e.pkg, "g", descriptors.MemberSpec{ExtReceiver: e.b.Any, Return: fnType})
	onString := e.tab.NewProperty(e.pkg, "g", descriptors.MemberSpec{ExtReceiver: e.b.String, Return: fnType})
	invoke2 := e.fn(e.pkg, "invoke")

	r := NewResolver(e.tab)
	cands := []Candidate{
		{Desc: invoke, Site: 1, Variable: onAny},
		{Desc: invoke2, Site: 1, Variable: onString},
	}
	if got := mustResolve(t, r, cands, true); got.Variable != onString {
		t.Fatalf("more specific variable receiver must win")
	}
}

func TestInvariantViolationPanics(t *testing.T) {
	e := newEnv()
	f := e.fn(e.pkg, "f", e.b.Int)
	g := e.fn(e.pkg, "f", e.b.Long)
	other := call(g, 1)
	other.Site = 2

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		var inv *InvariantError
		if !ok || !errors.As(err, &inv) {
			t.Fatalf("want *InvariantError panic, got %v", rec)
		}
	}()
	NewResolver(e.tab).Resolve([]Candidate{call(f, 1), other}, true, MatchValueArguments)
}
