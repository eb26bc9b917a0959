package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Int == NoTypeID || b.Any == NoTypeID || b.Error == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	if !in.IsPrimitive(b.Int) || in.IsPrimitive(b.String) {
		t.Fatalf("primitive tagging is wrong")
	}
	if id, ok := in.ByName("Long"); !ok || id != b.Long {
		t.Fatalf("ByName(Long) = %v, %v", id, ok)
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	list := in.RegisterClass("List", true)
	elem := in.NewTypeParam("E", NoTypeID, Out)
	in.SetClassParams(list, []TypeID{elem})

	a := in.Apply(list, in.Builtins().String)
	b := in.Apply(list, in.Builtins().String)
	if a != b {
		t.Fatalf("instantiations must be interned once")
	}
	if in.Nullable(a) == a || in.NotNull(in.Nullable(a)) != a {
		t.Fatalf("nullable round trip broken")
	}
	if in.Flexible(in.Builtins().Int) == in.Nullable(in.Builtins().Int) {
		t.Fatalf("flexible and nullable types must differ")
	}
}

func TestTypeStrings(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	list := in.RegisterClass("List", true)
	elem := in.NewTypeParam("E", NoTypeID, Out)
	in.SetClassParams(list, []TypeID{elem})
	cs := in.RegisterClass("CharSequence", true)
	cmp := in.RegisterClass("Comparable", true)

	cases := map[TypeID]string{
		b.Int:                    "Int",
		in.Nullable(b.Int):       "Int?",
		in.Flexible(b.Int):       "Int!",
		in.Apply(list, b.String): "List<String>",
		in.Nullable(elem):        "E?",
		in.Intersect(cs, cmp):    "CharSequence & Comparable",
		b.Error:                  "<error>",
		b.NullableNothing:        "Nothing?",
	}
	for id, want := range cases {
		if got := in.String(id); got != want {
			t.Fatalf("want %q, got %q", want, got)
		}
	}
}

func TestSubstituteBoundsFollowsChains(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	u := in.NewTypeParam("U", b.Number, Invariant)
	tp := in.NewTypeParam("T", u, Invariant)

	got := in.SubstituteBounds(in.Nullable(tp), []TypeID{tp, u})
	if got != in.Nullable(b.Number) {
		t.Fatalf("want Number?, got %s", in.String(got))
	}
}

func TestClassNamesAreNormalized(t *testing.T) {
	in := NewInterner()
	id := in.RegisterClass("Caf\u00e9", false)
	got, ok := in.ByName("Cafe\u0301")
	if !ok || got != id {
		t.Fatalf("combining spelling must find the class: %v %v", got, ok)
	}
	if s := in.String(id); s != "Caf\u00e9" {
		t.Fatalf("name rendered as %q", s)
	}
}
