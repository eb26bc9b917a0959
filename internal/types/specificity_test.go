package types

import "testing"

func TestNumericWideningTable(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()

	cases := []struct {
		specific, general TypeID
		want              bool
	}{
		{b.Int, b.Long, true},
		{b.Long, b.Int, false},
		{b.Double, b.Float, true},
		{b.Float, b.Double, false},
		{b.Int, b.Byte, true},
		{b.Int, b.Short, true},
		{b.Short, b.Byte, true},
		{b.Byte, b.Short, false},
		{in.Nullable(b.Int), b.Long, false},
	}
	for _, tc := range cases {
		if got := in.NumericWidens(tc.specific, tc.general); got != tc.want {
			t.Errorf("NumericWidens(%s, %s) = %v, want %v", in.String(tc.specific), in.String(tc.general), got, tc.want)
		}
	}
}

func TestTypeMoreSpecific(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()

	if !in.TypeMoreSpecific(b.Int, b.Long) || in.TypeMoreSpecific(b.Long, b.Int) {
		t.Fatalf("Int must beat Long, not the other way round")
	}
	if !in.TypeMoreSpecific(b.Int, b.Number) || in.TypeMoreSpecific(b.Number, b.Int) {
		t.Fatalf("subtyping decides Int vs Number")
	}
	if !in.TypeMoreSpecific(b.String, b.String) {
		t.Fatalf("a type is as specific as itself")
	}

	platform := in.Flexible(b.Int)
	if in.Specificity(platform, b.Int) != LessSpecific {
		t.Fatalf("Int! is less specific than Int")
	}
	if in.Specificity(platform, in.Nullable(b.Int)) != DontKnow {
		t.Fatalf("Int! vs Int? is undecided")
	}
	// Int! <: Int holds, yet Int! must not count as more specific than Int
	if in.TypeMoreSpecific(platform, b.Int) {
		t.Fatalf("platform Int must lose to Int")
	}
	if !in.TypeMoreSpecific(b.Int, platform) {
		t.Fatalf("Int must beat platform Int")
	}
}

func TestSpecificityThroughArguments(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	list := in.RegisterClass("List", true)
	in.SetClassParams(list, []TypeID{in.NewTypeParam("E", NoTypeID, Out)})

	if rel := in.Specificity(in.Apply(list, in.Flexible(b.Int)), in.Apply(list, b.Int)); rel != LessSpecific {
		t.Fatalf("List<Int!> must be less specific than List<Int>, got %v", rel)
	}
	if rel := in.Specificity(in.Apply(list, b.Int), in.Apply(list, b.Int)); rel != DontKnow {
		t.Fatalf("identical instantiations are undecided, got %v", rel)
	}
}
