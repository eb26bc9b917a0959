package dataflow

import (
	"slices"

	"flowsema/internal/types"
)

// typeSet is a sorted, duplicate-free list of TypeIDs. Stored sets are never
// modified; every operation returns a fresh slice.
type typeSet []types.TypeID

func newTypeSet(ids ...types.TypeID) typeSet {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func (s typeSet) has(id types.TypeID) bool {
	_, ok := slices.BinarySearch(s, id)
	return ok
}

func (s typeSet) union(o typeSet) typeSet {
	if len(o) == 0 {
		return s
	}
	if len(s) == 0 {
		return o
	}
	out := make(typeSet, 0, len(s)+len(o))
	out = append(out, s...)
	out = append(out, o...)
	slices.Sort(out)
	return slices.Compact(out)
}

func (s typeSet) intersect(o typeSet) typeSet {
	var out typeSet
	for _, id := range s {
		if o.has(id) {
			out = append(out, id)
		}
	}
	return out
}

func (s typeSet) equal(o typeSet) bool { return slices.Equal(s, o) }

// containsNothing looks for the bottom type itself; Nothing? is the type of
// null and still describes a reachable branch.
func (s typeSet) containsNothing(in *types.Interner) bool {
	return slices.ContainsFunc(s, func(t types.TypeID) bool {
		return in.IsNothing(t) && !in.IsMarkedNullable(t)
	})
}

// joinTypes merges narrowing from two branches. A branch narrowed to Nothing
// never completes normally, so the other branch decides.
func joinTypes(in *types.Interner, a, b typeSet) typeSet {
	na, nb := a.containsNothing(in), b.containsNothing(in)
	switch {
	case na && !nb:
		return b
	case nb && !na:
		return a
	}
	return a.intersect(b)
}
