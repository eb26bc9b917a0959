package dataflow

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/benbjohnson/immutable"

	"flowsema/internal/types"
)

type valueComparer struct{}

func (valueComparer) Compare(a, b ValueID) int { return cmp.Compare(a, b) }

type (
	nullMap = immutable.SortedMap[ValueID, Nullability]
	typeMap = immutable.SortedMap[ValueID, typeSet]
)

// Snapshot holds the facts known at one program point. It is immutable:
// every operation returns a new snapshot, or the receiver itself when the
// operation changes nothing.
//
// Entries equal to the default (immanent nullability, no narrowing) are never
// stored, so two snapshots with the same facts have the same entries.
type Snapshot struct {
	values *Values
	nulls  *nullMap
	types  *typeMap
}

// Empty returns the snapshot without any facts.
func Empty(vs *Values) *Snapshot {
	return &Snapshot{
		values: vs,
		nulls:  immutable.NewSortedMap[ValueID, Nullability](valueComparer{}),
		types:  immutable.NewSortedMap[ValueID, typeSet](valueComparer{}),
	}
}

// Registry returns the values the snapshot describes.
func (s *Snapshot) Registry() *Values { return s.values }

// Queries -------------------------------------------------------------------

// CollectedNullability returns everything known about v on this path.
func (s *Snapshot) CollectedNullability(v ValueID) Nullability {
	if n, ok := s.nulls.Get(v); ok {
		return n
	}
	if val := s.values.Get(v); val != nil {
		return val.Immanent
	}
	return Unknown
}

// PredictableNullability is CollectedNullability for predictable values and
// the immanent nullability otherwise.
func (s *Snapshot) PredictableNullability(v ValueID) Nullability {
	val := s.values.Get(v)
	if val == nil {
		return Unknown
	}
	if !val.Predictable {
		return val.Immanent
	}
	return s.CollectedNullability(v)
}

// CollectedTypes returns the narrowed types of v. When v cannot be null the
// not-null variants are reported, including that of a nullable declared type.
func (s *Snapshot) CollectedTypes(v ValueID) []types.TypeID {
	return s.collectedTypes(v, true)
}

// PredictableTypes is CollectedTypes for predictable values and empty otherwise.
func (s *Snapshot) PredictableTypes(v ValueID) []types.TypeID {
	return s.predictableTypes(v, true)
}

func (s *Snapshot) predictableTypes(v ValueID, enrich bool) typeSet {
	if val := s.values.Get(v); val == nil || !val.Predictable {
		return nil
	}
	return s.collectedTypes(v, enrich)
}

func (s *Snapshot) collectedTypes(v ValueID, enrich bool) typeSet {
	stored, _ := s.types.Get(v)
	if !enrich || s.CollectedNullability(v).CanBeNull() {
		return stored
	}
	val := s.values.Get(v)
	if val == nil {
		return stored
	}
	in := s.values.in
	enriched := make([]types.TypeID, 0, len(stored)+1)
	if in.IsMarkedNullable(val.Type) {
		enriched = append(enriched, in.NotNull(val.Type))
	}
	for _, t := range stored {
		enriched = append(enriched, in.NotNull(t))
	}
	return newTypeSet(enriched...)
}

// Transitions ---------------------------------------------------------------

// Assign records target := source. The target forgets what it knew and takes
// over the predictable facts of the source together with its declared type.
func (s *Snapshot) Assign(target, source ValueID) *Snapshot {
	src := s.values.Get(source)
	if src == nil || s.values.Get(target) == nil {
		return s
	}
	ts := s.predictableTypes(source, true)
	if !s.values.in.IsError(src.Type) {
		ts = ts.union(newTypeSet(src.Type))
	}
	e := s.edit()
	e.setNullability(target, s.PredictableNullability(source))
	e.setTypes(target, ts)
	return e.done()
}

// Equate records a == b: each side learns the other's nullability and types.
func (s *Snapshot) Equate(a, b ValueID) *Snapshot {
	va, vb := s.values.Get(a), s.values.Get(b)
	if va == nil || vb == nil {
		return s
	}
	na, nb := s.PredictableNullability(a), s.PredictableNullability(b)
	e := s.edit()
	e.setNullability(a, na.Refine(nb))
	e.setNullability(b, nb.Refine(na))

	fromB := s.predictableTypes(b, false)
	fromA := s.predictableTypes(a, false)
	if va.Type != vb.Type {
		fromB = fromB.union(newTypeSet(vb.Type))
		fromA = fromA.union(newTypeSet(va.Type))
	}
	e.addTypes(a, fromB)
	e.addTypes(b, fromA)
	return e.done()
}

// Disequate records a != b. Only a side known to be null says something:
// the other side is then not null.
func (s *Snapshot) Disequate(a, b ValueID) *Snapshot {
	if s.values.Get(a) == nil || s.values.Get(b) == nil {
		return s
	}
	na, nb := s.PredictableNullability(a), s.PredictableNullability(b)
	e := s.edit()
	e.setNullability(a, na.Refine(nb.Invert()))
	e.setNullability(b, nb.Refine(na.Invert()))
	return e.done()
}

// EstablishSubtyping records that v is known to be a T, e.g. after a
// successful is-check or a safe cast.
func (s *Snapshot) EstablishSubtyping(v ValueID, t types.TypeID) *Snapshot {
	val := s.values.Get(v)
	in := s.values.in
	if val == nil || in.IsError(t) || val.Type == t {
		return s
	}
	if slices.Contains(s.CollectedTypes(v), t) {
		return s
	}
	if !in.IsFlexible(val.Type) && in.IsSubtype(val.Type, t) {
		return s
	}
	e := s.edit()
	e.addTypes(v, newTypeSet(t))
	if !in.IsMarkedNullable(t) {
		e.setNullability(v, s.CollectedNullability(v).Refine(NotNull))
	}
	return e.done()
}

// ClearValueInfo forgets everything learnt about v.
func (s *Snapshot) ClearValueInfo(v ValueID) *Snapshot {
	e := s.edit()
	e.setNullability(v, e.immanent(v))
	e.setTypes(v, nil)
	return e.done()
}

// And combines two fact sets valid on the same path.
func (s *Snapshot) And(o *Snapshot) *Snapshot {
	if o == nil || s == o {
		return s
	}
	e := s.edit()
	for _, v := range s.unionKeys(o) {
		e.setNullability(v, s.CollectedNullability(v).And(o.CollectedNullability(v)))
		mine, _ := s.types.Get(v)
		theirs, _ := o.types.Get(v)
		e.setTypes(v, mine.union(theirs))
	}
	return e.done()
}

// Or joins the facts of two incoming control-flow paths. Only facts valid on
// both paths survive.
func (s *Snapshot) Or(o *Snapshot) *Snapshot {
	if o == nil || s == o {
		return s
	}
	e := Empty(s.values).edit()
	for _, v := range s.unionKeys(o) {
		e.setNullability(v, s.CollectedNullability(v).Or(o.CollectedNullability(v)))
		mine, okMine := s.types.Get(v)
		theirs, okTheirs := o.types.Get(v)
		if okMine && okTheirs {
			e.setTypes(v, joinTypes(s.values.in, mine, theirs))
		}
	}
	out := e.done()
	if out.Equal(s) {
		return s
	}
	return out
}

// Equal reports whether two snapshots carry the same facts.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == o {
		return true
	}
	if o == nil || s.nulls.Len() != o.nulls.Len() || s.types.Len() != o.types.Len() {
		return false
	}
	for itr := s.nulls.Iterator(); !itr.Done(); {
		k, n, _ := itr.Next()
		if m, ok := o.nulls.Get(k); !ok || m != n {
			return false
		}
	}
	for itr := s.types.Iterator(); !itr.Done(); {
		k, ts, _ := itr.Next()
		if other, ok := o.types.Get(k); !ok || !ts.equal(other) {
			return false
		}
	}
	return true
}

// Keys lists, in ascending order, every value with a stored fact.
func (s *Snapshot) Keys() []ValueID {
	return s.unionKeys(nil)
}

func (s *Snapshot) unionKeys(o *Snapshot) []ValueID {
	var keys []ValueID
	collect := func(snap *Snapshot) {
		for itr := snap.nulls.Iterator(); !itr.Done(); {
			k, _, _ := itr.Next()
			keys = append(keys, k)
		}
		for itr := snap.types.Iterator(); !itr.Done(); {
			k, _, _ := itr.Next()
			keys = append(keys, k)
		}
	}
	collect(s)
	if o != nil {
		collect(o)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// String dumps the stored facts in value order, one value per line.
func (s *Snapshot) String() string {
	keys := s.Keys()
	if len(keys) == 0 {
		return "EMPTY"
	}
	in := s.values.in
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('\n')
		}
		name := fmt.Sprintf("#%d", k)
		if val := s.values.Get(k); val != nil && val.Name != "" {
			name = val.Name
		}
		fmt.Fprintf(&sb, "%s: %s", name, s.CollectedNullability(k))
		if ts := s.CollectedTypes(k); len(ts) > 0 {
			names := make([]string, len(ts))
			for j, t := range ts {
				names[j] = in.String(t)
			}
			slices.Sort(names)
			fmt.Fprintf(&sb, " {%s}", strings.Join(names, ", "))
		}
	}
	return sb.String()
}

// Editing -------------------------------------------------------------------

type edit struct {
	base    *Snapshot
	nulls   *nullMap
	types   *typeMap
	changed bool
}

func (s *Snapshot) edit() *edit {
	return &edit{base: s, nulls: s.nulls, types: s.types}
}

func (e *edit) immanent(v ValueID) Nullability {
	if val := e.base.values.Get(v); val != nil {
		return val.Immanent
	}
	return Unknown
}

func (e *edit) setNullability(v ValueID, n Nullability) {
	if e.base.values.Get(v) == nil {
		return
	}
	cur, stored := e.nulls.Get(v)
	if n == e.immanent(v) {
		if stored {
			e.nulls = e.nulls.Delete(v)
			e.changed = true
		}
		return
	}
	if stored && cur == n {
		return
	}
	e.nulls = e.nulls.Set(v, n)
	e.changed = true
}

func (e *edit) addTypes(v ValueID, ts typeSet) {
	cur, _ := e.types.Get(v)
	e.setTypes(v, cur.union(ts))
}

// setTypes stores the normalised narrowing of v: error types, the declared
// type and (for non-flexible declarations) its supertypes are dropped; a type
// unrelated to the declared one is stored as the intersection with it.
func (e *edit) setTypes(v ValueID, ts typeSet) {
	val := e.base.values.Get(v)
	if val == nil {
		return
	}
	ts = normalize(e.base.values.in, val.Type, ts)
	cur, stored := e.types.Get(v)
	if len(ts) == 0 {
		if stored {
			e.types = e.types.Delete(v)
			e.changed = true
		}
		return
	}
	if stored && cur.equal(ts) {
		return
	}
	e.types = e.types.Set(v, ts)
	e.changed = true
}

func normalize(in *types.Interner, declared types.TypeID, ts typeSet) typeSet {
	if len(ts) == 0 {
		return nil
	}
	flexible := in.IsFlexible(declared)
	declError := in.IsError(declared)
	out := make([]types.TypeID, 0, len(ts))
	for _, t := range ts {
		switch {
		case in.IsError(t), t == declared:
			continue
		case declError:
			out = append(out, t)
		case !flexible && in.IsSubtype(declared, t):
			continue
		case in.IsSubtype(t, declared):
			out = append(out, t)
		default:
			out = append(out, in.Intersect(declared, t))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return newTypeSet(out...)
}

func (e *edit) done() *Snapshot {
	if !e.changed {
		return e.base
	}
	return &Snapshot{values: e.base.values, nulls: e.nulls, types: e.types}
}
