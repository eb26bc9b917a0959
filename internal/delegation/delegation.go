// Package delegation synthesizes the members a class gets from
// "implementation by delegation" specifiers (`class C(b: B) : I by b`).
package delegation

import (
	"fmt"

	"flowsema/internal/descriptors"
	"flowsema/internal/diag"
	"flowsema/internal/source"
	"flowsema/internal/types"
)

// SpecifierKind tells how a supertype entry of a class header is written.
type SpecifierKind uint8

const (
	// Supertype is a plain `: I` entry.
	Supertype SpecifierKind = iota
	// SuperCall is a constructor call `: Base(...)`.
	SuperCall
	// ByExpression is `: I by expr`.
	ByExpression
)

// TypeRef is an unresolved type reference as written in source. An empty
// Text means the reference is missing.
type TypeRef struct {
	Text string
	Span source.Span
}

// Specifier is one entry of a class header's supertype list.
type Specifier struct {
	Kind SpecifierKind
	Type TypeRef
	Span source.Span
}

// TypeResolver turns a written type reference into a type.
type TypeResolver interface {
	ResolveType(ref TypeRef) (types.TypeID, bool)
}

// MemberExtractor lists the callable members of a type. *descriptors.Table
// implements it.
type MemberExtractor interface {
	MembersByType(typ types.TypeID) []descriptors.DescID
}

// Request bundles the inputs of one synthesis run.
type Request struct {
	Table    *descriptors.Table
	Reporter diag.Reporter
	// ClassSpan is where clash diagnostics point.
	ClassSpan source.Span
	Owner     descriptors.DescID
	// Existing are the members the class declares itself.
	Existing   []descriptors.DescID
	Specifiers []Specifier
	Types      TypeResolver
	// Members defaults to Table.
	Members MemberExtractor
}

// Synthesize returns the delegated members of req.Owner in specifier order.
// The copies are allocated in the table but not attached to the class; see
// Apply.
func Synthesize(req Request) []descriptors.DescID {
	s := synthesizer{Request: req}
	if s.Members == nil {
		s.Members = s.Table
	}
	var delegated []descriptors.DescID // originals, parallel to out
	var out []descriptors.DescID
	for _, spec := range s.Specifiers {
		if spec.Kind != ByExpression || spec.Type.Text == "" || s.Types == nil {
			continue
		}
		typ, ok := s.Types.ResolveType(spec.Type)
		if !ok || s.Table.Types().IsError(typ) {
			continue
		}
		var fresh []descriptors.DescID
		for _, m := range s.candidates(typ) {
			if s.sameAsAny(m, s.Existing) {
				continue
			}
			if s.clashes(m, delegated) {
				continue
			}
			fresh = append(fresh, m)
		}
		// clashes are only checked against earlier specifiers
		for _, m := range fresh {
			delegated = append(delegated, m)
			out = append(out, s.copyOf(m))
		}
	}
	return out
}

// Apply adds synthesized members to the owner's member list.
func Apply(table *descriptors.Table, owner descriptors.DescID, members []descriptors.DescID) {
	for _, m := range members {
		table.AddMember(owner, m)
	}
}

type synthesizer struct {
	Request
}

// candidates are the overridable members of typ that do not come from its
// first class supertype.
func (s *synthesizer) candidates(typ types.TypeID) []descriptors.DescID {
	var skip []descriptors.DescID
	if super, ok := s.classSupertype(typ); ok {
		skip = s.Members.MembersByType(super)
	}
	var out []descriptors.DescID
	for _, m := range s.Members.MembersByType(typ) {
		if !s.Table.Get(m).Modality.IsOverridable() {
			continue
		}
		if s.sameAsAny(m, skip) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// classSupertype finds the first non-interface class among all supertypes of
// typ, breadth first.
func (s *synthesizer) classSupertype(typ types.TypeID) (types.TypeID, bool) {
	in := s.Table.Types()
	seen := map[types.TypeID]struct{}{typ: {}}
	queue := in.Supertypes(typ)
	for len(queue) > 0 {
		st := queue[0]
		queue = queue[1:]
		if _, ok := seen[st]; ok {
			continue
		}
		seen[st] = struct{}{}
		if _, ok := s.Table.ClassOf(st); ok && !in.IsInterface(st) {
			return st, true
		}
		queue = append(queue, in.Supertypes(st)...)
	}
	return types.NoTypeID, false
}

func (s *synthesizer) sameAsAny(m descriptors.DescID, list []descriptors.DescID) bool {
	for _, other := range list {
		if s.Table.HaveSameSignature(other, m) {
			return true
		}
	}
	return false
}

func (s *synthesizer) clashes(m descriptors.DescID, delegated []descriptors.DescID) bool {
	for _, prev := range delegated {
		if !s.Table.HaveSameSignature(prev, m) {
			continue
		}
		msg := fmt.Sprintf("%s must override %s because it inherits many implementations of it",
			s.Table.QualifiedName(s.Owner), s.Table.QualifiedName(prev))
		diag.ReportError(s.Reporter, diag.SemaManyImplMemberNotImplemented, s.ClassSpan, msg).
			WithNote(s.Table.Get(prev).Span, "delegated: "+s.Table.Render(prev)).
			WithNote(s.Table.Get(m).Span, "also delegated: "+s.Table.Render(m)).
			Emit()
		return true
	}
	return false
}

func (s *synthesizer) copyOf(m descriptors.DescID) descriptors.DescID {
	modality := s.Table.Get(m).Modality
	if modality == descriptors.Abstract {
		modality = descriptors.Open
	}
	return s.Table.Copy(m, s.Owner, modality, descriptors.Inherited, descriptors.Delegation)
}
