// Package redecl reports declarations that clash with a sibling of the same
// name and signature.
package redecl

import (
	"fmt"
	"slices"

	"flowsema/internal/descriptors"
	"flowsema/internal/diag"
)

// Check inspects every package and class of the table. Each offending
// declaration is reported once, in declaration order.
func Check(table *descriptors.Table, rep diag.Reporter) {
	groups := make(map[descriptors.DescID]map[string][]descriptors.DescID)
	var containers []descriptors.DescID
	add := func(container descriptors.DescID, name string, id descriptors.DescID) {
		byName, ok := groups[container]
		if !ok {
			byName = make(map[string][]descriptors.DescID)
			groups[container] = byName
			containers = append(containers, container)
		}
		byName[name] = append(byName[name], id)
	}

	table.Each(func(id descriptors.DescID, d *descriptors.Descriptor) {
		owner := table.Get(d.Container)
		if owner == nil {
			return
		}
		switch d.Kind {
		case descriptors.KindFunction, descriptors.KindProperty:
			if d.MemberKind() != descriptors.Declaration {
				return
			}
			// script members are resolved by priority, not checked here
			if owner.Kind == descriptors.KindPackage || owner.Kind == descriptors.KindClass {
				add(d.Container, table.Name(id), id)
			}
		case descriptors.KindConstructor:
			// constructors compete under the class name in the class's container
			if owner.Class == nil || owner.Class.Kind == descriptors.ClassKindObject {
				return
			}
			outer := table.Get(owner.Container)
			if outer == nil || (outer.Kind != descriptors.KindPackage && outer.Kind != descriptors.KindClass) {
				return
			}
			add(owner.Container, table.Name(d.Container), id)
		}
	})

	var offenders []descriptors.DescID
	others := make(map[descriptors.DescID][]descriptors.DescID)
	for _, c := range containers {
		for _, group := range groups[c] {
			if len(group) < 2 {
				continue
			}
			for _, m := range group {
				for _, m2 := range group {
					if m != m2 && table.HaveSameSignature(m, m2) {
						others[m] = append(others[m], m2)
					}
				}
				if len(others[m]) > 0 {
					offenders = append(offenders, m)
				}
			}
		}
	}
	slices.Sort(offenders)

	for _, m := range offenders {
		d := table.Get(m)
		var b *diag.ReportBuilder
		if d.Kind == descriptors.KindProperty {
			b = diag.ReportError(rep, diag.SemaRedeclaration, d.Span, "redeclaration: "+table.Name(m))
		} else {
			msg := fmt.Sprintf("conflicting overloads: %s is already defined in %s", table.Render(m), containerName(table, m))
			b = diag.ReportError(rep, diag.SemaConflictingOverloads, d.Span, msg)
		}
		for _, o := range others[m] {
			b.WithNote(table.Get(o).Span, "other declaration: "+table.Render(o))
		}
		b.Emit()
	}
}

func containerName(table *descriptors.Table, id descriptors.DescID) string {
	d := table.Get(id)
	if d.Kind == descriptors.KindConstructor {
		d = table.Get(d.Container)
	}
	c := table.Get(d.Container)
	if c.Kind == descriptors.KindClass {
		return table.Name(d.Container)
	}
	if name := table.QualifiedName(d.Container); name != "" {
		return name
	}
	return "root package"
}
