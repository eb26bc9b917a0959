package descriptors

import (
	"strings"

	"flowsema/internal/types"
)

// QualifiedName joins container names with dots.
func (t *Table) QualifiedName(id DescID) string {
	parts := make([]string, 0, 4)
	for d := t.Get(id); d != nil; d = t.Get(d.Container) {
		if name := t.strings.MustLookup(d.Name); name != "" {
			parts = append(parts, name)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// Render prints a descriptor the way diagnostics mention it:
//
//	fun <T> Recv.name(a: Int, vararg b: String): Unit
//	val name: Int
func (t *Table) Render(id DescID) string {
	d := t.Get(id)
	if d == nil {
		return "<none>"
	}
	var sb strings.Builder
	switch d.Kind {
	case KindClass:
		switch d.Class.Kind {
		case ClassKindInterface:
			sb.WriteString("interface ")
		case ClassKindObject:
			sb.WriteString("object ")
		default:
			sb.WriteString("class ")
		}
		sb.WriteString(t.QualifiedName(id))
		return sb.String()
	case KindPackage, KindScript:
		return t.QualifiedName(id)
	case KindProperty:
		if d.Property != nil && d.Property.Mutable {
			sb.WriteString("var ")
		} else {
			sb.WriteString("val ")
		}
	case KindConstructor:
		sb.WriteString("constructor ")
	default:
		sb.WriteString("fun ")
	}

	c := d.Callable
	if len(c.TypeParams) > 0 {
		sb.WriteByte('<')
		for i, p := range c.TypeParams {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.types.String(p))
		}
		sb.WriteString("> ")
	}
	if c.ExtReceiver != types.NoTypeID {
		sb.WriteString(t.types.String(c.ExtReceiver))
		sb.WriteByte('.')
	}
	if d.Kind == KindConstructor {
		sb.WriteString(t.Name(d.Container))
	} else {
		sb.WriteString(t.strings.MustLookup(d.Name))
	}
	if d.Kind != KindProperty {
		sb.WriteByte('(')
		for i, p := range c.ValueParams {
			if i > 0 {
				sb.WriteString(", ")
			}
			if p.IsVararg() {
				sb.WriteString("vararg ")
			}
			if name, ok := t.strings.Lookup(p.Name); ok && name != "" {
				sb.WriteString(name)
				sb.WriteString(": ")
			}
			sb.WriteString(t.types.String(p.ArgumentType()))
			if p.HasDefault {
				sb.WriteString(" = ...")
			}
		}
		sb.WriteByte(')')
	}
	if c.Return != types.NoTypeID && d.Kind != KindConstructor {
		sb.WriteString(": ")
		sb.WriteString(t.types.String(c.Return))
	}
	return sb.String()
}
