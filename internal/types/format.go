package types

import "strings"

// String renders id the way diagnostics show it: Int, Int?, Int!, List<T>, A & B.
func (in *Interner) String(id TypeID) string {
	var sb strings.Builder
	in.write(&sb, id, 0)
	return sb.String()
}

func (in *Interner) write(sb *strings.Builder, id TypeID, depth int) {
	t, ok := in.Lookup(id)
	if !ok {
		sb.WriteString("<invalid>")
		return
	}
	if depth > maxSubtypeDepth {
		sb.WriteString("...")
		return
	}
	switch t.Kind {
	case KindError:
		sb.WriteString("<error>")
	case KindNothing:
		sb.WriteString("Nothing")
	case KindTypeParam:
		sb.WriteString(in.params[t.Param].Name)
	case KindIntersection:
		if t.Nullable {
			sb.WriteByte('(')
		}
		for i, part := range t.Args {
			if i > 0 {
				sb.WriteString(" & ")
			}
			in.write(sb, part, depth+1)
		}
		if t.Nullable {
			sb.WriteString(")?")
		}
		return
	case KindClass:
		sb.WriteString(in.classes[t.Class].Name)
		if len(t.Args) > 0 {
			sb.WriteByte('<')
			for i, a := range t.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				in.write(sb, a, depth+1)
			}
			sb.WriteByte('>')
		}
	}
	switch {
	case t.Flexible:
		sb.WriteByte('!')
	case t.Nullable:
		sb.WriteByte('?')
	}
}
