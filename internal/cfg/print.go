package cfg

import (
	"fmt"
	"io"
	"strings"

	"flowsema/internal/dataflow"
)

// Dump writes a readable listing of the graph, one instruction per line:
//
//	i3  [init] write x := #2
func (g *Graph) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "graph %s\n", g.Name); err != nil {
		return err
	}
	for i := range g.Instrs {
		if _, err := fmt.Fprintf(w, "  i%-3d %s\n", i, g.describe(InstrID(toID(i, "instruction")))); err != nil {
			return err
		}
	}
	return nil
}

// String returns Dump output.
func (g *Graph) String() string {
	var sb strings.Builder
	_ = g.Dump(&sb)
	return sb.String()
}

func (g *Graph) describe(id InstrID) string {
	ins := g.Instr(id)
	var sb strings.Builder
	if sg := g.SubGraph(ins.Owner); sg != nil && ins.Owner != RootGraph {
		fmt.Fprintf(&sb, "[%s] ", sg.Name)
	}
	sb.WriteString(ins.Kind.String())
	switch ins.Kind {
	case InstrRead:
		fmt.Fprintf(&sb, " %s", g.valueName(ins.Read.Value))
	case InstrWrite:
		fmt.Fprintf(&sb, " %s := %s", g.valueName(ins.Write.Target), g.valueName(ins.Write.Source))
	case InstrMagic:
		if ins.Magic.Kind == MagicCall {
			sb.WriteString(" call")
		} else {
			sb.WriteString(" ref")
		}
	case InstrJump:
		fmt.Fprintf(&sb, " i%d", ins.Jump.Target)
	case InstrCondJump:
		c := ins.CondJump.Cond
		switch c.Kind {
		case CondEq, CondNotEq:
			fmt.Fprintf(&sb, " %s %s %s", g.valueName(c.Left), c.Kind, g.valueName(c.Right))
		case CondIs, CondNotIs:
			typ := fmt.Sprintf("T%d", c.Type)
			if g.Values != nil {
				typ = g.Values.Types().String(c.Type)
			}
			fmt.Fprintf(&sb, " %s %s %s", g.valueName(c.Left), c.Kind, typ)
		}
		fmt.Fprintf(&sb, " -> i%d", ins.CondJump.Target)
	case InstrMark:
		if ins.Mark.Clear != dataflow.NoValueID {
			fmt.Fprintf(&sb, " clear %s", g.valueName(ins.Mark.Clear))
		}
	case InstrProbe:
		fmt.Fprintf(&sb, " %s", g.valueName(ins.Probe.Value))
		if ins.Probe.Label != "" {
			fmt.Fprintf(&sb, " %q", ins.Probe.Label)
		}
	}
	if el := g.Element(ins.Element); el != nil && el.Text != "" {
		fmt.Fprintf(&sb, "  ; %s", el.Text)
	}
	return sb.String()
}

func (g *Graph) valueName(id dataflow.ValueID) string {
	if g.Values != nil {
		if v := g.Values.Get(id); v != nil && v.Name != "" {
			return v.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}
