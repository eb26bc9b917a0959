// Package smartcast propagates nullability and type facts through a
// function's pseudocode and answers what is known at probe points.
package smartcast

import (
	"fmt"
	"slices"
	"strings"

	"flowsema/internal/cfg"
	"flowsema/internal/dataflow"
	"flowsema/internal/diag"
	"flowsema/internal/source"
	"flowsema/internal/types"
)

// Fact is what the analysis knows about a value at one probe.
type Fact struct {
	Probe   cfg.InstrID
	Label   string
	Value   dataflow.ValueID
	Name    string
	Span    source.Span
	Reached bool

	Nullability dataflow.Nullability
	// Types are the collected types, sorted by rendered name.
	Types []types.TypeID
}

// Result of one analysis run.
type Result struct {
	Graph  *cfg.Graph
	States *cfg.Result[*dataflow.Snapshot]
	Facts  []Fact
}

// Analyze runs the lattice over g to its fixed point and collects the facts
// at every probe in instruction order.
func Analyze(g *cfg.Graph) *Result {
	res := &Result{Graph: g}
	if g == nil || g.Values == nil {
		return res
	}
	res.States = cfg.Forward(g, cfg.Analysis[*dataflow.Snapshot]{
		Entry:    dataflow.Empty(g.Values),
		Transfer: func(id cfg.InstrID, in *dataflow.Snapshot) *dataflow.Snapshot { return transfer(g.Instr(id), in) },
		Edge:     func(e cfg.Edge, out *dataflow.Snapshot) *dataflow.Snapshot { return refine(g, e, out) },
		Join:     (*dataflow.Snapshot).Or,
		Equal:    (*dataflow.Snapshot).Equal,
	})

	in := g.Values.Types()
	for i := range g.Instrs {
		ins := &g.Instrs[i]
		if ins.Kind != cfg.InstrProbe {
			continue
		}
		f := Fact{
			Probe: cfg.InstrID(i),
			Label: ins.Probe.Label,
			Value: ins.Probe.Value,
		}
		if v := g.Values.Get(ins.Probe.Value); v != nil {
			f.Name = v.Name
		}
		if el := g.Element(ins.Element); el != nil {
			f.Span = el.Span
		}
		if res.States.Reached[i] {
			st := res.States.In[i]
			f.Reached = true
			f.Nullability = st.CollectedNullability(f.Value)
			f.Types = slices.Clone(st.CollectedTypes(f.Value))
			slices.SortFunc(f.Types, func(a, b types.TypeID) int {
				return strings.Compare(in.String(a), in.String(b))
			})
		}
		res.Facts = append(res.Facts, f)
	}
	return res
}

func transfer(ins *cfg.Instr, in *dataflow.Snapshot) *dataflow.Snapshot {
	switch ins.Kind {
	case cfg.InstrWrite:
		return in.Assign(ins.Write.Target, ins.Write.Source)
	case cfg.InstrMark:
		if ins.Mark.Clear != dataflow.NoValueID {
			return in.ClearValueInfo(ins.Mark.Clear)
		}
	}
	return in
}

// refine applies what a conditional jump learns along each of its edges.
func refine(g *cfg.Graph, e cfg.Edge, out *dataflow.Snapshot) *dataflow.Snapshot {
	if e.Branch == cfg.BranchNext {
		return out
	}
	c := g.Instr(e.From).CondJump.Cond
	taken := e.Branch == cfg.BranchTaken
	switch c.Kind {
	case cfg.CondEq, cfg.CondNotEq:
		if taken == (c.Kind == cfg.CondEq) {
			return out.Equate(c.Left, c.Right)
		}
		return out.Disequate(c.Left, c.Right)
	case cfg.CondIs, cfg.CondNotIs:
		if taken == (c.Kind == cfg.CondIs) {
			return out.EstablishSubtyping(c.Left, c.Type)
		}
	}
	return out
}

// Report emits a warning for every probe control never reaches.
func (r *Result) Report(rep diag.Reporter) {
	for _, f := range r.Facts {
		if f.Reached {
			continue
		}
		msg := fmt.Sprintf("probe %q on %s is unreachable", f.Label, f.Name)
		diag.ReportWarning(rep, diag.SemaUnreachableProbe, f.Span, msg).Emit()
	}
}

// Format renders one fact per line:
//
//	after: x NOT_NULL {String}
//	dead: y unreachable
func (r *Result) Format() string {
	var sb strings.Builder
	for _, f := range r.Facts {
		sb.WriteString(r.line(f))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (r *Result) line(f Fact) string {
	label := f.Label
	if label == "" {
		label = fmt.Sprintf("i%d", f.Probe)
	}
	if !f.Reached {
		return fmt.Sprintf("%s: %s unreachable", label, f.Name)
	}
	s := fmt.Sprintf("%s: %s %s", label, f.Name, f.Nullability)
	if len(f.Types) > 0 {
		in := r.Graph.Values.Types()
		names := make([]string, len(f.Types))
		for i, t := range f.Types {
			names[i] = in.String(t)
		}
		s += " {" + strings.Join(names, ", ") + "}"
	}
	return s
}
