package cfg

import (
	"slices"
	"strings"
	"testing"

	"flowsema/internal/dataflow"
	"flowsema/internal/descriptors"
	"flowsema/internal/types"
)

// diamond builds:
//
//	0 jmp? x == null -> 3
//	1 write x := s
//	2 jmp 4
//	3 mark
//	4 probe x
//	5 exit
func diamond(t *testing.T) (*Graph, dataflow.ValueID) {
	t.Helper()
	in := types.NewInterner()
	vs := dataflow.NewValues(in)
	x := vs.New(dataflow.ValueLocal, "x", in.Builtins().NullableAny, true)
	null := vs.New(dataflow.ValueConstant, "null", in.Builtins().NullableNothing, true)
	s := vs.New(dataflow.ValueExpression, "s", in.Builtins().String, true)

	b := NewBuilder("f", descriptors.NoDescID, vs)
	elseL, joinL := b.NewLabel(), b.NewLabel()
	b.CondJump(NoElementID, Condition{Kind: CondEq, Left: x, Right: null}, elseL)
	b.Write(NoElementID, x, s)
	b.Jump(joinL)
	b.Bind(elseL)
	b.Mark(NoElementID, dataflow.NoValueID)
	b.Bind(joinL)
	b.Probe(NoElementID, x, "after")
	g, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g, x
}

func TestBuilderResolvesLabels(t *testing.T) {
	g, _ := diamond(t)
	if g.Len() != 6 || g.Instrs[5].Kind != InstrExit {
		t.Fatalf("exit must be appended:\n%s", g)
	}
	if g.Instrs[0].CondJump.Target != 3 || g.Instrs[2].Jump.Target != 4 {
		t.Fatalf("labels not patched:\n%s", g)
	}
	succ := g.Successors(0)
	if len(succ) != 2 || succ[0].Branch != BranchTaken || succ[1].To != 1 {
		t.Fatalf("conditional successors wrong: %+v", succ)
	}
	if !strings.Contains(g.String(), "probe x \"after\"") {
		t.Fatalf("dump lacks the probe:\n%s", g)
	}
}

func TestBuilderRejectsUnboundLabel(t *testing.T) {
	b := NewBuilder("broken", descriptors.NoDescID, nil)
	b.Jump(b.NewLabel())
	if _, err := b.Build(); err == nil {
		t.Fatalf("unbound label must fail")
	}
}

func TestWithinFollowsParents(t *testing.T) {
	b := NewBuilder("outer", descriptors.NoDescID, nil)
	lambda := b.NewSubGraph(RootGraph, "lambda", descriptors.NoDescID)
	inner := b.NewSubGraph(lambda, "inner", descriptors.NoDescID)
	g := b.MustBuild()
	if !g.Within(inner, RootGraph) || !g.Within(inner, lambda) || g.Within(RootGraph, lambda) {
		t.Fatalf("Within broken")
	}
}

func TestReachable(t *testing.T) {
	b := NewBuilder("dead", descriptors.NoDescID, nil)
	end := b.NewLabel()
	b.Jump(end)
	b.Mark(NoElementID, dataflow.NoValueID)
	b.Bind(end)
	g := b.MustBuild()
	if got := g.Reachable(); !slices.Equal(got, []bool{true, false, true}) {
		t.Fatalf("reachability: %v", got)
	}
}

func TestForwardJoinsBranches(t *testing.T) {
	g, x := diamond(t)
	empty := dataflow.Empty(g.Values)
	res := Forward(g, Analysis[*dataflow.Snapshot]{
		Entry: empty,
		Transfer: func(id InstrID, in *dataflow.Snapshot) *dataflow.Snapshot {
			ins := g.Instr(id)
			if ins.Kind == InstrWrite {
				return in.Assign(ins.Write.Target, ins.Write.Source)
			}
			return in
		},
		Edge: func(e Edge, out *dataflow.Snapshot) *dataflow.Snapshot {
			ins := g.Instr(e.From)
			if ins.Kind != InstrCondJump {
				return out
			}
			c := ins.CondJump.Cond
			if e.Branch == BranchTaken {
				return out.Equate(c.Left, c.Right)
			}
			return out.Disequate(c.Left, c.Right)
		},
		Join:  (*dataflow.Snapshot).Or,
		Equal: (*dataflow.Snapshot).Equal,
	})

	if got := res.In[1].CollectedNullability(x); got != dataflow.NotNull {
		t.Fatalf("not-taken edge of x == null: want NOT_NULL, got %s", got)
	}
	if got := res.In[3].CollectedNullability(x); got != dataflow.Null {
		t.Fatalf("taken edge: want NULL, got %s", got)
	}
	if got := res.In[4].CollectedNullability(x); got != dataflow.Unknown {
		t.Fatalf("join: want UNKNOWN, got %s", got)
	}

	var order []InstrID
	res.Visit(func(id InstrID, _ *dataflow.Snapshot) { order = append(order, id) })
	if !slices.IsSorted(order) || len(order) != g.Len() {
		t.Fatalf("visit order: %v", order)
	}
}

func TestForwardReachesFixedPointOnLoops(t *testing.T) {
	// 0 mark; 1 jmp? opaque -> 0; 2 exit
	b := NewBuilder("loop", descriptors.NoDescID, nil)
	head := b.NewLabel()
	b.Bind(head)
	b.Mark(NoElementID, dataflow.NoValueID)
	b.CondJump(NoElementID, Condition{}, head)
	g := b.MustBuild()

	visits := 0
	res := Forward(g, Analysis[int]{
		Entry: 0,
		Transfer: func(id InstrID, in int) int {
			visits++
			if in < 3 {
				return in + 1
			}
			return in
		},
		Join:  func(a, b int) int { return max(a, b) },
		Equal: func(a, b int) bool { return a == b },
	})
	if res.In[0] != 3 {
		t.Fatalf("loop head must saturate at 3, got %d", res.In[0])
	}
	if visits > 20 {
		t.Fatalf("worklist did not converge quickly: %d visits", visits)
	}
}
