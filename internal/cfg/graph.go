package cfg

import (
	"errors"
	"fmt"

	"flowsema/internal/dataflow"
	"flowsema/internal/descriptors"
)

// GraphID identifies a sub-graph; 0 means none, 1 is the root.
type GraphID uint32

const (
	NoGraphID GraphID = 0
	RootGraph GraphID = 1
)

// SubGraph is the part of a pseudocode graph generated for one declaration.
// Nested declarations (local functions, lambdas, object literals) get their
// own sub-graph whose Parent is the enclosing one.
type SubGraph struct {
	Name   string
	Parent GraphID
	Decl   descriptors.DescID
}

// Graph is the pseudocode of one declaration: instructions in a flat arena,
// each tagged with the sub-graph that owns it.
type Graph struct {
	Name      string
	Decl      descriptors.DescID
	Values    *dataflow.Values
	Instrs    []Instr
	Elements  []Element  // [0] unused
	SubGraphs []SubGraph // [0] unused, [1] root
}

// Branch labels an edge.
type Branch uint8

const (
	BranchNext Branch = iota
	BranchTaken
	BranchNotTaken
)

func (b Branch) String() string {
	switch b {
	case BranchTaken:
		return "taken"
	case BranchNotTaken:
		return "not-taken"
	default:
		return "next"
	}
}

// Edge connects two instructions.
type Edge struct {
	From, To InstrID
	Branch   Branch
}

// Len returns the number of instructions.
func (g *Graph) Len() int { return len(g.Instrs) }

// Instr returns the instruction or nil when out of range.
func (g *Graph) Instr(id InstrID) *Instr {
	if int(id) >= len(g.Instrs) {
		return nil
	}
	return &g.Instrs[id]
}

// Element returns the source element or nil.
func (g *Graph) Element(id ElementID) *Element {
	if id == NoElementID || int(id) >= len(g.Elements) {
		return nil
	}
	return &g.Elements[id]
}

// SubGraph returns sub-graph metadata or nil.
func (g *Graph) SubGraph(id GraphID) *SubGraph {
	if id == NoGraphID || int(id) >= len(g.SubGraphs) {
		return nil
	}
	return &g.SubGraphs[id]
}

// Within reports whether owner is sub or nested somewhere inside it.
func (g *Graph) Within(owner, sub GraphID) bool {
	for depth := 0; owner != NoGraphID && depth < len(g.SubGraphs); depth++ {
		if owner == sub {
			return true
		}
		sg := g.SubGraph(owner)
		if sg == nil {
			return false
		}
		owner = sg.Parent
	}
	return false
}

// Successors lists outgoing edges of id in a fixed order: the taken edge of a
// conditional jump comes before its fall-through.
func (g *Graph) Successors(id InstrID) []Edge {
	ins := g.Instr(id)
	if ins == nil {
		return nil
	}
	next := id + 1
	hasNext := int(next) < len(g.Instrs)
	switch ins.Kind {
	case InstrExit:
		return nil
	case InstrJump:
		return []Edge{{From: id, To: ins.Jump.Target, Branch: BranchNext}}
	case InstrCondJump:
		out := []Edge{{From: id, To: ins.CondJump.Target, Branch: BranchTaken}}
		if hasNext {
			out = append(out, Edge{From: id, To: next, Branch: BranchNotTaken})
		}
		return out
	}
	if !hasNext {
		return nil
	}
	return []Edge{{From: id, To: next, Branch: BranchNext}}
}

// Reachable marks instructions reachable from the entry.
func (g *Graph) Reachable() []bool {
	seen := make([]bool, len(g.Instrs))
	if len(g.Instrs) == 0 {
		return seen
	}
	stack := []InstrID{0}
	seen[0] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Successors(id) {
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return seen
}

// Validate checks structural invariants of a graph built by hand or loaded
// from a fixture.
func (g *Graph) Validate() error {
	if g == nil {
		return nil
	}
	var errs []error
	if len(g.SubGraphs) < 2 {
		errs = append(errs, errors.New("missing root sub-graph"))
	}
	for i := 2; i < len(g.SubGraphs); i++ {
		p := g.SubGraphs[i].Parent
		if p == NoGraphID || int(p) >= i {
			errs = append(errs, fmt.Errorf("sub-graph %d: parent %d must precede it", i, p))
		}
	}
	for i := range g.Instrs {
		ins := &g.Instrs[i]
		if g.SubGraph(ins.Owner) == nil {
			errs = append(errs, fmt.Errorf("i%d: unknown owner %d", i, ins.Owner))
		}
		if ins.Element != NoElementID && g.Element(ins.Element) == nil {
			errs = append(errs, fmt.Errorf("i%d: unknown element %d", i, ins.Element))
		}
		switch ins.Kind {
		case InstrJump:
			if int(ins.Jump.Target) >= len(g.Instrs) {
				errs = append(errs, fmt.Errorf("i%d: jump target %d out of range", i, ins.Jump.Target))
			}
		case InstrCondJump:
			if int(ins.CondJump.Target) >= len(g.Instrs) {
				errs = append(errs, fmt.Errorf("i%d: jump target %d out of range", i, ins.CondJump.Target))
			}
		case InstrMagic:
			if ins.Element == NoElementID {
				errs = append(errs, fmt.Errorf("i%d: magic instruction without element", i))
			}
		}
	}
	for i := 1; i < len(g.Elements); i++ {
		el := &g.Elements[i]
		if el.Parent != NoElementID && g.Element(el.Parent) == nil {
			errs = append(errs, fmt.Errorf("element %d: unknown parent %d", i, el.Parent))
		}
		if el.Selector != NoElementID && g.Element(el.Selector) == nil {
			errs = append(errs, fmt.Errorf("element %d: unknown selector %d", i, el.Selector))
		}
	}
	return errors.Join(errs...)
}
