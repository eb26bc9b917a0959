package cfg

import (
	"fmt"

	"fortio.org/safecast"

	"flowsema/internal/dataflow"
	"flowsema/internal/descriptors"
)

// Label is a forward-declarable jump target.
type Label uint32

type pendingJump struct {
	at    InstrID
	label Label
}

// Builder assembles a Graph instruction by instruction.
type Builder struct {
	g       *Graph
	owner   GraphID
	labels  []int // -1 while unbound
	pending []pendingJump
}

// NewBuilder starts a graph for decl. Instructions go to the root sub-graph
// until Enter is called.
func NewBuilder(name string, decl descriptors.DescID, values *dataflow.Values) *Builder {
	g := &Graph{
		Name:      name,
		Decl:      decl,
		Values:    values,
		Elements:  make([]Element, 1, 16),
		SubGraphs: []SubGraph{{}, {Name: name, Decl: decl}},
	}
	return &Builder{g: g, owner: RootGraph}
}

func toID(n int, what string) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("%s overflow: %w", what, err))
	}
	return v
}

// Owner returns the sub-graph new instructions are attributed to.
func (b *Builder) Owner() GraphID { return b.owner }

// NewSubGraph declares a nested sub-graph under parent.
func (b *Builder) NewSubGraph(parent GraphID, name string, decl descriptors.DescID) GraphID {
	id := GraphID(toID(len(b.g.SubGraphs), "sub-graph"))
	b.g.SubGraphs = append(b.g.SubGraphs, SubGraph{Name: name, Parent: parent, Decl: decl})
	return id
}

// Enter makes id the owner of following instructions and returns the
// previous owner.
func (b *Builder) Enter(id GraphID) GraphID {
	prev := b.owner
	b.owner = id
	return prev
}

// Element registers a source element.
func (b *Builder) Element(el Element) ElementID {
	id := ElementID(toID(len(b.g.Elements), "element"))
	b.g.Elements = append(b.g.Elements, el)
	return id
}

// SetParent links child under parent after both were registered.
func (b *Builder) SetParent(child, parent ElementID) {
	if el := b.g.Element(child); el != nil {
		el.Parent = parent
	}
}

// NewLabel creates an unbound label.
func (b *Builder) NewLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(toID(len(b.labels)-1, "label"))
}

// Bind points l at the next emitted instruction.
func (b *Builder) Bind(l Label) {
	b.labels[l] = len(b.g.Instrs)
}

func (b *Builder) emit(ins Instr) InstrID {
	ins.Owner = b.owner
	id := InstrID(toID(len(b.g.Instrs), "instruction"))
	b.g.Instrs = append(b.g.Instrs, ins)
	return id
}

func (b *Builder) Read(el ElementID, v dataflow.ValueID) InstrID {
	return b.emit(Instr{Kind: InstrRead, Element: el, Read: ReadInstr{Value: v}})
}

func (b *Builder) Write(el ElementID, target, source dataflow.ValueID) InstrID {
	return b.emit(Instr{Kind: InstrWrite, Element: el, Write: WriteInstr{Target: target, Source: source}})
}

func (b *Builder) Magic(el ElementID, kind MagicKind) InstrID {
	return b.emit(Instr{Kind: InstrMagic, Element: el, Magic: MagicInstr{Kind: kind}})
}

func (b *Builder) Call(el ElementID) InstrID {
	return b.emit(Instr{Kind: InstrCall, Element: el})
}

func (b *Builder) Jump(l Label) InstrID {
	id := b.emit(Instr{Kind: InstrJump})
	b.pending = append(b.pending, pendingJump{at: id, label: l})
	return id
}

func (b *Builder) CondJump(el ElementID, cond Condition, l Label) InstrID {
	id := b.emit(Instr{Kind: InstrCondJump, Element: el, CondJump: CondJumpInstr{Cond: cond}})
	b.pending = append(b.pending, pendingJump{at: id, label: l})
	return id
}

// Mark emits a no-op; a non-zero clear invalidates that value's facts.
func (b *Builder) Mark(el ElementID, clear dataflow.ValueID) InstrID {
	return b.emit(Instr{Kind: InstrMark, Element: el, Mark: MarkInstr{Clear: clear}})
}

func (b *Builder) Probe(el ElementID, v dataflow.ValueID, label string) InstrID {
	return b.emit(Instr{Kind: InstrProbe, Element: el, Probe: ProbeInstr{Value: v, Label: label}})
}

func (b *Builder) Exit() InstrID {
	return b.emit(Instr{Kind: InstrExit})
}

// Build resolves labels and validates the graph. A graph that does not end in
// exit gets one appended.
func (b *Builder) Build() (*Graph, error) {
	if n := len(b.g.Instrs); n == 0 || b.g.Instrs[n-1].Kind != InstrExit {
		prev := b.Enter(RootGraph)
		b.Exit()
		b.owner = prev
	}
	for _, p := range b.pending {
		pos := b.labels[p.label]
		if pos < 0 {
			return nil, fmt.Errorf("%s: label L%d never bound", b.g.Name, p.label)
		}
		target := InstrID(toID(pos, "instruction"))
		ins := &b.g.Instrs[p.at]
		if ins.Kind == InstrJump {
			ins.Jump.Target = target
		} else {
			ins.CondJump.Target = target
		}
	}
	if err := b.g.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", b.g.Name, err)
	}
	return b.g, nil
}

// MustBuild is Build for graphs constructed in code; it panics on error.
func (b *Builder) MustBuild() *Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
