package fixture

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// The document layout of a fixture file. Scalars that end up in diagnostics
// are decoded as str so their position survives.
//
// Nullable type expressions must be quoted inside flow mappings and
// sequences: YAML reads "?" there as a mapping key indicator, so
// {name: x, type: Any?} is a syntax error while {name: x, type: "Any?"}
// loads. Block mappings (type: Any?) need no quotes.

type document struct {
	Package    str         `yaml:"package"`
	Scripts    []scriptDoc `yaml:"scripts"`
	Classes    []classDoc  `yaml:"classes"`
	Functions  []funcDoc   `yaml:"functions"`
	Properties []propDoc   `yaml:"properties"`
	Calls      []callDoc   `yaml:"calls"`
	Graphs     []graphDoc  `yaml:"graphs"`
}

type scriptDoc struct {
	Name       str       `yaml:"name"`
	Priority   int       `yaml:"priority"`
	Functions  []funcDoc `yaml:"functions"`
	Properties []propDoc `yaml:"properties"`
}

type classDoc struct {
	Name         str          `yaml:"name"`
	Kind         str          `yaml:"kind"`
	Modality     str          `yaml:"modality"`
	TypeParams   []typeParam  `yaml:"typeparams"`
	Supertypes   []superEntry `yaml:"supertypes"`
	Ctor         *funcDoc     `yaml:"ctor"`
	Constructors []funcDoc    `yaml:"constructors"`
	Functions    []funcDoc    `yaml:"functions"`
	Properties   []propDoc    `yaml:"properties"`
	Classes      []classDoc   `yaml:"classes"`
}

type funcDoc struct {
	ID         str         `yaml:"id"`
	Name       str         `yaml:"name"`
	TypeParams []typeParam `yaml:"typeparams"`
	Receiver   str         `yaml:"receiver"`
	Params     []param     `yaml:"params"`
	Returns    str         `yaml:"returns"`
	Modality   str         `yaml:"modality"`
	Visibility str         `yaml:"visibility"`
	Kind       str         `yaml:"kind"`
	Overrides  []str       `yaml:"overrides"`
}

type propDoc struct {
	ID         str         `yaml:"id"`
	Name       str         `yaml:"name"`
	TypeParams []typeParam `yaml:"typeparams"`
	Receiver   str         `yaml:"receiver"`
	Type       str         `yaml:"type"`
	Var        bool        `yaml:"var"`
	Field      *bool       `yaml:"field"`
	Getter     str         `yaml:"getter"`
	Setter     str         `yaml:"setter"`
	Modality   str         `yaml:"modality"`
	Visibility str         `yaml:"visibility"`
	Kind       str         `yaml:"kind"`
	Overrides  []str       `yaml:"overrides"`
}

type callDoc struct {
	Site         str            `yaml:"site"`
	Discriminate *bool          `yaml:"discriminate"`
	Mode         str            `yaml:"mode"`
	Candidates   []candidateDoc `yaml:"candidates"`
}

type candidateDoc struct {
	Target   str   `yaml:"target"`
	Args     []int `yaml:"args"`
	Varargs  int   `yaml:"varargs"`
	Defaults int   `yaml:"defaults"`
	Variable str   `yaml:"variable"`
}

type graphDoc struct {
	Decl   str        `yaml:"decl"`
	Name   str        `yaml:"name"`
	Values []valueDoc `yaml:"values"`
	Code   []instr    `yaml:"code"`
}

type valueDoc struct {
	Name        str   `yaml:"name"`
	Type        str   `yaml:"type"`
	Kind        str   `yaml:"kind"`
	Predictable *bool `yaml:"predictable"`
}

// str is a scalar with the position it was read from.
type str struct {
	Value string
	Line  int
	Col   int
}

func (s *str) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", n.Line)
	}
	s.Value, s.Line, s.Col = n.Value, n.Line, n.Column
	return nil
}

// typeParam is `T` or `{name: T, bound: Number, variance: out}`.
type typeParam struct {
	Name     str `yaml:"name"`
	Bound    str `yaml:"bound"`
	Variance str `yaml:"variance"`
}

func (p *typeParam) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		return p.Name.UnmarshalYAML(n)
	}
	type plain typeParam
	return n.Decode((*plain)(p))
}

// param is `Int` or `{name: xs, type: Int, vararg: true, default: true}`.
type param struct {
	Name    str  `yaml:"name"`
	Type    str  `yaml:"type"`
	Vararg  bool `yaml:"vararg"`
	Default bool `yaml:"default"`
}

func (p *param) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		return p.Type.UnmarshalYAML(n)
	}
	type plain param
	return n.Decode((*plain)(p))
}

// superEntry is one item of a class header: `Shape`, `{by: Shape}` or
// `{call: Base}`.
type superEntry struct {
	Type str
	Kind string // "", "by", "call"
}

func (e *superEntry) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		return e.Type.UnmarshalYAML(n)
	}
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return fmt.Errorf("line %d: supertype must be a name or a single-key mapping", n.Line)
	}
	e.Kind = n.Content[0].Value
	switch e.Kind {
	case "by", "call", "type":
	default:
		return fmt.Errorf("line %d: unknown supertype form %q", n.Line, e.Kind)
	}
	if e.Kind == "type" {
		e.Kind = ""
	}
	return e.Type.UnmarshalYAML(n.Content[1])
}

// instr is one pseudocode line: a mapping with a single key naming the
// operation. The argument is decoded later, once names can be resolved.
type instr struct {
	Op   string
	Arg  *yaml.Node
	Line int
	Col  int
}

func (i *instr) UnmarshalYAML(n *yaml.Node) error {
	i.Line, i.Col = n.Line, n.Column
	switch n.Kind {
	case yaml.ScalarNode:
		// bare operations without argument, e.g. `- exit`
		i.Op = n.Value
		return nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return fmt.Errorf("line %d: instruction must have exactly one operation", n.Line)
		}
		i.Op = n.Content[0].Value
		i.Arg = n.Content[1]
		return nil
	}
	return fmt.Errorf("line %d: malformed instruction", n.Line)
}
