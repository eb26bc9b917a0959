package fixture

import (
	"fmt"
	"strings"
	"unicode"

	"flowsema/internal/types"
)

// typeParser reads the type notation used in fixtures:
//
//	Int  String?  List<Int>  T & Any  Foo!  (A & B)?  <error>
type typeParser struct {
	in    *types.Interner
	scope map[string]types.TypeID
	src   string
	pos   int
}

// parseType resolves text against scope (type parameters) and then the
// interner's classifiers.
func parseType(in *types.Interner, scope map[string]types.TypeID, text string) (types.TypeID, error) {
	p := &typeParser{in: in, scope: scope, src: text}
	t, err := p.intersection()
	if err != nil {
		return types.NoTypeID, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return types.NoTypeID, fmt.Errorf("unexpected %q in type %q", p.src[p.pos:], text)
	}
	return t, nil
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) eat(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) intersection() (types.TypeID, error) {
	t, err := p.postfix()
	if err != nil {
		return types.NoTypeID, err
	}
	for p.eat('&') {
		rhs, err := p.postfix()
		if err != nil {
			return types.NoTypeID, err
		}
		t = p.in.Intersect(t, rhs)
	}
	return t, nil
}

func (p *typeParser) postfix() (types.TypeID, error) {
	t, err := p.primary()
	if err != nil {
		return types.NoTypeID, err
	}
	for {
		switch {
		case p.eat('?'):
			t = p.in.Nullable(t)
		case p.eat('!'):
			t = p.in.Flexible(t)
		default:
			return t, nil
		}
	}
}

func (p *typeParser) primary() (types.TypeID, error) {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "<error>") {
		p.pos += len("<error>")
		return p.in.Builtins().Error, nil
	}
	if p.eat('(') {
		t, err := p.intersection()
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.eat(')') {
			return types.NoTypeID, fmt.Errorf("missing ) in type %q", p.src)
		}
		return t, nil
	}

	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return types.NoTypeID, fmt.Errorf("expected a type name in %q", p.src)
	}
	t, ok := p.scope[name]
	if !ok {
		t, ok = p.in.ByName(name)
	}
	if !ok {
		return types.NoTypeID, fmt.Errorf("unknown type %s", name)
	}

	if !p.eat('<') {
		return t, nil
	}
	var args []types.TypeID
	for {
		arg, err := p.intersection()
		if err != nil {
			return types.NoTypeID, err
		}
		args = append(args, arg)
		if p.eat('>') {
			break
		}
		if !p.eat(',') {
			return types.NoTypeID, fmt.Errorf("expected , or > in type %q", p.src)
		}
	}
	return p.in.Apply(t, args...), nil
}
