package fixture

import (
	"maps"
	"strings"

	"flowsema/internal/delegation"
	"flowsema/internal/descriptors"
	"flowsema/internal/diag"
	"flowsema/internal/overload"
	"flowsema/internal/source"
	"flowsema/internal/types"
)

type loader struct {
	fix  *Fixture
	file *source.File
	rep  diag.Reporter
	opts Options
	tab  *descriptors.Table
	in   *types.Interner

	ids     map[string]descriptors.DescID
	byQName map[string][]descriptors.DescID
	byName  map[string][]descriptors.DescID

	classDocs []*classDoc // parallel to fix.Classes
	overrides []pendingOverride
}

type pendingOverride struct {
	member descriptors.DescID
	refs   []str
}

func newLoader(file *source.File, rep diag.Reporter, opts Options) *loader {
	tab := descriptors.NewTable(nil, nil)
	return &loader{
		fix:     &Fixture{Path: file.Path, File: file.ID, Table: tab},
		file:    file,
		rep:     rep,
		opts:    opts,
		tab:     tab,
		in:      tab.Types(),
		ids:     make(map[string]descriptors.DescID),
		byQName: make(map[string][]descriptors.DescID),
		byName:  make(map[string][]descriptors.DescID),
	}
}

func (l *loader) load(doc *document) {
	l.fix.Package = l.tab.NewPackage(doc.Package.Value, l.span(doc.Package))

	// classes first so that every type name is known to the members
	l.declareClasses(l.fix.Package, doc.Classes, nil)
	for i := range l.fix.Classes {
		l.classHeader(&l.fix.Classes[i], l.classDocs[i])
	}
	for i := range l.fix.Classes {
		l.classMembers(&l.fix.Classes[i], l.classDocs[i])
	}
	l.members(l.fix.Package, doc.Functions, doc.Properties, nil)
	for _, s := range doc.Scripts {
		script := l.tab.NewScript(s.Name.Value, s.Priority, l.span(s.Name))
		l.members(script, s.Functions, s.Properties, nil)
	}
	l.resolveOverrides()

	for i, c := range doc.Calls {
		l.call(i, c)
	}
	for _, g := range doc.Graphs {
		if built := l.graph(g); built != nil {
			l.fix.Graphs = append(l.fix.Graphs, built)
		}
	}
}

func (l *loader) register(id descriptors.DescID, ref str) {
	if ref.Value != "" {
		if _, dup := l.ids[ref.Value]; dup {
			l.errorf(diag.IOFixtureDuplicate, ref, "duplicate id %s", ref.Value)
		} else {
			l.ids[ref.Value] = id
		}
	}
	q := l.tab.QualifiedName(id)
	l.byQName[q] = append(l.byQName[q], id)
	name := l.tab.Name(id)
	l.byName[name] = append(l.byName[name], id)
}

// Classes -------------------------------------------------------------------

func (l *loader) declareClasses(container descriptors.DescID, docs []classDoc, outer map[string]types.TypeID) {
	for i := range docs {
		d := &docs[i]
		if _, taken := l.in.ByName(d.Name.Value); taken || d.Name.Value == "" {
			l.errorf(diag.IOFixtureDuplicate, d.Name, "type %q is already declared", d.Name.Value)
			continue
		}
		kind := l.classKind(d.Kind)
		modality := l.modality(d.Modality, descriptors.Final)
		id := l.tab.NewClass(container, d.Name.Value, kind, modality, l.span(d.Name))
		l.register(id, str{})

		scope := maps.Clone(outer)
		if scope == nil {
			scope = make(map[string]types.TypeID)
		}
		params := l.typeParams(d.TypeParams, scope)
		l.in.SetClassParams(l.tab.Get(id).Class.Type, params)

		l.fix.Classes = append(l.fix.Classes, Class{ID: id, Span: l.span(d.Name), Scope: scope})
		l.classDocs = append(l.classDocs, d)
		l.declareClasses(id, d.Classes, scope)
	}
}

func (l *loader) classHeader(c *Class, d *classDoc) {
	var supers []types.TypeID
	for _, e := range d.Supertypes {
		spec := delegation.Specifier{
			Kind: delegation.Supertype,
			Type: delegation.TypeRef{Text: e.Type.Value, Span: l.span(e.Type)},
			Span: l.span(e.Type),
		}
		switch e.Kind {
		case "by":
			spec.Kind = delegation.ByExpression
		case "call":
			spec.Kind = delegation.SuperCall
		}
		c.Specifiers = append(c.Specifiers, spec)
		if t, ok := l.typeOf(e.Type, c.Scope); ok {
			supers = append(supers, t)
		}
	}
	l.tab.SetSupertypes(c.ID, supers)
}

func (l *loader) classMembers(c *Class, d *classDoc) {
	isInterface := l.tab.Get(c.ID).Class.Kind == descriptors.ClassKindInterface
	if d.Ctor != nil {
		l.constructor(c, *d.Ctor, true)
	}
	for _, ctor := range d.Constructors {
		l.constructor(c, ctor, false)
	}
	def := descriptors.Final
	if isInterface {
		def = descriptors.Abstract
	}
	for _, f := range d.Functions {
		l.function(c.ID, f, c.Scope, def)
	}
	for _, p := range d.Properties {
		l.property(c.ID, p, c.Scope, def)
	}
}

// ResolveType resolves a header entry the way delegation needs it.
func (f *Fixture) ResolveType(ref delegation.TypeRef) (types.TypeID, bool) {
	in := f.Table.Types()
	t, err := parseType(in, nil, ref.Text)
	if err != nil {
		return types.NoTypeID, false
	}
	return t, true
}

// Members -------------------------------------------------------------------

func (l *loader) members(container descriptors.DescID, fns []funcDoc, props []propDoc, scope map[string]types.TypeID) {
	for _, f := range fns {
		l.function(container, f, scope, descriptors.Final)
	}
	for _, p := range props {
		l.property(container, p, scope, descriptors.Final)
	}
}

func (l *loader) callableSpec(name str, tps []typeParam, receiver str, modality, visibility, kind str, outer map[string]types.TypeID, defModality descriptors.Modality) (descriptors.MemberSpec, map[string]types.TypeID) {
	scope := maps.Clone(outer)
	if scope == nil {
		scope = make(map[string]types.TypeID)
	}
	spec := descriptors.MemberSpec{
		Span:       l.span(name),
		Modality:   l.modality(modality, defModality),
		Visibility: l.visibility(visibility),
		MemberKind: l.memberKind(kind),
		TypeParams: l.typeParams(tps, scope),
	}
	if receiver.Value != "" {
		spec.ExtReceiver, _ = l.typeOf(receiver, scope)
	}
	return spec, scope
}

func (l *loader) valueParams(ps []param, scope map[string]types.TypeID) []descriptors.ValueParam {
	out := make([]descriptors.ValueParam, 0, len(ps))
	for _, p := range ps {
		t, _ := l.typeOf(p.Type, scope)
		vp := descriptors.ValueParam{Name: l.tab.Strings().Intern(p.Name.Value), Type: t, HasDefault: p.Default}
		if p.Vararg {
			vp.VarargElem = t
		}
		out = append(out, vp)
	}
	return out
}

func (l *loader) function(container descriptors.DescID, d funcDoc, outer map[string]types.TypeID, def descriptors.Modality) descriptors.DescID {
	if d.Name.Value == "" {
		l.errorf(diag.IOFixtureInvalid, d.ID, "function without a name")
		return descriptors.NoDescID
	}
	spec, scope := l.callableSpec(d.Name, d.TypeParams, d.Receiver, d.Modality, d.Visibility, d.Kind, outer, def)
	spec.ValueParams = l.valueParams(d.Params, scope)
	spec.Return = l.in.Builtins().Unit
	if d.Returns.Value != "" {
		spec.Return, _ = l.typeOf(d.Returns, scope)
	}
	id := l.tab.NewFunction(container, d.Name.Value, spec)
	l.register(id, d.ID)
	l.overrides = append(l.overrides, pendingOverride{member: id, refs: d.Overrides})
	return id
}

func (l *loader) constructor(c *Class, d funcDoc, primary bool) {
	spec, scope := l.callableSpec(d.Name, d.TypeParams, str{}, d.Modality, d.Visibility, d.Kind, c.Scope, descriptors.Final)
	if d.Name.Value == "" {
		spec.Span = c.Span
	}
	spec.ValueParams = l.valueParams(d.Params, scope)
	id := l.tab.NewConstructor(c.ID, spec, primary)
	if d.ID.Value != "" {
		l.register(id, d.ID)
	}
}

func (l *loader) property(container descriptors.DescID, d propDoc, outer map[string]types.TypeID, def descriptors.Modality) descriptors.DescID {
	if d.Name.Value == "" {
		l.errorf(diag.IOFixtureInvalid, d.ID, "property without a name")
		return descriptors.NoDescID
	}
	spec, scope := l.callableSpec(d.Name, d.TypeParams, d.Receiver, d.Modality, d.Visibility, d.Kind, outer, def)
	spec.Return, _ = l.typeOf(d.Type, scope)
	spec.Property = descriptors.Property{
		Mutable:         d.Var,
		HasBackingField: d.Field == nil || *d.Field,
		DefaultGetter:   l.accessor(d.Getter),
		DefaultSetter:   l.accessor(d.Setter),
	}
	id := l.tab.NewProperty(container, d.Name.Value, spec)
	l.register(id, d.ID)
	l.overrides = append(l.overrides, pendingOverride{member: id, refs: d.Overrides})
	return id
}

func (l *loader) resolveOverrides() {
	for _, p := range l.overrides {
		d := l.tab.Get(p.member)
		for _, ref := range p.refs {
			if target, ok := l.resolve(ref, descriptors.NoDescID); ok {
				d.Callable.Overridden = append(d.Callable.Overridden, target)
			}
		}
	}
}

// Calls ---------------------------------------------------------------------

func (l *loader) call(i int, d callDoc) {
	c := Call{
		Name:         d.Site.Value,
		Span:         l.span(d.Site),
		Discriminate: l.opts.DiscriminateGenerics,
	}
	if d.Discriminate != nil {
		c.Discriminate = *d.Discriminate
	}
	switch d.Mode.Value {
	case "", "arguments":
		c.Mode = overload.MatchValueArguments
	case "reference":
		c.Mode = overload.MatchCallableType
	default:
		l.errorf(diag.IOFixtureInvalid, d.Mode, "unknown call mode %q", d.Mode.Value)
	}
	site := overload.SiteID(u32(i + 1))
	for _, cd := range d.Candidates {
		target, ok := l.resolve(cd.Target, descriptors.NoDescID)
		if !ok {
			continue
		}
		cand := overload.Candidate{
			Desc:         target,
			Site:         site,
			Args:         cd.Args,
			VarargCount:  cd.Varargs,
			DefaultCount: cd.Defaults,
		}
		if cand.Args == nil && c.Mode == overload.MatchValueArguments {
			n := len(l.tab.Get(target).ValueParams())
			cand.Args = make([]int, n)
			for j := range cand.Args {
				cand.Args[j] = j
			}
		}
		if cd.Variable.Value != "" {
			if v, ok := l.resolve(cd.Variable, descriptors.NoDescID); ok {
				cand.Variable = v
			}
		}
		c.Candidates = append(c.Candidates, cand)
	}
	l.fix.Calls = append(l.fix.Calls, c)
}

// Names ---------------------------------------------------------------------

// resolve finds a declaration by id, by a member name visible in class, by
// qualified name, or by a simple name that is unique in the file.
func (l *loader) resolve(ref str, class descriptors.DescID) (descriptors.DescID, bool) {
	name := ref.Value
	if id, ok := l.ids[name]; ok {
		return id, true
	}
	if class != descriptors.NoDescID {
		for _, m := range l.tab.ClassMembers(class) {
			if l.tab.Name(m) == name {
				return m, true
			}
		}
		for _, m := range l.tab.MembersByType(l.tab.Get(class).Class.Type) {
			if l.tab.Name(m) == name {
				return m, true
			}
		}
	}
	candidates := l.byQName[name]
	if len(candidates) == 0 {
		if pkg := l.tab.QualifiedName(l.fix.Package); pkg != "" && !strings.HasPrefix(name, pkg+".") {
			candidates = l.byQName[pkg+"."+name]
		}
	}
	if len(candidates) == 0 {
		candidates = l.byName[name]
	}
	switch len(candidates) {
	case 0:
		l.errorf(diag.IOFixtureUnknownName, ref, "unknown name %s", name)
		return descriptors.NoDescID, false
	case 1:
		return candidates[0], true
	}
	l.errorf(diag.IOFixtureInvalid, ref, "%s is ambiguous: give the declaration an id", name)
	return descriptors.NoDescID, false
}

func (l *loader) typeOf(s str, scope map[string]types.TypeID) (types.TypeID, bool) {
	if s.Value == "" {
		l.errorf(diag.IOFixtureInvalid, s, "missing type")
		return l.in.Builtins().Error, false
	}
	t, err := parseType(l.in, scope, s.Value)
	if err != nil {
		l.errorf(diag.IOFixtureUnknownName, s, "%v", err)
		return l.in.Builtins().Error, false
	}
	return t, true
}

// typeParams allocates the parameters into scope first and patches bounds
// afterwards, so bounds may mention any parameter of the same list.
func (l *loader) typeParams(tps []typeParam, scope map[string]types.TypeID) []types.TypeID {
	out := make([]types.TypeID, len(tps))
	for i, tp := range tps {
		out[i] = l.in.NewTypeParam(tp.Name.Value, types.NoTypeID, l.variance(tp.Variance))
		scope[tp.Name.Value] = out[i]
	}
	for i, tp := range tps {
		if tp.Bound.Value == "" {
			continue
		}
		if b, ok := l.typeOf(tp.Bound, scope); ok {
			l.in.SetParamBound(out[i], b)
		}
	}
	return out
}

// Enumerations --------------------------------------------------------------

func (l *loader) classKind(s str) descriptors.ClassKind {
	switch s.Value {
	case "", "class":
		return descriptors.ClassKindClass
	case "interface":
		return descriptors.ClassKindInterface
	case "object":
		return descriptors.ClassKindObject
	}
	l.errorf(diag.IOFixtureInvalid, s, "unknown class kind %q", s.Value)
	return descriptors.ClassKindClass
}

func (l *loader) modality(s str, def descriptors.Modality) descriptors.Modality {
	switch s.Value {
	case "":
		return def
	case "final":
		return descriptors.Final
	case "open":
		return descriptors.Open
	case "abstract":
		return descriptors.Abstract
	}
	l.errorf(diag.IOFixtureInvalid, s, "unknown modality %q", s.Value)
	return def
}

func (l *loader) visibility(s str) descriptors.Visibility {
	switch s.Value {
	case "", "public":
		return descriptors.Public
	case "protected":
		return descriptors.Protected
	case "internal":
		return descriptors.Internal
	case "private":
		return descriptors.Private
	}
	l.errorf(diag.IOFixtureInvalid, s, "unknown visibility %q", s.Value)
	return descriptors.Public
}

func (l *loader) memberKind(s str) descriptors.MemberKind {
	switch s.Value {
	case "", "declaration":
		return descriptors.Declaration
	case "fake-override":
		return descriptors.FakeOverride
	case "delegation":
		return descriptors.Delegation
	case "synthesized":
		return descriptors.Synthesized
	}
	l.errorf(diag.IOFixtureInvalid, s, "unknown member kind %q", s.Value)
	return descriptors.Declaration
}

func (l *loader) variance(s str) types.Variance {
	switch s.Value {
	case "":
		return types.Invariant
	case "in":
		return types.In
	case "out":
		return types.Out
	}
	l.errorf(diag.IOFixtureInvalid, s, "unknown variance %q", s.Value)
	return types.Invariant
}

func (l *loader) accessor(s str) bool {
	switch s.Value {
	case "", "default":
		return true
	case "custom":
		return false
	}
	l.errorf(diag.IOFixtureInvalid, s, "accessor must be default or custom, got %q", s.Value)
	return true
}
