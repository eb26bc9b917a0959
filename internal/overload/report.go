package overload

import (
	"cmp"
	"fmt"
	"slices"

	"flowsema/internal/diag"
	"flowsema/internal/source"
)

// ResolveAndReport resolves the candidates of a call to name at site and
// reports an ambiguity when no single candidate wins. An empty candidate set
// is left to the caller: it means nothing was applicable, which is a
// different diagnostic.
func (r *Resolver) ResolveAndReport(rep diag.Reporter, site source.Span, name string, cands []Candidate, discriminateGenerics bool, mode Mode) Result {
	res := r.Resolve(cands, discriminateGenerics, mode)
	if res.Outcome != Ambiguous {
		return res
	}
	tied := slices.Clone(res.Tied)
	slices.SortFunc(tied, func(a, b Candidate) int { return cmp.Compare(a.Desc, b.Desc) })

	msg := fmt.Sprintf("ambiguous overload for %s: %d candidates are equally specific", name, len(tied))
	b := diag.ReportError(rep, diag.SemaOverloadAmbiguity, site, msg)
	for _, c := range tied {
		d := r.table.Get(c.Desc)
		if d == nil {
			continue
		}
		b.WithNote(d.Span, "candidate: "+r.table.Render(c.Desc))
	}
	b.Emit()
	return res
}
