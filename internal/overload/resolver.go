package overload

import (
	"strconv"

	"flowsema/internal/descriptors"
	"flowsema/internal/trace"
	"flowsema/internal/types"
)

// Mode selects how candidates are compared.
type Mode uint8

const (
	// MatchValueArguments compares the parameters bound to explicit arguments.
	MatchValueArguments Mode = iota
	// MatchCallableType compares whole signatures, for callable references.
	MatchCallableType
)

func (m Mode) String() string {
	if m == MatchCallableType {
		return "callable-type"
	}
	return "value-arguments"
}

// Outcome tells whether resolution picked a single candidate.
type Outcome uint8

const (
	Empty Outcome = iota
	Resolved
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	default:
		return "empty"
	}
}

// Result of one resolution attempt. Tied holds the maximally specific
// candidates when there is more than one, or every candidate when none is
// maximal.
type Result struct {
	Outcome Outcome
	Winner  Candidate
	Tied    []Candidate
}

// Resolver picks the most specific candidate of a call site.
type Resolver struct {
	table       *descriptors.Table
	types       *types.Interner
	tracer      trace.Tracer
	parentSpan  uint64
	comparisons int
}

func NewResolver(table *descriptors.Table) *Resolver {
	return &Resolver{table: table, types: table.Types(), tracer: trace.Nop}
}

// WithTracer makes the resolver emit node-level spans under parent.
func (r *Resolver) WithTracer(t trace.Tracer, parent uint64) *Resolver {
	if t == nil {
		t = trace.Nop
	}
	r.tracer = t
	r.parentSpan = parent
	return r
}

// Comparisons counts how many times two candidates were compared so far.
func (r *Resolver) Comparisons() int { return r.comparisons }

// Resolve returns the unique maximally specific candidate. Candidates with
// the same resulting descriptor count once; the first occurrence is kept.
func (r *Resolver) Resolve(cands []Candidate, discriminateGenerics bool, mode Mode) Result {
	span := trace.Begin(r.tracer, trace.ScopeNode, "overload", r.parentSpan)
	res := r.resolve(dedup(cands), discriminateGenerics, mode)
	span.WithExtra("candidates", strconv.Itoa(len(cands))).End(res.Outcome.String())
	return res
}

func (r *Resolver) resolve(cands []Candidate, discriminateGenerics bool, mode Mode) Result {
	switch len(cands) {
	case 0:
		return Result{Outcome: Empty}
	case 1:
		return Result{Outcome: Resolved, Winner: cands[0]}
	}

	plain := make([]view, len(cands))
	var bounded []view
	for i := range cands {
		plain[i] = r.prepare(&cands[i], false)
	}

	var maximal []int
	if mode == MatchCallableType {
		maximal = r.maximal(all(len(cands)), func(f, g int) bool {
			return r.moreSpecificReference(plain[f], plain[g])
		})
	} else {
		pool := all(len(cands))
		if cands[0].Variable != descriptors.NoDescID {
			pool = r.maximal(pool, func(f, g int) bool {
				return r.moreSpecificVariable(cands[f].Variable, cands[g].Variable, discriminateGenerics, false)
			})
		}
		maximal = r.maximal(pool, func(f, g int) bool {
			if bounded == nil {
				bounded = make([]view, len(cands))
				for i := range cands {
					bounded[i] = r.prepare(&cands[i], true)
				}
			}
			return r.moreSpecificCall(plain[f], plain[g], bounded[f], bounded[g], discriminateGenerics)
		})
	}

	if len(maximal) == 1 {
		return Result{Outcome: Resolved, Winner: cands[maximal[0]]}
	}
	tied := make([]Candidate, 0, len(cands))
	if len(maximal) == 0 {
		tied = append(tied, cands...)
	} else {
		for _, i := range maximal {
			tied = append(tied, cands[i])
		}
	}
	return Result{Outcome: Ambiguous, Tied: tied}
}

// maximal keeps the candidates no other candidate is strictly more specific
// than. A single candidate is kept without comparing anything.
func (r *Resolver) maximal(pool []int, moreSpecific func(f, g int) bool) []int {
	if len(pool) <= 1 {
		return pool
	}
	cmp := func(f, g int) bool {
		r.comparisons++
		return moreSpecific(f, g)
	}
	out := make([]int, 0, len(pool))
	for _, c := range pool {
		beaten := false
		for _, d := range pool {
			if d == c {
				continue
			}
			if cmp(d, c) && !cmp(c, d) {
				beaten = true
				break
			}
		}
		if !beaten {
			out = append(out, c)
		}
	}
	return out
}

func dedup(cands []Candidate) []Candidate {
	if len(cands) <= 1 {
		return cands
	}
	seen := make(map[descriptors.DescID]struct{}, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if _, ok := seen[c.Desc]; ok {
			continue
		}
		seen[c.Desc] = struct{}{}
		out = append(out, c)
	}
	return out
}

func all(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
