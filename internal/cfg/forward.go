package cfg

import "container/heap"

// Analysis describes a forward data-flow problem over a Graph.
type Analysis[D any] struct {
	// Entry is the state flowing into instruction 0.
	Entry D
	// Transfer applies the effect of one instruction.
	Transfer func(id InstrID, in D) D
	// Edge refines the state along one edge; nil means identity.
	Edge func(e Edge, out D) D
	// Join merges states meeting at an instruction.
	Join func(a, b D) D
	// Equal detects the fixed point.
	Equal func(a, b D) bool
}

// Result holds the state before every reachable instruction.
type Result[D any] struct {
	In      []D
	Reached []bool
}

// Visit calls fn once per reached instruction in ascending index order.
func (r *Result[D]) Visit(fn func(id InstrID, in D)) {
	for i, ok := range r.Reached {
		if ok {
			fn(InstrID(toID(i, "instruction")), r.In[i])
		}
	}
}

// Forward runs the analysis to its fixed point. The worklist always picks the
// lowest pending instruction, so the order of evaluation and therefore the
// result do not depend on anything but the graph.
func Forward[D any](g *Graph, a Analysis[D]) *Result[D] {
	n := g.Len()
	res := &Result[D]{In: make([]D, n), Reached: make([]bool, n)}
	if n == 0 {
		return res
	}
	res.In[0] = a.Entry
	res.Reached[0] = true

	wl := &worklist{queued: make([]bool, n)}
	wl.add(0)
	for wl.Len() > 0 {
		id := wl.take()
		out := a.Transfer(id, res.In[id])
		for _, e := range g.Successors(id) {
			st := out
			if a.Edge != nil {
				st = a.Edge(e, out)
			}
			if !res.Reached[e.To] {
				res.In[e.To] = st
				res.Reached[e.To] = true
				wl.add(e.To)
				continue
			}
			merged := a.Join(res.In[e.To], st)
			if !a.Equal(merged, res.In[e.To]) {
				res.In[e.To] = merged
				wl.add(e.To)
			}
		}
	}
	return res
}

// worklist is a min-heap of instruction ids without duplicates.
type worklist struct {
	ids    []InstrID
	queued []bool
}

func (w *worklist) Len() int           { return len(w.ids) }
func (w *worklist) Less(i, j int) bool { return w.ids[i] < w.ids[j] }
func (w *worklist) Swap(i, j int)      { w.ids[i], w.ids[j] = w.ids[j], w.ids[i] }
func (w *worklist) Push(x any)         { w.ids = append(w.ids, x.(InstrID)) }
func (w *worklist) Pop() any {
	last := w.ids[len(w.ids)-1]
	w.ids = w.ids[:len(w.ids)-1]
	return last
}

func (w *worklist) add(id InstrID) {
	if w.queued[id] {
		return
	}
	w.queued[id] = true
	heap.Push(w, id)
}

func (w *worklist) take() InstrID {
	id := heap.Pop(w).(InstrID)
	w.queued[id] = false
	return id
}
