package diag

import (
	"cmp"
	"slices"
)

// Bag holds the diagnostics of one fixture, up to a limit.
type Bag struct {
	items   []Diagnostic
	max     int
	dropped int
}

// NewBag returns a bag for at most max diagnostics; max <= 0 means no limit.
func NewBag(max int) *Bag {
	hint := 64
	if max > 0 && max < hint {
		hint = max
	}
	return &Bag{items: make([]Diagnostic, 0, hint), max: max}
}

// Add stores d unless the bag is full. A rejected diagnostic is counted in
// Dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int     { return b.max }
func (b *Bag) Dropped() int { return b.dropped }
func (b *Bag) Len() int     { return len(b.items) }

func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

// Items exposes the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic { return b.items }

// Pointers returns pointers into the bag, in bag order.
func (b *Bag) Pointers() []*Diagnostic {
	out := make([]*Diagnostic, len(b.items))
	for i := range b.items {
		out[i] = &b.items[i]
	}
	return out
}

// Merge appends the contents of other, raising the limit if it would
// otherwise cut them off.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
	if b.max > 0 && len(b.items) > b.max {
		b.max = len(b.items)
	}
	b.dropped += other.dropped
}

// Sort orders by file, then span, then severity (worst first), then code
// and message.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
			cmp.Compare(x.Message, y.Message),
		)
	})
}

// Dedup keeps the first of every group of identical findings.
func (b *Bag) Dedup() {
	seen := make(map[identity]struct{}, len(b.items))
	b.items = slices.DeleteFunc(b.items, func(d Diagnostic) bool {
		id := d.identity()
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
		return false
	})
}
