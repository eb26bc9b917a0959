// Package testkit holds checks shared by tests and fuzz harnesses.
package testkit

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"flowsema/internal/descriptors"
	"flowsema/internal/fixture"
	"flowsema/internal/source"
)

// CheckFixtureSpans verifies that every span a loaded fixture hands out
// points into its own file:
//  1. descriptor spans lie within the file content;
//  2. call site spans and graph element spans do too;
//  3. the class spans recorded by the loader match their descriptors.
func CheckFixtureSpans(fix *fixture.Fixture, sf *source.File) error {
	if fix == nil || sf == nil {
		return fmt.Errorf("nil fixture or file")
	}
	size, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	whole := source.Span{File: sf.ID, Start: 0, End: size}

	var errs []error
	check := func(what string, sp source.Span) {
		if sp.Start > sp.End {
			errs = append(errs, fmt.Errorf("%s: inverted span %v", what, sp))
			return
		}
		if !whole.Contains(sp) {
			errs = append(errs, fmt.Errorf("%s: span %v is outside %v", what, sp, whole))
		}
	}

	fix.Table.Each(func(id descriptors.DescID, d *descriptors.Descriptor) {
		check(fix.Table.QualifiedName(id), d.Span)
	})
	for _, c := range fix.Calls {
		check("call "+c.Name, c.Span)
	}
	for _, g := range fix.Graphs {
		for i := 1; i < len(g.Elements); i++ {
			check(fmt.Sprintf("graph %s element %d", g.Name, i), g.Elements[i].Span)
		}
	}
	for _, c := range fix.Classes {
		if d := fix.Table.Get(c.ID); d != nil && d.Span != c.Span {
			errs = append(errs, fmt.Errorf("class %s: loader span %v differs from descriptor span %v",
				fix.Table.Name(c.ID), c.Span, d.Span))
		}
	}
	return errors.Join(errs...)
}
