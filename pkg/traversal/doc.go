// Package traversal builds Gremlin traversals as immutable step chains.
//
// A chain starts at a root obtained from a Source (g) or from Anon (__). Every step
// call returns a new Action pointing at its receiver, so partially built traversals
// can be shared and extended independently:
//
//	g := traversal.NewSource(traversal.WithExecutor(c)).G()
//	people := g.V().HasLabel("person")
//	names, err := people.Values("name").ToList(ctx)
//	count, err := people.Count().Next(ctx)
//
// Before submission a chain is flattened into a Program, which separates
// configuration steps (withSideEffect, tx, ...) from regular steps and expands
// registered shortcuts.
package traversal
