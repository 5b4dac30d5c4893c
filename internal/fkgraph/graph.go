// Package fkgraph builds the child→parent dependency graph implied by a
// schema's foreign keys, and provides the deterministic table ordering the
// engine drives generation with: parents first, ties broken by name, and
// a cycle report usable under non-strict mode.
package fkgraph

import (
	"fmt"
	"sort"

	"github.com/gensynth/gensynth/internal/schemamodel"
)

// TableRef identifies a table by its qualified name.
type TableRef struct {
	Schema string
	Table  string
}

func (r TableRef) String() string { return r.Schema + "." + r.Table }

func (r TableRef) less(o TableRef) bool {
	if r.Schema != o.Schema {
		return r.Schema < o.Schema
	}
	return r.Table < o.Table
}

// Graph is the child→parent dependency graph over a set of tables.
type Graph struct {
	nodes   []TableRef
	parents map[TableRef][]TableRef
}

// Build constructs a Graph from every foreign key declared in db, scoped
// to the given set of tables (normally every table the plan targets plus
// any table reachable by following FKs from them).
func Build(db *schemamodel.Database, tables []TableRef) *Graph {
	g := &Graph{parents: make(map[TableRef][]TableRef)}
	seen := make(map[TableRef]bool)
	for _, ref := range tables {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		g.nodes = append(g.nodes, ref)
	}

	for _, ref := range g.nodes {
		t := db.FindTable(ref.Schema, ref.Table)
		if t == nil {
			continue
		}
		var parents []TableRef
		parentSeen := map[TableRef]bool{}
		for _, fk := range t.ForeignKeys() {
			p := TableRef{Schema: fk.ReferencedSchema, Table: fk.ReferencedTable}
			if p == ref || parentSeen[p] {
				continue
			}
			parentSeen[p] = true
			parents = append(parents, p)
		}
		sort.Slice(parents, func(i, j int) bool { return parents[i].less(parents[j]) })
		g.parents[ref] = parents
	}

	sort.Slice(g.nodes, func(i, j int) bool { return g.nodes[i].less(g.nodes[j]) })
	return g
}

// CycleError reports the strongly-connected components of size > 1 found
// during Toposort.
type CycleError struct {
	Components [][]TableRef
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("foreign key cycle(s) detected among %d component(s)", len(e.Components))
}

// Toposort returns tables in an order where every parent precedes every
// child, ties broken by (schema, table) name. If the graph has cycles it
// returns a *CycleError alongside a best-effort order that still lists
// every table once (the caller decides, per strict mode, whether to honor
// that order or abort). Within a cycle that order is the depth-first
// post-order of the traversal, not name order: for a <-> b it is [b, a].
func (g *Graph) Toposort() ([]TableRef, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[TableRef]int, len(g.nodes))
	var order []TableRef
	var cyclic []TableRef
	cyclicSet := make(map[TableRef]bool)

	var visit func(TableRef)
	visit = func(n TableRef) {
		color[n] = gray
		for _, p := range g.parents[n] {
			switch color[p] {
			case white:
				visit(p)
			case gray:
				if !cyclicSet[n] {
					cyclicSet[n] = true
					cyclic = append(cyclic, n)
				}
				if !cyclicSet[p] {
					cyclicSet[p] = true
					cyclic = append(cyclic, p)
				}
			}
		}
		if color[n] != black {
			color[n] = black
			order = append(order, n)
		}
	}

	for _, n := range g.nodes {
		if color[n] == white {
			visit(n)
		}
	}

	if len(cyclic) == 0 {
		return order, nil
	}

	sort.Slice(cyclic, func(i, j int) bool { return cyclic[i].less(cyclic[j]) })
	all := make(map[TableRef]bool, len(g.nodes))
	for _, n := range g.nodes {
		all[n] = true
	}
	return order, &CycleError{Components: sccs(g, all)}
}

// sccs partitions the given subset of g's nodes into its strongly connected
// components via Tarjan's algorithm, keeping only components of size > 1
// (a lone self-reference is not a reportable cycle under this contract).
func sccs(g *Graph, subset map[TableRef]bool) [][]TableRef {
	index := 0
	indices := map[TableRef]int{}
	lowlink := map[TableRef]int{}
	onStack := map[TableRef]bool{}
	var stack []TableRef
	var out [][]TableRef

	var strongconnect func(v TableRef)
	strongconnect = func(v TableRef) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.parents[v] {
			if !subset[w] {
				continue
			}
			if _, ok := indices[w]; !ok {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var comp []TableRef
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			if len(comp) > 1 {
				sort.Slice(comp, func(i, j int) bool { return comp[i].less(comp[j]) })
				out = append(out, comp)
			}
		}
	}

	var ordered []TableRef
	for t := range subset {
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].less(ordered[j]) })

	for _, v := range ordered {
		if _, ok := indices[v]; !ok {
			strongconnect(v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0].less(out[j][0]) })
	return out
}
