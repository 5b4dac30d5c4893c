// Package dag is the toposort machinery internal/pipeline uses for
// per-table derived-column dependency order: a DFS with cycle detection
// over string-named nodes. internal/fkgraph has its own traversal for
// table order and does not use this package.
package dag

import "fmt"

// Graph is a dependency graph over string-named nodes: edges[n] lists the
// nodes n depends on (must come before n in the returned order).
type Graph struct {
	order []string
	edges map[string][]string
	seen  map[string]bool
}

func New() *Graph {
	return &Graph{edges: make(map[string][]string), seen: make(map[string]bool)}
}

// AddNode registers n with no dependencies if not already present,
// preserving first-seen order for deterministic tie-breaking.
func (g *Graph) AddNode(n string) {
	if g.seen[n] {
		return
	}
	g.seen[n] = true
	g.order = append(g.order, n)
}

// AddEdge records that node depends on dependsOn. Both must already be
// registered via AddNode.
func (g *Graph) AddEdge(node, dependsOn string) {
	g.edges[node] = append(g.edges[node], dependsOn)
}

// CycleError carries the DFS path from the traversal's starting node to
// the node that closed the cycle, followed by the repeated node; the
// cycle itself is the suffix from that node's first occurrence.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %v", e.Path)
}

// Toposort returns nodes in first-registered order subject to edges: a
// node only appears after everything it depends on. Ties (nodes with no
// relative constraint) are broken by registration order, so the result is
// deterministic given deterministic AddNode/AddEdge call order.
func (g *Graph) Toposort() ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.order))
	var out []string
	var path []string

	var visit func(string) error
	visit = func(n string) error {
		color[n] = gray
		path = append(path, n)
		for _, dep := range g.edges[n] {
			switch color[dep] {
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			case gray:
				cyclePath := append(append([]string{}, path...), dep)
				return &CycleError{Path: cyclePath}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		out = append(out, n)
		return nil
	}

	for _, n := range g.order {
		if color[n] == white {
			if err := visit(n); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
