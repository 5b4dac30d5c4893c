package dag

import "testing"

func TestToposortOrdersDependenciesFirst(t *testing.T) {
	g := New()
	for _, n := range []string{"full_name", "first_name", "last_name", "age"} {
		g.AddNode(n)
	}
	g.AddEdge("full_name", "first_name")
	g.AddEdge("full_name", "last_name")

	order, err := g.Toposort()
	if err != nil {
		t.Fatalf("Toposort: %v", err)
	}
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	if pos["first_name"] >= pos["full_name"] || pos["last_name"] >= pos["full_name"] {
		t.Errorf("expected first_name and last_name before full_name, got %v", order)
	}
}

func TestToposortDetectsCycle(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("b")
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	if _, err := g.Toposort(); err == nil {
		t.Fatal("expected a cycle error")
	}
}

func TestToposortIsDeterministicAcrossRuns(t *testing.T) {
	build := func() []string {
		g := New()
		for _, n := range []string{"d", "c", "b", "a"} {
			g.AddNode(n)
		}
		g.AddEdge("d", "a")
		order, err := g.Toposort()
		if err != nil {
			t.Fatalf("Toposort: %v", err)
		}
		return order
	}
	first := build()
	second := build()
	if len(first) != len(second) {
		t.Fatalf("length mismatch: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("nondeterministic order: %v vs %v", first, second)
		}
	}
}
