package fkgraph

import (
	"testing"

	"github.com/gensynth/gensynth/internal/schemamodel"
)

func fkTable(name string, refs ...string) schemamodel.Table {
	t := schemamodel.Table{Name: name, Kind: schemamodel.KindTable, Columns: []schemamodel.Column{
		{Ordinal: 1, Name: "id", Type: schemamodel.ColumnType{DataType: "integer"}},
	}}
	for i, ref := range refs {
		t.Columns = append(t.Columns, schemamodel.Column{
			Ordinal: i + 2, Name: ref + "_id", Type: schemamodel.ColumnType{DataType: "integer"},
		})
		t.Constraints = append(t.Constraints, schemamodel.Constraint{
			Kind: schemamodel.ConstraintForeignKey, Name: name + "_" + ref + "_fkey",
			Columns: []string{ref + "_id"}, ReferencedSchema: "public",
			ReferencedTable: ref, ReferencedColumns: []string{"id"},
		})
	}
	return t
}

func buildDB(t *testing.T, tables ...schemamodel.Table) *schemamodel.Database {
	t.Helper()
	b := schemamodel.NewBuilder("postgres", "testdb")
	b.AddSchema(schemamodel.Schema{Name: "public", Tables: tables})
	db, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return db
}

func refs(names ...string) []TableRef {
	out := make([]TableRef, len(names))
	for i, n := range names {
		out[i] = TableRef{Schema: "public", Table: n}
	}
	return out
}

func TestToposortOrdersParentsBeforeChildren(t *testing.T) {
	db := buildDB(t,
		fkTable("orders", "users"),
		fkTable("users"),
		fkTable("line_items", "orders", "products"),
		fkTable("products"),
	)
	g := Build(db, refs("orders", "users", "line_items", "products"))
	order, err := g.Toposort()
	if err != nil {
		t.Fatalf("Toposort: %v", err)
	}

	pos := map[string]int{}
	for i, r := range order {
		pos[r.Table] = i
	}
	if pos["users"] >= pos["orders"] {
		t.Errorf("expected users before orders, got order %v", order)
	}
	if pos["orders"] >= pos["line_items"] || pos["products"] >= pos["line_items"] {
		t.Errorf("expected orders and products before line_items, got order %v", order)
	}
}

func TestToposortTieBreaksByName(t *testing.T) {
	db := buildDB(t, fkTable("bbb"), fkTable("aaa"), fkTable("ccc"))
	g := Build(db, refs("bbb", "aaa", "ccc"))
	order, err := g.Toposort()
	if err != nil {
		t.Fatalf("Toposort: %v", err)
	}
	if order[0].Table != "aaa" || order[1].Table != "bbb" || order[2].Table != "ccc" {
		t.Fatalf("expected alphabetical tie-break, got %v", order)
	}
}

func TestToposortReportsCycle(t *testing.T) {
	db := buildDB(t, fkTable("a", "b"), fkTable("b", "a"))
	g := Build(db, refs("a", "b"))
	_, err := g.Toposort()
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	cycleErr, ok := err.(*CycleError)
	if !ok {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if len(cycleErr.Components) != 1 || len(cycleErr.Components[0]) != 2 {
		t.Fatalf("expected one 2-table component, got %v", cycleErr.Components)
	}
}
