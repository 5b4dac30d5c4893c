package resolver

import (
	"testing"

	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/gerr"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

func ordersTable() *schemamodel.Table {
	return &schemamodel.Table{
		Name: "orders",
		Kind: schemamodel.KindTable,
		Columns: []schemamodel.Column{
			{Ordinal: 1, Name: "id", Type: schemamodel.ColumnType{DataType: "integer"}, IsNullable: false},
			{Ordinal: 2, Name: "user_id", Type: schemamodel.ColumnType{DataType: "integer"}, IsNullable: false},
			{Ordinal: 3, Name: "kind", Type: schemamodel.ColumnType{DataType: "text"}, IsNullable: false},
			{Ordinal: 4, Name: "qty", Type: schemamodel.ColumnType{DataType: "integer"}, IsNullable: false},
			{Ordinal: 5, Name: "note", Type: schemamodel.ColumnType{DataType: "text"}, IsNullable: true},
		},
		Constraints: []schemamodel.Constraint{
			{Kind: schemamodel.ConstraintPrimaryKey, Name: "orders_pkey", Columns: []string{"id"}},
			{Kind: schemamodel.ConstraintUnique, Name: "orders_user_kind_key", Columns: []string{"user_id", "kind"}},
			{Kind: schemamodel.ConstraintCheck, Name: "orders_qty_check", Expression: "(qty > 0)"},
		},
	}
}

func okRow(id, userID int64, kind string, qty int64) map[string]any {
	return map[string]any{"id": id, "user_id": userID, "kind": kind, "qty": qty, "note": nil}
}

func TestCheckRowAcceptsValidRow(t *testing.T) {
	ts := NewTableState(ordersTable(), gencontext.PolicyEnforce)
	if v := ts.CheckRow(okRow(1, 10, "a", 3)); v != nil {
		t.Fatalf("expected acceptance, got %+v", v)
	}
}

func TestCheckRowRejectsNullOnNotNull(t *testing.T) {
	ts := NewTableState(ordersTable(), gencontext.PolicyEnforce)
	row := okRow(1, 10, "a", 3)
	row["kind"] = nil
	v := ts.CheckRow(row)
	if v == nil || v.Code != gerr.CodeSchemaViolation {
		t.Fatalf("expected schema_violation, got %+v", v)
	}
	if len(v.Columns) != 1 || v.Columns[0] != "kind" {
		t.Fatalf("expected violation scoped to kind, got %v", v.Columns)
	}
}

func TestPrimaryKeyCollisionScopedToPKColumns(t *testing.T) {
	ts := NewTableState(ordersTable(), gencontext.PolicyEnforce)
	first := okRow(1, 10, "a", 3)
	if v := ts.CheckRow(first); v != nil {
		t.Fatalf("first row rejected: %+v", v)
	}
	ts.Commit(first)

	dup := okRow(1, 11, "b", 3)
	v := ts.CheckRow(dup)
	if v == nil || v.Code != gerr.CodeUniqueExhausted {
		t.Fatalf("expected unique_exhausted, got %+v", v)
	}
	if len(v.Columns) != 1 || v.Columns[0] != "id" {
		t.Fatalf("expected regeneration scoped to the pk column, got %v", v.Columns)
	}
}

func TestCompositeUniqueCollision(t *testing.T) {
	ts := NewTableState(ordersTable(), gencontext.PolicyEnforce)
	first := okRow(1, 10, "a", 3)
	ts.Commit(first)

	dup := okRow(2, 10, "a", 5)
	v := ts.CheckRow(dup)
	if v == nil || v.Code != gerr.CodeUniqueExhausted {
		t.Fatalf("expected unique_exhausted on (user_id, kind), got %+v", v)
	}
	if len(v.Columns) != 2 || v.Columns[0] != "user_id" || v.Columns[1] != "kind" {
		t.Fatalf("expected composite columns in declared order, got %v", v.Columns)
	}

	// Same user, different kind is fine.
	if v := ts.CheckRow(okRow(2, 10, "b", 5)); v != nil {
		t.Fatalf("expected acceptance for distinct tuple, got %+v", v)
	}
}

func TestNullTupleSkipsUniqueConstraint(t *testing.T) {
	table := &schemamodel.Table{
		Name: "t",
		Columns: []schemamodel.Column{
			{Ordinal: 1, Name: "a", Type: schemamodel.ColumnType{DataType: "integer"}, IsNullable: true},
		},
		Constraints: []schemamodel.Constraint{
			{Kind: schemamodel.ConstraintUnique, Name: "t_a_key", Columns: []string{"a"}},
		},
	}
	ts := NewTableState(table, gencontext.PolicyEnforce)
	row := map[string]any{"a": nil}
	ts.Commit(row)
	if v := ts.CheckRow(map[string]any{"a": nil}); v != nil {
		t.Fatalf("NULL must never conflict with itself in a unique constraint, got %+v", v)
	}
}

func TestCheckViolationReportsInvolvedColumns(t *testing.T) {
	ts := NewTableState(ordersTable(), gencontext.PolicyEnforce)
	v := ts.CheckRow(okRow(1, 10, "a", -2))
	if v == nil || v.Code != gerr.CodeCheckViolation {
		t.Fatalf("expected check_violation, got %+v", v)
	}
	if len(v.Columns) != 1 || v.Columns[0] != "qty" {
		t.Fatalf("expected qty as the involved column, got %v", v.Columns)
	}
}

func TestUncompilableCheckRecordedAsNotEvaluated(t *testing.T) {
	table := ordersTable()
	table.Constraints = append(table.Constraints, schemamodel.Constraint{
		Kind: schemamodel.ConstraintCheck, Name: "orders_note_check", Expression: "(length(note) > 3 OR note IS NULL)",
	})
	ts := NewTableState(table, gencontext.PolicyWarn)
	ne := ts.NotEvaluatedChecks()
	if len(ne) != 1 || ne[0].Name != "orders_note_check" {
		t.Fatalf("expected one not_evaluated check, got %+v", ne)
	}
	// The uncompilable check never rejects rows.
	if v := ts.CheckRow(okRow(1, 10, "a", 3)); v != nil {
		t.Fatalf("expected acceptance despite not_evaluated check, got %+v", v)
	}
}

func TestUniqueSetContainsAndCommit(t *testing.T) {
	u := NewUniqueSet()
	tuple := []any{int64(1), "x"}
	if u.Contains(tuple) {
		t.Fatal("empty set should not contain any tuple")
	}
	u.Commit(tuple)
	if !u.Contains(tuple) {
		t.Fatal("committed tuple should be contained")
	}
	if u.Contains([]any{int64(1), "y"}) {
		t.Fatal("distinct tuple should not be contained")
	}
}

func TestCheckRowRejectsOverlongValue(t *testing.T) {
	max := 5
	table := &schemamodel.Table{
		Name: "t",
		Columns: []schemamodel.Column{
			{Ordinal: 1, Name: "code", Type: schemamodel.ColumnType{DataType: "character varying", CharMaxLength: &max}, IsNullable: false},
		},
	}
	ts := NewTableState(table, gencontext.PolicyEnforce)
	v := ts.CheckRow(map[string]any{"code": "toolongvalue"})
	if v == nil || v.Code != gerr.CodeSchemaViolation {
		t.Fatalf("expected schema_violation for overlong value, got %+v", v)
	}
	if v := ts.CheckRow(map[string]any{"code": "ok"}); v != nil {
		t.Fatalf("expected acceptance for in-bounds value, got %+v", v)
	}
}

func childTable() *schemamodel.Table {
	return &schemamodel.Table{
		Name: "c",
		Columns: []schemamodel.Column{
			{Ordinal: 1, Name: "id", Type: schemamodel.ColumnType{DataType: "integer"}, IsNullable: false},
			{Ordinal: 2, Name: "p_id", Type: schemamodel.ColumnType{DataType: "integer"}, IsNullable: true},
		},
		Constraints: []schemamodel.Constraint{
			{Kind: schemamodel.ConstraintPrimaryKey, Name: "c_pkey", Columns: []string{"id"}},
			{
				Kind: schemamodel.ConstraintForeignKey, Name: "c_p_id_fkey",
				Columns: []string{"p_id"}, ReferencedSchema: "public", ReferencedTable: "p",
				ReferencedColumns: []string{"id"},
			},
		},
	}
}

func TestCheckRowValidatesFKMembership(t *testing.T) {
	pools := gencontext.NewParentPools()
	pools.Publish("public", "p", []string{"id"}, []map[string]any{
		{"id": int64(1)}, {"id": int64(2)},
	})
	ts := NewTableState(childTable(), gencontext.PolicyEnforce)
	ts.BindParentPools(pools, nil)

	if v := ts.CheckRow(map[string]any{"id": int64(10), "p_id": int64(2)}); v != nil {
		t.Fatalf("expected acceptance for a published parent id, got %+v", v)
	}
	v := ts.CheckRow(map[string]any{"id": int64(11), "p_id": int64(99)})
	if v == nil || v.Code != gerr.CodeFkUnavailable {
		t.Fatalf("expected fk_unavailable for an unpublished parent id, got %+v", v)
	}
	if len(v.Columns) != 1 || v.Columns[0] != "p_id" {
		t.Fatalf("expected regeneration scoped to the fk column, got %v", v.Columns)
	}
}

func TestCheckRowSkipsNullFKTuple(t *testing.T) {
	pools := gencontext.NewParentPools()
	ts := NewTableState(childTable(), gencontext.PolicyEnforce)
	ts.BindParentPools(pools, nil)
	if v := ts.CheckRow(map[string]any{"id": int64(1), "p_id": nil}); v != nil {
		t.Fatalf("a NULL foreign key does not reference anything, got %+v", v)
	}
}

func TestCheckRowSkipsExemptFK(t *testing.T) {
	pools := gencontext.NewParentPools()
	ts := NewTableState(childTable(), gencontext.PolicyEnforce)
	ts.BindParentPools(pools, map[string]bool{"c_p_id_fkey": true})
	if v := ts.CheckRow(map[string]any{"id": int64(1), "p_id": int64(123)}); v != nil {
		t.Fatalf("expected an exempt FK to pass unvalidated, got %+v", v)
	}
}
