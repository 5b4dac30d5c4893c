package introspect

import (
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
)

func TestIsSystemSchema(t *testing.T) {
	cases := map[string]bool{
		"information_schema": true,
		"pg_catalog":         true,
		"pg_toast":           true,
		"public":             false,
		"app":                false,
	}
	for schema, want := range cases {
		if got := isSystemSchema(schema); got != want {
			t.Errorf("isSystemSchema(%q) = %v, want %v", schema, got, want)
		}
	}
}

func TestRelationKindsAlwaysIncludesOrdinaryAndPartitionedTables(t *testing.T) {
	kinds := relationKinds(Options{})
	if !containsKind(kinds, "r") || !containsKind(kinds, "p") {
		t.Fatalf("expected base tables and partitioned tables always included, got %v", kinds)
	}
	if containsKind(kinds, "v") || containsKind(kinds, "m") || containsKind(kinds, "f") {
		t.Fatalf("expected views/matviews/foreign tables excluded by default, got %v", kinds)
	}
}

func TestRelationKindsHonorsOptions(t *testing.T) {
	kinds := relationKinds(Options{IncludeViews: true, IncludeMaterializedViews: true, IncludeForeignTables: true})
	for _, want := range []string{"r", "p", "v", "m", "f"} {
		if !containsKind(kinds, want) {
			t.Errorf("expected relkind %q in %v", want, kinds)
		}
	}
}

func containsKind(kinds []string, want string) bool {
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func TestSchemaWhitelistBuildsParameterizedQuery(t *testing.T) {
	query := qb.Select("nspname").From("pg_namespace").OrderBy("nspname").
		Where(sq.Eq{"nspname": []string{"public", "sales"}})
	sqlStr, args, err := query.ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sqlStr, "nspname IN ($1,$2)") {
		t.Fatalf("expected a parameterized IN clause, got %q", sqlStr)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 bound args, got %v", args)
	}
}
