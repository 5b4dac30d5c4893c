package plan

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gensynth/gensynth/internal/registry"
	"github.com/gensynth/gensynth/internal/registry/derive"
	"github.com/gensynth/gensynth/internal/registry/primitive"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

const validPlanJSON = `{
  "plan_version": "0.2",
  "seed": 42,
  "schema_ref": {"schema_version": "0.2", "engine": "postgres"},
  "global": {"strict": false},
  "targets": [{"schema": "public", "table": "u", "rows": 3}],
  "rules": [
    {"type": "column_generator", "schema": "public", "table": "u", "column": "id", "generator": "primitive.uuid.v4"},
    {"type": "column_generator", "schema": "public", "table": "u", "column": "active", "generator": {"id": "primitive.bool", "params": {"true_rate": 0.5}}}
  ]
}`

func TestParseAcceptsWellFormedPlan(t *testing.T) {
	p, diags := Parse([]byte(validPlanJSON))
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if p.Seed != 42 {
		t.Errorf("expected seed 42, got %d", p.Seed)
	}
	if p.Rules[1].Generator.ID != "primitive.bool" {
		t.Errorf("expected object-form generator to parse id, got %q", p.Rules[1].Generator.ID)
	}
}

func TestParseRejectsWrongVersion(t *testing.T) {
	_, diags := Parse([]byte(`{"plan_version": "0.1", "schema_ref": {"schema_version":"0.2","engine":"postgres"}, "targets":[{"schema":"public","table":"u","rows":1}]}`))
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic for unsupported plan_version")
	}
}

func TestParseRejectsMissingGeneratorID(t *testing.T) {
	_, diags := Parse([]byte(`{
		"plan_version": "0.2",
		"schema_ref": {"schema_version":"0.2","engine":"postgres"},
		"targets": [{"schema":"public","table":"u","rows":1}],
		"rules": [{"type":"column_generator","schema":"public","table":"u","column":"id","generator":""}]
	}`))
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic for missing generator id")
	}
}

func testDB(t *testing.T) *schemamodel.Database {
	t.Helper()
	b := schemamodel.NewBuilder("postgres", "testdb")
	b.AddSchema(schemamodel.Schema{
		Name: "public",
		Tables: []schemamodel.Table{
			{
				Name: "u",
				Kind: schemamodel.KindTable,
				Columns: []schemamodel.Column{
					{Ordinal: 1, Name: "id", Type: schemamodel.ColumnType{DataType: "uuid"}},
					{Ordinal: 2, Name: "active", Type: schemamodel.ColumnType{DataType: "boolean"}},
				},
				Constraints: []schemamodel.Constraint{
					{Kind: schemamodel.ConstraintPrimaryKey, Name: "u_pkey", Columns: []string{"id"}},
				},
			},
		},
	})
	db, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func testRegistry() *registry.Registry {
	r := registry.New()
	primitive.Register(r)
	return r
}

func TestValidateAcceptsCompatiblePlan(t *testing.T) {
	p, diags := Parse([]byte(validPlanJSON))
	if len(diags) != 0 {
		t.Fatalf("unexpected parse diagnostics: %v", diags)
	}
	vp, diags := Validate(p, testDB(t), testRegistry())
	if len(diags) != 0 {
		t.Fatalf("unexpected validation diagnostics: %v", diags)
	}
	if vp == nil {
		t.Fatal("expected a non-nil ValidatedPlan")
	}
}

func TestValidateRejectsUnknownTable(t *testing.T) {
	p, _ := Parse([]byte(validPlanJSON))
	p.Targets[0].Table = "ghost"
	_, diags := Validate(p, testDB(t), testRegistry())
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic for unknown target table")
	}
}

func TestValidateRejectsUnknownGenerator(t *testing.T) {
	p, _ := Parse([]byte(validPlanJSON))
	p.Rules[0].Generator.ID = "primitive.does_not_exist"
	_, diags := Validate(p, testDB(t), testRegistry())
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic for unknown generator id")
	}
}

func TestValidateRejectsIncompatibleColumnType(t *testing.T) {
	p, _ := Parse([]byte(validPlanJSON))
	p.Rules[0].Generator.ID = "primitive.int.range"
	p.Rules[0].Params = map[string]any{"min": 1, "max": 10}
	_, diags := Validate(p, testDB(t), testRegistry())
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic for int generator on a uuid column")
	}
}

func TestValidateRejectsDuplicateRuleOnSameColumn(t *testing.T) {
	p, _ := Parse([]byte(validPlanJSON))
	p.Rules = append(p.Rules, p.Rules[0])
	_, diags := Validate(p, testDB(t), testRegistry())
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic for duplicate rule on same column")
	}
}

func TestValidateAcceptsAnyLocaleOnLocaleAgnosticGenerator(t *testing.T) {
	p, _ := Parse([]byte(validPlanJSON))
	p.Rules[0].Locale = "xx_XX"
	r := testRegistry()
	_, diags := Validate(p, testDB(t), r)
	// primitive.uuid.v4 declares no locales (locale-agnostic), so any
	// locale tag passes validation.
	if len(diags) != 0 {
		t.Fatalf("expected locale-agnostic generator to accept any locale tag, got %v", diags)
	}
}

func TestGeneratorRefRoundTripsThroughObjectForm(t *testing.T) {
	p, _ := Parse([]byte(validPlanJSON))
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"id":"primitive.uuid.v4"`) {
		t.Fatalf("expected string-form generator to normalize to object form, got %s", data)
	}
}

func TestValidateRejectsMissingDeriveInputColumn(t *testing.T) {
	p, _ := Parse([]byte(validPlanJSON))
	p.Rules = []Rule{{
		Type: "column_generator", Schema: "public", Table: "u", Column: "id",
		Generator: GeneratorRef{ID: "derive.updated_after_created", Params: map[string]any{"source_column": "ghost"}},
	}}
	r := testRegistry()
	derive.Register(r)
	_, diags := Validate(p, testDB(t), r)
	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, `derive input column "ghost"`) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a diagnostic for the missing derive input column, got %v", diags)
	}
}
