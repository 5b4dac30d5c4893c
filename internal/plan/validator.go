package plan

import (
	"fmt"
	"strings"

	"github.com/gensynth/gensynth/internal/gerr"
	"github.com/gensynth/gensynth/internal/registry"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

// ValidatedPlan is the result of a successful schema-aware validation
// pass. Its fields are
// immutable; the engine orchestrator consumes it directly.
type ValidatedPlan struct {
	Plan *Plan
	DB   *schemamodel.Database
}

// Validate runs the schema-aware validation phase against
// an already structurally-parsed plan. It never mutates p or db.
func Validate(p *Plan, db *schemamodel.Database, reg *registry.Registry) (*ValidatedPlan, []gerr.Diagnostic) {
	var diags []gerr.Diagnostic

	if p.SchemaRef.Engine != db.Engine {
		diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, "schema_ref.engine",
			fmt.Sprintf("plan targets engine %q but schema document is for %q", p.SchemaRef.Engine, db.Engine)))
	}
	if p.SchemaRef.SchemaVersion != db.SchemaVersion {
		diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, "schema_ref.schema_version",
			fmt.Sprintf("plan references schema_version %q but schema document is %q", p.SchemaRef.SchemaVersion, db.SchemaVersion)))
	}
	if p.SchemaRef.Fingerprint != "" && db.SchemaFingerprint != "" && p.SchemaRef.Fingerprint != db.SchemaFingerprint {
		diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, "schema_ref.fingerprint",
			fmt.Sprintf("plan was written against schema fingerprint %q, loaded schema is %q", p.SchemaRef.Fingerprint, db.SchemaFingerprint)))
	}

	seenTargets := make(map[string]bool, len(p.Targets))
	for i, t := range p.Targets {
		path := fmt.Sprintf("targets[%d]", i)
		key := t.Schema + "." + t.Table
		if seenTargets[key] {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, path, fmt.Sprintf("duplicate target %s", key)))
			continue
		}
		seenTargets[key] = true
		if db.FindTable(t.Schema, t.Table) == nil {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeSchemaViolation, path, fmt.Sprintf("target table %s does not exist in schema", key)))
		}
	}

	seenRules := make(map[string]bool, len(p.Rules))
	for i, r := range p.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		ruleDiags := validateRule(path, r, db, reg)
		diags = append(diags, ruleDiags...)

		key := r.Schema + "." + r.Table + "." + r.Column
		if seenRules[key] {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, path, fmt.Sprintf("duplicate rule on column %s", key)))
		}
		seenRules[key] = true

		if !p.Global.AllowFKDisable && r.Generator.ID != "derive.fk" {
			if col := db.FindColumn(r.Schema, r.Table, r.Column); col != nil {
				if table := db.FindTable(r.Schema, r.Table); table != nil && columnIsForeignKey(table, r.Column) {
					diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, path,
						fmt.Sprintf("column %s is foreign-key constrained; overriding it requires global.allow_fk_disable", key)))
				}
			}
		}
	}

	if len(diags) > 0 {
		return nil, diags
	}
	return &ValidatedPlan{Plan: p, DB: db}, nil
}

func validateRule(path string, r Rule, db *schemamodel.Database, reg *registry.Registry) []gerr.Diagnostic {
	var diags []gerr.Diagnostic

	col := db.FindColumn(r.Schema, r.Table, r.Column)
	if col == nil {
		diags = append(diags, gerr.NewDiagnostic(gerr.CodeSchemaViolation, path,
			fmt.Sprintf("column %s.%s.%s does not exist", r.Schema, r.Table, r.Column)))
		return diags
	}

	gen, ok := reg.Generator(r.Generator.ID)
	if !ok {
		diags = append(diags, gerr.NewDiagnostic(gerr.CodeUnknownGeneratorID, path+".generator",
			fmt.Sprintf("unknown generator id %q", r.Generator.ID)))
		return diags
	}

	if !generatorCompatibleWithColumn(r.Generator.ID, col.Type) {
		diags = append(diags, gerr.NewDiagnostic(gerr.CodeSchemaViolation, path+".generator",
			fmt.Sprintf("generator %q is not compatible with column type %q", r.Generator.ID, col.Type.DataType)))
	}

	if problems := registry.ValidateParams(gen.ParamSpec(), r.EffectiveParams()); len(problems) > 0 {
		for _, msg := range problems {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeInvalidParam, path+".params", msg))
		}
	}

	for _, dep := range deriveInputColumns(r) {
		if db.FindColumn(r.Schema, r.Table, dep) == nil {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, path+".params",
				fmt.Sprintf("derive input column %q does not exist in %s.%s", dep, r.Schema, r.Table)))
		}
	}

	if locale := r.EffectiveLocale(); locale != "" {
		if locales := gen.SupportedLocales(); len(locales) > 0 && !containsString(locales, locale) {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeUnsupportedLocale, path+".locale",
				fmt.Sprintf("generator %q does not support locale %q", r.Generator.ID, locale)))
		}
	}

	for j, tr := range r.Transforms {
		tpath := fmt.Sprintf("%s.transforms[%d]", path, j)
		transform, ok := reg.Transform(tr.ID)
		if !ok {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeUnknownGeneratorID, tpath, fmt.Sprintf("unknown transform id %q", tr.ID)))
			continue
		}
		if problems := registry.ValidateParams(transform.ParamSpec(), tr.Params); len(problems) > 0 {
			for _, msg := range problems {
				diags = append(diags, gerr.NewDiagnostic(gerr.CodeInvalidParam, tpath+".params", msg))
			}
		}
	}

	return diags
}

// deriveInputColumns returns the sibling columns a derive.* rule reads
// from the row context, so validation can confirm they exist before the
// pipeline ever builds its dependency graph.
func deriveInputColumns(r Rule) []string {
	if !strings.HasPrefix(r.Generator.ID, "derive.") {
		return nil
	}
	params := r.EffectiveParams()
	var cols []string
	for _, name := range []string{"source_column", "quantity_column", "unit_price_column", "fk_column"} {
		if v, ok := params[name].(string); ok && v != "" {
			cols = append(cols, v)
		}
	}
	return cols
}

func columnIsForeignKey(t *schemamodel.Table, column string) bool {
	for _, fk := range t.ForeignKeys() {
		for _, c := range fk.Columns {
			if c == column {
				return true
			}
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// generatorCompatibleWithColumn is a deliberately coarse type-family
// check. derive.* and faker.*/semantic.* generators are not
// constrained here since their output type depends on runtime
// parameters, not the column's declared type alone.
func generatorCompatibleWithColumn(generatorID string, ct schemamodel.ColumnType) bool {
	dt := strings.ToLower(ct.DataType)
	switch {
	case strings.HasPrefix(generatorID, "primitive.int"):
		return containsAny(dt, "int", "serial")
	case strings.HasPrefix(generatorID, "primitive.float"):
		return containsAny(dt, "float", "double", "real")
	case strings.HasPrefix(generatorID, "primitive.decimal"):
		return containsAny(dt, "numeric", "decimal")
	case strings.HasPrefix(generatorID, "primitive.bool"):
		return containsAny(dt, "bool")
	case strings.HasPrefix(generatorID, "primitive.uuid"):
		return containsAny(dt, "uuid", "text", "char")
	case strings.HasPrefix(generatorID, "primitive.date"):
		return containsAny(dt, "date")
	case strings.HasPrefix(generatorID, "primitive.time"):
		return containsAny(dt, "time")
	case strings.HasPrefix(generatorID, "primitive.timestamp"):
		return containsAny(dt, "timestamp")
	case strings.HasPrefix(generatorID, "primitive.text"), strings.HasPrefix(generatorID, "primitive.enum"):
		return containsAny(dt, "char", "text", "enum")
	default:
		return true
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
