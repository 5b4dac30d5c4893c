package plan

import (
	"encoding/json"
	"fmt"

	"github.com/gensynth/gensynth/internal/gerr"
)

// Parse runs the structural validation phase: unmarshal
// against the plan's JSON contract and check every required field and
// enumeration the parser itself can't enforce via types alone.
func Parse(data []byte) (*Plan, []gerr.Diagnostic) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, []gerr.Diagnostic{gerr.NewDiagnostic(gerr.CodeValidation, "", fmt.Sprintf("malformed plan document: %v", err))}
	}

	var diags []gerr.Diagnostic
	if p.PlanVersion != CurrentPlanVersion {
		diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, "plan_version",
			fmt.Sprintf("unsupported plan_version %q, expected %q", p.PlanVersion, CurrentPlanVersion)))
	}
	if p.SchemaRef.SchemaVersion == "" {
		diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, "schema_ref.schema_version", "schema_ref.schema_version is required"))
	}
	if p.SchemaRef.Engine == "" {
		diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, "schema_ref.engine", "schema_ref.engine is required"))
	}
	if len(p.Targets) == 0 {
		diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, "targets", "at least one target is required"))
	}
	for i, t := range p.Targets {
		path := fmt.Sprintf("targets[%d]", i)
		if t.Schema == "" || t.Table == "" {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, path, "target requires non-empty schema and table"))
		}
		if t.Rows < 0 {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, path+".rows", "rows must be non-negative"))
		}
	}
	for i, r := range p.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		if r.Type != "column_generator" {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, path+".type", fmt.Sprintf("unsupported rule type %q", r.Type)))
		}
		if r.Schema == "" || r.Table == "" || r.Column == "" {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, path, "rule requires non-empty schema, table, and column"))
		}
		if r.Generator.ID == "" {
			diags = append(diags, gerr.NewDiagnostic(gerr.CodeValidation, path+".generator", "rule requires a generator id"))
		}
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return &p, nil
}
