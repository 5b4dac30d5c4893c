package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gensynth/gensynth/internal/gerr"
	"github.com/gensynth/gensynth/internal/plan"
	"github.com/gensynth/gensynth/internal/registry/builtin"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

var (
	validateSchemaPath string
	validatePlanPath   string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a plan document, structurally and against a schema.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		vp, diags, err := loadAndValidatePlan(validateSchemaPath, validatePlanPath)
		if len(diags) > 0 {
			printDiagnostics(diags)
			return fmt.Errorf("validate: %d diagnostic(s)", len(diags))
		}
		if err != nil {
			return err
		}
		color.New(color.FgGreen, color.Bold).Println("plan is valid")
		fmt.Printf("targets: %d  rules: %d\n", len(vp.Plan.Targets), len(vp.Plan.Rules))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateSchemaPath, "schema", "schema.json", "path to the schema document")
	validateCmd.Flags().StringVar(&validatePlanPath, "plan", "plan.json", "path to the plan document")
	rootCmd.AddCommand(validateCmd)
}

// loadAndValidatePlan runs both validation phases and is shared by
// the validate and generate subcommands so they never drift.
func loadAndValidatePlan(schemaPath, planPath string) (*plan.ValidatedPlan, []gerr.Diagnostic, error) {
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", schemaPath, err)
	}
	var db schemamodel.Database
	if err := json.Unmarshal(schemaBytes, &db); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", schemaPath, err)
	}

	planBytes, err := os.ReadFile(planPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", planPath, err)
	}
	p, diags := plan.Parse(planBytes)
	if len(diags) > 0 {
		return nil, diags, nil
	}

	reg := builtin.Default()
	vp, diags := plan.Validate(p, &db, reg)
	if len(diags) > 0 {
		return nil, diags, nil
	}
	return vp, nil, nil
}

func printDiagnostics(diags []gerr.Diagnostic) {
	red := color.New(color.FgRed, color.Bold)
	for _, d := range diags {
		red.Fprintf(os.Stderr, "[%s] ", d.Code)
		fmt.Fprintf(os.Stderr, "%s: %s", d.Path, d.Message)
		if d.Hint != "" {
			fmt.Fprintf(os.Stderr, " (hint: %s)", d.Hint)
		}
		fmt.Fprintln(os.Stderr)
	}
}
