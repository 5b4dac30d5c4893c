package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gensynth/gensynth/internal/config"
	"github.com/gensynth/gensynth/internal/engine"
	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/pipeline"
	"github.com/gensynth/gensynth/internal/plan"
	"github.com/gensynth/gensynth/internal/registry/builtin"
)

var (
	generateSchemaPath string
	generatePlanPath   string
	generateOutDir     string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Validate a plan against a schema and materialize CSV datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if generateOutDir != "" {
			cfg.OutDir = generateOutDir
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		vp, diags, err := loadAndValidatePlan(generateSchemaPath, generatePlanPath)
		if len(diags) > 0 {
			printDiagnostics(diags)
			return fmt.Errorf("generate: plan failed validation with %d diagnostic(s)", len(diags))
		}
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := engine.Options{
			OutDir:              cfg.OutDir,
			Strict:              vp.Plan.Global.Strict || cfg.Strict,
			ConstraintPolicy:    gencontext.ConstraintPolicy(cfg.ConstraintPolicy),
			Budgets:             pipeline.Budgets{MaxAttemptsCell: cfg.MaxAttemptsCell, MaxAttemptsRow: cfg.MaxAttemptsRow, MaxAttemptsTable: cfg.MaxAttemptsTable},
			AutoGenerateParents: cfg.AutoGenerateParents,
			Seed:                vp.Plan.Seed,
			Locale:              vp.Plan.Global.Locale,
		}

		reg := builtin.Default()
		report, runErr := engine.Run(ctx, vp.DB, vp, reg, opts)

		if writeErr := report.WriteJSON(cfg.OutDir); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write generation_report.json: %v\n", writeErr)
		}
		if writeErr := writeResolvedPlan(cfg.OutDir, vp.Plan); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write resolved_plan.json: %v\n", writeErr)
		}

		if runErr != nil {
			color.New(color.FgRed, color.Bold).Printf("generation %s: ", report.Status)
			fmt.Println(runErr)
			return runErr
		}

		color.New(color.FgGreen, color.Bold).Printf("generation %s ", report.Status)
		fmt.Printf("(%d table(s), %.2fs)\n", len(report.Tables), report.ElapsedSeconds)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateSchemaPath, "schema", "schema.json", "path to the schema document")
	generateCmd.Flags().StringVar(&generatePlanPath, "plan", "plan.json", "path to the plan document")
	generateCmd.Flags().StringVar(&generateOutDir, "out", "", "output directory (overrides config out_dir)")
	rootCmd.AddCommand(generateCmd)
}

// writeResolvedPlan writes resolved_plan.json: the validated plan,
// with every generator ref already normalized to object form by
// plan.GeneratorRef.MarshalJSON.
func writeResolvedPlan(outDir string, p *plan.Plan) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "resolved_plan.json"), b, 0o644)
}
