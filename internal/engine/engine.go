// Package engine orchestrates a generation run: it sequences target
// tables in foreign-key order, drives the row pipeline and constraint
// resolver per table, streams rows to CSV, publishes finished tables'
// rows to the parent pools their children sample from, and assembles the
// run report.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gensynth/gensynth/internal/csvwriter"
	"github.com/gensynth/gensynth/internal/fkgraph"
	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/gerr"
	"github.com/gensynth/gensynth/internal/pipeline"
	"github.com/gensynth/gensynth/internal/plan"
	"github.com/gensynth/gensynth/internal/registry"
	"github.com/gensynth/gensynth/internal/resolver"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

// defaultAutoGeneratedRows is the row count used for a parent table the
// plan never targeted but that a targeted child's FK requires, when
// AutoGenerateParents is enabled.
const defaultAutoGeneratedRows = 100

// Options is the engine's configuration object for one generation run.
type Options struct {
	OutDir              string
	Strict              bool
	ConstraintPolicy    gencontext.ConstraintPolicy
	Budgets             pipeline.Budgets
	AutoGenerateParents bool
	Seed                int64
	Locale              string
}

// TableReport is one table's entry in the run report.
type TableReport struct {
	Schema         string  `json:"schema"`
	Table          string  `json:"table"`
	RowsRequested  int     `json:"rows_requested"`
	RowsWritten    int     `json:"rows_written"`
	RowsSkipped    int     `json:"rows_skipped"`
	BytesWritten   int64   `json:"bytes_written"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	AutoGenerated  bool    `json:"auto_generated,omitempty"`
}

// Status is the run's final disposition.
type Status string

const (
	StatusOK        Status = "OK"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Report is generation_report.json's in-memory form.
type Report struct {
	Status         Status              `json:"status"`
	Tables         []TableReport       `json:"tables"`
	Coverage       gencontext.Snapshot `json:"coverage"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
	FailureReason  string              `json:"failure_reason,omitempty"`
}

// WriteJSON writes the report to "<outDir>/generation_report.json".
// Called even on a failed or cancelled run, so a report always exists
// for post-mortem analysis.
func (r *Report) WriteJSON(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("engine: creating output directory: %w", err)
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("engine: marshaling report: %w", err)
	}
	path := filepath.Join(outDir, "generation_report.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("engine: writing %s: %w", path, err)
	}
	return nil
}

// target is one table this run must generate, whether because the plan
// named it or because auto_generate_parents pulled it in as an
// unreferenced FK target.
type target struct {
	ref           fkgraph.TableRef
	rows          int
	autoGenerated bool
}

// Run drives one full generation pass: FK ordering, then per-table row
// generation via internal/pipeline and internal/resolver, streamed to
// internal/csvwriter, publishing each table's rows to the Parent Pool for
// its children. vp must already be the output of plan.Validate. Run
// always returns a non-nil *Report, even when it also returns an error,
// so callers can write it for post-mortem analysis.
func Run(ctx context.Context, db *schemamodel.Database, vp *plan.ValidatedPlan, reg *registry.Registry, opts Options) (*Report, error) {
	start := time.Now()
	gctx := gencontext.New(opts.Seed, opts.Locale, opts.Strict, opts.ConstraintPolicy)

	targets := make(map[fkgraph.TableRef]*target)
	for _, t := range vp.Plan.Targets {
		ref := fkgraph.TableRef{Schema: t.Schema, Table: t.Table}
		targets[ref] = &target{ref: ref, rows: t.Rows}
	}

	// Pull in any parent required by a target's FK but never itself
	// targeted. Tables left out here are not an error at
	// setup time: derive.fk simply has no pool to draw from, and the
	// per-row retry/budget machinery in internal/pipeline already turns
	// that into a skip (non-strict) or an abort (strict) per row.
	if opts.AutoGenerateParents {
		queue := make([]fkgraph.TableRef, 0, len(targets))
		for ref := range targets {
			queue = append(queue, ref)
		}
		for len(queue) > 0 {
			ref := queue[0]
			queue = queue[1:]
			table := db.FindTable(ref.Schema, ref.Table)
			if table == nil {
				continue
			}
			for _, fk := range table.ForeignKeys() {
				parent := fkgraph.TableRef{Schema: fk.ReferencedSchema, Table: fk.ReferencedTable}
				if _, ok := targets[parent]; ok {
					continue
				}
				targets[parent] = &target{ref: parent, rows: defaultAutoGeneratedRows, autoGenerated: true}
				queue = append(queue, parent)
			}
		}
	}

	refs := make([]fkgraph.TableRef, 0, len(targets))
	for ref := range targets {
		refs = append(refs, ref)
	}
	graph := fkgraph.Build(db, refs)
	order, cycleErr := graph.Toposort()
	if cycleErr != nil {
		if opts.Strict {
			return failedReport(start, gctx, fmt.Sprintf("foreign key cycle: %v", cycleErr)), gerr.New(gerr.CodeCycle, cycleErr.Error())
		}
		gctx.Coverage.RecordWarning(string(gerr.CodeCycle))
	}

	rulesByTable := make(map[fkgraph.TableRef]map[string]plan.Rule)
	for _, r := range vp.Plan.Rules {
		ref := fkgraph.TableRef{Schema: r.Schema, Table: r.Table}
		m, ok := rulesByTable[ref]
		if !ok {
			m = make(map[string]plan.Rule)
			rulesByTable[ref] = m
		}
		m[r.Column] = r
	}

	var reports []TableReport
	for _, ref := range order {
		select {
		case <-ctx.Done():
			return cancelledReport(start, gctx, reports), ctx.Err()
		default:
		}

		tgt := targets[ref]
		table := db.FindTable(ref.Schema, ref.Table)
		if table == nil {
			continue
		}

		tr, err := runTable(ctx, gctx, reg, ref, table, tgt, rulesByTable[ref], opts)
		reports = append(reports, tr.report)
		if err != nil {
			return &Report{
				Status:         StatusFailed,
				Tables:         reports,
				Coverage:       gctx.Coverage.Snapshot(),
				ElapsedSeconds: time.Since(start).Seconds(),
				FailureReason:  err.Error(),
			}, err
		}
	}

	return &Report{
		Status:         StatusOK,
		Tables:         reports,
		Coverage:       gctx.Coverage.Snapshot(),
		ElapsedSeconds: time.Since(start).Seconds(),
	}, nil
}

type tableRunResult struct {
	report TableReport
}

func runTable(ctx context.Context, gctx *gencontext.Context, reg *registry.Registry, ref fkgraph.TableRef, table *schemamodel.Table, tgt *target, rules map[string]plan.Rule, opts Options) (tableRunResult, error) {
	tableStart := time.Now()
	report := TableReport{Schema: ref.Schema, Table: ref.Table, RowsRequested: tgt.rows, AutoGenerated: tgt.autoGenerated}

	tp, err := pipeline.Build(ref.Schema, table, rules, opts.Strict)
	if err != nil {
		report.ElapsedSeconds = time.Since(tableStart).Seconds()
		return tableRunResult{report: report}, err
	}

	state := resolver.NewTableState(table, opts.ConstraintPolicy)
	state.BindParentPools(gctx.Pools, tp.SkipFKChecks)
	for range state.NotEvaluatedChecks() {
		if state.NotEvaluatedPolicy() != gencontext.PolicyIgnore {
			gctx.Coverage.RecordWarning("check_not_evaluated")
		}
	}

	writer, err := csvwriter.Open(opts.OutDir, ref.Schema, table)
	if err != nil {
		report.ElapsedSeconds = time.Since(tableStart).Seconds()
		return tableRunResult{report: report}, err
	}
	defer writer.Close()

	tableRNG := gctx.TableRNG(ref.Schema, ref.Table)
	runner := pipeline.NewTableRunner(tp, reg, state, tableRNG, opts.Budgets)

	var published []map[string]any
	for i := 0; i < tgt.rows; i++ {
		if i%256 == 0 {
			select {
			case <-ctx.Done():
				report.RowsWritten = len(published)
				report.ElapsedSeconds = time.Since(tableStart).Seconds()
				return tableRunResult{report: report}, ctx.Err()
			default:
			}
		}

		outcome := runner.GenerateRow(gctx, i, opts.Strict)
		if outcome.Abort {
			report.RowsWritten = len(published)
			report.ElapsedSeconds = time.Since(tableStart).Seconds()
			return tableRunResult{report: report}, outcome.Err
		}
		if outcome.Skip {
			report.RowsSkipped++
			continue
		}
		if err := writer.WriteRow(outcome.Row); err != nil {
			report.RowsWritten = len(published)
			report.ElapsedSeconds = time.Since(tableStart).Seconds()
			return tableRunResult{report: report}, err
		}
		published = append(published, outcome.Row)
	}

	if pk := table.PrimaryKey(); pk != nil {
		gctx.Pools.Publish(ref.Schema, ref.Table, pk.Columns, published)
	}

	report.RowsWritten = writer.RowsWritten()
	report.BytesWritten = writer.BytesWritten()
	report.ElapsedSeconds = time.Since(tableStart).Seconds()
	return tableRunResult{report: report}, nil
}

func failedReport(start time.Time, gctx *gencontext.Context, reason string) *Report {
	return &Report{
		Status:         StatusFailed,
		Coverage:       gctx.Coverage.Snapshot(),
		ElapsedSeconds: time.Since(start).Seconds(),
		FailureReason:  reason,
	}
}

func cancelledReport(start time.Time, gctx *gencontext.Context, tables []TableReport) *Report {
	return &Report{
		Status:         StatusCancelled,
		Tables:         tables,
		Coverage:       gctx.Coverage.Snapshot(),
		ElapsedSeconds: time.Since(start).Seconds(),
	}
}
