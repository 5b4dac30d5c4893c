// Package pipeline implements the row pipeline: per-table dependency
// analysis (base vs. derived columns, topologically ordered), the
// per-row base → derive → transform generation phases, and the bounded
// retry loop around the constraint resolver.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/gensynth/gensynth/internal/dag"
	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/gerr"
	"github.com/gensynth/gensynth/internal/plan"
	"github.com/gensynth/gensynth/internal/registry"
	"github.com/gensynth/gensynth/internal/registry/fallback"
	"github.com/gensynth/gensynth/internal/resolver"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

// TablePlan is the setup-time output of dependency analysis: which
// columns are generated in schema order with no row-local dependency
// ("base"), which are filled tuple-at-a-time from a parent pool
// ("bindings"), and the topological order of the rest ("derived").
type TablePlan struct {
	Schema       string
	Table        *schemamodel.Table
	Rules        map[string]plan.Rule
	BaseColumns  []string
	DerivedOrder []string

	bindings []fkBinding
	// SkipFKChecks names FK constraints the plan author overrode with a
	// non-pool generator (gated on allow_fk_disable at validation time);
	// the resolver must not validate them against the parent pools.
	SkipFKChecks map[string]bool
}

// fkBinding is one foreign-key constraint whose member columns are
// resolved together: the parent tuple is drawn once and every member
// column is assigned from that same parent row.
type fkBinding struct {
	name       string
	columns    []string
	refSchema  string
	refTable   string
	refColumns []string
}

// attemptKey is the retry-budget key a binding's columns share; a
// redraw always replaces the whole tuple, so they spend one budget.
func (b fkBinding) attemptKey() string { return "fk:" + b.name }

// bindFKConstraints decides, per FK constraint, whether the pipeline
// resolves it from the parent pool. A constraint is bound when every
// member column either has no rule at all or has a plain derive.fk rule
// targeting the constraint's own referenced column (those rules are
// absorbed into the binding). A member column carrying any other rule
// means the author disabled FK respect for that constraint; it is
// recorded in SkipFKChecks instead.
func bindFKConstraints(table *schemamodel.Table, rules map[string]plan.Rule) ([]fkBinding, map[string]bool, map[string]bool) {
	var bindings []fkBinding
	skip := make(map[string]bool)
	members := make(map[string]bool)

	for _, fk := range table.ForeignKeys() {
		bindable := true
		overridden := false
		for i, col := range fk.Columns {
			r, hasRule := rules[col]
			if !hasRule {
				continue
			}
			if r.Generator.ID != "derive.fk" {
				overridden = true
				break
			}
			if !absorbableFKRule(r, fk, i) {
				bindable = false
			}
		}
		switch {
		case overridden:
			skip[fk.Name] = true
		case bindable:
			bindings = append(bindings, fkBinding{
				name:       fk.Name,
				columns:    fk.Columns,
				refSchema:  fk.ReferencedSchema,
				refTable:   fk.ReferencedTable,
				refColumns: fk.ReferencedColumns,
			})
			for _, col := range fk.Columns {
				members[col] = true
			}
		}
		// Neither overridden nor bindable: the author's derive.fk rules
		// stand as written (transforms, custom targets) and the resolver
		// still validates the tuple, retrying until it is consistent.
	}
	return bindings, skip, members
}

// absorbableFKRule reports whether an explicit derive.fk rule on fk's
// i-th member column matches what the binding would do anyway: no
// transforms, same referenced table, same referenced column.
func absorbableFKRule(r plan.Rule, fk schemamodel.Constraint, i int) bool {
	if len(r.Transforms) > 0 {
		return false
	}
	params := r.EffectiveParams()
	if v, ok := params["references_schema"].(string); ok && v != fk.ReferencedSchema {
		return false
	}
	if v, ok := params["references_table"].(string); ok && v != fk.ReferencedTable {
		return false
	}
	if v, ok := params["references_column"].(string); ok && v != fk.ReferencedColumns[i] {
		return false
	}
	return true
}

// deriveInputColumns returns the sibling columns a derive.* rule reads
// from the Row Context, keyed by the parameter name each generator
// documents (internal/registry/derive). derive.fk has none: it only
// reads the parent pool, never a sibling column.
func deriveInputColumns(r plan.Rule) []string {
	params := r.EffectiveParams()
	switch r.Generator.ID {
	case "derive.email_from_name", "derive.updated_after_created", "derive.end_after_start":
		if v, ok := params["source_column"].(string); ok && v != "" {
			return []string{v}
		}
	case "derive.money_total":
		var cols []string
		if v, ok := params["quantity_column"].(string); ok && v != "" {
			cols = append(cols, v)
		}
		if v, ok := params["unit_price_column"].(string); ok && v != "" {
			cols = append(cols, v)
		}
		return cols
	case "derive.parent_value":
		if v, ok := params["fk_column"].(string); ok && v != "" {
			return []string{v}
		}
	}
	return nil
}

// Build runs dependency analysis for one table. rules is keyed by
// column name; under strict, a NOT NULL column with no rule, no DEFAULT,
// no identity, and no generation expression is fatal rather than served
// by the heuristic fallback.
func Build(schema string, table *schemamodel.Table, rules map[string]plan.Rule, strict bool) (*TablePlan, error) {
	bindings, skipFK, boundCols := bindFKConstraints(table, rules)

	derivedSet := make(map[string]bool)
	for colName, r := range rules {
		if strings.HasPrefix(r.Generator.ID, "derive.") && !boundCols[colName] {
			derivedSet[colName] = true
		}
	}

	g := dag.New()
	for colName := range derivedSet {
		g.AddNode(colName)
	}
	for colName := range derivedSet {
		for _, dep := range deriveInputColumns(rules[colName]) {
			if derivedSet[dep] {
				g.AddEdge(colName, dep)
			}
		}
	}
	derivedOrder, err := g.Toposort()
	if err != nil {
		if cerr, ok := err.(*dag.CycleError); ok {
			return nil, gerr.New(gerr.CodeCycle, fmt.Sprintf("derive dependency cycle in %s.%s: %v", schema, table.Name, cerr.Path))
		}
		return nil, gerr.Wrap(gerr.CodeCycle, "derive dependency analysis failed", err)
	}

	var base []string
	for _, col := range table.Columns {
		if !derivedSet[col.Name] && !boundCols[col.Name] {
			base = append(base, col.Name)
		}
	}

	for _, col := range table.Columns {
		if _, hasRule := rules[col.Name]; hasRule {
			continue
		}
		if boundCols[col.Name] {
			// An unruled FK column is served by its binding.
			continue
		}
		if strict && !col.IsNullable && col.Default == nil && (col.Identity == schemamodel.IdentityNone || col.Identity == "") && col.Generated == nil {
			return nil, gerr.New(gerr.CodeValidation,
				fmt.Sprintf("%s.%s.%s: NOT NULL column has no rule, no DEFAULT, and strict mode forbids a heuristic fallback", schema, table.Name, col.Name)).
				WithPath(schema + "." + table.Name + "." + col.Name)
		}
	}

	return &TablePlan{
		Schema:       schema,
		Table:        table,
		Rules:        rules,
		BaseColumns:  base,
		DerivedOrder: derivedOrder,
		bindings:     bindings,
		SkipFKChecks: skipFK,
	}, nil
}

// Budgets are the three bounded retry budgets: per-cell, per-row, and
// per-table.
type Budgets struct {
	MaxAttemptsCell  int
	MaxAttemptsRow   int
	MaxAttemptsTable int
}

// TableRunner drives the row pipeline for one table: base phase, derive
// phase, transform phase, constraint check, and the bounded retry loop
// that ties those phases to internal/resolver.
type TableRunner struct {
	plan     *TablePlan
	reg      *registry.Registry
	state    *resolver.TableState
	tableRNG *gencontext.RNG
	budgets  Budgets

	tableAttemptsUsed int
}

func NewTableRunner(tp *TablePlan, reg *registry.Registry, state *resolver.TableState, tableRNG *gencontext.RNG, budgets Budgets) *TableRunner {
	return &TableRunner{plan: tp, reg: reg, state: state, tableRNG: tableRNG, budgets: budgets}
}

// RowOutcome is GenerateRow's result: either a committed row, or a reason
// the row could not be produced within budget.
type RowOutcome struct {
	Row   map[string]any
	Err   *gerr.Error
	Skip  bool // true: caller should skip this row and continue (non-strict)
	Abort bool // true: caller should abort the whole table (strict, or table budget exhausted)
}

// GenerateRow runs the full per-row pipeline for rowIndex: base phase,
// FK phase (one parent tuple drawn per constraint), derive phase,
// transform phase, then hands the candidate to the resolver. On a
// constraint violation it regenerates only the participating columns
// (plus anything derived from them) and retries, honoring the three
// budgets.
func (tr *TableRunner) GenerateRow(ctx *gencontext.Context, rowIndex int, strict bool) RowOutcome {
	rowRNG := tr.tableRNG.RowRNG(rowIndex)
	attempts := make(map[string]int)

	row := make(map[string]any)
	if err := tr.generateColumns(ctx, rowRNG, row, attempts, tr.plan.BaseColumns); err != nil {
		return tr.budgetOutcome(err, strict)
	}
	for _, b := range tr.plan.bindings {
		if err := tr.resolveFKWithRetry(ctx, rowRNG, row, attempts, b); err != nil {
			return tr.budgetOutcome(err, strict)
		}
	}
	if err := tr.generateColumns(ctx, rowRNG, row, attempts, tr.plan.DerivedOrder); err != nil {
		return tr.budgetOutcome(err, strict)
	}

	for i := 0; ; i++ {
		violation := tr.state.CheckRow(row)
		if violation == nil {
			tr.state.Commit(row)
			return RowOutcome{Row: row}
		}

		tr.tableAttemptsUsed++
		if tr.tableAttemptsUsed > tr.budgets.MaxAttemptsTable {
			ctx.Coverage.RecordWarning(string(violation.Code))
			return tr.budgetOutcome(gerr.New(violation.Code, violation.Message+" (table retry budget exhausted)"), strict)
		}
		if i >= tr.budgets.MaxAttemptsRow {
			ctx.Coverage.RecordWarning(string(violation.Code))
			return tr.budgetOutcome(gerr.New(violation.Code, violation.Message+" (row retry budget exhausted)"), strict)
		}
		ctx.Coverage.RecordWarning(retryWarningCode(violation.Code))

		regen, bindings := tr.expandDependents(violation.Columns)
		for _, b := range bindings {
			attempts[b.attemptKey()]++
			if attempts[b.attemptKey()] > tr.budgets.MaxAttemptsCell {
				ctx.Coverage.RecordWarning(string(violation.Code))
				return tr.budgetOutcome(gerr.New(violation.Code, violation.Message+" (cell retry budget exhausted)"), strict)
			}
		}
		for _, col := range regen {
			attempts[col]++
			if attempts[col] > tr.budgets.MaxAttemptsCell {
				ctx.Coverage.RecordWarning(string(violation.Code))
				return tr.budgetOutcome(gerr.New(violation.Code, violation.Message+" (cell retry budget exhausted)"), strict)
			}
		}
		if err := tr.regenerateColumns(ctx, rowRNG, row, attempts, regen, bindings); err != nil {
			return tr.budgetOutcome(err, strict)
		}
	}
}

// retryWarningCode names a recoverable constraint retry in the run
// report, distinct from the terminal violation code a budget exhaustion
// surfaces.
func retryWarningCode(code gerr.Code) string {
	switch code {
	case gerr.CodeCheckViolation:
		return "check_retry"
	case gerr.CodeUniqueExhausted:
		return "unique_retry"
	case gerr.CodeFkUnavailable:
		return "fk_retry"
	default:
		return "schema_retry"
	}
}

func (tr *TableRunner) budgetOutcome(err *gerr.Error, strict bool) RowOutcome {
	if strict {
		return RowOutcome{Err: err, Abort: true}
	}
	return RowOutcome{Err: err, Skip: true}
}

// expandDependents widens a violation's column set for regeneration: a
// hit on any FK-binding member redraws the whole binding's tuple, and
// every derived column (transitively) downstream of a regenerated value
// is recomputed so it is never left stale. Returns the plain columns in
// generation order plus the affected bindings.
func (tr *TableRunner) expandDependents(cols []string) ([]string, []fkBinding) {
	want := make(map[string]bool, len(cols))
	for _, c := range cols {
		want[c] = true
	}

	var bindings []fkBinding
	member := make(map[string]bool)
	for _, b := range tr.plan.bindings {
		hit := false
		for _, c := range b.columns {
			if want[c] {
				hit = true
				break
			}
		}
		if hit {
			bindings = append(bindings, b)
			for _, c := range b.columns {
				want[c] = true
				member[c] = true
			}
		}
	}

	changed := true
	for changed {
		changed = false
		for _, colName := range tr.plan.DerivedOrder {
			if want[colName] {
				continue
			}
			for _, dep := range deriveInputColumns(tr.plan.Rules[colName]) {
				if want[dep] {
					want[colName] = true
					changed = true
					break
				}
			}
		}
	}

	out := make([]string, 0, len(want))
	seen := make(map[string]bool, len(want))
	order := append(append([]string{}, tr.plan.BaseColumns...), tr.plan.DerivedOrder...)
	for _, colName := range order {
		if want[colName] && !seen[colName] && !member[colName] {
			seen[colName] = true
			out = append(out, colName)
		}
	}
	return out, bindings
}

func (tr *TableRunner) generateColumns(ctx *gencontext.Context, rowRNG *gencontext.RNG, row map[string]any, attempts map[string]int, cols []string) *gerr.Error {
	for _, col := range cols {
		val, err := tr.generateCellWithRetry(ctx, rowRNG, row, attempts, col)
		if err != nil {
			return err
		}
		row[col] = val
	}
	return nil
}

// regenerateColumns replays the phase order for the affected subset:
// base columns first, then FK bindings (fresh parent tuples), then
// derived columns so they read the regenerated values.
func (tr *TableRunner) regenerateColumns(ctx *gencontext.Context, rowRNG *gencontext.RNG, row map[string]any, attempts map[string]int, cols []string, bindings []fkBinding) *gerr.Error {
	derivedSet := make(map[string]bool, len(tr.plan.DerivedOrder))
	for _, c := range tr.plan.DerivedOrder {
		derivedSet[c] = true
	}
	var baseCols, derivedCols []string
	for _, c := range cols {
		if derivedSet[c] {
			derivedCols = append(derivedCols, c)
		} else {
			baseCols = append(baseCols, c)
		}
	}

	if err := tr.generateColumns(ctx, rowRNG, row, attempts, baseCols); err != nil {
		return err
	}
	for _, b := range bindings {
		if err := tr.resolveFKWithRetry(ctx, rowRNG, row, attempts, b); err != nil {
			return err
		}
	}
	return tr.generateColumns(ctx, rowRNG, row, attempts, derivedCols)
}

// resolveFKWithRetry fills b's member columns from one freshly drawn
// parent tuple, spending the binding's shared cell budget on failures
// (no parent pool, or a parent row missing a referenced column).
func (tr *TableRunner) resolveFKWithRetry(ctx *gencontext.Context, rowRNG *gencontext.RNG, row map[string]any, attempts map[string]int, b fkBinding) *gerr.Error {
	key := b.attemptKey()
	for {
		err := tr.resolveFK(ctx, rowRNG, row, attempts[key], b)
		if err == nil {
			return nil
		}
		attempts[key]++
		tr.tableAttemptsUsed++
		if attempts[key] > tr.budgets.MaxAttemptsCell || tr.tableAttemptsUsed > tr.budgets.MaxAttemptsTable {
			return gerr.Wrap(gerr.CodeFkUnavailable, fmt.Sprintf("%s.%s constraint %s: %v", tr.plan.Schema, tr.plan.Table.Name, b.name, err), err)
		}
	}
}

// resolveFK draws the parent tuple once and assigns every member column
// from that same parent row, keeping multi-column foreign keys
// internally consistent.
func (tr *TableRunner) resolveFK(ctx *gencontext.Context, rowRNG *gencontext.RNG, row map[string]any, attempt int, b fkBinding) error {
	rng := rowRNG.CellRNG(b.attemptKey()).AttemptRNG(attempt)
	tuple, ok := ctx.Pools.PickFK(b.refSchema, b.refTable, rng)
	if !ok {
		return fmt.Errorf("no generated rows available for %s.%s", b.refSchema, b.refTable)
	}
	for i, col := range b.columns {
		val, ok := ctx.Pools.LookupParentValue(b.refSchema, b.refTable, tuple, b.refColumns[i])
		if !ok {
			return fmt.Errorf("parent row of %s.%s missing column %q", b.refSchema, b.refTable, b.refColumns[i])
		}
		row[col] = val
	}
	ctx.Coverage.RecordGenerator("derive.fk")
	return nil
}

func (tr *TableRunner) generateCellWithRetry(ctx *gencontext.Context, rowRNG *gencontext.RNG, row map[string]any, attempts map[string]int, col string) (any, *gerr.Error) {
	for {
		val, err := tr.generateCell(ctx, rowRNG, row, attempts[col], col)
		if err == nil {
			return val, nil
		}
		attempts[col]++
		tr.tableAttemptsUsed++
		code := cellErrorCode(tr.plan.Rules[col].Generator.ID)
		if attempts[col] > tr.budgets.MaxAttemptsCell || tr.tableAttemptsUsed > tr.budgets.MaxAttemptsTable {
			return nil, gerr.Wrap(code, fmt.Sprintf("%s.%s.%s: %v", tr.plan.Schema, tr.plan.Table.Name, col, err), err)
		}
	}
}

func cellErrorCode(generatorID string) gerr.Code {
	switch generatorID {
	case "derive.fk", "derive.parent_value":
		return gerr.CodeFkUnavailable
	default:
		return gerr.CodeSchemaViolation
	}
}

func (tr *TableRunner) generateCell(ctx *gencontext.Context, rowRNG *gencontext.RNG, row map[string]any, attempt int, colName string) (any, error) {
	col := tr.plan.Table.Column(colName)
	r, hasRule := tr.plan.Rules[colName]
	cellRNG := rowRNG.CellRNG(colName).AttemptRNG(attempt)

	if !hasRule {
		val, err := fallback.Generate(col, cellRNG)
		if err != nil {
			return nil, err
		}
		ctx.Coverage.RecordHeuristic()
		return val, nil
	}

	gen, ok := tr.reg.Generator(r.Generator.ID)
	if !ok {
		ctx.Coverage.RecordUnknownGeneratorID()
		return nil, fmt.Errorf("unknown generator id %q", r.Generator.ID)
	}

	args := registry.GenArgs{
		Column: col,
		Row:    registry.RowView(row),
		Ctx:    ctx,
		RNG:    cellRNG,
		Params: r.EffectiveParams(),
		Locale: ctx.ResolveLocale(r.EffectiveLocale()),
		Schema: tr.plan.Schema,
		Table:  tr.plan.Table.Name,
	}
	val, err := gen.Generate(args)
	if err != nil {
		return nil, err
	}
	ctx.Coverage.RecordGenerator(r.Generator.ID)
	for _, tag := range gen.PIITags() {
		_ = tag
		ctx.Coverage.RecordPIIColumn(fmt.Sprintf("%s.%s.%s", tr.plan.Schema, tr.plan.Table.Name, colName))
	}

	for _, tref := range r.Transforms {
		transform, ok := tr.reg.Transform(tref.ID)
		if !ok {
			return nil, fmt.Errorf("unknown transform id %q", tref.ID)
		}
		val, err = transform.Apply(val, tref.Params, cellRNG)
		if err != nil {
			return nil, err
		}
		ctx.Coverage.RecordTransform(tref.ID)
	}
	return val, nil
}
