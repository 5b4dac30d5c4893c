// Package resolver enforces schema constraints against candidate rows:
// NOT NULL and declared-length checks, PK/UNIQUE tuple tracking with
// collision-scoped regeneration, and CHECK evaluation. FK resolution
// itself lives in the derive.fk/derive.parent_value generators
// (internal/registry/derive) against internal/gencontext's ParentPools;
// this package only decides what counts as a retry-worthy FK failure.
package resolver

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/gerr"
	"github.com/gensynth/gensynth/internal/resolver/checklang"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

// UniqueSet is the running collection of tuples already produced for one
// PK/UNIQUE constraint; it lives for the duration of the owning table's
// generation.
type UniqueSet struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewUniqueSet() *UniqueSet {
	return &UniqueSet{seen: make(map[string]bool)}
}

func tupleKey(tuple []any) string {
	b, err := json.Marshal(tuple)
	if err != nil {
		return fmt.Sprintf("%v", tuple)
	}
	return string(b)
}

// Contains reports whether tuple has already been committed, without
// mutating the set.
func (u *UniqueSet) Contains(tuple []any) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.seen[tupleKey(tuple)]
}

// Commit records tuple as produced. Callers must have already confirmed
// !Contains(tuple) for every unique set a row touches before committing
// to any of them, so a row that fails one constraint never partially
// pollutes another.
func (u *UniqueSet) Commit(tuple []any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.seen[tupleKey(tuple)] = true
}

// checkEntry pairs a compiled CHECK program with the constraint name and
// participating columns, so a violation can report which columns to
// regenerate.
type checkEntry struct {
	name    string
	columns []string
	program *checklang.Program
}

// uniqueEntry pairs a PK/UNIQUE constraint's name and ordered columns
// with its backing UniqueSet.
type uniqueEntry struct {
	name    string
	columns []string
	set     *UniqueSet
}

// NotEvaluatedCheck describes a CHECK constraint whose expression fell
// outside the evaluable grammar, for reporting at table setup time.
type NotEvaluatedCheck struct {
	Name       string
	Expression string
	Reason     string
}

// fkEntry is one foreign-key constraint CheckRow validates against the
// parent pools once BindParentPools has been called.
type fkEntry struct {
	name       string
	columns    []string
	refSchema  string
	refTable   string
	refColumns []string
}

// TableState holds every piece of per-table generation state the
// Resolver needs: NOT NULL columns, unique sets, foreign keys, compiled
// CHECK programs, and the constraint policy governing un-evaluable
// CHECKs.
type TableState struct {
	table        *schemamodel.Table
	notNull      map[string]bool
	uniques      []uniqueEntry
	fks          []fkEntry
	pools        *gencontext.ParentPools
	checks       []checkEntry
	notEvaluated []NotEvaluatedCheck
	policy       gencontext.ConstraintPolicy
}

// NewTableState builds the resolver state for table, compiling every
// CHECK constraint it can and recording the rest as not_evaluated.
func NewTableState(table *schemamodel.Table, policy gencontext.ConstraintPolicy) *TableState {
	ts := &TableState{
		table:   table,
		notNull: make(map[string]bool),
		policy:  policy,
	}
	for _, col := range table.Columns {
		if !col.IsNullable {
			ts.notNull[col.Name] = true
		}
	}
	if pk := table.PrimaryKey(); pk != nil {
		ts.uniques = append(ts.uniques, uniqueEntry{name: pkName(pk), columns: pk.Columns, set: NewUniqueSet()})
	}
	for _, u := range table.UniqueConstraints() {
		ts.uniques = append(ts.uniques, uniqueEntry{name: u.Name, columns: u.Columns, set: NewUniqueSet()})
	}
	for _, c := range table.CheckConstraints() {
		prog, err := checklang.Compile(c.Expression)
		if err != nil {
			reason := err.Error()
			if ne, ok := err.(*checklang.ErrNotEvaluated); ok {
				reason = ne.Reason
			}
			ts.notEvaluated = append(ts.notEvaluated, NotEvaluatedCheck{Name: c.Name, Expression: c.Expression, Reason: reason})
			continue
		}
		ts.checks = append(ts.checks, checkEntry{name: c.Name, columns: referencedColumns(table, c.Expression), program: prog})
	}
	return ts
}

// BindParentPools enables foreign-key validation in CheckRow: every FK
// tuple must resolve to a published parent row. Constraints named in
// skip are exempt (the plan author overrode them under
// allow_fk_disable).
func (ts *TableState) BindParentPools(pools *gencontext.ParentPools, skip map[string]bool) {
	ts.pools = pools
	ts.fks = nil
	for _, fk := range ts.table.ForeignKeys() {
		if skip[fk.Name] {
			continue
		}
		ts.fks = append(ts.fks, fkEntry{
			name:       fk.Name,
			columns:    fk.Columns,
			refSchema:  fk.ReferencedSchema,
			refTable:   fk.ReferencedTable,
			refColumns: fk.ReferencedColumns,
		})
	}
}

func pkName(pk *schemamodel.Constraint) string {
	if pk.Name != "" {
		return pk.Name
	}
	return "primary_key"
}

// referencedColumns returns every table column name that appears as a
// standalone token in expr, used only to scope which columns a CHECK
// failure regenerates; it is deliberately coarse (substring-on-token)
// rather than a full expression-to-column binder.
func referencedColumns(table *schemamodel.Table, expr string) []string {
	var cols []string
	for _, c := range table.Columns {
		if containsToken(expr, c.Name) {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func containsToken(s, token string) bool {
	for i := 0; i+len(token) <= len(s); i++ {
		if s[i:i+len(token)] != token {
			continue
		}
		before := byte(' ')
		if i > 0 {
			before = s[i-1]
		}
		after := byte(' ')
		if i+len(token) < len(s) {
			after = s[i+len(token)]
		}
		if !isIdentChar(before) && !isIdentChar(after) {
			return true
		}
	}
	return false
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// NotEvaluatedChecks returns every CHECK constraint this table state
// could not compile, for the engine to surface once at table setup.
func (ts *TableState) NotEvaluatedChecks() []NotEvaluatedCheck { return ts.notEvaluated }

// Violation describes why CheckRow rejected a candidate row, and which
// columns participated so the pipeline knows what to regenerate.
type Violation struct {
	Code    gerr.Code
	Message string
	Columns []string
}

// CheckRow runs NOT NULL/length, PK/UNIQUE, FK, and CHECK validation
// against a fully generated candidate row, in that order. It does not
// mutate any unique set; call Commit after the row is finally accepted.
func (ts *TableState) CheckRow(row map[string]any) *Violation {
	for _, col := range ts.table.Columns {
		v, ok := row[col.Name]
		if ts.notNull[col.Name] && (!ok || v == nil) {
			return &Violation{Code: gerr.CodeSchemaViolation, Message: fmt.Sprintf("column %q is NOT NULL", col.Name), Columns: []string{col.Name}}
		}
		if maxLen := col.Type.CharMaxLength; maxLen != nil && v != nil {
			if s, isStr := v.(string); isStr && len([]rune(s)) > *maxLen {
				return &Violation{
					Code:    gerr.CodeSchemaViolation,
					Message: fmt.Sprintf("column %q: value length %d exceeds declared maximum %d", col.Name, len([]rune(s)), *maxLen),
					Columns: []string{col.Name},
				}
			}
		}
	}

	for _, u := range ts.uniques {
		tuple := make([]any, len(u.columns))
		anyNull := false
		for i, c := range u.columns {
			tuple[i] = row[c]
			if row[c] == nil {
				anyNull = true
			}
		}
		if anyNull {
			// Standard relational semantics: NULL never conflicts with
			// itself in a UNIQUE index; skip this constraint.
			continue
		}
		if u.set.Contains(tuple) {
			return &Violation{Code: gerr.CodeUniqueExhausted, Message: fmt.Sprintf("constraint %q: duplicate tuple %v", u.name, tuple), Columns: u.columns}
		}
	}

	if ts.pools != nil {
		for _, fk := range ts.fks {
			tuple := make([]any, len(fk.columns))
			anyNull := false
			for i, c := range fk.columns {
				tuple[i] = row[c]
				if row[c] == nil {
					anyNull = true
				}
			}
			if anyNull {
				// A tuple containing NULL does not reference anything.
				continue
			}
			if !ts.pools.HasRow(fk.refSchema, fk.refTable, fk.refColumns, tuple) {
				return &Violation{
					Code:    gerr.CodeFkUnavailable,
					Message: fmt.Sprintf("constraint %q: tuple %v has no parent row in %s.%s", fk.name, tuple, fk.refSchema, fk.refTable),
					Columns: fk.columns,
				}
			}
		}
	}

	for _, c := range ts.checks {
		ok, err := c.program.Eval(row)
		if err != nil {
			return &Violation{Code: gerr.CodeCheckViolation, Message: err.Error(), Columns: c.columns}
		}
		if !ok {
			return &Violation{Code: gerr.CodeCheckViolation, Message: fmt.Sprintf("check %q failed", c.name), Columns: c.columns}
		}
	}
	return nil
}

// Commit records row's tuples into every unique set it participates in.
// Call only after CheckRow has returned nil for this exact row.
func (ts *TableState) Commit(row map[string]any) {
	for _, u := range ts.uniques {
		tuple := make([]any, len(u.columns))
		anyNull := false
		for i, c := range u.columns {
			tuple[i] = row[c]
			if row[c] == nil {
				anyNull = true
			}
		}
		if anyNull {
			continue
		}
		u.set.Commit(tuple)
	}
}

// NotEvaluatedPolicy reports how un-evaluable CHECKs are treated:
// enforce rejects the row, warn counts it, ignore stays silent.
func (ts *TableState) NotEvaluatedPolicy() gencontext.ConstraintPolicy { return ts.policy }
