// Package checklang evaluates the closed CHECK sub-language: comparisons,
// IN (…), BETWEEN a AND b, IS [NOT] NULL, joined only by AND. A raw
// catalog CHECK expression is first parsed into this package's own
// clause AST, never handed to CEL as free text, so anything outside the
// grammar is categorized not_evaluated before a cel.Env ever sees it.
// Once parsed, each clause is translated into a CEL expression over a
// single `row` map variable and compiled with github.com/google/cel-go.
package checklang

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// ErrNotEvaluated marks a CHECK expression that falls outside the
// evaluable grammar. Callers honor it per the global constraint_policy.
type ErrNotEvaluated struct {
	Expression string
	Reason     string
}

func (e *ErrNotEvaluated) Error() string {
	return fmt.Sprintf("check expression %q not evaluated: %s", e.Expression, e.Reason)
}

// BaseDate is the fixed point current_date/current_timestamp clamp to
// for generation purposes, so date-relative CHECKs stay deterministic
// across runs.
var BaseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Program is a compiled CHECK expression, ready to evaluate against a
// candidate row.
type Program struct {
	source string
	prog   cel.Program
}

// Compile parses raw (a catalog CHECK's expression text, typically
// wrapped in parens by pg_get_constraintdef) into a Program, or returns
// *ErrNotEvaluated if raw falls outside the supported grammar.
func Compile(raw string) (*Program, error) {
	clauses, err := parseClauses(raw)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		return nil, &ErrNotEvaluated{Expression: raw, Reason: "empty expression"}
	}

	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		expr, err := c.celExpr()
		if err != nil {
			return nil, &ErrNotEvaluated{Expression: raw, Reason: err.Error()}
		}
		parts = append(parts, expr)
	}
	celSrc := strings.Join(parts, " && ")

	env, err := cel.NewEnv(cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, fmt.Errorf("checklang: building cel env: %w", err)
	}
	ast, issues := env.Compile(celSrc)
	if issues != nil && issues.Err() != nil {
		return nil, &ErrNotEvaluated{Expression: raw, Reason: issues.Err().Error()}
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, &ErrNotEvaluated{Expression: raw, Reason: err.Error()}
	}
	return &Program{source: raw, prog: prg}, nil
}

// Eval runs the compiled program against row (column name → generated
// value). A nil column value is presented to CEL as the CEL null literal.
func (p *Program) Eval(row map[string]any) (bool, error) {
	out, _, err := p.prog.Eval(map[string]any{"row": row})
	if err != nil {
		return false, fmt.Errorf("checklang: evaluating %q: %w", p.source, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("checklang: %q did not evaluate to a bool", p.source)
	}
	return b, nil
}
