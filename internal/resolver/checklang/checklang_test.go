package checklang

import (
	"errors"
	"testing"
)

func mustCompile(t *testing.T, expr string) *Program {
	t.Helper()
	p, err := Compile(expr)
	if err != nil {
		t.Fatalf("Compile(%q): %v", expr, err)
	}
	return p
}

func eval(t *testing.T, p *Program, row map[string]any) bool {
	t.Helper()
	ok, err := p.Eval(row)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	return ok
}

func TestCompareOperators(t *testing.T) {
	cases := []struct {
		expr string
		row  map[string]any
		want bool
	}{
		{"(qty > 0)", map[string]any{"qty": int64(3)}, true},
		{"(qty > 0)", map[string]any{"qty": int64(0)}, false},
		{"(qty >= 10)", map[string]any{"qty": int64(10)}, true},
		{"(qty < 5)", map[string]any{"qty": int64(7)}, false},
		{"(qty <= 5)", map[string]any{"qty": int64(5)}, true},
		{"(status = 'active')", map[string]any{"status": "active"}, true},
		{"(status <> 'active')", map[string]any{"status": "active"}, false},
		{"(status != 'active')", map[string]any{"status": "gone"}, true},
	}
	for _, c := range cases {
		p := mustCompile(t, c.expr)
		if got := eval(t, p, c.row); got != c.want {
			t.Errorf("%s with %v: got %v, want %v", c.expr, c.row, got, c.want)
		}
	}
}

func TestInList(t *testing.T) {
	p := mustCompile(t, "(kind IN ('a', 'b', 'c'))")
	if !eval(t, p, map[string]any{"kind": "b"}) {
		t.Fatal("expected 'b' to be in list")
	}
	if eval(t, p, map[string]any{"kind": "z"}) {
		t.Fatal("expected 'z' to be outside list")
	}
}

func TestBetween(t *testing.T) {
	p := mustCompile(t, "(score BETWEEN 1 AND 10)")
	if !eval(t, p, map[string]any{"score": int64(1)}) {
		t.Fatal("expected lower bound inclusive")
	}
	if !eval(t, p, map[string]any{"score": int64(10)}) {
		t.Fatal("expected upper bound inclusive")
	}
	if eval(t, p, map[string]any{"score": int64(11)}) {
		t.Fatal("expected 11 outside the range")
	}
}

func TestNullness(t *testing.T) {
	p := mustCompile(t, "(deleted_at IS NULL)")
	if !eval(t, p, map[string]any{"deleted_at": nil}) {
		t.Fatal("expected IS NULL to accept nil")
	}
	if eval(t, p, map[string]any{"deleted_at": "2024-01-01"}) {
		t.Fatal("expected IS NULL to reject a value")
	}

	p = mustCompile(t, "(name IS NOT NULL)")
	if !eval(t, p, map[string]any{"name": "x"}) {
		t.Fatal("expected IS NOT NULL to accept a value")
	}
}

func TestConjunction(t *testing.T) {
	p := mustCompile(t, "((qty > 0) AND (qty < 100) AND (kind IN ('x', 'y')))")
	if !eval(t, p, map[string]any{"qty": int64(50), "kind": "x"}) {
		t.Fatal("expected all conjuncts to hold")
	}
	if eval(t, p, map[string]any{"qty": int64(50), "kind": "z"}) {
		t.Fatal("expected failing conjunct to reject the row")
	}
}

func TestQuotedIdentifier(t *testing.T) {
	p := mustCompile(t, `("order" > 0)`)
	if !eval(t, p, map[string]any{"order": int64(1)}) {
		t.Fatal("expected quoted identifier to resolve to the row column")
	}
}

func TestCurrentDateClampsToBaseDate(t *testing.T) {
	p := mustCompile(t, "(birth_date < current_date)")
	before := BaseDate.AddDate(-1, 0, 0).Format("2006-01-02")
	after := BaseDate.AddDate(1, 0, 0).Format("2006-01-02")
	if !eval(t, p, map[string]any{"birth_date": before}) {
		t.Fatalf("expected %s to be before the clamped base date", before)
	}
	if eval(t, p, map[string]any{"birth_date": after}) {
		t.Fatalf("expected %s to be after the clamped base date", after)
	}
}

func TestOutsideGrammarIsNotEvaluated(t *testing.T) {
	for _, expr := range []string{
		"(a > 0 OR b > 0)",
		"(length(name) > 3)",
		"(qty > other_column)",
		"(price * qty < 100)",
		"",
	} {
		_, err := Compile(expr)
		if err == nil {
			t.Errorf("Compile(%q): expected rejection", expr)
			continue
		}
		var ne *ErrNotEvaluated
		if !errors.As(err, &ne) {
			t.Errorf("Compile(%q): expected *ErrNotEvaluated, got %T (%v)", expr, err, err)
		}
	}
}

func TestUnbalancedParensRejected(t *testing.T) {
	if _, err := Compile("((qty > 0)"); err == nil {
		t.Fatal("expected unbalanced parens to be rejected")
	}
}
