// Package derive implements the derive.* generator family: values
// computed from sibling columns already present in the row, or sampled
// from an already-generated parent table via the context's parent pools.
package derive

import (
	"fmt"
	"strings"
	"time"

	"github.com/gensynth/gensynth/internal/registry"
	"github.com/shopspring/decimal"
)

func ptr(f float64) *float64 { return &f }

// Register adds every derive.* generator to r.
func Register(r *registry.Registry) {
	r.MustRegisterGenerator(emailFromNameGen{})
	r.MustRegisterGenerator(updatedAfterCreatedGen{})
	r.MustRegisterGenerator(endAfterStartGen{})
	r.MustRegisterGenerator(moneyTotalGen{})
	r.MustRegisterGenerator(fkGen{})
	r.MustRegisterGenerator(parentValueGen{})
}

type emailFromNameGen struct{}

func (emailFromNameGen) ID() string                 { return "derive.email_from_name" }
func (emailFromNameGen) SupportedLocales() []string { return nil }
func (emailFromNameGen) PIITags() []string          { return []string{"email"} }
func (emailFromNameGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "source_column", Type: registry.ParamString, Required: true},
		{Name: "domain", Type: registry.ParamString},
	}
}
func (emailFromNameGen) Generate(a registry.GenArgs) (any, error) {
	source := a.StringParam("source_column", "")
	domain := a.StringParam("domain", "example.com")
	raw, ok := a.Row.Get(source)
	if !ok {
		return nil, fmt.Errorf("derive.email_from_name: source column %q not yet generated for this row", source)
	}
	name, ok := raw.(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("derive.email_from_name: source column %q did not hold a non-empty string", source)
	}
	local := strings.ToLower(strings.Join(strings.Fields(name), "."))
	local = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r == '.', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, local)
	if local == "" {
		local = "user"
	}
	return fmt.Sprintf("%s+%d@%s", local, a.RNG.Intn(10000), domain), nil
}

const rfc3339 = time.RFC3339

type updatedAfterCreatedGen struct{}

func (updatedAfterCreatedGen) ID() string                 { return "derive.updated_after_created" }
func (updatedAfterCreatedGen) SupportedLocales() []string { return nil }
func (updatedAfterCreatedGen) PIITags() []string          { return nil }
func (updatedAfterCreatedGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "source_column", Type: registry.ParamString, Required: true},
		{Name: "max_delay_seconds", Type: registry.ParamInt, Min: ptr(0)},
	}
}
func (updatedAfterCreatedGen) Generate(a registry.GenArgs) (any, error) {
	source := a.StringParam("source_column", "")
	raw, ok := a.Row.Get(source)
	if !ok {
		return nil, fmt.Errorf("derive.updated_after_created: source column %q not yet generated for this row", source)
	}
	created, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("derive.updated_after_created: source column %q is not a timestamp string", source)
	}
	t, err := time.Parse(rfc3339, created)
	if err != nil {
		return nil, fmt.Errorf("derive.updated_after_created: %w", err)
	}
	maxDelay := a.IntParam("max_delay_seconds", 3600*24*30)
	delay := a.RNG.Int63n(int64(maxDelay) + 1)
	return t.Add(time.Duration(delay) * time.Second).Format(rfc3339), nil
}

type endAfterStartGen struct{}

func (endAfterStartGen) ID() string                 { return "derive.end_after_start" }
func (endAfterStartGen) SupportedLocales() []string { return nil }
func (endAfterStartGen) PIITags() []string          { return nil }
func (endAfterStartGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "source_column", Type: registry.ParamString, Required: true},
		{Name: "min_delay_seconds", Type: registry.ParamInt, Min: ptr(1)},
		{Name: "max_delay_seconds", Type: registry.ParamInt, Min: ptr(1)},
	}
}
func (endAfterStartGen) Generate(a registry.GenArgs) (any, error) {
	source := a.StringParam("source_column", "")
	raw, ok := a.Row.Get(source)
	if !ok {
		return nil, fmt.Errorf("derive.end_after_start: source column %q not yet generated for this row", source)
	}
	start, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("derive.end_after_start: source column %q is not a timestamp string", source)
	}
	t, err := time.Parse(rfc3339, start)
	if err != nil {
		return nil, fmt.Errorf("derive.end_after_start: %w", err)
	}
	minDelay := a.IntParam("min_delay_seconds", 60)
	maxDelay := a.IntParam("max_delay_seconds", minDelay+3600)
	if maxDelay < minDelay {
		return nil, fmt.Errorf("derive.end_after_start: max_delay_seconds %d < min_delay_seconds %d", maxDelay, minDelay)
	}
	delay := int64(minDelay) + a.RNG.Int63n(int64(maxDelay-minDelay)+1)
	return t.Add(time.Duration(delay) * time.Second).Format(rfc3339), nil
}

type moneyTotalGen struct{}

func (moneyTotalGen) ID() string                 { return "derive.money_total" }
func (moneyTotalGen) SupportedLocales() []string { return nil }
func (moneyTotalGen) PIITags() []string          { return nil }
func (moneyTotalGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "quantity_column", Type: registry.ParamString, Required: true},
		{Name: "unit_price_column", Type: registry.ParamString, Required: true},
		{Name: "scale", Type: registry.ParamInt, Min: ptr(0)},
	}
}
func (moneyTotalGen) Generate(a registry.GenArgs) (any, error) {
	qtyCol := a.StringParam("quantity_column", "")
	priceCol := a.StringParam("unit_price_column", "")
	qtyRaw, ok := a.Row.Get(qtyCol)
	if !ok {
		return nil, fmt.Errorf("derive.money_total: quantity column %q not yet generated", qtyCol)
	}
	priceRaw, ok := a.Row.Get(priceCol)
	if !ok {
		return nil, fmt.Errorf("derive.money_total: unit price column %q not yet generated", priceCol)
	}
	qty, err := toDecimal(qtyRaw)
	if err != nil {
		return nil, fmt.Errorf("derive.money_total: quantity: %w", err)
	}
	price, err := toDecimal(priceRaw)
	if err != nil {
		return nil, fmt.Errorf("derive.money_total: unit price: %w", err)
	}
	scale := a.IntParam("scale", 2)
	return qty.Mul(price).StringFixed(int32(scale)), nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case string:
		return decimal.NewFromString(n)
	case int64:
		return decimal.New(n, 0), nil
	case int:
		return decimal.New(int64(n), 0), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported value type %T", v)
	}
}

type fkGen struct{}

func (fkGen) ID() string                 { return "derive.fk" }
func (fkGen) SupportedLocales() []string { return nil }
func (fkGen) PIITags() []string          { return nil }
func (fkGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "references_schema", Type: registry.ParamString, Required: true},
		{Name: "references_table", Type: registry.ParamString, Required: true},
		{Name: "references_column", Type: registry.ParamString, Required: true},
	}
}

// Generate samples a foreign key value from the referenced table's
// already-published parent pool. Multi-column foreign keys are resolved
// by the row pipeline, which draws the parent tuple once and assigns
// every member column from that same row; this generator serves the
// single-column case.
func (fkGen) Generate(a registry.GenArgs) (any, error) {
	refSchema := a.StringParam("references_schema", a.Schema)
	refTable := a.StringParam("references_table", "")
	refColumn := a.StringParam("references_column", "")
	tuple, ok := a.Ctx.Pools.PickFK(refSchema, refTable, a.RNG)
	if !ok {
		return nil, fmt.Errorf("derive.fk: no generated rows available for %s.%s", refSchema, refTable)
	}
	val, ok := a.Ctx.Pools.LookupParentValue(refSchema, refTable, tuple, refColumn)
	if !ok {
		return nil, fmt.Errorf("derive.fk: parent row for %s.%s missing column %q", refSchema, refTable, refColumn)
	}
	return val, nil
}

type parentValueGen struct{}

func (parentValueGen) ID() string                 { return "derive.parent_value" }
func (parentValueGen) SupportedLocales() []string { return nil }
func (parentValueGen) PIITags() []string          { return nil }
func (parentValueGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "fk_column", Type: registry.ParamString, Required: true},
		{Name: "references_schema", Type: registry.ParamString, Required: true},
		{Name: "references_table", Type: registry.ParamString, Required: true},
		{Name: "references_column", Type: registry.ParamString, Required: true},
	}
}

// Generate reads a sibling column's already-resolved FK value and looks
// up a different column on that same parent row, e.g. denormalizing a
// parent's region onto a child row whose parent_id was set by derive.fk.
func (parentValueGen) Generate(a registry.GenArgs) (any, error) {
	fkColumn := a.StringParam("fk_column", "")
	fkVal, ok := a.Row.Get(fkColumn)
	if !ok {
		return nil, fmt.Errorf("derive.parent_value: fk column %q not yet generated for this row", fkColumn)
	}
	refSchema := a.StringParam("references_schema", a.Schema)
	refTable := a.StringParam("references_table", "")
	refColumn := a.StringParam("references_column", "")
	val, ok := a.Ctx.Pools.LookupParentValue(refSchema, refTable, []any{fkVal}, refColumn)
	if !ok {
		return nil, fmt.Errorf("derive.parent_value: no parent row of %s.%s with key %v", refSchema, refTable, fkVal)
	}
	return val, nil
}
