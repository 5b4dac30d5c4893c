package derive

import (
	"strings"
	"testing"
	"time"

	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/registry"
)

func newArgs(t *testing.T, row registry.RowView, params map[string]any) registry.GenArgs {
	t.Helper()
	ctx := gencontext.New(7, "en_US", false, gencontext.PolicyEnforce)
	rng := ctx.TableRNG("public", "orders").RowRNG(0).CellRNG("col")
	return registry.GenArgs{RNG: rng, Ctx: ctx, Row: row, Params: params, Schema: "public", Table: "orders"}
}

func TestEmailFromNameDerivesAddress(t *testing.T) {
	g := emailFromNameGen{}
	row := registry.RowView{"full_name": "Ada Lovelace"}
	v, err := g.Generate(newArgs(t, row, map[string]any{"source_column": "full_name", "domain": "test.dev"}))
	if err != nil {
		t.Fatal(err)
	}
	s := v.(string)
	if !strings.Contains(s, "@test.dev") || !strings.Contains(s, "ada.lovelace") {
		t.Fatalf("unexpected email %q", s)
	}
}

func TestEmailFromNameMissingSourceColumn(t *testing.T) {
	g := emailFromNameGen{}
	_, err := g.Generate(newArgs(t, registry.RowView{}, map[string]any{"source_column": "full_name"}))
	if err == nil {
		t.Fatal("expected error when source column is absent")
	}
}

func TestUpdatedAfterCreatedNeverPrecedesSource(t *testing.T) {
	g := updatedAfterCreatedGen{}
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(rfc3339)
	row := registry.RowView{"created_at": created}
	v, err := g.Generate(newArgs(t, row, map[string]any{"source_column": "created_at", "max_delay_seconds": 100}))
	if err != nil {
		t.Fatal(err)
	}
	updated, err := time.Parse(rfc3339, v.(string))
	if err != nil {
		t.Fatal(err)
	}
	createdT, _ := time.Parse(rfc3339, created)
	if updated.Before(createdT) {
		t.Fatalf("expected updated_at %s to not precede created_at %s", updated, createdT)
	}
}

func TestEndAfterStartRejectsInvertedDelayBounds(t *testing.T) {
	g := endAfterStartGen{}
	row := registry.RowView{"start_at": time.Now().UTC().Format(rfc3339)}
	_, err := g.Generate(newArgs(t, row, map[string]any{
		"source_column": "start_at", "min_delay_seconds": 100, "max_delay_seconds": 10,
	}))
	if err == nil {
		t.Fatal("expected error for max_delay_seconds < min_delay_seconds")
	}
}

func TestMoneyTotalMultipliesQuantityAndPrice(t *testing.T) {
	g := moneyTotalGen{}
	row := registry.RowView{"qty": int64(3), "price": "9.99"}
	v, err := g.Generate(newArgs(t, row, map[string]any{
		"quantity_column": "qty", "unit_price_column": "price", "scale": 2,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if v.(string) != "29.97" {
		t.Fatalf("expected 29.97, got %s", v)
	}
}

func TestFKSamplesFromPublishedPool(t *testing.T) {
	ctx := gencontext.New(7, "en_US", false, gencontext.PolicyEnforce)
	ctx.Pools.Publish("public", "users", []string{"id"}, []map[string]any{
		{"id": int64(1)}, {"id": int64(2)},
	})
	g := fkGen{}
	rng := ctx.TableRNG("public", "orders").RowRNG(0).CellRNG("user_id")
	args := registry.GenArgs{RNG: rng, Ctx: ctx, Schema: "public", Table: "orders", Params: map[string]any{
		"references_schema": "public", "references_table": "users", "references_column": "id",
	}}
	v, err := g.Generate(args)
	if err != nil {
		t.Fatal(err)
	}
	id := v.(int64)
	if id != 1 && id != 2 {
		t.Fatalf("unexpected sampled fk %v", id)
	}
}

func TestFKNoPublishedPoolFails(t *testing.T) {
	ctx := gencontext.New(7, "en_US", false, gencontext.PolicyEnforce)
	g := fkGen{}
	rng := ctx.TableRNG("public", "orders").RowRNG(0).CellRNG("user_id")
	args := registry.GenArgs{RNG: rng, Ctx: ctx, Params: map[string]any{
		"references_schema": "public", "references_table": "users", "references_column": "id",
	}}
	if _, err := g.Generate(args); err == nil {
		t.Fatal("expected error when parent pool was never published")
	}
}

func TestParentValueLooksUpSiblingColumn(t *testing.T) {
	ctx := gencontext.New(7, "en_US", false, gencontext.PolicyEnforce)
	ctx.Pools.Publish("public", "users", []string{"id"}, []map[string]any{
		{"id": int64(1), "region": "us-east"},
	})
	g := parentValueGen{}
	row := registry.RowView{"user_id": int64(1)}
	rng := ctx.TableRNG("public", "orders").RowRNG(0).CellRNG("region")
	args := registry.GenArgs{RNG: rng, Ctx: ctx, Row: row, Params: map[string]any{
		"fk_column": "user_id", "references_schema": "public", "references_table": "users", "references_column": "region",
	}}
	v, err := g.Generate(args)
	if err != nil {
		t.Fatal(err)
	}
	if v.(string) != "us-east" {
		t.Fatalf("expected us-east, got %v", v)
	}
}
