package fakeradapter

import (
	"testing"

	"github.com/gensynth/gensynth/internal/registry"
)

func TestRegisterCatalogHasNoDuplicateIDs(t *testing.T) {
	r := registry.New()
	RegisterCatalog(r)
	if len(r.ListGeneratorIDs()) != len(catalog) {
		t.Fatalf("expected %d registered generators, got %d", len(catalog), len(r.ListGeneratorIDs()))
	}
}

func TestUnwiredParamEntryReportsRequiresParams(t *testing.T) {
	r := registry.New()
	RegisterCatalog(r)
	g, ok := r.Generator("faker.number.range")
	if !ok {
		t.Fatal("expected faker.number.range to be registered")
	}
	_, err := g.Generate(newArgs(1))
	if err == nil {
		t.Fatal("expected RequiresParams error when min/max are not wired")
	}
}

func TestWiredParamEntrySucceeds(t *testing.T) {
	r := registry.New()
	RegisterCatalog(r)
	g, _ := r.Generator("faker.number.range")
	a := newArgs(1)
	a.Params = map[string]any{"min": 1, "max": 10}
	v, err := g.Generate(a)
	if err != nil {
		t.Fatal(err)
	}
	n := v.(int)
	if n < 1 || n > 10 {
		t.Fatalf("expected value in [1,10], got %d", n)
	}
}
