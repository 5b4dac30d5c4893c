// Package fakeradapter is the single translation layer over the external
// realistic-value library. Every use of gofakeit in this module is
// confined here; the rest of the engine only ever sees registry.Generator
// values with faker.* or semantic.* ids.
package fakeradapter

import (
	"github.com/brianvoe/gofakeit/v7"

	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/registry"
)

// newSeededFaker derives a fresh gofakeit.Faker from the cell RNG so that
// every draw stays inside this module's own deterministic seed hierarchy
// instead of gofakeit's process-global source.
func newSeededFaker(rng *gencontext.RNG) *gofakeit.Faker {
	return gofakeit.New(uint64(rng.Int63()))
}

// catalogGenerator adapts one catalogEntry to registry.Generator.
type catalogGenerator struct {
	entry catalogEntry
}

func (g catalogGenerator) ID() string                 { return g.entry.id }
func (g catalogGenerator) SupportedLocales() []string { return g.entry.locales }
func (g catalogGenerator) PIITags() []string          { return nil }
func (g catalogGenerator) ParamSpec() []registry.ParamSpec {
	if !g.entry.requiresParams {
		return nil
	}
	return []registry.ParamSpec{} // declared empty: plan validation rejects every key as unknown; invoke checks params itself
}
func (g catalogGenerator) Generate(a registry.GenArgs) (any, error) {
	f := newSeededFaker(a.RNG)
	return g.entry.invoke(f, a.Params)
}

// RegisterCatalog adds one generator per catalog entry, under its
// faker.<module>.<entry> id.
func RegisterCatalog(r *registry.Registry) {
	for _, e := range catalog {
		r.MustRegisterGenerator(catalogGenerator{entry: e})
	}
}
