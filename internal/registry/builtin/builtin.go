// Package builtin aggregates every first-party generator and transform
// family into one registry.Registry. It is the sole place that
// imports every generator family package, keeping internal/registry
// itself free of a dependency on its own extensions.
package builtin

import (
	"github.com/gensynth/gensynth/internal/fakeradapter"
	"github.com/gensynth/gensynth/internal/registry"
	"github.com/gensynth/gensynth/internal/registry/derive"
	"github.com/gensynth/gensynth/internal/registry/primitive"
	"github.com/gensynth/gensynth/internal/registry/transform"
)

// Default builds the registry the engine uses unless a plan is validated
// against a caller-supplied one (tests substitute a narrower registry to
// keep fixtures small).
func Default() *registry.Registry {
	r := registry.New()
	primitive.Register(r)
	derive.Register(r)
	transform.Register(r)
	fakeradapter.RegisterCatalog(r)
	fakeradapter.RegisterAliases(r)
	return r
}
