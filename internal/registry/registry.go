// Package registry is the ID-keyed catalog of generators and transforms.
// It defines the capability-set interfaces every generator/transform
// implements and the map that resolves a dotted identifier to one, with
// registration at initialization and build-time duplicate detection.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

// ParamType enumerates the declared types a generator/transform parameter
// may take.
type ParamType string

const (
	ParamInt          ParamType = "int"
	ParamFloat        ParamType = "float"
	ParamString       ParamType = "string"
	ParamBool         ParamType = "bool"
	ParamListString   ParamType = "list<string>"
	ParamISODate      ParamType = "iso-date"
	ParamISOTime      ParamType = "iso-time"
	ParamISOTimestamp ParamType = "iso-timestamp"
)

// ParamSpec declares one named parameter a generator or transform accepts.
// Min/Max bound numeric parameters; Enum bounds string parameters when
// non-empty.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool
	Min      *float64
	Max      *float64
	Enum     []string
}

// RowView is the immutable, already-generated portion of the current row,
// visible to derive generators and to transforms running after the fact.
type RowView map[string]any

func (v RowView) Get(column string) (any, bool) {
	val, ok := v[column]
	return val, ok
}

// GenArgs bundles everything a Generator.Generate call needs.
type GenArgs struct {
	Column *schemamodel.Column
	Row    RowView
	Ctx    *gencontext.Context
	RNG    *gencontext.RNG
	Params map[string]any
	Locale string
	// Schema/Table identify the column's owning table, needed by
	// derive.fk/derive.parent_value to address the parent pool.
	Schema string
	Table  string
}

// StringParam, IntParam, etc. read a parameter with its declared default
// applied when absent; generators use these instead of raw map access so
// missing-vs-zero is handled once, not once per generator.
func (a GenArgs) StringParam(name, def string) string {
	if v, ok := a.Params[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (a GenArgs) IntParam(name string, def int) int {
	if v, ok := a.Params[name]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

func (a GenArgs) FloatParam(name string, def float64) float64 {
	if v, ok := a.Params[name]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func (a GenArgs) BoolParam(name string, def bool) bool {
	if v, ok := a.Params[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func (a GenArgs) StringListParam(name string) []string {
	v, ok := a.Params[name]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Generator is the polymorphic capability set every generator implements,
// resolved by string identifier, never by runtime type introspection.
type Generator interface {
	ID() string
	ParamSpec() []ParamSpec
	SupportedLocales() []string // empty means locale-agnostic
	PIITags() []string
	Generate(args GenArgs) (any, error)
}

// Transform is the post-generation capability set: a value-to-value
// function applied after the generator, before constraint checking.
type Transform interface {
	ID() string
	ParamSpec() []ParamSpec
	Apply(value any, params map[string]any, rng *gencontext.RNG) (any, error)
}

// Registry is the ID-keyed catalog. Safe for concurrent reads after
// construction; registration itself is not expected to race (it happens
// once, at process start, via builtin.Default()).
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
	transforms map[string]Transform
}

func New() *Registry {
	return &Registry{
		generators: make(map[string]Generator),
		transforms: make(map[string]Transform),
	}
}

// MustRegisterGenerator panics on a duplicate ID: registration happens at
// init time, so a collision is a build-time programming error, not a
// runtime condition to recover from.
func (r *Registry) MustRegisterGenerator(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.generators[g.ID()]; exists {
		panic(fmt.Sprintf("registry: duplicate generator id %q", g.ID()))
	}
	r.generators[g.ID()] = g
}

func (r *Registry) MustRegisterTransform(t Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transforms[t.ID()]; exists {
		panic(fmt.Sprintf("registry: duplicate transform id %q", t.ID()))
	}
	r.transforms[t.ID()] = t
}

func (r *Registry) Generator(id string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[id]
	return g, ok
}

func (r *Registry) Transform(id string) (Transform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transforms[id]
	return t, ok
}

// ListGeneratorIDs returns every registered ID in sorted order.
func (r *Registry) ListGeneratorIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.generators))
	for id := range r.generators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) ListTransformIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.transforms))
	for id := range r.transforms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidateParams checks params against spec: unknown keys rejected,
// required keys present, declared types respected, numeric bounds honored.
// Used by the plan validator before generation starts, and by generators
// that accept untyped maps.
func ValidateParams(spec []ParamSpec, params map[string]any) []string {
	var problems []string
	declared := make(map[string]ParamSpec, len(spec))
	for _, s := range spec {
		declared[s.Name] = s
	}
	for name := range params {
		if _, ok := declared[name]; !ok {
			problems = append(problems, fmt.Sprintf("unknown parameter %q", name))
		}
	}
	for _, s := range spec {
		v, present := params[s.Name]
		if !present {
			if s.Required {
				problems = append(problems, fmt.Sprintf("missing required parameter %q", s.Name))
			}
			continue
		}
		if msg, ok := checkType(s, v); !ok {
			problems = append(problems, msg)
		}
	}
	return problems
}

func checkType(s ParamSpec, v any) (string, bool) {
	switch s.Type {
	case ParamInt:
		n, ok := asFloat(v)
		if !ok {
			return fmt.Sprintf("parameter %q must be an int", s.Name), false
		}
		return boundsCheck(s, n)
	case ParamFloat:
		n, ok := asFloat(v)
		if !ok {
			return fmt.Sprintf("parameter %q must be a number", s.Name), false
		}
		return boundsCheck(s, n)
	case ParamString, ParamISODate, ParamISOTime, ParamISOTimestamp:
		str, ok := v.(string)
		if !ok {
			return fmt.Sprintf("parameter %q must be a string", s.Name), false
		}
		if len(s.Enum) > 0 && !contains(s.Enum, str) {
			return fmt.Sprintf("parameter %q must be one of %v", s.Name, s.Enum), false
		}
	case ParamBool:
		if _, ok := v.(bool); !ok {
			return fmt.Sprintf("parameter %q must be a bool", s.Name), false
		}
	case ParamListString:
		switch v.(type) {
		case []string, []any:
		default:
			return fmt.Sprintf("parameter %q must be a list of strings", s.Name), false
		}
	}
	return "", true
}

func boundsCheck(s ParamSpec, n float64) (string, bool) {
	if s.Min != nil && n < *s.Min {
		return fmt.Sprintf("parameter %q below minimum %v", s.Name, *s.Min), false
	}
	if s.Max != nil && n > *s.Max {
		return fmt.Sprintf("parameter %q above maximum %v", s.Name, *s.Max), false
	}
	return "", true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
