// Package plan implements the plan document and its validator: the
// declarative mapping of target tables/columns to generator identifiers,
// plus two-phase (structural, then schema-aware) validation against a
// concrete schemamodel.Database and registry.
package plan

import (
	"encoding/json"
	"fmt"
)

// CurrentPlanVersion is the only plan_version this module accepts.
const CurrentPlanVersion = "0.2"

type SchemaRef struct {
	SchemaVersion string `json:"schema_version"`
	Engine        string `json:"engine"`
	Fingerprint   string `json:"fingerprint,omitempty"`
}

type GlobalOptions struct {
	Locale         string `json:"locale,omitempty"`
	Strict         bool   `json:"strict,omitempty"`
	AllowFKDisable bool   `json:"allow_fk_disable,omitempty"`
}

type Target struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Rows   int    `json:"rows"`
}

// GeneratorRef accepts both the bare-string and the {id, locale?,
// params?} object form of a rule's generator field. It unmarshals either
// form into the same struct and always marshals back out in object form,
// the normalization resolved_plan.json requires.
type GeneratorRef struct {
	ID     string         `json:"id"`
	Locale string         `json:"locale,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

func (g *GeneratorRef) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		g.ID = asString
		g.Locale = ""
		g.Params = nil
		return nil
	}
	type alias GeneratorRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("generator ref must be a string or an object: %w", err)
	}
	*g = GeneratorRef(a)
	return nil
}

func (g GeneratorRef) MarshalJSON() ([]byte, error) {
	type alias GeneratorRef
	return json.Marshal(alias(g))
}

type TransformRef struct {
	ID     string         `json:"id"`
	Params map[string]any `json:"params,omitempty"`
}

type Rule struct {
	Type       string         `json:"type"`
	Schema     string         `json:"schema"`
	Table      string         `json:"table"`
	Column     string         `json:"column"`
	Generator  GeneratorRef   `json:"generator"`
	Params     map[string]any `json:"params,omitempty"`
	Transforms []TransformRef `json:"transforms,omitempty"`
	Locale     string         `json:"locale,omitempty"`
}

// Plan is the full plan.json document.
type Plan struct {
	PlanVersion      string        `json:"plan_version"`
	Seed             int64         `json:"seed"`
	SchemaRef        SchemaRef     `json:"schema_ref"`
	Global           GlobalOptions `json:"global"`
	Targets          []Target      `json:"targets"`
	Rules            []Rule        `json:"rules"`
	RulesUnsupported []string      `json:"rules_unsupported,omitempty"`
}

// EffectiveParams merges a rule's top-level params (applied to every
// generator invocation regardless of family) with the generator ref's
// own params, the latter taking precedence on key collision.
func (r Rule) EffectiveParams() map[string]any {
	if len(r.Params) == 0 {
		return r.Generator.Params
	}
	merged := make(map[string]any, len(r.Params)+len(r.Generator.Params))
	for k, v := range r.Params {
		merged[k] = v
	}
	for k, v := range r.Generator.Params {
		merged[k] = v
	}
	return merged
}

// EffectiveLocale returns the rule's own locale, falling back to the
// generator ref's locale.
func (r Rule) EffectiveLocale() string {
	if r.Locale != "" {
		return r.Locale
	}
	return r.Generator.Locale
}
