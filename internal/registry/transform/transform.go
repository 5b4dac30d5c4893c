// Package transform implements the post-generation transform family:
// value-in, value-out functions applied after a generator produces a
// candidate, before the resolver checks it against schema and plan
// constraints.
package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/registry"
)

func ptr(f float64) *float64 { return &f }

// Register adds every transform to r.
func Register(r *registry.Registry) {
	r.MustRegisterTransform(nullRateTransform{})
	r.MustRegisterTransform(truncateTransform{})
	r.MustRegisterTransform(formatTransform{})
	r.MustRegisterTransform(prefixSuffixTransform{})
	r.MustRegisterTransform(casingTransform{})
	r.MustRegisterTransform(weightedChoiceTransform{})
	r.MustRegisterTransform(maskTransform{})
}

func paramString(params map[string]any, name, def string) string {
	if v, ok := params[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func paramInt(params map[string]any, name string, def int) int {
	if v, ok := params[name]; ok {
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

func paramFloat(params map[string]any, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

// nullRateTransform nulls out a value at a declared probability,
// independent of what the generator produced.
type nullRateTransform struct{}

func (nullRateTransform) ID() string { return "transform.null_rate" }
func (nullRateTransform) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{{Name: "rate", Type: registry.ParamFloat, Required: true, Min: ptr(0), Max: ptr(1)}}
}
func (nullRateTransform) Apply(value any, params map[string]any, rng *gencontext.RNG) (any, error) {
	rate := paramFloat(params, "rate", 0)
	if rng.Float64() < rate {
		return nil, nil
	}
	return value, nil
}

type truncateTransform struct{}

func (truncateTransform) ID() string { return "transform.truncate" }
func (truncateTransform) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{{Name: "max_length", Type: registry.ParamInt, Required: true, Min: ptr(0)}}
}
func (truncateTransform) Apply(value any, params map[string]any, _ *gencontext.RNG) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	max := paramInt(params, "max_length", len(s))
	runes := []rune(s)
	if len(runes) <= max {
		return s, nil
	}
	return string(runes[:max]), nil
}

type formatTransform struct{}

func (formatTransform) ID() string { return "transform.format" }
func (formatTransform) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{{Name: "template", Type: registry.ParamString, Required: true}}
}

// Apply substitutes the literal placeholder "{value}" in template with the
// stringified input. Used for things like wrapping a generated code into
// "INV-{value}".
func (formatTransform) Apply(value any, params map[string]any, _ *gencontext.RNG) (any, error) {
	template := paramString(params, "template", "{value}")
	return strings.ReplaceAll(template, "{value}", fmt.Sprint(value)), nil
}

type prefixSuffixTransform struct{}

func (prefixSuffixTransform) ID() string { return "transform.prefix_suffix" }
func (prefixSuffixTransform) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "prefix", Type: registry.ParamString},
		{Name: "suffix", Type: registry.ParamString},
	}
}
func (prefixSuffixTransform) Apply(value any, params map[string]any, _ *gencontext.RNG) (any, error) {
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprint(value)
	}
	return paramString(params, "prefix", "") + s + paramString(params, "suffix", ""), nil
}

type casingTransform struct{}

func (casingTransform) ID() string { return "transform.casing" }
func (casingTransform) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{{Name: "mode", Type: registry.ParamString, Required: true, Enum: []string{"upper", "lower", "title"}}}
}
func (casingTransform) Apply(value any, params map[string]any, _ *gencontext.RNG) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	switch paramString(params, "mode", "lower") {
	case "upper":
		return strings.ToUpper(s), nil
	case "title":
		return strings.Title(strings.ToLower(s)), nil
	default:
		return strings.ToLower(s), nil
	}
}

type weightedChoiceTransform struct{}

func (weightedChoiceTransform) ID() string { return "transform.weighted_choice" }
func (weightedChoiceTransform) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "choices", Type: registry.ParamListString, Required: true},
		{Name: "weights", Type: registry.ParamListString},
	}
}

// Apply ignores the generated input value entirely and substitutes a
// weighted pick from choices. Used to override a base generator's output
// with a skewed categorical distribution (e.g. status codes weighted
// toward "active").
func (weightedChoiceTransform) Apply(_ any, params map[string]any, rng *gencontext.RNG) (any, error) {
	choices := stringListParam(params, "choices")
	if len(choices) == 0 {
		return nil, fmt.Errorf("transform.weighted_choice: choices is required and non-empty")
	}
	weights := numericListParam(params, "weights")
	if len(weights) == 0 {
		return choices[rng.Intn(len(choices))], nil
	}
	if len(weights) != len(choices) {
		return nil, fmt.Errorf("transform.weighted_choice: weights length %d does not match choices length %d", len(weights), len(choices))
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("transform.weighted_choice: weights must sum to a positive number")
	}
	roll := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if roll < cum {
			return choices[i], nil
		}
	}
	return choices[len(choices)-1], nil
}

func stringListParam(params map[string]any, name string) []string {
	v, ok := params[name]
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

func numericListParam(params map[string]any, name string) []float64 {
	v, ok := params[name]
	if !ok {
		return nil
	}
	var out []float64
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			switch n := item.(type) {
			case float64:
				out = append(out, n)
			case int:
				out = append(out, float64(n))
			}
		}
	case []float64:
		out = list
	}
	return out
}

type maskTransform struct{}

func (maskTransform) ID() string { return "transform.mask" }
func (maskTransform) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "mode", Type: registry.ParamString, Required: true, Enum: []string{"hash", "redact", "format_preserving"}},
		{Name: "salt", Type: registry.ParamString},
	}
}

// Apply implements three masking submodes: hash replaces the value with a
// salted deterministic digest, redact replaces it outright, and
// format_preserving rewrites every digit and letter in place (punctuation
// and layout untouched), so a masked document code still matches its
// original format while never equaling the pre-mask value.
func (maskTransform) Apply(value any, params map[string]any, rng *gencontext.RNG) (any, error) {
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprint(value)
	}
	switch paramString(params, "mode", "redact") {
	case "hash":
		sum := sha256.Sum256([]byte(paramString(params, "salt", "") + s))
		return hex.EncodeToString(sum[:]), nil
	case "format_preserving":
		out := []rune(s)
		for i, r := range out {
			switch {
			case r >= '0' && r <= '9':
				// Shift by a nonzero offset so every digit changes.
				out[i] = '0' + (r-'0'+1+rune(rng.Intn(9)))%10
			case r >= 'a' && r <= 'z':
				out[i] = 'a' + (r-'a'+1+rune(rng.Intn(25)))%26
			case r >= 'A' && r <= 'Z':
				out[i] = 'A' + (r-'A'+1+rune(rng.Intn(25)))%26
			}
		}
		return string(out), nil
	default:
		return "[REDACTED]", nil
	}
}
