// Package primitive implements the primitive.* generator family: typed
// primitives with no locale awareness and no row/parent dependence.
// Parameter and schema-length violations here are always fatal; callers
// never silently truncate a value to make it fit.
package primitive

import (
	"fmt"
	"strings"
	"time"

	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/registry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func ptr(f float64) *float64 { return &f }

// Register adds every primitive.* generator to r.
func Register(r *registry.Registry) {
	r.MustRegisterGenerator(boolGen{})
	r.MustRegisterGenerator(intRangeGen{})
	r.MustRegisterGenerator(floatRangeGen{})
	r.MustRegisterGenerator(decimalNumericGen{})
	r.MustRegisterGenerator(textPatternGen{})
	r.MustRegisterGenerator(textLoremGen{})
	r.MustRegisterGenerator(uuidV4Gen{})
	r.MustRegisterGenerator(dateGen{})
	r.MustRegisterGenerator(timeGen{})
	r.MustRegisterGenerator(timestampGen{})
	r.MustRegisterGenerator(enumGen{})
}

type boolGen struct{}

func (boolGen) ID() string                 { return "primitive.bool" }
func (boolGen) SupportedLocales() []string { return nil }
func (boolGen) PIITags() []string          { return nil }
func (boolGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{{Name: "true_rate", Type: registry.ParamFloat, Min: ptr(0), Max: ptr(1)}}
}
func (boolGen) Generate(a registry.GenArgs) (any, error) {
	rate := a.FloatParam("true_rate", 0.5)
	return a.RNG.Float64() < rate, nil
}

type intRangeGen struct{}

func (intRangeGen) ID() string                 { return "primitive.int.range" }
func (intRangeGen) SupportedLocales() []string { return nil }
func (intRangeGen) PIITags() []string          { return nil }
func (intRangeGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "min", Type: registry.ParamInt, Required: true},
		{Name: "max", Type: registry.ParamInt, Required: true},
	}
}
func (intRangeGen) Generate(a registry.GenArgs) (any, error) {
	min := a.IntParam("min", 0)
	max := a.IntParam("max", min)
	if max < min {
		return nil, fmt.Errorf("primitive.int.range: max %d < min %d", max, min)
	}
	return int64(min) + a.RNG.Int63n(int64(max-min)+1), nil
}

type floatRangeGen struct{}

func (floatRangeGen) ID() string                 { return "primitive.float.range" }
func (floatRangeGen) SupportedLocales() []string { return nil }
func (floatRangeGen) PIITags() []string          { return nil }
func (floatRangeGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "min", Type: registry.ParamFloat, Required: true},
		{Name: "max", Type: registry.ParamFloat, Required: true},
	}
}
func (floatRangeGen) Generate(a registry.GenArgs) (any, error) {
	min := a.FloatParam("min", 0)
	max := a.FloatParam("max", min)
	if max < min {
		return nil, fmt.Errorf("primitive.float.range: max %v < min %v", max, min)
	}
	return min + a.RNG.Float64()*(max-min), nil
}

type decimalNumericGen struct{}

func (decimalNumericGen) ID() string                 { return "primitive.decimal.numeric" }
func (decimalNumericGen) SupportedLocales() []string { return nil }
func (decimalNumericGen) PIITags() []string          { return nil }
func (decimalNumericGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "precision", Type: registry.ParamInt, Required: true, Min: ptr(1)},
		{Name: "scale", Type: registry.ParamInt, Required: true, Min: ptr(0)},
	}
}
func (decimalNumericGen) Generate(a registry.GenArgs) (any, error) {
	precision := a.IntParam("precision", 10)
	scale := a.IntParam("scale", 2)
	if scale > precision {
		return nil, fmt.Errorf("primitive.decimal.numeric: scale %d exceeds precision %d", scale, precision)
	}
	intDigits := precision - scale
	var maxWhole int64 = 1
	for i := 0; i < intDigits; i++ {
		maxWhole *= 10
	}
	whole := a.RNG.Int63n(maxWhole)
	var fracMod int64 = 1
	for i := 0; i < scale; i++ {
		fracMod *= 10
	}
	frac := a.RNG.Int63n(fracMod)
	value := decimal.New(whole, 0).Add(decimal.New(frac, int32(-scale)))
	return value.StringFixed(int32(scale)), nil
}

type textPatternGen struct{}

func (textPatternGen) ID() string                 { return "primitive.text.pattern" }
func (textPatternGen) SupportedLocales() []string { return nil }
func (textPatternGen) PIITags() []string          { return nil }
func (textPatternGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{{Name: "template", Type: registry.ParamString, Required: true}}
}

// Generate expands a closed template grammar: '#' → digit, '?' → lowercase
// letter, '*' → alphanumeric; every other rune is emitted literally. This
// is a regex-like template, not general regex generation,
// which would make length and alphabet unbounded and therefore unfit for
// deterministic schema-length enforcement.
func (textPatternGen) Generate(a registry.GenArgs) (any, error) {
	template := a.StringParam("template", "")
	if template == "" {
		return nil, fmt.Errorf("primitive.text.pattern: template is required")
	}
	var sb strings.Builder
	const digits = "0123456789"
	const lower = "abcdefghijklmnopqrstuvwxyz"
	const alnum = digits + lower
	for _, r := range template {
		switch r {
		case '#':
			sb.WriteByte(digits[a.RNG.Intn(len(digits))])
		case '?':
			sb.WriteByte(lower[a.RNG.Intn(len(lower))])
		case '*':
			sb.WriteByte(alnum[a.RNG.Intn(len(alnum))])
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String(), nil
}

type textLoremGen struct{}

func (textLoremGen) ID() string                 { return "primitive.text.lorem" }
func (textLoremGen) SupportedLocales() []string { return nil }
func (textLoremGen) PIITags() []string          { return nil }
func (textLoremGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{{Name: "words", Type: registry.ParamInt, Min: ptr(1), Max: ptr(200)}}
}

var loremWords = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing",
	"elit", "sed", "do", "eiusmod", "tempor", "incididunt", "ut", "labore",
	"et", "dolore", "magna", "aliqua", "enim", "ad", "minim", "veniam",
}

func (textLoremGen) Generate(a registry.GenArgs) (any, error) {
	n := a.IntParam("words", 8)
	words := make([]string, n)
	for i := range words {
		words[i] = loremWords[a.RNG.Intn(len(loremWords))]
	}
	return strings.Join(words, " "), nil
}

type uuidV4Gen struct{}

func (uuidV4Gen) ID() string                      { return "primitive.uuid.v4" }
func (uuidV4Gen) SupportedLocales() []string      { return nil }
func (uuidV4Gen) PIITags() []string               { return nil }
func (uuidV4Gen) ParamSpec() []registry.ParamSpec { return nil }
func (uuidV4Gen) Generate(a registry.GenArgs) (any, error) {
	raw := a.RNG.Bytes(16)
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("primitive.uuid.v4: %w", err)
	}
	// google/uuid exposes no setter for an already-built UUID; build the
	// version/variant bits by hand into the raw bytes before wrapping,
	// matching RFC 4122 §4.4 exactly.
	raw[6] = (raw[6] & 0x0f) | 0x40
	raw[8] = (raw[8] & 0x3f) | 0x80
	id, err = uuid.FromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("primitive.uuid.v4: %w", err)
	}
	return id.String(), nil
}

const isoDate = "2006-01-02"
const isoTimestamp = time.RFC3339

var defaultBaseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type dateGen struct{}

func (dateGen) ID() string                 { return "primitive.date" }
func (dateGen) SupportedLocales() []string { return nil }
func (dateGen) PIITags() []string          { return nil }
func (dateGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "min", Type: registry.ParamISODate},
		{Name: "max", Type: registry.ParamISODate},
	}
}
func (dateGen) Generate(a registry.GenArgs) (any, error) {
	minT, maxT, err := dateRange(a, isoDate)
	if err != nil {
		return nil, err
	}
	return randomBetween(a.RNG, minT, maxT).Format(isoDate), nil
}

type timeGen struct{}

func (timeGen) ID() string                      { return "primitive.time" }
func (timeGen) SupportedLocales() []string      { return nil }
func (timeGen) PIITags() []string               { return nil }
func (timeGen) ParamSpec() []registry.ParamSpec { return nil }
func (timeGen) Generate(a registry.GenArgs) (any, error) {
	seconds := a.RNG.Int63n(24 * 3600)
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
}

type timestampGen struct{}

func (timestampGen) ID() string                 { return "primitive.timestamp" }
func (timestampGen) SupportedLocales() []string { return nil }
func (timestampGen) PIITags() []string          { return nil }
func (timestampGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{
		{Name: "min", Type: registry.ParamISOTimestamp},
		{Name: "max", Type: registry.ParamISOTimestamp},
	}
}
func (timestampGen) Generate(a registry.GenArgs) (any, error) {
	minT, maxT, err := dateRange(a, isoTimestamp)
	if err != nil {
		return nil, err
	}
	return randomBetween(a.RNG, minT, maxT).Format(isoTimestamp), nil
}

func dateRange(a registry.GenArgs, layout string) (time.Time, time.Time, error) {
	minS := a.StringParam("min", "")
	maxS := a.StringParam("max", "")
	minT := defaultBaseDate.AddDate(-1, 0, 0)
	maxT := defaultBaseDate
	var err error
	if minS != "" {
		if minT, err = time.Parse(layout, minS); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid min: %w", err)
		}
	}
	if maxS != "" {
		if maxT, err = time.Parse(layout, maxS); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid max: %w", err)
		}
	}
	if maxT.Before(minT) {
		return time.Time{}, time.Time{}, fmt.Errorf("max %s before min %s", maxS, minS)
	}
	return minT, maxT, nil
}

func randomBetween(rng *gencontext.RNG, min, max time.Time) time.Time {
	span := max.Unix() - min.Unix()
	if span <= 0 {
		return min
	}
	return min.Add(time.Duration(rng.Int63n(span+1)) * time.Second)
}

type enumGen struct{}

func (enumGen) ID() string                 { return "primitive.enum" }
func (enumGen) SupportedLocales() []string { return nil }
func (enumGen) PIITags() []string          { return nil }
func (enumGen) ParamSpec() []registry.ParamSpec {
	return []registry.ParamSpec{{Name: "values", Type: registry.ParamListString, Required: true}}
}
func (enumGen) Generate(a registry.GenArgs) (any, error) {
	values := a.StringListParam("values")
	if len(values) == 0 {
		return nil, fmt.Errorf("primitive.enum: values is required and non-empty")
	}
	return values[a.RNG.Intn(len(values))], nil
}
