package fakeradapter

import (
	"fmt"

	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/registry"
)

// RegisterAliases adds the curated semantic.* generators: stable ids and
// parameter specs over catalog entries. Each alias either delegates to a
// catalog entry or, for
// format-sensitive values no faker library produces off the shelf
// (check-digit document codes), computes the value directly.
func RegisterAliases(r *registry.Registry) {
	byID := catalogByID()
	r.MustRegisterGenerator(aliasGenerator{
		id:      "semantic.person.name",
		locales: []string{"en_US", "pt_BR"},
		delegate: func(a registry.GenArgs) (any, error) {
			return byID["faker.person.name"].invoke(newSeededFaker(a.RNG), nil)
		},
	})
	r.MustRegisterGenerator(aliasGenerator{
		id:      "semantic.person.email.safe",
		locales: []string{"en_US", "pt_BR"},
		pii:     []string{"email"},
		delegate: func(a registry.GenArgs) (any, error) {
			return byID["faker.internet.email"].invoke(newSeededFaker(a.RNG), nil)
		},
	})
	r.MustRegisterGenerator(aliasGenerator{
		id:      "semantic.address.city",
		locales: []string{"en_US", "pt_BR"},
		delegate: func(a registry.GenArgs) (any, error) {
			return byID["faker.address.city"].invoke(newSeededFaker(a.RNG), nil)
		},
	})
	r.MustRegisterGenerator(aliasGenerator{
		id:      "semantic.money.brl",
		locales: []string{"pt_BR"},
		params: []registry.ParamSpec{
			{Name: "min", Type: registry.ParamFloat},
			{Name: "max", Type: registry.ParamFloat},
		},
		delegate: moneyBRL,
	})
	r.MustRegisterGenerator(aliasGenerator{
		id:       "semantic.br.cpf",
		locales:  []string{"pt_BR"},
		pii:      []string{"document"},
		delegate: func(a registry.GenArgs) (any, error) { return generateCPF(a.RNG), nil },
	})
	r.MustRegisterGenerator(aliasGenerator{
		id:       "semantic.br.cnpj",
		locales:  []string{"pt_BR"},
		pii:      []string{"document"},
		delegate: func(a registry.GenArgs) (any, error) { return generateCNPJ(a.RNG), nil },
	})
}

// aliasGenerator is the uniform shape every semantic.* entry takes: a
// fixed id/locale/pii declaration plus a delegate closure, so each alias
// reads as one registration rather than a bespoke type.
type aliasGenerator struct {
	id       string
	locales  []string
	pii      []string
	params   []registry.ParamSpec
	delegate func(registry.GenArgs) (any, error)
}

func (g aliasGenerator) ID() string                               { return g.id }
func (g aliasGenerator) SupportedLocales() []string               { return g.locales }
func (g aliasGenerator) PIITags() []string                        { return g.pii }
func (g aliasGenerator) ParamSpec() []registry.ParamSpec          { return g.params }
func (g aliasGenerator) Generate(a registry.GenArgs) (any, error) { return g.delegate(a) }

func moneyBRL(a registry.GenArgs) (any, error) {
	min := a.FloatParam("min", 1)
	max := a.FloatParam("max", 1000)
	if max < min {
		return nil, fmt.Errorf("semantic.money.brl: max %v < min %v", max, min)
	}
	value := min + a.RNG.Float64()*(max-min)
	return fmt.Sprintf("R$ %.2f", value), nil
}

// generateCPF produces a syntactically valid Brazilian CPF: 9 random
// digits plus two check digits computed with the official weighted-sum
// algorithm, formatted ddd.ddd.ddd-dd.
func generateCPF(rng *gencontext.RNG) string {
	digits := make([]int, 11)
	for i := 0; i < 9; i++ {
		digits[i] = rng.Intn(10)
	}
	digits[9] = cpfCheckDigit(digits[:9], 10)
	digits[10] = cpfCheckDigit(digits[:10], 11)
	return fmt.Sprintf("%d%d%d.%d%d%d.%d%d%d-%d%d",
		digits[0], digits[1], digits[2], digits[3], digits[4], digits[5],
		digits[6], digits[7], digits[8], digits[9], digits[10])
}

func cpfCheckDigit(known []int, firstWeight int) int {
	sum := 0
	weight := firstWeight
	for _, d := range known {
		sum += d * weight
		weight--
	}
	rem := (sum * 10) % 11
	if rem == 10 {
		rem = 0
	}
	return rem
}

// generateCNPJ produces a syntactically valid Brazilian CNPJ: 12 random
// digits plus two check digits, formatted dd.ddd.ddd/dddd-dd.
func generateCNPJ(rng *gencontext.RNG) string {
	digits := make([]int, 14)
	for i := 0; i < 12; i++ {
		digits[i] = rng.Intn(10)
	}
	digits[12] = cnpjCheckDigit(digits[:12], []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	digits[13] = cnpjCheckDigit(digits[:13], []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	return fmt.Sprintf("%d%d.%d%d%d.%d%d%d/%d%d%d%d-%d%d",
		digits[0], digits[1], digits[2], digits[3], digits[4], digits[5],
		digits[6], digits[7], digits[8], digits[9], digits[10], digits[11],
		digits[12], digits[13])
}

func cnpjCheckDigit(known []int, weights []int) int {
	sum := 0
	for i, d := range known {
		sum += d * weights[i]
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}
