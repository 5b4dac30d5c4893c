package fakeradapter

import "github.com/brianvoe/gofakeit/v7"

// catalogEntry is one row of the faker.<module>.<entry> mirror of the
// external library's surface, hand-authored in the shape a build-time
// generator would produce: one entry per wrapped method.
type catalogEntry struct {
	id             string
	locales        []string
	requiresParams bool
	invoke         func(f *gofakeit.Faker, params map[string]any) (any, error)
}

// catalog mirrors a deliberately small slice of gofakeit's surface: every
// entry the engine's own tests or the curated semantic.* aliases exercise,
// plus a couple of parameterized entries left unwired to demonstrate the
// RequiresParams contract.
var catalog = []catalogEntry{
	{id: "faker.person.name", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Name(), nil }},
	{id: "faker.person.firstname", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.FirstName(), nil }},
	{id: "faker.person.lastname", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.LastName(), nil }},
	{id: "faker.internet.email", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Email(), nil }},
	{id: "faker.internet.url", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.URL(), nil }},
	{id: "faker.internet.domainname", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.DomainName(), nil }},
	{id: "faker.address.city", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.City(), nil }},
	{id: "faker.address.state", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.State(), nil }},
	{id: "faker.address.country", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Country(), nil }},
	{id: "faker.address.street", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Street(), nil }},
	{id: "faker.company.name", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Company(), nil }},
	{id: "faker.company.jobtitle", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.JobTitle(), nil }},
	{id: "faker.phone.number", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Phone(), nil }},
	{id: "faker.lorem.word", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Word(), nil }},
	{id: "faker.lorem.sentence", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Sentence(10), nil }},
	{id: "faker.lorem.paragraph", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Paragraph(3, 5, 10, " "), nil }},
	{id: "faker.color.name", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Color(), nil }},
	{id: "faker.animal.name", invoke: func(f *gofakeit.Faker, _ map[string]any) (any, error) { return f.Animal(), nil }},
	{
		id:             "faker.lorem.words.n",
		requiresParams: true,
		invoke: func(f *gofakeit.Faker, params map[string]any) (any, error) {
			n, ok := params["count"].(int)
			if !ok {
				return nil, errRequiresParams("faker.lorem.words.n", "count")
			}
			words := make([]string, n)
			for i := range words {
				words[i] = f.Word()
			}
			return words, nil
		},
	},
	{
		id:             "faker.number.range",
		requiresParams: true,
		invoke: func(f *gofakeit.Faker, params map[string]any) (any, error) {
			min, minOK := params["min"].(int)
			max, maxOK := params["max"].(int)
			if !minOK || !maxOK {
				return nil, errRequiresParams("faker.number.range", "min, max")
			}
			return f.IntRange(min, max), nil
		},
	},
}

func errRequiresParams(id string, missing string) error {
	return requiresParamsError{id: id, missing: missing}
}

// requiresParamsError is returned by a catalog entry invoked without the
// parameters it declares itself as needing; such entries stay errors
// until explicitly wired.
type requiresParamsError struct {
	id      string
	missing string
}

func (e requiresParamsError) Error() string {
	return "faker adapter: " + e.id + " requires parameters: " + e.missing
}

func catalogByID() map[string]catalogEntry {
	m := make(map[string]catalogEntry, len(catalog))
	for _, e := range catalog {
		m[e.id] = e
	}
	return m
}
