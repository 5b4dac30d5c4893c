package builtin

import "testing"

func TestDefaultRegistersEveryFamilyWithoutCollision(t *testing.T) {
	r := Default()
	ids := r.ListGeneratorIDs()
	if len(ids) == 0 {
		t.Fatal("expected Default() to register generators")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate generator id %q survived registration", id)
		}
		seen[id] = true
	}
	want := []string{
		"primitive.bool", "derive.fk", "semantic.br.cpf", "faker.person.name",
	}
	for _, id := range want {
		if _, ok := r.Generator(id); !ok {
			t.Errorf("expected %q to be registered", id)
		}
	}
	if len(r.ListTransformIDs()) == 0 {
		t.Fatal("expected Default() to register transforms")
	}
}
