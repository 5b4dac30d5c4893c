// Package fallback is the no-rule default generator the row pipeline
// consults when a column has no plan rule and strict mode permits a
// heuristic guess. It draws from the cell's own seeded *gencontext.RNG
// and keys off schemamodel's already-normalized ColumnType, so its
// output joins the same deterministic stream as every other generator.
package fallback

import (
	"fmt"
	"strings"
	"time"

	"github.com/gensynth/gensynth/internal/gencontext"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

var firstNames = []string{"John", "Jane", "Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry"}
var lastNames = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
var words = []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}
var sentences = []string{
	"This is a sample text generated for testing purposes.",
	"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
	"The quick brown fox jumps over the lazy dog.",
	"Software development requires careful planning and execution.",
	"Database design is crucial for application performance.",
}

// Generate picks a value for col with no plan rule, using the column
// name as the first signal ("email"/"name"/"description" substring
// heuristics) and the normalized catalog type as the fallback signal.
// rng must be the cell's own RNG so the choice is a pure function of
// (seed, table, row, column) like every other generator.
func Generate(col *schemamodel.Column, rng *gencontext.RNG) (any, error) {
	nameLower := strings.ToLower(col.Name)
	switch {
	case strings.Contains(nameLower, "email"):
		return generateEmail(rng), nil
	case strings.Contains(nameLower, "name") && !strings.Contains(nameLower, "file"):
		return generateName(rng), nil
	case strings.Contains(nameLower, "title"):
		return generateSentence(rng), nil
	case strings.Contains(nameLower, "description") || strings.Contains(nameLower, "content"):
		return generateSentence(rng), nil
	case strings.Contains(nameLower, "url") || strings.Contains(nameLower, "link"):
		return generateURL(rng), nil
	case strings.Contains(nameLower, "phone"):
		return generatePhone(rng), nil
	case strings.Contains(nameLower, "address"):
		return generateAddress(rng), nil
	}
	return generateForType(col, rng)
}

func generateForType(col *schemamodel.Column, rng *gencontext.RNG) (any, error) {
	dt := strings.ToLower(col.Type.DataType)
	switch {
	case strings.Contains(dt, "int") || strings.Contains(dt, "serial"):
		return int64(rng.Intn(1_000_000) + 1), nil
	case strings.Contains(dt, "bool"):
		return rng.Bool(), nil
	case strings.Contains(dt, "timestamp"):
		return generateTimestamp(rng).Format(time.RFC3339), nil
	case strings.Contains(dt, "date"):
		return generateTimestamp(rng).Format("2006-01-02"), nil
	case strings.Contains(dt, "numeric"), strings.Contains(dt, "decimal"), strings.Contains(dt, "float"), strings.Contains(dt, "double"), strings.Contains(dt, "real"):
		return rng.Float64() * 10000, nil
	case strings.Contains(dt, "uuid"):
		return generateUUID(rng), nil
	case strings.Contains(dt, "json"):
		return `{"generated": true}`, nil
	default:
		return words[rng.Intn(len(words))], nil
	}
}

func generateName(rng *gencontext.RNG) string {
	return firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
}

func generateEmail(rng *gencontext.RNG) string {
	domains := []string{"example.com", "test.com", "demo.com", "mail.com"}
	return fmt.Sprintf("user%d_%d@%s", rng.Intn(1_000_000), rng.Intn(100000), domains[rng.Intn(len(domains))])
}

func generateSentence(rng *gencontext.RNG) string {
	return sentences[rng.Intn(len(sentences))]
}

func generateURL(rng *gencontext.RNG) string {
	return fmt.Sprintf("https://example.com/page/%d", rng.Intn(1000))
}

func generatePhone(rng *gencontext.RNG) string {
	return fmt.Sprintf("+1-%03d-%03d-%04d", rng.Intn(1000), rng.Intn(1000), rng.Intn(10000))
}

func generateAddress(rng *gencontext.RNG) string {
	return fmt.Sprintf("%d Main Street, City, State %05d", rng.Intn(9999)+1, rng.Intn(100000))
}

func generateTimestamp(rng *gencontext.RNG) time.Time {
	days := rng.Intn(365)
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}

func generateUUID(rng *gencontext.RNG) string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		rng.Uint32(), rng.Uint32()&0xffff, rng.Uint32()&0xffff, rng.Uint32()&0xffff, rng.Uint64()&0xffffffffffff)
}
