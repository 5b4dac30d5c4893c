package schemamodel

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Fingerprint hashes the canonical JSON encoding of db (excluding the
// fingerprint field itself, which has not been set yet when this is
// called from Build). Two schemas with identical structure fingerprint
// identically regardless of how introspection visited the catalog,
// because the JSON bytes are already in canonical order by the time this
// runs.
func Fingerprint(db *Database) (string, error) {
	cp := *db
	cp.SchemaFingerprint = ""
	data, err := json.Marshal(&cp)
	if err != nil {
		return "", err
	}
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
