package introspect

// Options governs which objects introspection captures.
type Options struct {
	IncludeSystemSchemas     bool
	IncludeViews             bool
	IncludeMaterializedViews bool
	IncludeForeignTables     bool
	IncludeIndexes           bool
	IncludeComments          bool
	// Schemas, when non-empty, restricts introspection to this whitelist;
	// otherwise every non-system schema is captured (system schemas are
	// still subject to IncludeSystemSchemas).
	Schemas []string
}

// isSystemSchema mirrors Postgres' own convention: pg_catalog, pg_toast,
// and any schema starting with "pg_" are system schemas, alongside
// information_schema.
func isSystemSchema(name string) bool {
	if name == "information_schema" {
		return true
	}
	return len(name) >= 3 && name[:3] == "pg_"
}
