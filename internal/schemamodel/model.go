// Package schemamodel is the canonical, byte-stable in-memory
// representation of a relational catalog. Once built with Builder, a
// Database is immutable: every collection is already sorted into the
// declared canonical order, so marshaling it twice in a row, or from
// two independent introspection runs over the same catalog, yields
// byte-identical JSON.
package schemamodel

// TableKind normalizes the catalog's single-character relkind codes.
type TableKind string

const (
	KindTable        TableKind = "table"
	KindPartitioned  TableKind = "partitioned_table"
	KindView         TableKind = "view"
	KindMaterialized TableKind = "materialized_view"
	KindForeign      TableKind = "foreign_table"
	KindOther        TableKind = "other"
)

// Identity normalizes pg_attribute.attidentity.
type Identity string

const (
	IdentityAlways    Identity = "always"
	IdentityByDefault Identity = "by_default"
	IdentityNone      Identity = "null"
)

// FKAction normalizes pg_constraint.confupdtype/confdeltype.
type FKAction string

const (
	ActionNoAction   FKAction = "no_action"
	ActionRestrict   FKAction = "restrict"
	ActionCascade    FKAction = "cascade"
	ActionSetNull    FKAction = "set_null"
	ActionSetDefault FKAction = "set_default"
)

// MatchType normalizes pg_constraint.confmatchtype.
type MatchType string

const (
	MatchFull    MatchType = "full"
	MatchPartial MatchType = "partial"
	MatchSimple  MatchType = "simple"
)

// ColumnType is the catalog's description of a column's storage type.
type ColumnType struct {
	DataType      string `json:"data_type"`
	UDTSchema     string `json:"udt_schema"`
	UDTName       string `json:"udt_name"`
	CharMaxLength *int   `json:"character_max_length,omitempty"`
	NumericPrec   *int   `json:"numeric_precision,omitempty"`
	NumericScale  *int   `json:"numeric_scale,omitempty"`
	Collation     string `json:"collation,omitempty"`
}

// Generated describes a generated-always column expression.
type Generated struct {
	Kind       string `json:"kind"` // always "stored"
	Expression string `json:"expression"`
}

type Column struct {
	Ordinal    int        `json:"ordinal"`
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	IsNullable bool       `json:"is_nullable"`
	Default    *string    `json:"default,omitempty"`
	Identity   Identity   `json:"identity"`
	Generated  *Generated `json:"generated,omitempty"`
	Comment    string     `json:"comment,omitempty"`
}

// ConstraintKind discriminates the Constraint tagged union on the wire.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "primary_key"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintCheck      ConstraintKind = "check"
)

// Constraint is a tagged union; exactly the fields relevant to Kind are
// populated. Keeping one struct (rather than an interface) is what makes
// canonical JSON emission trivial: field order is declaration order.
type Constraint struct {
	Kind ConstraintKind `json:"kind"`

	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns,omitempty"`

	// ForeignKey only.
	ReferencedSchema  string    `json:"referenced_schema,omitempty"`
	ReferencedTable   string    `json:"referenced_table,omitempty"`
	ReferencedColumns []string  `json:"referenced_columns,omitempty"`
	OnUpdate          FKAction  `json:"on_update,omitempty"`
	OnDelete          FKAction  `json:"on_delete,omitempty"`
	MatchType         MatchType `json:"match_type,omitempty"`

	// ForeignKey / Unique.
	IsDeferrable      bool `json:"is_deferrable,omitempty"`
	InitiallyDeferred bool `json:"initially_deferred,omitempty"`

	// Check only.
	Expression string `json:"expression,omitempty"`
}

type Index struct {
	Name       string `json:"name"`
	IsUnique   bool   `json:"is_unique"`
	IsPrimary  bool   `json:"is_primary"`
	IsValid    bool   `json:"is_valid"`
	Method     string `json:"method"`
	Definition string `json:"definition"`
}

type Table struct {
	Name        string       `json:"name"`
	Kind        TableKind    `json:"kind"`
	Columns     []Column     `json:"columns"`
	Constraints []Constraint `json:"constraints"`
	Indexes     []Index      `json:"indexes"`
	Comment     string       `json:"comment,omitempty"`
}

type Schema struct {
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

type Enum struct {
	Schema string   `json:"schema"`
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

// Database is the top-level, immutable document. SchemaVersion is the
// contract tag for the wire format, not the database engine version.
type Database struct {
	SchemaVersion     string   `json:"schema_version"`
	Engine            string   `json:"engine"`
	DatabaseName      string   `json:"database,omitempty"`
	Schemas           []Schema `json:"schemas"`
	Enums             []Enum   `json:"enums"`
	SchemaFingerprint string   `json:"schema_fingerprint,omitempty"`
}

const CurrentSchemaVersion = "0.2"

// FindTable returns the table at schema.table, or nil if absent.
func (d *Database) FindTable(schema, table string) *Table {
	for i := range d.Schemas {
		if d.Schemas[i].Name != schema {
			continue
		}
		for j := range d.Schemas[i].Tables {
			if d.Schemas[i].Tables[j].Name == table {
				return &d.Schemas[i].Tables[j]
			}
		}
	}
	return nil
}

// FindColumn returns the column at schema.table.column, or nil if absent.
func (d *Database) FindColumn(schema, table, column string) *Column {
	t := d.FindTable(schema, table)
	if t == nil {
		return nil
	}
	for i := range t.Columns {
		if t.Columns[i].Name == column {
			return &t.Columns[i]
		}
	}
	return nil
}

// PrimaryKey returns the table's PK constraint, or nil if it has none.
func (t *Table) PrimaryKey() *Constraint {
	for i := range t.Constraints {
		if t.Constraints[i].Kind == ConstraintPrimaryKey {
			return &t.Constraints[i]
		}
	}
	return nil
}

// ForeignKeys returns every FK constraint declared on t.
func (t *Table) ForeignKeys() []Constraint {
	var out []Constraint
	for _, c := range t.Constraints {
		if c.Kind == ConstraintForeignKey {
			out = append(out, c)
		}
	}
	return out
}

// UniqueConstraints returns every UNIQUE (not PK) constraint declared on t.
func (t *Table) UniqueConstraints() []Constraint {
	var out []Constraint
	for _, c := range t.Constraints {
		if c.Kind == ConstraintUnique {
			out = append(out, c)
		}
	}
	return out
}

// CheckConstraints returns every CHECK constraint declared on t.
func (t *Table) CheckConstraints() []Constraint {
	var out []Constraint
	for _, c := range t.Constraints {
		if c.Kind == ConstraintCheck {
			out = append(out, c)
		}
	}
	return out
}

// Column looks up a column by name within the table.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
