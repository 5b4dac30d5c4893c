package schemamodel

import (
	"fmt"
	"sort"

	"github.com/gensynth/gensynth/internal/gerr"
)

// Builder assembles a Database from introspection results (or hand-built
// test fixtures) and enforces the canonical ordering and invariants in one
// place. Collections gathered in arbitrary order (e.g. a map keyed by
// table name) are sorted on Build(); collections whose order is itself
// catalog data (column ordinal, multi-column constraint order) are never
// re-sorted; callers must already hand them in ordinal order.
type Builder struct {
	db Database
}

func NewBuilder(engine, databaseName string) *Builder {
	return &Builder{db: Database{
		SchemaVersion: CurrentSchemaVersion,
		Engine:        engine,
		DatabaseName:  databaseName,
	}}
}

func (b *Builder) AddSchema(s Schema) *Builder {
	b.db.Schemas = append(b.db.Schemas, s)
	return b
}

func (b *Builder) AddEnum(e Enum) *Builder {
	b.db.Enums = append(b.db.Enums, e)
	return b
}

// Build sorts every order-significant collection that is not itself
// ordinal data, validates cross-references, and computes the fingerprint.
func (b *Builder) Build() (*Database, error) {
	db := b.db

	sort.Slice(db.Schemas, func(i, j int) bool { return db.Schemas[i].Name < db.Schemas[j].Name })
	for si := range db.Schemas {
		s := &db.Schemas[si]
		sort.Slice(s.Tables, func(i, j int) bool { return s.Tables[i].Name < s.Tables[j].Name })
		for ti := range s.Tables {
			t := &s.Tables[ti]
			sort.Slice(t.Columns, func(i, j int) bool { return t.Columns[i].Ordinal < t.Columns[j].Ordinal })
			sort.SliceStable(t.Constraints, func(i, j int) bool {
				a, bb := t.Constraints[i], t.Constraints[j]
				if a.Kind != bb.Kind {
					return a.Kind < bb.Kind
				}
				return a.Name < bb.Name
			})
			sort.Slice(t.Indexes, func(i, j int) bool { return t.Indexes[i].Name < t.Indexes[j].Name })
		}
	}
	sort.Slice(db.Enums, func(i, j int) bool {
		if db.Enums[i].Schema != db.Enums[j].Schema {
			return db.Enums[i].Schema < db.Enums[j].Schema
		}
		return db.Enums[i].Name < db.Enums[j].Name
	})

	if err := validateInvariants(&db); err != nil {
		return nil, err
	}

	fp, err := Fingerprint(&db)
	if err != nil {
		return nil, err
	}
	db.SchemaFingerprint = fp

	return &db, nil
}

func validateInvariants(db *Database) error {
	for _, s := range db.Schemas {
		for _, t := range s.Tables {
			for _, c := range t.Constraints {
				switch c.Kind {
				case ConstraintPrimaryKey, ConstraintUnique:
					for _, col := range c.Columns {
						if t.Column(col) == nil {
							return gerr.New(gerr.CodeInvariantViolation,
								fmt.Sprintf("constraint %s.%s.%s references unknown column %q", s.Name, t.Name, c.Name, col))
						}
					}
				case ConstraintForeignKey:
					refTable := db.FindTable(c.ReferencedSchema, c.ReferencedTable)
					if refTable == nil {
						return gerr.New(gerr.CodeInvariantViolation,
							fmt.Sprintf("foreign key %s.%s.%s references unknown table %s.%s",
								s.Name, t.Name, c.Name, c.ReferencedSchema, c.ReferencedTable))
					}
					if len(c.Columns) != len(c.ReferencedColumns) {
						return gerr.New(gerr.CodeInvariantViolation,
							fmt.Sprintf("foreign key %s.%s.%s has mismatched column counts", s.Name, t.Name, c.Name))
					}
					for _, col := range c.ReferencedColumns {
						if refTable.Column(col) == nil {
							return gerr.New(gerr.CodeInvariantViolation,
								fmt.Sprintf("foreign key %s.%s.%s references unknown column %s.%s.%s",
									s.Name, t.Name, c.Name, c.ReferencedSchema, c.ReferencedTable, col))
						}
					}
				}
			}
		}
	}
	return nil
}
