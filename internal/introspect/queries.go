package introspect

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/gensynth/gensynth/internal/schemamodel"
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// listSchemas fetches schema names, applying only the whitelist
// server-side; system-schema exclusion happens in Run via isSystemSchema
// so there is exactly one definition of "system schema".
func (ix *Introspector) listSchemas(ctx context.Context, opts Options) ([]string, error) {
	query := qb.Select("nspname").From("pg_namespace").OrderBy("nspname")
	if len(opts.Schemas) > 0 {
		query = query.Where(sq.Eq{"nspname": opts.Schemas})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := ix.q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// relationKinds builds the pg_class.relkind whitelist for the requested
// object types. Ordinary and partitioned tables are always captured.
func relationKinds(opts Options) []string {
	kinds := []string{"r", "p"}
	if opts.IncludeViews {
		kinds = append(kinds, "v")
	}
	if opts.IncludeMaterializedViews {
		kinds = append(kinds, "m")
	}
	if opts.IncludeForeignTables {
		kinds = append(kinds, "f")
	}
	return kinds
}

func (ix *Introspector) listTables(ctx context.Context, schemas []string, opts Options) (map[string][]tableRef, error) {
	if len(schemas) == 0 {
		return map[string][]tableRef{}, nil
	}
	sqlStr, args, err := qb.
		Select("n.nspname", "c.relname", "c.relkind", "obj_description(c.oid, 'pg_class')").
		From("pg_class c").
		Join("pg_namespace n ON n.oid = c.relnamespace").
		Where(sq.Eq{"n.nspname": schemas}).
		Where(sq.Eq{"c.relkind": relationKinds(opts)}).
		OrderBy("n.nspname", "c.relname").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := ix.q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]tableRef)
	for rows.Next() {
		var schema, name, relkind string
		var comment sql.NullString
		if err := rows.Scan(&schema, &name, &relkind, &comment); err != nil {
			return nil, err
		}
		out[schema] = append(out[schema], tableRef{
			name:    name,
			kind:    schemamodel.NormalizeTableKind(relkind),
			comment: comment.String,
		})
	}
	return out, rows.Err()
}

func (ix *Introspector) listColumns(ctx context.Context, schema, table string) ([]schemamodel.Column, error) {
	sqlStr, args, err := qb.
		Select(
			"c.ordinal_position", "c.column_name", "c.data_type", "c.udt_schema", "c.udt_name",
			"c.character_maximum_length", "c.numeric_precision", "c.numeric_scale", "c.collation_name",
			"c.is_nullable", "c.column_default",
			"a.attidentity", "a.attgenerated",
			"pg_catalog.col_description(a.attrelid, a.attnum)",
		).
		From("information_schema.columns c").
		Join("pg_catalog.pg_class t ON t.relname = c.table_name").
		Join("pg_catalog.pg_namespace n ON n.oid = t.relnamespace AND n.nspname = c.table_schema").
		Join("pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attname = c.column_name").
		Where(sq.Eq{"c.table_schema": schema, "c.table_name": table}).
		OrderBy("c.ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := ix.q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schemamodel.Column
	for rows.Next() {
		var (
			ordinal                                  int
			name, dataType, udtSchema, udtName       string
			charMaxLength, numericPrec, numericScale sql.NullInt64
			collation                                sql.NullString
			isNullable, columnDefault                sql.NullString
			attidentity, attgenerated                sql.NullString
			comment                                  sql.NullString
		)
		if err := rows.Scan(&ordinal, &name, &dataType, &udtSchema, &udtName,
			&charMaxLength, &numericPrec, &numericScale, &collation,
			&isNullable, &columnDefault, &attidentity, &attgenerated, &comment); err != nil {
			return nil, err
		}

		col := schemamodel.Column{
			Ordinal: ordinal,
			Name:    name,
			Type: schemamodel.ColumnType{
				DataType:  dataType,
				UDTSchema: udtSchema,
				UDTName:   udtName,
				Collation: collation.String,
			},
			IsNullable: isNullable.String == "YES",
			Identity:   schemamodel.NormalizeIdentity(attidentity.String),
			Comment:    comment.String,
		}
		if charMaxLength.Valid {
			v := int(charMaxLength.Int64)
			col.Type.CharMaxLength = &v
		}
		if numericPrec.Valid {
			v := int(numericPrec.Int64)
			col.Type.NumericPrec = &v
		}
		if numericScale.Valid {
			v := int(numericScale.Int64)
			col.Type.NumericScale = &v
		}
		if columnDefault.Valid {
			col.Default = &columnDefault.String
		}
		if attgenerated.Valid && attgenerated.String == "s" && columnDefault.Valid {
			col.Generated = &schemamodel.Generated{Kind: "stored", Expression: columnDefault.String}
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// orderedColumnNames resolves a conrelid/conkey or confrelid/confkey pair
// into column names in constraint-declared order, using WITH ORDINALITY
// so multi-column order is preserved rather than re-sorted; constraint
// column order is catalog data.
func (ix *Introspector) orderedColumnNames(ctx context.Context, relationQualified string, attnums []int16) ([]string, error) {
	if len(attnums) == 0 {
		return nil, nil
	}
	sqlStr := fmt.Sprintf(`
		SELECT a.attname
		FROM unnest($1::int2[]) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = %s::regclass AND a.attnum = k.attnum
		ORDER BY k.ord
	`, quoteLiteral(relationQualified))
	rows, err := ix.q.Query(ctx, sqlStr, attnums)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func quoteLiteral(s string) string {
	return "'" + s + "'"
}

func (ix *Introspector) listConstraints(ctx context.Context, schema, table string) ([]schemamodel.Constraint, error) {
	relationQualified := fmt.Sprintf("%s.%s", schema, table)
	sqlStr, args, err := qb.
		Select(
			"con.conname", "con.contype", "con.conkey", "con.confkey",
			"fn.nspname", "ft.relname",
			"con.confupdtype", "con.confdeltype", "con.confmatchtype",
			"con.condeferrable", "con.condeferred",
			"pg_get_constraintdef(con.oid)",
		).
		From("pg_constraint con").
		Join("pg_class c ON c.oid = con.conrelid").
		Join("pg_namespace n ON n.oid = c.relnamespace").
		LeftJoin("pg_class ft ON ft.oid = con.confrelid").
		LeftJoin("pg_namespace fn ON fn.oid = ft.relnamespace").
		Where(sq.Eq{"n.nspname": schema, "c.relname": table}).
		Where(sq.Eq{"con.contype": []string{"p", "f", "u", "c"}}).
		OrderBy("con.conname").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := ix.q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schemamodel.Constraint
	for rows.Next() {
		var (
			name, contype                       string
			conkey, confkey                     []int16
			refSchema, refTable                 sql.NullString
			confupdtype, confdeltype, confmatch sql.NullString
			deferrable, deferred                bool
			def                                 string
		)
		if err := rows.Scan(&name, &contype, &conkey, &confkey, &refSchema, &refTable,
			&confupdtype, &confdeltype, &confmatch, &deferrable, &deferred, &def); err != nil {
			return nil, err
		}

		cols, err := ix.orderedColumnNames(ctx, relationQualified, conkey)
		if err != nil {
			return nil, err
		}

		c := schemamodel.Constraint{
			Name:              name,
			Columns:           cols,
			IsDeferrable:      deferrable,
			InitiallyDeferred: deferred,
		}

		switch contype {
		case "p":
			c.Kind = schemamodel.ConstraintPrimaryKey
		case "u":
			c.Kind = schemamodel.ConstraintUnique
		case "c":
			c.Kind = schemamodel.ConstraintCheck
			c.Expression = def
		case "f":
			c.Kind = schemamodel.ConstraintForeignKey
			c.ReferencedSchema = refSchema.String
			c.ReferencedTable = refTable.String
			c.OnUpdate = schemamodel.NormalizeFKAction(confupdtype.String)
			c.OnDelete = schemamodel.NormalizeFKAction(confdeltype.String)
			c.MatchType = schemamodel.NormalizeMatchType(confmatch.String)
			if len(confkey) > 0 {
				refQualified := fmt.Sprintf("%s.%s", refSchema.String, refTable.String)
				refCols, err := ix.orderedColumnNames(ctx, refQualified, confkey)
				if err != nil {
					return nil, err
				}
				c.ReferencedColumns = refCols
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (ix *Introspector) listIndexes(ctx context.Context, schema, table string) ([]schemamodel.Index, error) {
	sqlStr, args, err := qb.
		Select("i.indexname", "i.indexdef",
			"ix.indisunique", "ix.indisprimary", "ix.indisvalid",
			"am.amname").
		From("pg_indexes i").
		Join("pg_class c ON c.relname = i.indexname").
		Join("pg_index ix ON ix.indexrelid = c.oid").
		Join("pg_am am ON am.oid = c.relam").
		Where(sq.Eq{"i.schemaname": schema, "i.tablename": table}).
		OrderBy("i.indexname").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := ix.q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schemamodel.Index
	for rows.Next() {
		var idx schemamodel.Index
		if err := rows.Scan(&idx.Name, &idx.Definition, &idx.IsUnique, &idx.IsPrimary, &idx.IsValid, &idx.Method); err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

func (ix *Introspector) listEnums(ctx context.Context, schemas []string) ([]schemamodel.Enum, error) {
	if len(schemas) == 0 {
		return nil, nil
	}
	sqlStr, args, err := qb.
		Select("n.nspname", "t.typname", "e.enumlabel").
		From("pg_type t").
		Join("pg_namespace n ON n.oid = t.typnamespace").
		Join("pg_enum e ON e.enumtypid = t.oid").
		Where(sq.Eq{"n.nspname": schemas}).
		Where(sq.Eq{"t.typtype": "e"}).
		OrderBy("n.nspname", "t.typname", "e.enumsortorder").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := ix.q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byKey := make(map[string]*schemamodel.Enum)
	var order []string
	for rows.Next() {
		var nspname, typname, label string
		if err := rows.Scan(&nspname, &typname, &label); err != nil {
			return nil, err
		}
		key := nspname + "." + typname
		e, ok := byKey[key]
		if !ok {
			e = &schemamodel.Enum{Schema: nspname, Name: typname}
			byKey[key] = e
			order = append(order, key)
		}
		e.Labels = append(e.Labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]schemamodel.Enum, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, nil
}
