// Package introspect reads the Postgres catalog: it runs a fixed set of
// catalog queries, joins them in-process, and materializes
// a schemamodel.Database. All catalog SQL lives in this package; nothing
// downstream issues queries of its own.
package introspect

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/gensynth/gensynth/internal/gerr"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

// Queryer is the slice of *pgxpool.Pool this package needs, kept as an
// interface so tests can substitute a fake without a live database.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Introspector struct {
	q Queryer
}

func New(pool *pgxpool.Pool) *Introspector {
	return &Introspector{q: pool}
}

// NewWithQueryer builds an Introspector over any Queryer, chiefly for
// tests that substitute a fake pool.
func NewWithQueryer(q Queryer) *Introspector {
	return &Introspector{q: q}
}

// Run performs the full introspection pass and returns a built, validated
// Database.
func (ix *Introspector) Run(ctx context.Context, opts Options, databaseName string) (*schemamodel.Database, error) {
	schemaNames, err := ix.listSchemas(ctx, opts)
	if err != nil {
		return nil, gerr.Wrap(gerr.CodeCatalog, "listing schemas", err)
	}
	if !opts.IncludeSystemSchemas {
		kept := schemaNames[:0]
		for _, name := range schemaNames {
			if !isSystemSchema(name) {
				kept = append(kept, name)
			}
		}
		schemaNames = kept
	}

	tablesBySchema, err := ix.listTables(ctx, schemaNames, opts)
	if err != nil {
		return nil, gerr.Wrap(gerr.CodeCatalog, "listing tables", err)
	}

	enums, err := ix.listEnums(ctx, schemaNames)
	if err != nil {
		return nil, gerr.Wrap(gerr.CodeCatalog, "listing enums", err)
	}

	builder := schemamodel.NewBuilder("postgres", databaseName)
	for _, schemaName := range schemaNames {
		tables := tablesBySchema[schemaName]
		built := make([]schemamodel.Table, 0, len(tables))
		for _, tbl := range tables {
			table, err := ix.buildTable(ctx, schemaName, tbl, opts)
			if err != nil {
				return nil, gerr.Wrap(gerr.CodeCatalog, fmt.Sprintf("introspecting %s.%s", schemaName, tbl.name), err)
			}
			built = append(built, *table)
		}
		builder.AddSchema(schemamodel.Schema{Name: schemaName, Tables: built})
	}
	for _, e := range enums {
		builder.AddEnum(e)
	}

	db, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return db, nil
}

type tableRef struct {
	name    string
	kind    schemamodel.TableKind
	comment string
}

// buildTable issues the per-table catalog queries concurrently (the pool
// runs them on separate connections); output ordering is unaffected since
// each axis is canonically sorted by its own query and by the Builder.
func (ix *Introspector) buildTable(ctx context.Context, schema string, ref tableRef, opts Options) (*schemamodel.Table, error) {
	var (
		columns     []schemamodel.Column
		constraints []schemamodel.Constraint
		indexes     []schemamodel.Index
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if columns, err = ix.listColumns(gctx, schema, ref.name); err != nil {
			return fmt.Errorf("columns: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if constraints, err = ix.listConstraints(gctx, schema, ref.name); err != nil {
			return fmt.Errorf("constraints: %w", err)
		}
		return nil
	})
	if opts.IncludeIndexes {
		g.Go(func() error {
			var err error
			if indexes, err = ix.listIndexes(gctx, schema, ref.name); err != nil {
				return fmt.Errorf("indexes: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	comment := ""
	if opts.IncludeComments {
		comment = ref.comment
	}
	return &schemamodel.Table{
		Name:        ref.name,
		Kind:        ref.kind,
		Columns:     columns,
		Constraints: constraints,
		Indexes:     indexes,
		Comment:     comment,
	}, nil
}
