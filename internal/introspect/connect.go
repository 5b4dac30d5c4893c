package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gensynth/gensynth/internal/gerr"
	"github.com/gensynth/gensynth/internal/schemamodel"
)

// Connect opens a pgxpool against url and pings it once so connection
// failures surface as gerr.CodeConnection immediately instead of on the
// first catalog query.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, gerr.Wrap(gerr.CodeConnection, "opening connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, gerr.Wrap(gerr.CodeConnection, "pinging database", err)
	}
	return pool, nil
}

// RunPostgres is the convenience entrypoint: connect, introspect, close.
// URLs with a non-Postgres scheme fail up front as UnsupportedEngine,
// before any connection is attempted.
func RunPostgres(ctx context.Context, url, databaseName string, opts Options) (*schemamodel.Database, error) {
	if scheme, _, found := strings.Cut(url, "://"); found && scheme != "postgres" && scheme != "postgresql" {
		return nil, gerr.New(gerr.CodeUnsupportedEngine, fmt.Sprintf("unsupported connection scheme %q", scheme))
	}
	pool, err := Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return New(pool).Run(ctx, opts, databaseName)
}
