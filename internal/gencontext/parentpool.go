package gencontext

import (
	"encoding/json"
	"strings"
	"sync"
)

// parentPool is the set of generated primary-key tuples for one table
// plus a sidecar mapping from pk tuple to the row's full column values,
// used by derive.parent_value. Tables are generated strictly in FK
// order, so no lock is needed in practice; the mutex exists purely to
// make that invariant cheap to assert rather than to serve real
// concurrent writers.
type parentPool struct {
	mu        sync.Mutex
	tuples    [][]any
	bySidecar map[string]map[string]any
	// indexes caches membership sets per column list, built lazily for
	// HasRow so FK validation is O(1) per row after the first lookup.
	indexes map[string]map[string]bool
}

// ParentPools is the provider children draw foreign keys from: PickFK
// samples an FK target from an already-generated parent; LookupParentValue
// resolves a sibling column's value for the same parent row. The engine
// never issues SQL to satisfy either call during generation.
type ParentPools struct {
	mu    sync.Mutex
	pools map[string]*parentPool
}

func NewParentPools() *ParentPools {
	return &ParentPools{pools: make(map[string]*parentPool)}
}

func poolKey(schema, table string) string { return schema + "." + table }

// Publish records a just-completed table's primary-key tuples and their
// full row values, making them available to children. Called once, after
// the table finishes generating; pools only ever grow.
func (p *ParentPools) Publish(schema, table string, pkColumns []string, rows []map[string]any) {
	p.mu.Lock()
	pool, ok := p.pools[poolKey(schema, table)]
	if !ok {
		pool = &parentPool{bySidecar: make(map[string]map[string]any)}
		p.pools[poolKey(schema, table)] = pool
	}
	p.mu.Unlock()

	pool.mu.Lock()
	defer pool.mu.Unlock()
	for _, row := range rows {
		tuple := make([]any, len(pkColumns))
		for i, col := range pkColumns {
			tuple[i] = row[col]
		}
		pool.tuples = append(pool.tuples, tuple)
		pool.bySidecar[tupleKey(tuple)] = row
	}
	pool.indexes = nil
}

// PickFK samples one already-generated primary-key tuple of the parent
// table. The second return is false if the parent table has no pool yet
// (not generated, or generated with zero rows).
func (p *ParentPools) PickFK(schema, table string, rng *RNG) ([]any, bool) {
	p.mu.Lock()
	pool, ok := p.pools[poolKey(schema, table)]
	p.mu.Unlock()
	if !ok {
		return nil, false
	}
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if len(pool.tuples) == 0 {
		return nil, false
	}
	return pool.tuples[rng.Intn(len(pool.tuples))], true
}

// LookupParentValue resolves column for the parent row identified by pk.
func (p *ParentPools) LookupParentValue(schema, table string, pk []any, column string) (any, bool) {
	p.mu.Lock()
	pool, ok := p.pools[poolKey(schema, table)]
	p.mu.Unlock()
	if !ok {
		return nil, false
	}
	pool.mu.Lock()
	defer pool.mu.Unlock()
	row, ok := pool.bySidecar[tupleKey(pk)]
	if !ok {
		return nil, false
	}
	v, ok := row[column]
	return v, ok
}

// HasRow reports whether any published parent row carries exactly values
// under columns, regardless of whether those columns are the pool's
// primary key. Used to validate a child row's foreign-key tuple.
func (p *ParentPools) HasRow(schema, table string, columns []string, values []any) bool {
	p.mu.Lock()
	pool, ok := p.pools[poolKey(schema, table)]
	p.mu.Unlock()
	if !ok {
		return false
	}
	pool.mu.Lock()
	defer pool.mu.Unlock()
	key := strings.Join(columns, ",")
	idx, ok := pool.indexes[key]
	if !ok {
		idx = make(map[string]bool, len(pool.bySidecar))
		for _, row := range pool.bySidecar {
			tuple := make([]any, len(columns))
			for i, col := range columns {
				tuple[i] = row[col]
			}
			idx[tupleKey(tuple)] = true
		}
		if pool.indexes == nil {
			pool.indexes = make(map[string]map[string]bool)
		}
		pool.indexes[key] = idx
	}
	return idx[tupleKey(values)]
}

// Release drops a parent pool once every child depending on it has
// finished.
func (p *ParentPools) Release(schema, table string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pools, poolKey(schema, table))
}

func tupleKey(tuple []any) string {
	b, err := json.Marshal(tuple)
	if err != nil {
		return ""
	}
	return string(b)
}
