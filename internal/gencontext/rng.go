// Package gencontext implements seed routing: a master RNG seeded from
// the plan's seed, a per-(schema,table) RNG derived
// by hashing (seed, schema, table), and a per-row RNG derived by hashing
// (table seed, row_index). Every generator call takes an explicit *RNG
// handle; none of this package's types touch math/rand's process-global
// source, so two runs with the same plan seed are bit-for-bit
// reproducible regardless of call order across tables.
package gencontext

import (
	"hash/fnv"
	"math/rand"
	"strconv"
)

// RNG is the only source of randomness a generator is allowed to read.
// It wraps *rand.Rand with the subset of operations the registry needs,
// plus RowRNG/CellRNG so callers can fork further without reaching back
// into global state.
type RNG struct {
	seed int64
	r    *rand.Rand
}

func newRNG(seed int64) *RNG {
	return &RNG{seed: seed, r: rand.New(rand.NewSource(seed))}
}

func deriveSeed(base int64, scope string) int64 {
	h := fnv.New64a()
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(base >> (8 * i))
	}
	h.Write(buf[:])
	h.Write([]byte(scope))
	return int64(h.Sum64())
}

// RowRNG derives the deterministic RNG for a given row index. Two calls
// with the same row index always yield an RNG in the same state,
// independent of whatever other rows or columns have already drawn from
// sibling RNGs.
func (t *RNG) RowRNG(rowIndex int) *RNG {
	return newRNG(deriveSeed(t.seed, "row:"+strconv.Itoa(rowIndex)))
}

// CellRNG further forks a row's RNG per column, so a retry that
// regenerates only one column of a row does not perturb the sequence
// other columns would have drawn.
func (r *RNG) CellRNG(column string) *RNG {
	return newRNG(deriveSeed(r.seed, "cell:"+column))
}

// AttemptRNG forks a cell's RNG per retry attempt, so attempt 2 after a
// uniqueness collision draws a different value than attempt 1 while
// remaining a pure function of (seed, table, row, column, attempt).
func (r *RNG) AttemptRNG(attempt int) *RNG {
	return newRNG(deriveSeed(r.seed, "attempt:"+strconv.Itoa(attempt)))
}

func (r *RNG) Intn(n int) int       { return r.r.Intn(n) }
func (r *RNG) Int63() int64         { return r.r.Int63() }
func (r *RNG) Int63n(n int64) int64 { return r.r.Int63n(n) }
func (r *RNG) Float64() float64     { return r.r.Float64() }
func (r *RNG) Uint32() uint32       { return r.r.Uint32() }
func (r *RNG) Uint64() uint64       { return r.r.Uint64() }
func (r *RNG) Bool() bool           { return r.r.Intn(2) == 0 }

// Bytes fills and returns n deterministic random bytes.
func (r *RNG) Bytes(n int) []byte {
	buf := make([]byte, n)
	r.r.Read(buf) //nolint:errcheck // rand.Rand.Read never errors
	return buf
}

// Pick returns a uniformly chosen element of items. Panics if items is
// empty, mirroring Intn's contract.
func Pick[T any](r *RNG, items []T) T {
	return items[r.Intn(len(items))]
}
