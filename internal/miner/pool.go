// Package miner implements the mining loop: a worker pool wrapping one
// reused Equihash solver, and a driver that turns job notifications and
// nonce attempts into submitted shares.
package miner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fusion32/eqminer/internal/blake2bx"
	"github.com/fusion32/eqminer/internal/equihash"
)

// Pool owns the one Equihash solver for this process. The solver's
// bucket arenas are allocated once and reused across every nonce
// attempt, and its worker count (GOMAXPROCS-1, floor 1, unless set) is
// fixed; the worker goroutines themselves are started afresh for each
// solve phase and exit at that phase's barrier, so none outlives a
// phase. There is exactly one solve in flight at a time.
type Pool struct {
	params  *equihash.Params
	solver  *equihash.Solver
	maxSols int

	startTime time.Time
	attempts  int64
}

// NewPool allocates the solver's bucket arenas once for p. numWorkers
// <=0 defaults to GOMAXPROCS-1.
func NewPool(p *equihash.Params, numWorkers, maxSols int) *Pool {
	return &Pool{
		params:    p,
		solver:    equihash.NewSolver(p, numWorkers),
		maxSols:   maxSols,
		startTime: time.Now(),
	}
}

// Solve runs one full solve against base and returns every accepted
// solution, reusing the pool's bucket arenas.
func (pool *Pool) Solve(ctx context.Context, base *blake2bx.Digest) ([]equihash.Solution, error) {
	sols, err := pool.solver.Solve(ctx, base, pool.maxSols)
	atomic.AddInt64(&pool.attempts, 1)
	return sols, err
}

// Stats returns the solver's accumulated discard counters.
func (pool *Pool) Stats() equihash.Stats {
	return pool.solver.Stats()
}

// Hashrate estimates BLAKE2b leaf-hash throughput: each completed
// attempt generates params.Range seed hashes, so attempts times that
// domain size over elapsed wall-clock time approximates hashes/sec.
func (pool *Pool) Hashrate() float64 {
	elapsed := time.Since(pool.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	attempts := atomic.LoadInt64(&pool.attempts)
	return float64(attempts) * float64(pool.params.Range) / elapsed
}
