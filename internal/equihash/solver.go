package equihash

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/fusion32/eqminer/internal/blake2bx"
)

// Stats counts the things that the overflow policy of §4.C.6 allows to
// silently drop: statistical bucket overflow never produces an incorrect
// solution, only a missed one.
type Stats struct {
	DiscardedSeeds      int64
	DiscardedCollisions int64
	DiscardedSolutions  int64
}

// Solver owns the bucket arenas for one (N,K) parameterization and reuses
// them across nonce attempts: a fresh solve only clears occupancy
// counters, never reallocates memory.
type Solver struct {
	params     *Params
	numWorkers int

	seed *Buckets
	gens []*Buckets // gens[r] is the output bucket array of round r, r = 0..K-2

	stats Stats
}

// NewSolver allocates the arenas for p. numWorkers <= 0 defaults to
// GOMAXPROCS-1 (floor 1), matching the "one thread per logical CPU minus
// one reserved for the system" scheduling model.
func NewSolver(p *Params, numWorkers int) *Solver {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0) - 1
		if numWorkers < 1 {
			numWorkers = 1
		}
	}
	s := &Solver{params: p, numWorkers: numWorkers}
	s.seed = NewBuckets(p)
	if p.K >= 1 {
		s.gens = make([]*Buckets, p.K-1)
		for r := range s.gens {
			s.gens[r] = NewBuckets(p)
		}
	}
	return s
}

// Stats returns a snapshot of the discard counters accumulated across
// every Solve call so far on this Solver.
func (s *Solver) Stats() Stats {
	return Stats{
		DiscardedSeeds:      atomic.LoadInt64(&s.stats.DiscardedSeeds),
		DiscardedCollisions: atomic.LoadInt64(&s.stats.DiscardedCollisions),
		DiscardedSolutions:  atomic.LoadInt64(&s.stats.DiscardedSolutions),
	}
}

// inputBuckets returns the bucket array that round gen+1 (or the final
// round, if gen is the last round index) reads from: the seed array for
// gen==-1, otherwise the output of round gen.
func (s *Solver) inputBuckets(gen int) *Buckets {
	if gen < 0 {
		return s.seed
	}
	return s.gens[gen]
}

// Solve runs the full seed-then-rounds-then-final-pairoff pipeline against
// base (already Equihash-initialized and absorbing the header prefix and
// nonce) and returns up to maxSols accepted solutions.
func (s *Solver) Solve(ctx context.Context, base *blake2bx.Digest, maxSols int) ([]Solution, error) {
	p := s.params
	s.seed.Reset()
	for _, g := range s.gens {
		g.Reset()
	}

	if err := s.seedPhase(ctx, base); err != nil {
		return nil, err
	}

	lastRound := -1
	for r := 0; r <= int(p.K)-2; r++ {
		if err := s.roundPhase(ctx, r); err != nil {
			return nil, err
		}
		lastRound = r
	}

	return s.finalPhase(ctx, lastRound, maxSols)
}

func (s *Solver) seedPhase(ctx context.Context, base *blake2bx.Digest) error {
	p := s.params
	// §4.C.1 ranges the generator over [0, ceil(RANGE/HPB)): the last
	// generator's sub-hashes may run past RANGE and must be dropped.
	numGenerators := (p.Range + p.HashesPerBlake - 1) / p.HashesPerBlake
	g, ctx := errgroup.WithContext(ctx)
	for worker := 0; worker < s.numWorkers; worker++ {
		worker := worker
		g.Go(func() error {
			for gen := worker; gen < numGenerators; gen += s.numWorkers {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				subs := generatorSubHashes(p, base, uint32(gen))
				for k, digits := range subs {
					leaf := uint32(gen)*uint32(p.HashesPerBlake) + uint32(k)
					if leaf >= uint32(p.Range) {
						continue
					}
					s.placeSeed(leaf, digits)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Solver) placeSeed(leaf uint32, digits []uint32) {
	p := s.params
	bucket := int(digits[0]) & (p.NumBuckets - 1)
	slot, ok := s.seed.Push(bucket)
	if !ok {
		atomic.AddInt64(&s.stats.DiscardedSeeds, 1)
		return
	}
	rec := s.seed.Slot(bucket, slot)
	copy(rec[:p.Digits], digits)
	rec[p.Digits] = leaf
}

func (s *Solver) roundPhase(ctx context.Context, r int) error {
	p := s.params
	in := s.inputBuckets(r - 1)
	out := s.gens[r]

	liveIn := p.Digits - r
	liveOut := liveIn - 1
	inputGen := r - 1

	g, ctx := errgroup.WithContext(ctx)
	for worker := 0; worker < s.numWorkers; worker++ {
		worker := worker
		g.Go(func() error {
			coll := NewCollisions(p)
			for b := worker; b < p.NumBuckets; b += s.numWorkers {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				s.collideBucket(in, out, coll, b, inputGen, liveOut)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Solver) collideBucket(in, out *Buckets, coll *Collisions, bucket, inputGen, liveOut int) {
	p := s.params
	n := in.TakenCount(bucket)
	coll.Reset()

	for s0 := 0; s0 < n; s0++ {
		rec0 := in.Slot(bucket, s0)
		d0 := rec0[0]
		class := int(d0 >> uint(p.BucketBits))

		for s1 := coll.Chain(class); s1 >= 0; s1 = coll.Next(s1) {
			rec1 := in.Slot(bucket, int(s1))
			s.join(rec0, rec1, bucket, int(s1), s0, inputGen, liveOut, out)
		}
		coll.Prepend(class, s0)
	}
}

func (s *Solver) join(recA, recB []uint32, bucket, slotA, slotB, inputGen, liveOut int, out *Buckets) {
	p := s.params
	if !s.leavesDisjoint(inputGen, bucket, slotA, slotB) {
		return
	}
	newLead := recA[1] ^ recB[1]
	newBucket := int(newLead) & (p.NumBuckets - 1)
	slot, ok := out.Push(newBucket)
	if !ok {
		atomic.AddInt64(&s.stats.DiscardedCollisions, 1)
		return
	}
	rec := out.Slot(newBucket, slot)
	for i := 0; i < liveOut; i++ {
		rec[i] = recA[i+1] ^ recB[i+1]
	}
	hi, lo := packRef(p.SlotBits, bucket, slotA, slotB)
	rec[p.Digits-1] = hi
	rec[p.Digits] = lo
}

// leavesDisjoint expands the leaf sets rooted at slotA and slotB within
// generation gen's bucket and reports whether they share no leaf index,
// per §4.C.2's "discard pairs whose leaf-index sets intersect". Sets are
// tiny (at most 1<<(K-1) entries) so a pairwise scan beats bookkeeping a
// bitset.
func (s *Solver) leavesDisjoint(gen, bucket, slotA, slotB int) bool {
	n := 1 << uint(gen+1)
	leavesA := make([]uint32, n)
	leavesB := make([]uint32, n)
	s.expand(gen, bucket, slotA, leavesA)
	s.expand(gen, bucket, slotB, leavesB)
	for _, a := range leavesA {
		for _, b := range leavesB {
			if a == b {
				return false
			}
		}
	}
	return true
}

func (s *Solver) finalPhase(ctx context.Context, lastRound, maxSols int) ([]Solution, error) {
	p := s.params
	in := s.inputBuckets(lastRound)

	type found struct {
		sol Solution
	}
	var count int64
	results := make([]Solution, maxSols)

	g, ctx := errgroup.WithContext(ctx)
	for worker := 0; worker < s.numWorkers; worker++ {
		worker := worker
		g.Go(func() error {
			coll := NewCollisions(p)
			for b := worker; b < p.NumBuckets; b += s.numWorkers {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				s.finalBucket(in, coll, b, lastRound, maxSols, &count, results)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := count
	if n > int64(maxSols) {
		n = int64(maxSols)
	}
	return results[:n], nil
}

func (s *Solver) finalBucket(in *Buckets, coll *Collisions, bucket, lastRound, maxSols int, count *int64, results []Solution) {
	n := in.TakenCount(bucket)
	coll.Reset()

	for s0 := 0; s0 < n; s0++ {
		rec0 := in.Slot(bucket, s0)
		class := int(rec0[0] >> uint(s.params.BucketBits))

		for s1 := coll.Chain(class); s1 >= 0; s1 = coll.Next(s1) {
			rec1 := in.Slot(bucket, int(s1))
			if rec1[1] != rec0[1] {
				continue
			}
			s.emitSolution(bucket, int(s1), s0, lastRound, maxSols, count, results)
		}
		coll.Prepend(class, s0)
	}
}

func (s *Solver) emitSolution(bucket, slotA, slotB, lastRound, maxSols int, count *int64, results []Solution) {
	p := s.params
	idx := make([]uint32, p.Indices)
	half := p.Indices / 2
	s.expand(lastRound, bucket, slotA, idx[:half])
	s.expand(lastRound, bucket, slotB, idx[half:])
	if idx[0] > idx[half] {
		swapHalves(idx)
	}
	if !distinctIndices(idx) {
		return
	}

	slot := atomic.AddInt64(count, 1) - 1
	if slot >= int64(maxSols) {
		atomic.AddInt64(&s.stats.DiscardedSolutions, 1)
		return
	}
	results[slot] = packIndices(p, idx)
}

// expand recursively reconstructs the leaf indices rooted at (bucketID,
// slot) in generation gen (gen==-1 names a seed slot, whose back
// reference is simply its own leaf index) into out, applying the
// canonical swap at every level.
func (s *Solver) expand(gen, bucketID, slot int, out []uint32) {
	p := s.params
	if gen < 0 {
		rec := s.seed.Slot(bucketID, slot)
		out[0] = rec[p.Digits]
		return
	}
	rec := s.gens[gen].Slot(bucketID, slot)
	childBucket, slotA, slotB := unpackRef(p.SlotBits, rec[p.Digits-1], rec[p.Digits])

	half := len(out) / 2
	s.expand(gen-1, childBucket, slotA, out[:half])
	s.expand(gen-1, childBucket, slotB, out[half:])
	if out[0] > out[half] {
		swapHalves(out)
	}
}

func swapHalves(out []uint32) {
	half := len(out) / 2
	for i := 0; i < half; i++ {
		out[i], out[half+i] = out[half+i], out[i]
	}
}
