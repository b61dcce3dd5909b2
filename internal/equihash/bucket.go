package equihash

import "sync/atomic"

// slotWidth is the number of 32-bit words in every slot regardless of
// round: Digits+1 — the live digit words plus the deepest back-reference
// word shrink and grow in place as rounds progress, but the record never
// changes size. Keeping one flat width lets the bucket arena be a single
// contiguous []uint32 with no per-slot allocation.
func slotWidth(p *Params) int { return p.Digits + 1 }

// Buckets is one generation's bucket arena — the seed array, or one
// round's output array: NumBuckets buckets of NumBucketSlots fixed-width
// slots each, plus one atomic occupancy counter per bucket. A solver keeps
// one immutable Buckets alive per generation for the lifetime of a solve,
// since back references from later rounds must resolve into any earlier
// generation, not just the most recent one.
type Buckets struct {
	params *Params
	width  int
	data   []uint32
	counts []int32
}

// NewBuckets allocates one bucket arena sized for p.
func NewBuckets(p *Params) *Buckets {
	w := slotWidth(p)
	return &Buckets{
		params: p,
		width:  w,
		data:   make([]uint32, p.NumBuckets*p.NumBucketSlots*w),
		counts: make([]int32, p.NumBuckets),
	}
}

// Reset clears every occupancy counter without touching slot data (which
// is overwritten before being read again, per the round-barrier
// discipline — no reader ever observes stale contents).
func (b *Buckets) Reset() {
	for i := range b.counts {
		atomic.StoreInt32(&b.counts[i], 0)
	}
}

// Slot returns the width-word slice for bucket, slot.
func (b *Buckets) Slot(bucket, slot int) []uint32 {
	base := (bucket*b.params.NumBucketSlots + slot) * b.width
	return b.data[base : base+b.width]
}

// Push atomically reserves the next free slot in bucket and returns its
// index. ok is false if the bucket is already at capacity — the push is
// dropped and the caller must count a discard.
func (b *Buckets) Push(bucket int) (slot int, ok bool) {
	idx := atomic.AddInt32(&b.counts[bucket], 1) - 1
	if int(idx) >= b.params.NumBucketSlots {
		return 0, false
	}
	return int(idx), true
}

// TakenCount atomically reads and clears bucket's occupancy counter,
// clamping the returned value to NumBucketSlots. This exchange is the
// formal round-boundary synchronization point: combined with the
// preceding barrier it establishes happens-before on every slot write
// made during the round that just ended.
func (b *Buckets) TakenCount(bucket int) int {
	n := atomic.SwapInt32(&b.counts[bucket], 0)
	if int(n) > b.params.NumBucketSlots {
		return b.params.NumBucketSlots
	}
	if n < 0 {
		return 0
	}
	return int(n)
}
