package equihash

import "github.com/fusion32/eqminer/internal/blake2bx"

// Verify independently checks a candidate solution against base (the same
// Equihash-initialized BLAKE2b state, already absorbing the header prefix
// and nonce, that produced it) without touching any solver bucket state —
// it recomputes every leaf's digits from scratch and walks the perfect
// binary tree the solution's index order implies.
func Verify(p *Params, base *blake2bx.Digest, sol Solution) bool {
	if len(sol) != p.SolutionBytes {
		return false
	}
	idx := unpackIndices(p, sol)
	if len(idx) != p.Indices {
		return false
	}
	for _, i := range idx {
		if i >= uint32(p.Range) {
			return false
		}
	}
	if !distinctIndices(idx) {
		return false
	}

	digits := make([][]uint32, len(idx))
	for i, leaf := range idx {
		digits[i] = leafDigits(p, base, leaf)
	}

	_, _, ok := verifyNode(idx, digits, 0, len(idx))
	return ok
}

// verifyNode checks the subtree spanning idx[lo:hi] and returns its
// minimum leaf index and its remaining digit vector if the subtree is
// internally consistent. hi-lo == len(idx) marks the top join, which
// requires full equality of the two remaining digits rather than a
// vanish-and-carry step.
func verifyNode(idx []uint32, digits [][]uint32, lo, hi int) (minIndex uint32, remaining []uint32, ok bool) {
	if hi-lo == 1 {
		return idx[lo], digits[lo], true
	}

	mid := (lo + hi) / 2
	minL, digL, okL := verifyNode(idx, digits, lo, mid)
	minR, digR, okR := verifyNode(idx, digits, mid, hi)
	if !okL || !okR {
		return 0, nil, false
	}
	if minL >= minR {
		return 0, nil, false
	}
	if len(digL) != len(digR) || len(digL) == 0 {
		return 0, nil, false
	}

	if hi-lo == len(idx) {
		if len(digL) != 2 || digL[0] != digR[0] || digL[1] != digR[1] {
			return 0, nil, false
		}
		return minL, nil, true
	}

	if digL[0] != digR[0] {
		return 0, nil, false
	}
	rest := make([]uint32, len(digL)-1)
	for i := 1; i < len(digL); i++ {
		rest[i-1] = digL[i] ^ digR[i]
	}
	return minL, rest, true
}
