package equihash

import "github.com/fusion32/eqminer/internal/codec"

// Solution is a packed Equihash proof: a big-endian bit stream of
// Indices IndexBits-wide leaf indices, written to the wire unchanged.
type Solution []byte

// packRef encodes a (bucket, slotA, slotB) back reference — naming the two
// parent slots of the previous generation's bucket array — into the two
// trailing words of an output slot record. The same encoding addresses
// every generation uniformly, including round 0's references into the
// seed array: a seed slot's own leaf index lives at a fixed offset and
// needs no packing of its own (see Solver.expand's gen<0 case).
func packRef(slotBits int, bucketID, slotA, slotB int) (uint32, uint32) {
	v := uint64(bucketID)<<uint(2*slotBits) | uint64(slotA)<<uint(slotBits) | uint64(slotB)
	return uint32(v >> 32), uint32(v)
}

func unpackRef(slotBits int, hi, lo uint32) (bucketID, slotA, slotB int) {
	v := uint64(hi)<<32 | uint64(lo)
	slotMask := uint64(1)<<uint(slotBits) - 1
	bucketID = int(v >> uint(2*slotBits))
	slotA = int((v >> uint(slotBits)) & slotMask)
	slotB = int(v & slotMask)
	return
}

// distinctIndices reports whether every value in idx is unique.
func distinctIndices(idx []uint32) bool {
	seen := make(map[uint32]struct{}, len(idx))
	for _, v := range idx {
		if _, ok := seen[v]; ok {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}

// packIndices packs 32 leaf indices (already canonically ordered) into
// the wire solution format.
func packIndices(p *Params, idx []uint32) Solution {
	return codec.PackUints(p.IndexBits, idx)
}

// unpackIndices is the inverse of packIndices.
func unpackIndices(p *Params, sol Solution) []uint32 {
	return codec.UnpackUints(p.IndexBits, sol, p.Indices)
}
