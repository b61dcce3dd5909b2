package equihash

import (
	"github.com/fusion32/eqminer/internal/blake2bx"
	"github.com/fusion32/eqminer/internal/codec"
)

// generateBlake clones base (already Equihash-initialized and absorbing
// the header prefix and nonce), absorbs the generator as a little-endian
// u32, and finalizes — producing BlakeOut bytes that split into
// HashesPerBlake sub-hashes of HashBytes each.
func generateBlake(p *Params, base *blake2bx.Digest, generator uint32) []byte {
	s := base.Clone()
	_, _ = s.Write(codec.EncodeU32LE(generator))
	return s.Sum(nil)
}

// leafDigits returns the Digits unsigned digit words (each DigitBits wide)
// for leaf index i, deriving them from the base state.
func leafDigits(p *Params, base *blake2bx.Digest, i uint32) []uint32 {
	g := i / uint32(p.HashesPerBlake)
	k := int(i % uint32(p.HashesPerBlake))
	out := generateBlake(p, base, g)
	sub := out[k*p.HashBytes : (k+1)*p.HashBytes]
	return codec.UnpackUints(p.DigitBits, sub, p.Digits)
}

// generatorSubHashes splits one BLAKE2b call's output into its
// HashesPerBlake sub-hash digit vectors in one pass, avoiding a redundant
// BLAKE2b call per leaf index during the seed phase.
func generatorSubHashes(p *Params, base *blake2bx.Digest, generator uint32) [][]uint32 {
	out := generateBlake(p, base, generator)
	subs := make([][]uint32, p.HashesPerBlake)
	for k := 0; k < p.HashesPerBlake; k++ {
		sub := out[k*p.HashBytes : (k+1)*p.HashBytes]
		subs[k] = codec.UnpackUints(p.DigitBits, sub, p.Digits)
	}
	return subs
}
