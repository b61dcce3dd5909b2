package block

import (
	"testing"

	"github.com/fusion32/eqminer/internal/blake2bx"
	"github.com/fusion32/eqminer/internal/codec"
	"github.com/fusion32/eqminer/internal/equihash"
)

// BTCZ block 818128 — the literal end-to-end fixture.
const (
	fixturePrevHashBE         = "0000007b753e415f80614ba8130aa4668ca4731b0539d9919c2074b43a46b9e8"
	fixtureMerkleRootBE       = "6b2198b49e2055535c403830a3c124a8c235004b4662901010bc0927c43979ec"
	fixtureFinalSaplingRootBE = "189df3ceb26643f3b90ec7059316c7ccb26aeaf1e96559c63b8c6d52f04e79b5"
	fixtureTime               = 1632007626
	fixtureBits               = 0x1e009cb8
	fixtureNonceBE            = "81b601c200000000000000006dcdf558dd65a0dd9e68012952b8df1003cefade"
	fixtureSolutionHex        = "02969d2baea1d4f46df3ddfc40b270b99edba12611cdc547990c8225d18f09ab96da59fd028558e4ab5f6e6e7e1469c2723a089789e121944d2ee7a89f0f92187d821ddd9694eff1579ec92d52e3fd4ee4d0bb522f560c7378bbef28efa9fd39ff112128"
)

func fixtureHeader(t *testing.T) *Header {
	t.Helper()
	h := &Header{
		Version: 4,
		Time:    fixtureTime,
		Bits:    fixtureBits,
	}
	copy(h.PrevHash[:], codec.MustHexToBytes(reverse(t, fixturePrevHashBE)))
	copy(h.MerkleRoot[:], codec.MustHexToBytes(reverse(t, fixtureMerkleRootBE)))
	copy(h.FinalSaplingRoot[:], codec.MustHexToBytes(reverse(t, fixtureFinalSaplingRootBE)))
	copy(h.Nonce[:], codec.MustHexToBytes(reverse(t, fixtureNonceBE)))
	h.Solution = equihash.Solution(codec.MustHexToBytes(fixtureSolutionHex))
	return h
}

// reverse renders a "_be" display hex string's bytes in wire (reversed)
// order, matching §4.A's reversed-hex protocol convention.
func reverse(t *testing.T, hexBE string) string {
	t.Helper()
	b, err := codec.ReversedHexToBytes(hexBE)
	if err != nil {
		t.Fatalf("ReversedHexToBytes(%q): %v", hexBE, err)
	}
	return codec.BytesToHex(b)
}

func TestSerializeParseRoundTrip(t *testing.T) {
	h := fixtureHeader(t)
	raw, err := h.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(raw) != FullSize {
		t.Fatalf("len(raw) = %d, want %d", len(raw), FullSize)
	}

	back, err := ParseHeader(raw)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if back.Version != h.Version || back.Time != h.Time || back.Bits != h.Bits {
		t.Fatal("scalar fields did not round-trip")
	}
	if back.PrevHash != h.PrevHash || back.MerkleRoot != h.MerkleRoot ||
		back.FinalSaplingRoot != h.FinalSaplingRoot || back.Nonce != h.Nonce {
		t.Fatal("32-byte fields did not round-trip")
	}
	raw2, _ := back.Serialize()
	if string(raw2) != string(raw) {
		t.Fatal("re-serializing a parsed header did not reproduce the original bytes")
	}
}

func TestFixtureSatisfiesProofOfWork(t *testing.T) {
	h := fixtureHeader(t)
	raw, err := h.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	target := codec.CompactToU256(fixtureBits)
	if !CheckProofOfWork(raw, target) {
		t.Fatal("a real mined block must satisfy its own proof-of-work target")
	}
}

func TestFixtureSolutionVerifies(t *testing.T) {
	h := fixtureHeader(t)
	p := equihash.Default()

	base, err := blake2bx.InitEquihash(equihash.EquihashPersonalization, p.N, p.K)
	if err != nil {
		t.Fatalf("InitEquihash: %v", err)
	}
	if _, err := base.Write(h.PreSolution()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if !equihash.Verify(p, base, h.Solution) {
		t.Fatal("verifier rejected the literal BTCZ 818128 solution")
	}

	tampered := make(equihash.Solution, len(h.Solution))
	copy(tampered, h.Solution)
	tampered[0] ^= 0x01
	if equihash.Verify(p, base, tampered) {
		t.Fatal("verifier accepted a single-byte-altered solution")
	}
}
