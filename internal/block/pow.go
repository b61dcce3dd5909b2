package block

import (
	"github.com/fusion32/eqminer/internal/codec"
	"github.com/fusion32/eqminer/internal/sha256x"
)

// CheckProofOfWork reports whether wsha256(header) — the full 241-byte
// serialized header, interpreted as a little-endian U256 — is at most
// target.
func CheckProofOfWork(header []byte, target codec.U256) bool {
	digest := sha256x.Sum256d(header)
	hash := codec.U256FromLE(digest[:])
	return hash.LessOrEqual(target)
}
