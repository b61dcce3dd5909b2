// Package block serializes and validates BitcoinZ-family block headers:
// a 140-byte pre-solution prefix plus a CompactSize-prefixed Equihash
// solution, 241 bytes in total.
package block

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/fusion32/eqminer/internal/equihash"
)

const (
	// PreSolutionSize is the header length before the solution's
	// CompactSize prefix and payload.
	PreSolutionSize = 140
	// PrefixSize is PreSolutionSize minus the 32-byte nonce — the part
	// absorbed into the base BLAKE2b state before any nonce is tried.
	PrefixSize = PreSolutionSize - 32
	// SolutionCompactSize is the one-byte CompactSize prefix for a
	// 100-byte Equihash(144,5) solution (0x64 == 100, below the
	// CompactSize two-byte threshold).
	SolutionCompactSize = 0x64
	// FullSize is the complete wire header: prefix + nonce + compact
	// size byte + packed solution.
	FullSize = PreSolutionSize + 1 + 100
)

// Header is a BitcoinZ-family block header.
type Header struct {
	Version          uint32
	PrevHash         [32]byte
	MerkleRoot       [32]byte
	FinalSaplingRoot [32]byte
	Time             uint32
	Bits             uint32
	Nonce            [32]byte
	Solution         equihash.Solution
}

// Prefix returns the 108-byte portion of the header that precedes the
// nonce — what the mining driver absorbs into a base BLAKE2b state once
// per job, before any nonce is tried.
func (h *Header) Prefix() []byte {
	buf := make([]byte, 0, PrefixSize)
	buf = binary.LittleEndian.AppendUint32(buf, h.Version)
	buf = append(buf, h.PrevHash[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = append(buf, h.FinalSaplingRoot[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Time)
	buf = binary.LittleEndian.AppendUint32(buf, h.Bits)
	return buf
}

// PreSolution returns the 140-byte header consumed by the Equihash
// verifier: the prefix plus the nonce.
func (h *Header) PreSolution() []byte {
	buf := make([]byte, 0, PreSolutionSize)
	buf = append(buf, h.Prefix()...)
	buf = append(buf, h.Nonce[:]...)
	return buf
}

// Serialize returns the full 241-byte wire header: the 140-byte
// pre-solution header, the CompactSize byte, and the 100-byte solution.
func (h *Header) Serialize() ([]byte, error) {
	if len(h.Solution) != 100 {
		return nil, errors.New("block: solution must be 100 bytes")
	}
	buf := make([]byte, 0, FullSize)
	buf = append(buf, h.PreSolution()...)
	buf = append(buf, SolutionCompactSize)
	buf = append(buf, h.Solution...)
	return buf, nil
}

// ParseHeader is the inverse of Serialize: it decodes a 241-byte wire
// header back into a Header. It is not required by the driver's hot
// path — only the verifier side needs it, to reconstruct a Header from
// bytes received out-of-band — but it costs nothing to carry and
// exercises the same field layout both directions.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) != FullSize {
		return nil, errors.New("block: header must be 241 bytes")
	}
	r := bytes.NewReader(data)
	h := &Header{}

	var err error
	read := func(dst []byte) {
		if err != nil {
			return
		}
		_, err = r.Read(dst)
	}
	readU32 := func() uint32 {
		var b [4]byte
		read(b[:])
		return binary.LittleEndian.Uint32(b[:])
	}

	h.Version = readU32()
	read(h.PrevHash[:])
	read(h.MerkleRoot[:])
	read(h.FinalSaplingRoot[:])
	h.Time = readU32()
	h.Bits = readU32()
	read(h.Nonce[:])
	if err != nil {
		return nil, err
	}

	var compact [1]byte
	if _, err := r.Read(compact[:]); err != nil {
		return nil, err
	}
	if compact[0] != SolutionCompactSize {
		return nil, errors.New("block: unexpected solution compact-size byte")
	}

	sol := make([]byte, 100)
	if _, err := r.Read(sol); err != nil {
		return nil, err
	}
	h.Solution = equihash.Solution(sol)

	return h, nil
}
