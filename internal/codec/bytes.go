package codec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// EncodeU16LE encodes v as 2 little-endian bytes.
func EncodeU16LE(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// EncodeU16BE encodes v as 2 big-endian bytes.
func EncodeU16BE(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// DecodeU16LE decodes 2 little-endian bytes.
func DecodeU16LE(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// DecodeU16BE decodes 2 big-endian bytes.
func DecodeU16BE(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// EncodeU32LE encodes v as 4 little-endian bytes.
func EncodeU32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// EncodeU32BE encodes v as 4 big-endian bytes.
func EncodeU32BE(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// DecodeU32LE decodes 4 little-endian bytes.
func DecodeU32LE(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// DecodeU32BE decodes 4 big-endian bytes.
func DecodeU32BE(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// EncodeU64LE encodes v as 8 little-endian bytes.
func EncodeU64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// EncodeU64BE encodes v as 8 big-endian bytes.
func EncodeU64BE(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// DecodeU64LE decodes 8 little-endian bytes.
func DecodeU64LE(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// DecodeU64BE decodes 8 big-endian bytes.
func DecodeU64BE(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

// HexToBytes parses "forward" hex: an optional "0x" prefix followed by
// hex digits read left to right, one byte per two digits, in order.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return hex.DecodeString(s)
}

// MustHexToBytes is HexToBytes but panics on malformed input; used for
// literal test fixtures, never for protocol input.
func MustHexToBytes(s string) []byte {
	b, err := HexToBytes(s)
	if err != nil {
		panic(fmt.Sprintf("codec: invalid hex string %q: %v", s, err))
	}
	return b
}

// BytesToHex renders b as lowercase hex with no prefix.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// ReversedHexToBytes parses "reversed" hex: like HexToBytes, but the byte
// order of the result is reversed relative to the digit order in the
// string. This is how protocol hex fields that are logically big-endian
// are read into a little-endian byte array without an extra pass.
func ReversedHexToBytes(s string) ([]byte, error) {
	b, err := HexToBytes(s)
	if err != nil {
		return nil, err
	}
	return ReverseBytesCopy(b), nil
}

// ReverseBytes reverses b in place and returns it.
func ReverseBytes(b []byte) []byte {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

// ReverseBytesCopy returns a reversed copy of b, leaving b untouched.
func ReverseBytesCopy(b []byte) []byte {
	out := make([]byte, len(b))
	for i, j := 0, len(b)-1; j >= 0; i, j = i+1, j-1 {
		out[i] = b[j]
	}
	return out
}
