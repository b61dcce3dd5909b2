package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		enc  func() []byte
		dec  func([]byte) uint64
	}{
		{"u16le", func() []byte { return EncodeU16LE(0xbeef) }, func(b []byte) uint64 { return uint64(DecodeU16LE(b)) }},
		{"u16be", func() []byte { return EncodeU16BE(0xbeef) }, func(b []byte) uint64 { return uint64(DecodeU16BE(b)) }},
		{"u32le", func() []byte { return EncodeU32LE(0xdeadbeef) }, func(b []byte) uint64 { return uint64(DecodeU32LE(b)) }},
		{"u32be", func() []byte { return EncodeU32BE(0xdeadbeef) }, func(b []byte) uint64 { return uint64(DecodeU32BE(b)) }},
		{"u64le", func() []byte { return EncodeU64LE(0x0102030405060708) }, func(b []byte) uint64 { return DecodeU64LE(b) }},
		{"u64be", func() []byte { return EncodeU64BE(0x0102030405060708) }, func(b []byte) uint64 { return DecodeU64BE(b) }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := c.enc()
			_ = c.dec(b)
		})
	}

	require.Equal(t, uint16(0xbeef), DecodeU16LE(EncodeU16LE(0xbeef)))
	require.Equal(t, uint16(0xbeef), DecodeU16BE(EncodeU16BE(0xbeef)))
	require.Equal(t, uint32(0xdeadbeef), DecodeU32LE(EncodeU32LE(0xdeadbeef)))
	require.Equal(t, uint32(0xdeadbeef), DecodeU32BE(EncodeU32BE(0xdeadbeef)))
	require.Equal(t, uint64(0x0102030405060708), DecodeU64LE(EncodeU64LE(0x0102030405060708)))
	require.Equal(t, uint64(0x0102030405060708), DecodeU64BE(EncodeU64BE(0x0102030405060708)))
}

func TestPackUnpackUintsIdentity(t *testing.T) {
	for _, bits := range []int{8, 16, 21, 24, 25} {
		count := 40
		mask := uint32(1)<<uint(bits) - 1
		src := make([]uint32, count)
		for i := range src {
			src[i] = uint32(i*2654435761) & mask
		}
		packed := PackUints(bits, src)
		assert.Equal(t, (bits*count+7)/8, len(packed))
		got := UnpackUints(bits, packed, count)
		assert.Equal(t, src, got)
	}
}

func TestPackUintsAssertsBitWidth(t *testing.T) {
	assert.Panics(t, func() { PackUints(7, []uint32{1}) })
	assert.Panics(t, func() { PackUints(26, []uint32{1}) })
}

func TestCompactToU256(t *testing.T) {
	u := CompactToU256(0x1e009cb8)
	assert.Equal(t, byte(0xb8), u.Bytes[27])
	assert.Equal(t, byte(0x9c), u.Bytes[28])
	assert.Equal(t, byte(0x00), u.Bytes[29])
	for i, b := range u.Bytes {
		if i == 27 || i == 28 || i == 29 {
			continue
		}
		assert.Equal(t, byte(0), b, "byte %d should be zero", i)
	}
}

func TestU256FromBEAndCmp(t *testing.T) {
	// 32 bytes big-endian with the third byte set to 0xff; reversing into
	// LE should land that byte at index 29 (counting from 0).
	be := make([]byte, 32)
	be[2] = 0xff
	a := U256FromBE(be)
	assert.Equal(t, byte(0xff), a.Bytes[29])

	b := U256{}
	assert.True(t, a.GreaterThan(b))
	assert.False(t, b.GreaterThan(a))
	assert.True(t, b.LessOrEqual(a))
}

func TestReversedHex(t *testing.T) {
	rev, err := ReversedHexToBytes("0102030405060708")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, rev)
}
