// Package codec implements the little-/big-endian integer codecs, the
// bit-packed unsigned integer array format, and the 256-bit big-integer
// comparisons shared by the hash and block-assembly layers.
package codec

// U256 is a 256-bit unsigned integer stored as 32 bytes in little-endian
// order: Bytes[0] is the least significant byte.
type U256 struct {
	Bytes [32]byte
}

// Cmp compares a and b as big integers, returning -1, 0, or 1.
func (a U256) Cmp(b U256) int {
	for i := 31; i >= 0; i-- {
		if a.Bytes[i] != b.Bytes[i] {
			if a.Bytes[i] < b.Bytes[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// GreaterThan reports whether a > b as big integers.
func (a U256) GreaterThan(b U256) bool {
	return a.Cmp(b) > 0
}

// LessOrEqual reports whether a <= b as big integers.
func (a U256) LessOrEqual(b U256) bool {
	return a.Cmp(b) <= 0
}

// Equal reports whether a and b hold the same value.
func (a U256) Equal(b U256) bool {
	return a.Bytes == b.Bytes
}

// IsZero reports whether a is the zero value.
func (a U256) IsZero() bool {
	for _, b := range a.Bytes {
		if b != 0 {
			return false
		}
	}
	return true
}

// U256FromLE builds a U256 from a little-endian byte slice, left-padding
// (i.e. zero-extending at the high end) if shorter than 32 bytes. Panics
// if src is longer than 32 bytes — a programming-bug class error.
func U256FromLE(src []byte) U256 {
	if len(src) > 32 {
		panic("codec: U256FromLE: source longer than 32 bytes")
	}
	var u U256
	copy(u.Bytes[:], src)
	return u
}

// U256FromBE builds a U256 from a big-endian byte slice by reversing it
// before interpreting as little-endian.
func U256FromBE(src []byte) U256 {
	if len(src) > 32 {
		panic("codec: U256FromBE: source longer than 32 bytes")
	}
	var u U256
	n := len(src)
	for i := 0; i < n; i++ {
		u.Bytes[i] = src[n-1-i]
	}
	return u
}
