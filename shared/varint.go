package shared

import "math"

// MaxVarintLen is the longest encoding produced by AppendUvarint.
const MaxVarintLen = 10

// stopBit flags the final byte of a varint.
const stopBit = 0x80

// AppendUvarint appends the encoding of n to dst. The stored quantity is n+1,
// split into 7-bit groups least significant first; the final group carries the
// stop bit. Zero therefore encodes as the single byte 0x81.
func AppendUvarint(dst []byte, n uint64) ([]byte, error) {
	if n == math.MaxUint64 {
		return dst, ErrVarintOverflow
	}
	n++
	for n >= stopBit {
		dst = append(dst, byte(n&0x7f))
		n >>= 7
	}
	return append(dst, byte(n)|stopBit), nil
}

// UvarintLen returns the number of bytes AppendUvarint uses for n.
func UvarintLen(n uint64) int {
	if n == math.MaxUint64 {
		return 0
	}
	n++
	l := 1
	for n >= stopBit {
		n >>= 7
		l++
	}
	return l
}

// Uvarint decodes a varint from the front of b and returns the value and the
// number of bytes consumed. A zero length means b ended before the stop bit; a
// negative length means the encoding is malformed.
func Uvarint(b []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, c := range b {
		if i == MaxVarintLen || (i == MaxVarintLen-1 && c&0x7f > 1) {
			return 0, -1
		}
		v |= uint64(c&0x7f) << shift
		if c&stopBit != 0 {
			if v == 0 {
				return 0, -1
			}
			return v - 1, i + 1
		}
		shift += 7
	}
	return 0, 0
}
