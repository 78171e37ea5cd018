package wire

import "math/bits"

// Length prefix sizes.
const (
	// LengthPrefixSize is the size of the byte string length prefix.
	LengthPrefixSize = 3

	// MaxLength is the longest byte string a 3-byte prefix can describe.
	MaxLength = 1<<24 - 1

	// DefaultCountSize is the default size of a sequence element count.
	DefaultCountSize = 2

	// MaxCountSize is the widest element count a sequence may declare.
	MaxCountSize = 4
)

// TagBits returns the number of header bits needed to discriminate
// variants enum variants: max(1, ceil(log2(variants))).
//
//	1 → 1, 2 → 1, 3 → 2, 4 → 2, 5 → 3, 8 → 3, 9 → 4
func TagBits(variants int) int {
	if variants <= 2 {
		return 1
	}
	return bits.Len(uint(variants - 1))
}

// MaxPrefixValue returns the largest count representable in width bytes.
func MaxPrefixValue(width int) uint64 {
	if width >= Uint64Size {
		return 1<<64 - 1
	}
	return 1<<(8*uint(width)) - 1
}

// AppendLength appends n as a width-byte big-endian prefix. It returns false
// and leaves buf unchanged when n does not fit.
func AppendLength(buf []byte, n, width int) ([]byte, bool) {
	if n < 0 || uint64(n) > MaxPrefixValue(width) {
		return buf, false
	}
	return AppendUintN(buf, uint64(n), width), true
}

// DecodeLength decodes a width-byte big-endian prefix.
func DecodeLength(data []byte, width int) (int, error) {
	v, err := DecodeUintN(data, width, Uint64Size)
	if err != nil {
		return 0, err
	}
	if int(v) < 0 {
		return 0, ErrInvalidSize
	}
	return int(v), nil
}
