// Package wire provides low-level primitives for the PADE wire format:
// big-endian fixed-width integers, narrowed widths, MSB-first header bits,
// length prefixes and the variant tag width rule.
package wire

import (
	"encoding/binary"
	"errors"
)

// Errors for primitive decoding.
var (
	// ErrInvalidSize indicates fewer bytes remain than the current step requires.
	ErrInvalidSize = errors.New("pade: invalid size")

	// ErrIncorrectWidth indicates a requested width exceeds the native width of the type.
	ErrIncorrectWidth = errors.New("pade: incorrect width")

	// ErrUnknownVariant indicates a decoded tag outside the declared variant range.
	ErrUnknownVariant = errors.New("pade: unknown variant")
)

// Native widths in bytes.
const (
	Uint8Size   = 1
	Uint16Size  = 2
	Int24Size   = 3
	Uint32Size  = 4
	Uint64Size  = 8
	Uint128Size = 16
	Uint160Size = 20
	Uint256Size = 32
)

// AppendUint16 appends v in big-endian order.
func AppendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

// AppendUint32 appends v in big-endian order.
func AppendUint32(buf []byte, v uint32) []byte {
	return append(buf,
		byte(v>>24),
		byte(v>>16),
		byte(v>>8),
		byte(v),
	)
}

// AppendUint64 appends v in big-endian order.
func AppendUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v>>56),
		byte(v>>48),
		byte(v>>40),
		byte(v>>32),
		byte(v>>24),
		byte(v>>16),
		byte(v>>8),
		byte(v),
	)
}

// AppendUintN appends the low n bytes of v in big-endian order.
// n must be in [1, 8].
func AppendUintN(buf []byte, v uint64, n int) []byte {
	for i := n - 1; i >= 0; i-- {
		buf = append(buf, byte(v>>(8*uint(i))))
	}
	return buf
}

// DecodeUint16 decodes a big-endian 16-bit value.
func DecodeUint16(data []byte) (uint16, error) {
	if len(data) < Uint16Size {
		return 0, ErrInvalidSize
	}
	return binary.BigEndian.Uint16(data), nil
}

// DecodeUint32 decodes a big-endian 32-bit value.
func DecodeUint32(data []byte) (uint32, error) {
	if len(data) < Uint32Size {
		return 0, ErrInvalidSize
	}
	return binary.BigEndian.Uint32(data), nil
}

// DecodeUint64 decodes a big-endian 64-bit value.
func DecodeUint64(data []byte) (uint64, error) {
	if len(data) < Uint64Size {
		return 0, ErrInvalidSize
	}
	return binary.BigEndian.Uint64(data), nil
}

// DecodeUintN decodes width big-endian bytes as an unsigned value of native
// bytes, zero-extending on the left. native must be at most 8.
//
// The width is checked before the input length, so a width wider than the
// type fails with ErrIncorrectWidth even on empty input.
func DecodeUintN(data []byte, width, native int) (uint64, error) {
	if width < 1 || width > native {
		return 0, ErrIncorrectWidth
	}
	if len(data) < width {
		return 0, ErrInvalidSize
	}
	var v uint64
	for _, b := range data[:width] {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// DecodeIntN is DecodeUintN for two's complement values. The top bit of the
// narrowed value is extended to the native width.
func DecodeIntN(data []byte, width, native int) (int64, error) {
	u, err := DecodeUintN(data, width, native)
	if err != nil {
		return 0, err
	}
	shift := 64 - 8*uint(width)
	return int64(u<<shift) >> shift, nil
}

// FitsUint reports whether v is representable in width bytes.
func FitsUint(v uint64, width int) bool {
	if width >= Uint64Size {
		return true
	}
	return v>>(8*uint(width)) == 0
}

// FitsInt reports whether v is representable in width bytes of two's complement.
func FitsInt(v int64, width int) bool {
	if width >= Uint64Size {
		return true
	}
	shift := 64 - 8*uint(width)
	return int64(uint64(v)<<shift)>>shift == v
}

// AppendNarrow appends the trailing width bytes of the big-endian value src.
// It returns false and leaves buf unchanged if a dropped leading byte is
// nonzero or width is outside [1, len(src)].
func AppendNarrow(buf, src []byte, width int) ([]byte, bool) {
	if width < 1 || width > len(src) {
		return buf, false
	}
	for _, b := range src[:len(src)-width] {
		if b != 0 {
			return buf, false
		}
	}
	return append(buf, src[len(src)-width:]...), true
}

// DecodeNarrow reads width bytes from data and returns them left-padded with
// zeros to a native-width big-endian slice.
func DecodeNarrow(data []byte, width, native int) ([]byte, error) {
	if width < 1 || width > native {
		return nil, ErrIncorrectWidth
	}
	if len(data) < width {
		return nil, ErrInvalidSize
	}
	out := make([]byte, native)
	copy(out[native-width:], data[:width])
	return out, nil
}
