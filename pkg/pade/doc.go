// Package pade implements PADE, a compact positional binary encoding for
// structs, tagged enums, fixed-width integers, booleans, optional values and
// sequences.
//
// PADE is not self-describing. Both sides must agree on the Go types, and
// the only type information on the wire is the enum discriminant.
//
// # Wire format
//
// Integers are big-endian at their native width. A struct field tagged
// pade:"width=N" is written in its low N bytes and restored on decode by
// zero extension (unsigned) or sign extension (signed). A value that does
// not fit is an encode error, never truncated.
//
// Booleans, enum tags and the presence bits of optional (pointer) fields are
// packable. Within a struct every maximal run of packable fields shares one
// header of ceil(bits/8) bytes, filled most significant bit first in field
// order. The header comes first, then the bodies of the run's fields (enum
// payloads and present option values) in order. Any other field closes the
// run and is encoded in place.
//
// An enum with n variants uses max(1, ceil(log2 n)) tag bits regardless of
// the variant present. A packable value outside a struct, such as a
// top-level bool or a sequence element, carries its own header.
//
// Byte strings ([]byte, Bytes) carry a 3-byte length prefix. Sequences carry
// a 2-byte element count, or pade:"count=N" bytes. Arrays carry no prefix.
//
// # Enums
//
// An enum is a Go interface registered with its variants in tag order:
//
//	type Shape interface{ isShape() }
//	type Circle struct{ R uint32 }
//	type Square struct{ Side uint32 }
//
//	func init() {
//		pade.MustRegisterEnum[Shape](Circle{}, Square{})
//	}
//
// Unit enums over an integer type are registered with RegisterUnitEnum.
//
// # Errors
//
// Decoding never panics. Malformed input yields a *DecodeError whose
// cause is ErrInvalidSize, ErrIncorrectWidth, ErrUnknownVariant or one of the
// limit and value errors; KindOf classifies any of them.
package pade
