package pade

import (
	"fmt"

	"github.com/blockberries/pade/internal/wire"
)

// HeaderWriter packs booleans, option presence bits and enum tags into a
// header region reserved by Writer.ReserveHeader. Bits are assigned
// MSB-first starting at byte 0, in the order the Put methods are called.
type HeaderWriter struct {
	w    *Writer
	off  int // offset of the region in w.buf, -1 if the writer had failed
	bits int
	pos  int
}

// Bits returns the number of bits the region was reserved for.
func (h *HeaderWriter) Bits() int {
	return h.bits
}

// Used returns the number of bits written so far.
func (h *HeaderWriter) Used() int {
	return h.pos
}

func (h *HeaderWriter) claim(n int) bool {
	if h.off < 0 || h.w.err != nil {
		return false
	}
	if h.pos+n > h.bits {
		h.w.failf(nil, "header overflow: %d bits reserved, %d requested", h.bits, h.pos+n)
		return false
	}
	return true
}

// PutBool packs one bit.
func (h *HeaderWriter) PutBool(v bool) {
	if !h.claim(1) {
		return
	}
	region := h.w.buf[h.off : h.off+wire.HeaderSize(h.bits)]
	wire.PutBit(region, h.pos, v)
	h.pos++
}

// PutBits packs the low n bits of v, most significant first.
func (h *HeaderWriter) PutBits(v uint64, n int) {
	if !h.claim(n) {
		return
	}
	region := h.w.buf[h.off : h.off+wire.HeaderSize(h.bits)]
	wire.PutBits(region, h.pos, v, n)
	h.pos += n
}

// PutTag packs the tag of an enum with the given number of variants,
// using TagBits(variants) bits.
func (h *HeaderWriter) PutTag(tag, variants int) {
	if tag < 0 || tag >= variants {
		h.w.failf(ErrUnknownVariant, "tag %d outside [0, %d)", tag, variants)
		return
	}
	h.PutBits(uint64(tag), wire.TagBits(variants))
}

// HeaderReader unpacks bits from a header region consumed by
// Reader.ReadHeader, in the order HeaderWriter packed them.
type HeaderReader struct {
	r    *Reader
	data []byte // nil if the region could not be read
	off  int    // input offset of the region
	bits int
	pos  int
}

// Bits returns the number of bits in the region.
func (h *HeaderReader) Bits() int {
	return h.bits
}

func (h *HeaderReader) claim(n int) bool {
	if h.data == nil || h.r.err != nil {
		return false
	}
	if h.pos+n > h.bits {
		h.r.setError(NewDecodeErrorAt(h.off, "header bits exhausted", ErrInvalidSize))
		return false
	}
	return true
}

// Bool unpacks one bit.
func (h *HeaderReader) Bool() bool {
	if !h.claim(1) {
		return false
	}
	v := wire.GetBit(h.data, h.pos)
	h.pos++
	return v
}

// Uint unpacks n bits, most significant first.
func (h *HeaderReader) Uint(n int) uint64 {
	if !h.claim(n) {
		return 0
	}
	v := wire.GetBits(h.data, h.pos, n)
	h.pos += n
	return v
}

// Tag unpacks the tag of an enum with the given number of variants. A tag
// outside [0, variants) fails with ErrUnknownVariant and returns -1.
func (h *HeaderReader) Tag(variants int) int {
	if h.data == nil || h.r.err != nil {
		return -1
	}
	tag := h.Uint(wire.TagBits(variants))
	if h.r.err != nil {
		return -1
	}
	if tag >= uint64(variants) {
		h.r.setError(NewDecodeErrorAt(h.off, fmt.Sprintf("tag %d outside [0, %d)", tag, variants), ErrUnknownVariant))
		return -1
	}
	return int(tag)
}
